package store

import (
	"context"

	"github.com/shopspring/decimal"

	"ministore/internal/apperror"
	"ministore/internal/domain"
)

var DemoCategories = []string{
	"Beverages", "Snacks", "Groceries", "Dairy", "Household", "Personal Care", "Electronics", "Bakery",
}

func DemoItems() []domain.ItemInput {
	item := func(name, code, price string, stock, threshold int, category string) domain.ItemInput {
		c := category
		t := threshold
		return domain.ItemInput{
			Name:              name,
			ItemCode:          code,
			Price:             decimal.RequireFromString(price),
			StockQuantity:     stock,
			LowStockThreshold: &t,
			Category:          &c,
		}
	}
	return []domain.ItemInput{
		item("Mineral Water 500ml", "BEV-001", "0.50", 100, 20, "Beverages"),
		item("Cola Soda 330ml", "BEV-002", "1.00", 80, 15, "Beverages"),
		item("Orange Juice 1L", "BEV-003", "2.50", 40, 10, "Beverages"),
		item("Energy Drink 250ml", "BEV-004", "2.00", 0, 10, "Beverages"),
		item("Potato Chips", "SNK-001", "1.20", 60, 15, "Snacks"),
		item("Chocolate Bar", "SNK-002", "0.80", 100, 25, "Snacks"),
		item("Cookies Pack", "SNK-003", "2.00", 45, 10, "Snacks"),
		item("Rice 5kg", "GRC-001", "8.00", 30, 5, "Groceries"),
		item("Milk 1L", "DRY-001", "2.00", 25, 10, "Dairy"),
		item("Toilet Paper", "HHS-001", "3.00", 40, 10, "Household"),
		item("Shampoo 200ml", "PRC-001", "4.00", 30, 8, "Personal Care"),
		item("USB Cable 1m", "ELE-001", "5.00", 25, 5, "Electronics"),
		item("Fresh Bread Loaf", "BAK-001", "2.50", 20, 5, "Bakery"),
	}
}

// Seed loads the demo catalog into repo. Entries that already exist are
// skipped, so seeding twice leaves one copy.
func Seed(ctx context.Context, repo Repository) error {
	for _, name := range DemoCategories {
		if _, err := repo.CreateCategory(ctx, name); err != nil && !apperror.IsConflict(err) {
			return err
		}
	}
	for _, in := range DemoItems() {
		if _, err := repo.CreateItem(ctx, in); err != nil && !apperror.IsConflict(err) {
			return err
		}
	}
	return nil
}
