package store

import (
	"fmt"
	"time"

	"ministore/internal/apperror"
	"ministore/internal/domain"
)

// NormalizeItemInput trims text fields, upper-cases the code, drops an empty
// category, truncates the expiry to a calendar date and applies the default
// low-stock threshold. Prices are kept to cents, as NUMERIC(12,2) stores them.
func NormalizeItemInput(in domain.ItemInput) domain.ItemInput {
	in.Name = NormalizeName(in.Name)
	in.Price = in.Price.Round(2)
	in.ItemCode = NormalizeCode(in.ItemCode)
	in.Category = normalizeLabel(in.Category)
	in.ExpiryDate = NormalizeDate(in.ExpiryDate)
	if in.LowStockThreshold == nil {
		t := domain.DefaultLowStockThreshold
		in.LowStockThreshold = &t
	}
	return in
}

func NormalizeItemPatch(p domain.ItemPatch) domain.ItemPatch {
	if p.Price != nil {
		price := p.Price.Round(2)
		p.Price = &price
	}
	if p.Name != nil {
		n := NormalizeName(*p.Name)
		p.Name = &n
	}
	if p.ItemCode != nil {
		c := NormalizeCode(*p.ItemCode)
		p.ItemCode = &c
	}
	if p.Category != nil {
		p.Category = normalizeLabel(p.Category)
		if p.Category == nil {
			p.ClearCategory = true
		}
	}
	p.ExpiryDate = NormalizeDate(p.ExpiryDate)
	return p
}

func NormalizeSalePatch(p domain.SalePatch) domain.SalePatch {
	if p.CustomerName != nil {
		p.CustomerName = normalizeLabel(p.CustomerName)
		if p.CustomerName == nil {
			p.ClearCustomerName = true
		}
	}
	return p
}

// NormalizeDate keeps only the calendar date of t, at midnight UTC.
func NormalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}

func normalizeLabel(s *string) *string {
	if s == nil {
		return nil
	}
	v := NormalizeName(*s)
	if v == "" {
		return nil
	}
	return &v
}

// CheckItem enforces the row invariants every backend must hold, whatever
// validation the caller did or skipped.
func CheckItem(item domain.Item) error {
	switch {
	case item.Name == "":
		return apperror.NewValidation("item name is required")
	case item.ItemCode == "":
		return apperror.NewValidation("item code is required")
	case item.Price.IsNegative():
		return apperror.NewValidation("item price must not be negative")
	case item.StockQuantity < 0:
		return apperror.NewValidation("stock quantity must not be negative")
	case item.StockQuantity > domain.MaxStockQuantity:
		return apperror.NewValidation(fmt.Sprintf("stock quantity must be at most %d", domain.MaxStockQuantity))
	case item.LowStockThreshold < 0:
		return apperror.NewValidation("low stock threshold must not be negative")
	}
	return nil
}

func CheckStockAdjustment(quantity int, op domain.StockOperation) error {
	if !op.Valid() {
		return apperror.NewValidation("unknown stock operation").WithDetail("operation", op)
	}
	if quantity < 0 {
		return apperror.NewValidation("stock quantity must not be negative").WithDetail("quantity", quantity)
	}
	if quantity > domain.MaxStockQuantity {
		return apperror.NewValidation(fmt.Sprintf("stock quantity must be at most %d", domain.MaxStockQuantity)).
			WithDetail("quantity", quantity)
	}
	return nil
}

// NextStock applies op to current. An add that would pass MaxStockQuantity
// is rejected rather than wrapped or floored.
func NextStock(current, quantity int, op domain.StockOperation) (int, error) {
	if err := CheckStockAdjustment(quantity, op); err != nil {
		return current, err
	}
	if op == domain.StockAdd && quantity > domain.MaxStockQuantity-current {
		return current, apperror.NewValidation(fmt.Sprintf("stock quantity would exceed %d", domain.MaxStockQuantity)).
			WithDetail("current", current).
			WithDetail("quantity", quantity)
	}
	return op.Apply(current, quantity), nil
}

func CheckNewSale(ns domain.NewSale) error {
	if ns.Sale.InvoiceNumber == "" {
		return apperror.NewValidation("invoice number is required")
	}
	if !ns.Sale.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").WithDetail("payment_method", ns.Sale.PaymentMethod)
	}
	if ns.Sale.TotalAmount.IsNegative() {
		return apperror.NewValidation("total amount must not be negative")
	}
	for i, l := range ns.Lines {
		if l.Quantity < 1 || l.Quantity > domain.MaxStockQuantity {
			return apperror.NewValidation(fmt.Sprintf("line quantity must be between 1 and %d", domain.MaxStockQuantity)).WithDetail("index", i)
		}
		if l.UnitPrice.IsNegative() || l.TotalPrice.IsNegative() {
			return apperror.NewValidation("line prices must not be negative").WithDetail("index", i)
		}
	}
	return nil
}

func CheckSale(sale domain.Sale) error {
	if !sale.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").WithDetail("payment_method", sale.PaymentMethod)
	}
	if sale.TotalAmount.IsNegative() {
		return apperror.NewValidation("total amount must not be negative")
	}
	return nil
}
