// Package storetest holds the behaviour every store.Repository backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/store"
)

// Factory returns an empty, initialized repository for one subtest.
type Factory func(t *testing.T) store.Repository

func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo store.Repository)
	}{
		{"InitializeIsIdempotent", testInitializeIsIdempotent},
		{"ItemRoundTrip", testItemRoundTrip},
		{"ItemCodeIsNormalized", testItemCodeIsNormalized},
		{"PricesKeepCents", testPricesKeepCents},
		{"DuplicateItemCodeConflicts", testDuplicateItemCodeConflicts},
		{"UpdateItem", testUpdateItem},
		{"DeleteItem", testDeleteItem},
		{"GetItemsPagination", testGetItemsPagination},
		{"GetItemsFilterAndSort", testGetItemsFilterAndSort},
		{"SearchItemsIsCapped", testSearchItemsIsCapped},
		{"AdjustStock", testAdjustStock},
		{"Categories", testCategories},
		{"CreateSale", testCreateSale},
		{"CreateSaleRejectsMissingItem", testCreateSaleRejectsMissingItem},
		{"InvoiceNumberIsUnique", testInvoiceNumberIsUnique},
		{"GetSalesFilters", testGetSalesFilters},
		{"UpdateSale", testUpdateSale},
		{"DeleteSale", testDeleteSale},
		{"DanglingItemReference", testDanglingItemReference},
		{"RangeQueries", testRangeQueries},
		{"Cleanup", testCleanup},
		{"HealthCheck", testHealthCheck},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newRepo(t))
		})
	}
}

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strp(s string) *string { return &s }

func createItem(t *testing.T, repo store.Repository, code string, stock int) *domain.Item {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), domain.ItemInput{
		Name:          "Item " + code,
		ItemCode:      code,
		Price:         money("1.00"),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return item
}

func createSale(t *testing.T, repo store.Repository, invoice string, at time.Time, method domain.PaymentMethod, customer *string, lines ...domain.SaleItem) *domain.SaleWithItems {
	t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	if total.IsZero() {
		total = money("1.00")
	}
	sale, err := repo.CreateSale(context.Background(), domain.NewSale{
		Sale: domain.Sale{
			SaleDate:      at,
			TotalAmount:   total,
			PaymentMethod: method,
			CustomerName:  customer,
			InvoiceNumber: invoice,
		},
		Lines: lines,
	})
	require.NoError(t, err)
	return sale
}

func line(itemID int64, qty int, unit string) domain.SaleItem {
	u := money(unit)
	return domain.SaleItem{ItemID: itemID, Quantity: qty, UnitPrice: u, TotalPrice: u.Mul(decimal.NewFromInt(int64(qty)))}
}

func testInitializeIsIdempotent(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Initialize(ctx))
	createItem(t, repo, "INIT-1", 1)
	require.NoError(t, repo.Initialize(ctx))

	items, err := repo.ListAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testItemRoundTrip(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	threshold := 20
	expiry := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	created, err := repo.CreateItem(ctx, domain.ItemInput{
		Name:              "Mineral Water",
		ItemCode:          "BEV-001",
		Price:             money("0.50"),
		StockQuantity:     100,
		LowStockThreshold: &threshold,
		Category:          strp("Beverages"),
		ExpiryDate:        &expiry,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := repo.GetItemByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Mineral Water", got.Name)
	assert.Equal(t, "BEV-001", got.ItemCode)
	assert.True(t, got.Price.Equal(money("0.50")), "price %s", got.Price)
	assert.Equal(t, 100, got.StockQuantity)
	assert.Equal(t, 20, got.LowStockThreshold)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Beverages", *got.Category)
	require.NotNil(t, got.ExpiryDate)
	assert.Equal(t, "2026-06-30", got.ExpiryDate.Format("2006-01-02"))
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	plain := createItem(t, repo, "PLAIN-1", 3)
	assert.Equal(t, domain.DefaultLowStockThreshold, plain.LowStockThreshold)
	assert.Nil(t, plain.Category)
	assert.Nil(t, plain.ExpiryDate)

	_, err = repo.GetItemByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testItemCodeIsNormalized(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	created := createItem(t, repo, "  snk-010 ", 5)
	assert.Equal(t, "SNK-010", created.ItemCode)

	got, err := repo.GetItemByCode(ctx, "snk-010")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.GetItemByCode(ctx, "NOPE-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testPricesKeepCents(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item, err := repo.CreateItem(ctx, domain.ItemInput{
		Name:          "Bulk Rice",
		ItemCode:      "GRC-100",
		Price:         money("1.005"),
		StockQuantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(money("1.01")), "got %s", item.Price)

	price := money("2.344")
	updated, err := repo.UpdateItem(ctx, item.ID, domain.ItemPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(money("2.34")), "got %s", updated.Price)
}

func testDuplicateItemCodeConflicts(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	original := createItem(t, repo, "DUP-1", 7)

	_, err := repo.CreateItem(ctx, domain.ItemInput{Name: "Other", ItemCode: "dup-1", Price: money("9.99"), StockQuantity: 1})
	require.ErrorIs(t, err, apperror.ErrConflict)

	got, err := repo.GetItemByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, 7, got.StockQuantity)
	assert.True(t, got.Price.Equal(original.Price))

	items, err := repo.ListAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testUpdateItem(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	a := createItem(t, repo, "UPD-A", 1)
	b := createItem(t, repo, "UPD-B", 1)

	name := "Renamed"
	price := money("3.25")
	cat := "Snacks"
	updated, err := repo.UpdateItem(ctx, a.ID, domain.ItemPatch{Name: &name, Price: &price, Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "UPD-A", updated.ItemCode)
	require.NotNil(t, updated.Category)
	assert.False(t, updated.UpdatedAt.Before(a.UpdatedAt))

	cleared, err := repo.UpdateItem(ctx, a.ID, domain.ItemPatch{ClearCategory: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.Category)

	code := "upd-b"
	_, err = repo.UpdateItem(ctx, a.ID, domain.ItemPatch{ItemCode: &code})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	same := "UPD-A"
	_, err = repo.UpdateItem(ctx, a.ID, domain.ItemPatch{ItemCode: &same})
	assert.NoError(t, err, "keeping its own code is not a conflict")

	_, err = repo.UpdateItem(ctx, b.ID+1000, domain.ItemPatch{Name: &name})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	negative := -1
	_, err = repo.UpdateItem(ctx, b.ID, domain.ItemPatch{StockQuantity: &negative})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func testDeleteItem(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "DEL-1", 1)

	deleted, err := repo.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, deleted.ID)

	_, err = repo.GetItemByID(ctx, item.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = repo.DeleteItem(ctx, item.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// the code is free again
	createItem(t, repo, "DEL-1", 1)
}

func testGetItemsPagination(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		createItem(t, repo, fmt.Sprintf("PAGE-%d", i), i)
	}

	page, err := repo.GetItems(ctx, domain.ItemQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "PAGE-4", page.Items[0].ItemCode)
	assert.Equal(t, "PAGE-5", page.Items[1].ItemCode)
	assert.Equal(t, "PAGE-6", page.Items[2].ItemCode)
	assert.Equal(t, domain.Pagination{Page: 2, Limit: 3, Total: 7, TotalPages: 3}, page.Pagination)

	last, err := repo.GetItems(ctx, domain.ItemQuery{Page: 3, Limit: 3})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "PAGE-7", last.Items[0].ItemCode)

	beyond, err := repo.GetItems(ctx, domain.ItemQuery{Page: 9, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)

	huge, err := repo.GetItems(ctx, domain.ItemQuery{Page: math.MaxInt/100 + 2, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, huge.Items)
	assert.Equal(t, store.MaxPage, huge.Pagination.Page)
	assert.Equal(t, 7, huge.Pagination.Total)

	sales, err := repo.GetSales(ctx, domain.SaleQuery{Page: math.MaxInt, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, sales.Sales)

	defaults, err := repo.GetItems(ctx, domain.ItemQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Pagination.Page)
	assert.Equal(t, store.MaxLimit, defaults.Pagination.Limit)
	assert.Len(t, defaults.Items, 7)
}

func testGetItemsFilterAndSort(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	mk := func(name, code, price, category string) {
		_, err := repo.CreateItem(ctx, domain.ItemInput{Name: name, ItemCode: code, Price: money(price), StockQuantity: 1, Category: strp(category)})
		require.NoError(t, err)
	}
	mk("Cola Soda", "BEV-002", "1.00", "Beverages")
	mk("Orange Juice", "BEV-003", "2.50", "Beverages")
	mk("Potato Chips", "SNK-001", "1.20", "Snacks")
	mk("Chocolate Bar", "SNK-002", "0.80", "Snacks")

	byName, err := repo.GetItems(ctx, domain.ItemQuery{Search: "cHoc"})
	require.NoError(t, err)
	require.Len(t, byName.Items, 1)
	assert.Equal(t, "SNK-002", byName.Items[0].ItemCode)

	byCode, err := repo.GetItems(ctx, domain.ItemQuery{Search: "bev"})
	require.NoError(t, err)
	assert.Len(t, byCode.Items, 2)

	byCategory, err := repo.GetItems(ctx, domain.ItemQuery{Category: "Snacks"})
	require.NoError(t, err)
	assert.Len(t, byCategory.Items, 2)

	partialCategory, err := repo.GetItems(ctx, domain.ItemQuery{Category: "Snack"})
	require.NoError(t, err)
	assert.Empty(t, partialCategory.Items, "category is an exact match")

	byPrice, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: store.SortByPrice, SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, byPrice.Items, 4)
	assert.Equal(t, []string{"BEV-003", "SNK-001", "BEV-002", "SNK-002"}, codesOf(byPrice.Items))

	byNameAsc, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: store.SortByName})
	require.NoError(t, err)
	assert.Equal(t, []string{"SNK-002", "BEV-002", "BEV-003", "SNK-001"}, codesOf(byNameAsc.Items))

	insertion, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BEV-002", "BEV-003", "SNK-001", "SNK-002"}, codesOf(insertion.Items))
}

func codesOf(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ItemCode)
	}
	return out
}

func testSearchItemsIsCapped(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	for i := 0; i < store.MaxSearchResults+10; i++ {
		createItem(t, repo, fmt.Sprintf("CAP-%03d", i), 1)
	}
	_, err := repo.CreateItem(ctx, domain.ItemInput{Name: "Rice 5kg", ItemCode: "GRC-001", Price: money("8"), StockQuantity: 1, Category: strp("Groceries")})
	require.NoError(t, err)

	all, err := repo.SearchItems(ctx, "cap")
	require.NoError(t, err)
	assert.Len(t, all, store.MaxSearchResults)

	byCategory, err := repo.SearchItems(ctx, "grocer")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "GRC-001", byCategory[0].ItemCode)
}

func testAdjustStock(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "STK-1", 5)

	got, err := repo.AdjustStock(ctx, item.ID, 999999, domain.StockSubtract)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	got, err = repo.AdjustStock(ctx, item.ID, 12, domain.StockSet)
	require.NoError(t, err)
	assert.Equal(t, 12, got.StockQuantity)

	got, err = repo.AdjustStock(ctx, item.ID, 0, domain.StockAdd)
	require.NoError(t, err)
	assert.Equal(t, 12, got.StockQuantity)
	got, err = repo.AdjustStock(ctx, item.ID, 0, domain.StockSubtract)
	require.NoError(t, err)
	assert.Equal(t, 12, got.StockQuantity)

	got, err = repo.AdjustStock(ctx, item.ID, 3, domain.StockAdd)
	require.NoError(t, err)
	assert.Equal(t, 15, got.StockQuantity)

	got, err = repo.AdjustStock(ctx, item.ID, 15+1, domain.StockSubtract)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	got, err = repo.AdjustStock(ctx, item.ID, domain.MaxStockQuantity-15, domain.StockAdd)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStockQuantity, got.StockQuantity)
	_, err = repo.AdjustStock(ctx, item.ID, 1, domain.StockAdd)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	got, err = repo.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStockQuantity, got.StockQuantity, "a rejected add leaves stock alone")
	_, err = repo.AdjustStock(ctx, item.ID, math.MaxInt, domain.StockSet)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = repo.AdjustStock(ctx, item.ID+1000, 1, domain.StockAdd)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = repo.AdjustStock(ctx, item.ID, -1, domain.StockSet)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = repo.AdjustStock(ctx, item.ID, 1, domain.StockOperation("multiply"))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func testCategories(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	snacks, err := repo.CreateCategory(ctx, " Snacks ")
	require.NoError(t, err)
	assert.Equal(t, "Snacks", snacks.Name)
	dairy, err := repo.CreateCategory(ctx, "Dairy")
	require.NoError(t, err)

	_, err = repo.CreateCategory(ctx, "snacks")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	byName, err := repo.GetCategoryByName(ctx, "SNACKS")
	require.NoError(t, err)
	assert.Equal(t, snacks.ID, byName.ID)

	all, err := repo.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dairy", all[0].Name)

	_, err = repo.UpdateCategory(ctx, dairy.ID, "snacks")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	renamed, err := repo.UpdateCategory(ctx, dairy.ID, "Dairy & Eggs")
	require.NoError(t, err)
	assert.Equal(t, "Dairy & Eggs", renamed.Name)
	_, err = repo.UpdateCategory(ctx, dairy.ID+1000, "X")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.CreateItem(ctx, domain.ItemInput{Name: "Chips", ItemCode: "SNK-1", Price: money("1"), StockQuantity: 1, Category: strp("Snacks")})
	require.NoError(t, err)
	_, err = repo.DeleteCategory(ctx, snacks.ID)
	require.NoError(t, err)
	_, err = repo.GetCategoryByID(ctx, snacks.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	item, err := repo.GetItemByCode(ctx, "SNK-1")
	require.NoError(t, err)
	require.NotNil(t, item.Category, "deleting a category leaves item labels alone")
	assert.Equal(t, "Snacks", *item.Category)

	_, err = repo.DeleteCategory(ctx, snacks.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testCreateSale(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	water := createItem(t, repo, "BEV-001", 100)
	chips := createItem(t, repo, "SNK-001", 3)

	sale := createSale(t, repo, "INV-TEST-0001", base, domain.PaymentCash, strp("Ana"),
		line(water.ID, 5, "0.50"),
		line(chips.ID, 5, "1.20"),
	)
	assert.Positive(t, sale.ID)
	assert.Equal(t, "INV-TEST-0001", sale.InvoiceNumber)
	assert.True(t, sale.TotalAmount.Equal(money("8.50")))
	require.Len(t, sale.Items, 2)
	for _, it := range sale.Items {
		assert.Equal(t, sale.ID, it.SaleID)
		assert.Positive(t, it.ID)
		assert.False(t, it.ItemMissing)
	}

	w, err := repo.GetItemByID(ctx, water.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, w.StockQuantity)
	c, err := repo.GetItemByID(ctx, chips.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.StockQuantity, "sale decrements floor at zero")

	joined, err := repo.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, joined.Items, 2)
	assert.Equal(t, "Item BEV-001", joined.Items[0].ItemName)
	assert.Equal(t, "BEV-001", joined.Items[0].ItemCode)
	assert.True(t, joined.Items[1].TotalPrice.Equal(money("6.00")))

	header, err := repo.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, header.PaymentMethod)
	require.NotNil(t, header.CustomerName)
	assert.Equal(t, "Ana", *header.CustomerName)

	headerOnly := createSale(t, repo, "INV-TEST-0002", base, domain.PaymentCredit, nil)
	assert.Empty(t, headerOnly.Items)
}

func testCreateSaleRejectsMissingItem(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "ATOM-1", 10)

	_, err := repo.CreateSale(ctx, domain.NewSale{
		Sale:  domain.Sale{SaleDate: base, TotalAmount: money("2"), PaymentMethod: domain.PaymentCash, InvoiceNumber: "INV-ATOM-0001"},
		Lines: []domain.SaleItem{line(item.ID, 1, "1"), line(item.ID+1000, 1, "1")},
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := repo.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity, "a rejected sale leaves stock untouched")

	page, err := repo.GetSales(ctx, domain.SaleQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
}

func testInvoiceNumberIsUnique(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	createSale(t, repo, "INV-SAME-AAAA", base, domain.PaymentCash, nil)
	_, err := repo.CreateSale(ctx, domain.NewSale{
		Sale: domain.Sale{SaleDate: base, TotalAmount: money("1"), PaymentMethod: domain.PaymentCash, InvoiceNumber: "INV-SAME-AAAA"},
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func testGetSalesFilters(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	createSale(t, repo, "INV-F-0001", base, domain.PaymentCash, strp("Maria Lopez"))
	createSale(t, repo, "INV-F-0002", base.Add(24*time.Hour), domain.PaymentCredit, strp("John"))
	createSale(t, repo, "INV-F-0003", base.Add(48*time.Hour), domain.PaymentCash, nil)

	all, err := repo.GetSales(ctx, domain.SaleQuery{})
	require.NoError(t, err)
	require.Len(t, all.Sales, 3)
	assert.Equal(t, "INV-F-0003", all.Sales[0].InvoiceNumber, "newest first")
	assert.Equal(t, "INV-F-0001", all.Sales[2].InvoiceNumber)

	cash, err := repo.GetSales(ctx, domain.SaleQuery{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, 2, cash.Pagination.Total)

	customer, err := repo.GetSales(ctx, domain.SaleQuery{CustomerName: "lopez"})
	require.NoError(t, err)
	require.Len(t, customer.Sales, 1)
	assert.Equal(t, "INV-F-0001", customer.Sales[0].InvoiceNumber)

	from := base.Add(12 * time.Hour)
	to := base.Add(24 * time.Hour)
	ranged, err := repo.GetSales(ctx, domain.SaleQuery{StartDate: &from, EndDate: &to})
	require.NoError(t, err)
	require.Len(t, ranged.Sales, 1)
	assert.Equal(t, "INV-F-0002", ranged.Sales[0].InvoiceNumber, "bounds are inclusive")

	paged, err := repo.GetSales(ctx, domain.SaleQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, paged.Sales, 1)
	assert.Equal(t, 2, paged.Pagination.TotalPages)
}

func testUpdateSale(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	sale := createSale(t, repo, "INV-U-0001", base, domain.PaymentCash, strp("Ana"))

	method := domain.PaymentMobilePayment
	updated, err := repo.UpdateSale(ctx, sale.ID, domain.SalePatch{PaymentMethod: &method, ClearCustomerName: true})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMobilePayment, updated.PaymentMethod)
	assert.Nil(t, updated.CustomerName)
	assert.Equal(t, "INV-U-0001", updated.InvoiceNumber)

	bad := domain.PaymentMethod("barter")
	_, err = repo.UpdateSale(ctx, sale.ID, domain.SalePatch{PaymentMethod: &bad})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = repo.UpdateSale(ctx, sale.ID+1000, domain.SalePatch{PaymentMethod: &method})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testDeleteSale(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "VOID-1", 10)
	plain := createSale(t, repo, "INV-D-0001", base, domain.PaymentCash, nil, line(item.ID, 4, "1.00"))
	voided := createSale(t, repo, "INV-D-0002", base, domain.PaymentCash, nil, line(item.ID, 3, "1.00"))

	_, err := repo.DeleteSale(ctx, plain.ID, false)
	require.NoError(t, err)
	_, err = repo.GetSaleWithItems(ctx, plain.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	got, err := repo.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	_, err = repo.DeleteSale(ctx, voided.ID, true)
	require.NoError(t, err)
	got, err = repo.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)

	lines, err := repo.ListSaleLinesInRange(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, lines, "lines are deleted with their sale")

	_, err = repo.DeleteSale(ctx, voided.ID, false)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// the invoice number is released with the sale
	createSale(t, repo, "INV-D-0001", base, domain.PaymentCash, nil)
}

func testDanglingItemReference(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "GONE-1", 10)
	sale := createSale(t, repo, "INV-G-0001", base, domain.PaymentCash, nil, line(item.ID, 1, "1.00"))

	_, err := repo.DeleteItem(ctx, item.ID)
	require.NoError(t, err)

	joined, err := repo.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, joined.Items, 1)
	assert.True(t, joined.Items[0].ItemMissing)
	assert.Equal(t, domain.UnknownItemLabel, joined.Items[0].ItemName)
	assert.Equal(t, domain.UnknownItemLabel, joined.Items[0].ItemCode)
	assert.Equal(t, item.ID, joined.Items[0].ItemID)

	_, err = repo.DeleteSale(ctx, sale.ID, true)
	require.NoError(t, err, "restocking skips items that no longer exist")
}

func testRangeQueries(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "RNG-1", 100)
	createSale(t, repo, "INV-R-0001", base, domain.PaymentCash, nil, line(item.ID, 1, "1.00"))
	createSale(t, repo, "INV-R-0002", base.Add(72*time.Hour), domain.PaymentCredit, nil, line(item.ID, 2, "1.00"), line(item.ID, 1, "1.00"))

	sales, err := repo.ListSalesInRange(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "INV-R-0001", sales[0].InvoiceNumber, "oldest first")

	from := base.Add(time.Hour)
	later, err := repo.ListSalesInRange(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, later, 1)

	lines, err := repo.ListSaleLinesInRange(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, domain.PaymentCredit, lines[0].PaymentMethod)
	assert.True(t, lines[0].SaleDate.Equal(base.Add(72*time.Hour)))

	to := base
	early, err := repo.ListSaleLinesInRange(ctx, nil, &to)
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, 1, early[0].Quantity)
}

func testCleanup(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createItem(t, repo, "CLN-1", 1)
	createSale(t, repo, "INV-C-0001", base, domain.PaymentCash, nil, line(item.ID, 1, "1.00"))
	_, err := repo.CreateCategory(ctx, "Bakery")
	require.NoError(t, err)

	require.NoError(t, repo.Cleanup(ctx))

	items, err := repo.ListAllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	cats, err := repo.GetCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
	sales, err := repo.ListSalesInRange(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sales)

	again := createItem(t, repo, "CLN-1", 1)
	assert.Equal(t, int64(1), again.ID, "id sequences restart after cleanup")
}

func testHealthCheck(t *testing.T, repo store.Repository) {
	status := repo.HealthCheck(context.Background())
	assert.Equal(t, domain.HealthHealthy, status.Status)
	assert.NotEmpty(t, status.Message)
	assert.False(t, status.Timestamp.IsZero())
}
