package store

import (
	"context"
	"strings"
	"time"

	"ministore/internal/domain"
)

const (
	DefaultPage      = 1
	DefaultLimit     = 100
	MaxLimit         = 100
	MaxSearchResults = 50
	// MaxPage bounds page numbers so (page-1)*limit stays far from overflow.
	MaxPage = 1_000_000
)

// Sort keys accepted by ItemQuery.SortBy. Anything else means insertion order.
const (
	SortByName          = "name"
	SortByCreatedAt     = "createdAt"
	SortByPrice         = "price"
	SortByStockQuantity = "stockQuantity"
)

// Repository is the storage contract shared by every backend. Failures are
// reported as *apperror.AppError values: NOT_FOUND, CONFLICT and
// VALIDATION_ERROR for expected outcomes, INTERNAL_ERROR for backend faults.
type Repository interface {
	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context) error
	HealthCheck(ctx context.Context) domain.HealthStatus

	GetItems(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error)
	GetItemByID(ctx context.Context, id int64) (*domain.Item, error)
	GetItemByCode(ctx context.Context, code string) (*domain.Item, error)
	CreateItem(ctx context.Context, in domain.ItemInput) (*domain.Item, error)
	UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) (*domain.Item, error)
	SearchItems(ctx context.Context, query string) ([]domain.Item, error)
	ListAllItems(ctx context.Context) ([]domain.Item, error)

	// AdjustStock applies one set/add/subtract atomically. The result is
	// floored at zero.
	AdjustStock(ctx context.Context, id int64, quantity int, op domain.StockOperation) (*domain.Item, error)

	GetCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) (*domain.Category, error)

	GetSales(ctx context.Context, q domain.SaleQuery) (domain.SalePage, error)
	GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error)
	GetSaleWithItems(ctx context.Context, id int64) (*domain.SaleWithItems, error)
	// CreateSale stores the header and lines and decrements stock for every
	// line in one unit. A line naming a missing item rejects the whole sale.
	CreateSale(ctx context.Context, sale domain.NewSale) (*domain.SaleWithItems, error)
	UpdateSale(ctx context.Context, id int64, patch domain.SalePatch) (*domain.Sale, error)
	// DeleteSale removes the sale and its lines. With restock, quantities go
	// back to the items that still exist, in the same unit.
	DeleteSale(ctx context.Context, id int64, restock bool) (*domain.Sale, error)
	ListSalesInRange(ctx context.Context, from, to *time.Time) ([]domain.Sale, error)
	ListSaleLinesInRange(ctx context.Context, from, to *time.Time) ([]domain.SaleLine, error)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

func NormalizeItemQuery(q domain.ItemQuery) domain.ItemQuery {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	switch q.SortBy {
	case SortByName, SortByCreatedAt, SortByPrice, SortByStockQuantity:
	default:
		q.SortBy = ""
	}
	if !strings.EqualFold(q.SortOrder, "desc") {
		q.SortOrder = "asc"
	} else {
		q.SortOrder = "desc"
	}
	return q
}

func NormalizeSaleQuery(q domain.SaleQuery) domain.SaleQuery {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	q.CustomerName = strings.TrimSpace(q.CustomerName)
	return q
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func NewPagination(page, limit, total int) domain.Pagination {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return domain.Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// PageBounds returns the [start, end) slice window for a page over total rows.
func PageBounds(page, limit, total int) (int, int) {
	if page < 1 || limit < 1 {
		return 0, 0
	}
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := total
	if limit < total-start {
		end = start + limit
	}
	return start, end
}

// InRange reports whether t falls within the optional inclusive bounds.
func InRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
