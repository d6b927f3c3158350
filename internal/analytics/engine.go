// Package analytics derives alerts, rankings and aggregates from the ledger.
// Every computation is read-only and works on whatever the Source returns, so
// the same engine runs over any storage backend.
package analytics

import (
	"context"
	"time"

	"ministore/internal/domain"
)

const (
	// ExpiryWindowDays is the horizon for expiring-soon alerts.
	ExpiryWindowDays = 30
	// SlowMovingDays is the trailing window with no sales that marks stock as slow moving.
	SlowMovingDays = 30

	DefaultTopSellingLimit = 10
	dashboardTopSellers    = 5
	dashboardRecentSales   = 5
)

// Source is the read side of store.Repository the engine needs.
type Source interface {
	ListAllItems(ctx context.Context) ([]domain.Item, error)
	GetCategories(ctx context.Context) ([]domain.Category, error)
	ListSalesInRange(ctx context.Context, from, to *time.Time) ([]domain.Sale, error)
	ListSaleLinesInRange(ctx context.Context, from, to *time.Time) ([]domain.SaleLine, error)
}

type Engine struct {
	src Source
	loc *time.Location
	now func() time.Time
}

type Option func(*Engine)

// WithLocation sets the zone that defines calendar days, weeks and months.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// ClassifyStock puts an item in exactly one bucket. Zero stock is out of
// stock whatever the threshold.
func ClassifyStock(item domain.Item) domain.StockStatus {
	switch {
	case item.StockQuantity <= 0:
		return domain.StockOutOfStock
	case item.StockQuantity <= item.LowStockThreshold:
		return domain.StockLow
	default:
		return domain.StockInStock
	}
}

// LowStockSeverity grades a low-stock item: two or fewer left is critical,
// at most half the threshold is high, anything else medium.
func LowStockSeverity(item domain.Item) domain.Severity {
	switch {
	case item.StockQuantity <= 2:
		return domain.SeverityCritical
	case item.StockQuantity*2 <= item.LowStockThreshold:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// DaysUntilExpiry counts whole calendar days from today to the expiry date.
// The expiry date is a calendar date, so the result is exact and equals the
// ceiling of the elapsed time from the start of today.
func DaysUntilExpiry(expiry, today time.Time) int {
	return calendarDays(today, expiry)
}

// calendarDays is the number of midnights between the calendar dates of from
// and to, each read in its own location.
func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// ExpirySeverity reports the severity for days until expiry and false when
// the item is outside the alert window.
func ExpirySeverity(days int) (domain.Severity, bool) {
	switch {
	case days <= 7:
		return domain.SeverityCritical, true
	case days <= 14:
		return domain.SeverityHigh, true
	case days <= ExpiryWindowDays:
		return domain.SeverityMedium, true
	}
	return "", false
}
