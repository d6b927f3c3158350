package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/store/memory"
)

// Wednesday afternoon.
var now = time.Date(2026, 1, 14, 15, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	t     *testing.T
	store *memory.Store
	seq   int
}

func newFixture(t *testing.T) *fixture {
	clock := func() time.Time { return now }
	return &fixture{t: t, store: memory.New(memory.WithClock(clock))}
}

func (f *fixture) engine(opts ...Option) *Engine {
	return New(f.store, append([]Option{WithLocation(time.UTC), WithClock(func() time.Time { return now })}, opts...)...)
}

func (f *fixture) item(code string, stock, threshold int, category string, expiry *time.Time) domain.Item {
	f.t.Helper()
	in := domain.ItemInput{
		Name:              "Item " + code,
		ItemCode:          code,
		Price:             money("1.00"),
		StockQuantity:     stock,
		LowStockThreshold: &threshold,
		ExpiryDate:        expiry,
	}
	if category != "" {
		in.Category = &category
	}
	item, err := f.store.CreateItem(context.Background(), in)
	require.NoError(f.t, err)
	return *item
}

func (f *fixture) sale(at time.Time, method domain.PaymentMethod, total string, lines ...domain.SaleItem) *domain.SaleWithItems {
	f.t.Helper()
	f.seq++
	sale, err := f.store.CreateSale(context.Background(), domain.NewSale{
		Sale: domain.Sale{
			SaleDate:      at,
			TotalAmount:   money(total),
			PaymentMethod: method,
			InvoiceNumber: fmt.Sprintf("INV-TEST-%04d", f.seq),
		},
		Lines: lines,
	})
	require.NoError(f.t, err)
	return sale
}

func line(item domain.Item, qty int, unit string) domain.SaleItem {
	u := money(unit)
	return domain.SaleItem{ItemID: item.ID, Quantity: qty, UnitPrice: u, TotalPrice: u.Mul(decimal.NewFromInt(int64(qty)))}
}

func TestClassifyStockBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		threshold int
		want      domain.StockStatus
	}{
		{"at threshold is low", 10, 10, domain.StockLow},
		{"one above threshold", 11, 10, domain.StockInStock},
		{"one left", 1, 10, domain.StockLow},
		{"zero is out even with threshold", 0, 10, domain.StockOutOfStock},
		{"zero with zero threshold", 0, 0, domain.StockOutOfStock},
		{"zero threshold never low", 1, 0, domain.StockInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStock(domain.Item{StockQuantity: tt.stock, LowStockThreshold: tt.threshold})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLowStockSeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityCritical, LowStockSeverity(domain.Item{StockQuantity: 2, LowStockThreshold: 10}))
	assert.Equal(t, domain.SeverityHigh, LowStockSeverity(domain.Item{StockQuantity: 5, LowStockThreshold: 10}))
	assert.Equal(t, domain.SeverityMedium, LowStockSeverity(domain.Item{StockQuantity: 6, LowStockThreshold: 10}))
	assert.Equal(t, domain.SeverityMedium, LowStockSeverity(domain.Item{StockQuantity: 10, LowStockThreshold: 10}))
}

func TestExpiryWindows(t *testing.T) {
	today := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		expiry   *time.Time
		days     int
		severity domain.Severity
		alerted  bool
	}{
		{date(2026, 1, 13), -1, domain.SeverityCritical, true},
		{date(2026, 1, 14), 0, domain.SeverityCritical, true},
		{date(2026, 1, 21), 7, domain.SeverityCritical, true},
		{date(2026, 1, 22), 8, domain.SeverityHigh, true},
		{date(2026, 1, 28), 14, domain.SeverityHigh, true},
		{date(2026, 1, 29), 15, domain.SeverityMedium, true},
		{date(2026, 2, 13), 30, domain.SeverityMedium, true},
		{date(2026, 2, 14), 31, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.expiry.Format(time.DateOnly), func(t *testing.T) {
			days := DaysUntilExpiry(*tt.expiry, today)
			assert.Equal(t, tt.days, days)
			severity, ok := ExpirySeverity(days)
			assert.Equal(t, tt.alerted, ok)
			assert.Equal(t, tt.severity, severity)
		})
	}
}

func TestOutOfStockIsNeverLowStock(t *testing.T) {
	f := newFixture(t)
	empty := f.item("BEV-004", 0, 10, "Beverages", nil)
	low := f.item("SNK-001", 10, 10, "Snacks", nil)
	f.item("GRC-001", 30, 5, "Groceries", nil)

	e := f.engine()
	ctx := context.Background()

	out, err := e.OutOfStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, empty.ID, out[0].ID)

	lows, err := e.LowStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, low.ID, lows[0].ID)
}

func TestLowStockItemsAtSharedThreshold(t *testing.T) {
	f := newFixture(t)
	f.item("BEV-004", 0, 10, "", nil)
	own := f.item("SNK-001", 8, 10, "", nil)
	shared := f.item("GRC-001", 25, 5, "", nil)
	f.item("HHS-001", 40, 50, "", nil)

	got, err := f.engine().LowStockItemsAt(context.Background(), 30)
	require.NoError(t, err)
	var codes []string
	for _, it := range got {
		codes = append(codes, it.ItemCode)
	}
	assert.Equal(t, []string{own.ItemCode, shared.ItemCode}, codes, "own thresholds are ignored; zero stock is not low")
	assert.Equal(t, 5, got[1].LowStockThreshold, "items are reported unchanged")
}

func TestExpiringItemsSoonestFirst(t *testing.T) {
	f := newFixture(t)
	f.item("DRY-001", 5, 1, "Dairy", date(2026, 1, 30))
	f.item("BAK-001", 5, 1, "Bakery", date(2026, 1, 12))
	f.item("GRC-001", 5, 1, "Groceries", date(2026, 6, 1))
	f.item("HHS-001", 5, 1, "Household", nil)

	got, err := f.engine().ExpiringItems(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BAK-001", got[0].Item.ItemCode)
	assert.True(t, got[0].Expired)
	assert.Equal(t, -2, got[0].DaysUntilExpiry)
	assert.Equal(t, "DRY-001", got[1].Item.ItemCode)
	assert.Equal(t, 16, got[1].DaysUntilExpiry)
	assert.Equal(t, domain.SeverityMedium, got[1].Severity)
}

func TestSlowMovingItems(t *testing.T) {
	f := newFixture(t)
	recent := f.item("A-1", 50, 5, "", nil)
	stale := f.item("B-1", 50, 5, "", nil)
	never := f.item("C-1", 50, 5, "", nil)
	f.item("D-1", 0, 5, "", nil)

	f.sale(now.AddDate(0, 0, -5), domain.PaymentCash, "1.00", line(recent, 1, "1.00"))
	f.sale(now.AddDate(0, 0, -40), domain.PaymentCash, "1.00", line(stale, 1, "1.00"))

	got, err := f.engine().SlowMovingItems(context.Background())
	require.NoError(t, err)
	var codes []string
	for _, it := range got {
		codes = append(codes, it.ItemCode)
	}
	assert.Equal(t, []string{stale.ItemCode, never.ItemCode}, codes)
}

func TestAlertsFeedOrdering(t *testing.T) {
	f := newFixture(t)
	fresh := f.item("FRESH-1", 100, 10, "", nil)
	f.sale(now.Add(-time.Hour), domain.PaymentCash, "1.00", line(fresh, 1, "1.00"))
	medium := f.item("MED-1", 8, 10, "", nil)
	out := f.item("OUT-1", 0, 10, "", nil)
	slow := f.item("SLOW-1", 40, 10, "", nil)
	expiring := f.item("EXP-1", 99, 10, "", date(2026, 1, 24))
	f.sale(now.Add(-time.Hour), domain.PaymentCash, "1.00", line(expiring, 1, "1.00"))
	f.sale(now.Add(-time.Hour), domain.PaymentCash, "1.00", line(medium, 1, "1.00"))

	alerts, err := f.engine().Alerts(context.Background())
	require.NoError(t, err)

	type row struct {
		code     string
		typ      domain.AlertType
		severity domain.Severity
	}
	var got []row
	for _, a := range alerts {
		got = append(got, row{a.ItemCode, a.Type, a.Severity})
	}
	assert.Equal(t, []row{
		{out.ItemCode, domain.AlertOutOfStock, domain.SeverityCritical},
		{expiring.ItemCode, domain.AlertExpiringSoon, domain.SeverityHigh},
		{medium.ItemCode, domain.AlertLowStock, domain.SeverityMedium},
		{slow.ItemCode, domain.AlertSlowMoving, domain.SeverityLow},
	}, got)

	for _, a := range alerts {
		if a.Type == domain.AlertExpiringSoon {
			require.NotNil(t, a.DaysUntilExpiry)
			assert.Equal(t, 10, *a.DaysUntilExpiry)
		}
	}
}

func TestTopSellingTieBreak(t *testing.T) {
	f := newFixture(t)
	a := f.item("A-1", 100, 5, "", nil)
	b := f.item("B-1", 100, 5, "", nil)
	c := f.item("C-1", 100, 5, "", nil)
	d := f.item("D-1", 100, 5, "", nil)
	gone := f.item("GONE-1", 100, 5, "", nil)

	f.sale(now, domain.PaymentCash, "5.00", line(a, 5, "1.00"))
	f.sale(now, domain.PaymentCash, "6.00", line(c, 5, "1.20"))
	f.sale(now, domain.PaymentCash, "6.00", line(b, 5, "1.20"))
	f.sale(now, domain.PaymentCash, "7.00", line(d, 7, "1.00"))
	f.sale(now, domain.PaymentCash, "1.00", line(gone, 1, "1.00"))
	_, err := f.store.DeleteItem(context.Background(), gone.ID)
	require.NoError(t, err)

	e := f.engine()
	ctx := context.Background()

	top, err := e.TopSellingItems(ctx, 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, []int64{d.ID, b.ID, c.ID, a.ID, gone.ID}, []int64{top[0].ItemID, top[1].ItemID, top[2].ItemID, top[3].ItemID, top[4].ItemID})
	assert.Equal(t, 7, top[0].TotalSold)
	assert.True(t, top[1].Revenue.Equal(money("6.00")))
	assert.Equal(t, domain.UnknownItemLabel, top[4].ItemName)

	limited, err := e.TopSellingItems(ctx, 2, nil, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	from := now.Add(time.Hour)
	none, err := e.TopSellingItems(ctx, 10, &from, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	water := f.item("BEV-001", 100, 20, "Beverages", nil)
	chips := f.item("SNK-001", 5, 10, "Snacks", nil)
	plain := f.item("MISC-1", 0, 10, "", nil)

	todaySale := f.sale(time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC), domain.PaymentCash, "5.00", line(water, 10, "0.50"))
	f.sale(time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC), domain.PaymentCredit, "3.00", line(chips, 2, "1.50"))
	f.sale(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), domain.PaymentCash, "2.00", line(plain, 2, "1.00"))
	f.sale(time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC), domain.PaymentCash, "1.00")

	stats, err := f.engine().DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 4, stats.TotalSales)
	assert.True(t, stats.TotalRevenue.Equal(money("11.00")))
	assert.Equal(t, 1, stats.LowStockItems, "chips: 3 left after the sale")
	assert.Equal(t, 1, stats.OutOfStockItems)

	assert.Equal(t, 1, stats.Today.Count)
	assert.True(t, stats.Today.Revenue.Equal(money("5.00")))
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), stats.ThisWeek.From, "weeks start on Monday")
	assert.Equal(t, 2, stats.ThisWeek.Count)
	assert.True(t, stats.ThisWeek.Revenue.Equal(money("8.00")))
	assert.Equal(t, 3, stats.ThisMonth.Count)
	assert.True(t, stats.ThisMonth.Revenue.Equal(money("10.00")))

	require.NotEmpty(t, stats.TopSellingItems)
	assert.Equal(t, water.ID, stats.TopSellingItems[0].ItemID)
	require.Len(t, stats.RecentSales, 4)
	assert.Equal(t, todaySale.ID, stats.RecentSales[0].ID)

	require.Len(t, stats.SalesByCategory, 3)
	assert.Equal(t, "Beverages", stats.SalesByCategory[0].Category)
	assert.Equal(t, "Snacks", stats.SalesByCategory[1].Category)
	assert.Equal(t, domain.UncategorizedLabel, stats.SalesByCategory[2].Category)
	assert.Equal(t, now, stats.GeneratedAt)
}

func TestDashboardUsesConfiguredZone(t *testing.T) {
	f := newFixture(t)
	item := f.item("BEV-001", 100, 20, "", nil)
	// 01:00 and 23:00 local time in UTC+7, either side of midnight.
	late := time.Date(2026, 1, 14, 18, 0, 0, 0, time.UTC)
	early := time.Date(2026, 1, 14, 16, 0, 0, 0, time.UTC)
	f.sale(late, domain.PaymentCash, "1.00", line(item, 1, "1.00"))
	f.sale(early, domain.PaymentCash, "1.00", line(item, 1, "1.00"))

	zone := time.FixedZone("UTC+7", 7*60*60)
	at := time.Date(2026, 1, 14, 20, 0, 0, 0, time.UTC)
	e := New(f.store, WithLocation(zone), WithClock(func() time.Time { return at }))

	stats, err := e.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Today.Count, "only the sale after local midnight counts as today")
	assert.True(t, stats.Today.From.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, zone)))
}

func TestDashboardPeriodsExcludeFutureSales(t *testing.T) {
	f := newFixture(t)
	item := f.item("BEV-001", 100, 20, "", nil)
	f.sale(now.Add(-time.Hour), domain.PaymentCash, "1.00", line(item, 1, "1.00"))
	f.sale(now.AddDate(0, 0, 1), domain.PaymentCash, "2.00", line(item, 2, "1.00"))
	f.sale(now.AddDate(0, 0, 7), domain.PaymentCash, "3.00", line(item, 3, "1.00"))
	f.sale(now.AddDate(0, 1, 0), domain.PaymentCash, "4.00", line(item, 4, "1.00"))

	stats, err := f.engine().DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalSales)
	assert.Equal(t, 1, stats.Today.Count)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), stats.Today.To)
	assert.Equal(t, 2, stats.ThisWeek.Count, "tomorrow is still this week")
	assert.Equal(t, time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC), stats.ThisWeek.To)
	assert.Equal(t, 3, stats.ThisMonth.Count)
	assert.True(t, stats.ThisMonth.Revenue.Equal(money("6.00")))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), stats.ThisMonth.To)
}

func TestSalesReportZeroFills(t *testing.T) {
	f := newFixture(t)
	water := f.item("BEV-001", 100, 20, "Beverages", nil)
	f.sale(time.Date(2026, 1, 11, 12, 0, 0, 0, time.UTC), domain.PaymentCash, "2.00", line(water, 4, "0.50"))
	f.sale(time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC), domain.PaymentCredit, "1.50", line(water, 3, "0.50"))
	f.sale(time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC), domain.PaymentCredit, "9.00")

	e := f.engine()
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 14, 23, 59, 59, 0, time.UTC)
	report, err := e.SalesReport(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "2026-01-10", report.StartDate)
	assert.Equal(t, "2026-01-14", report.EndDate)
	assert.Equal(t, 2, report.TotalSales)
	assert.True(t, report.TotalRevenue.Equal(money("3.50")))

	require.Len(t, report.SalesByPaymentMethod, 3)
	methods := map[domain.PaymentMethod]domain.PaymentMethodRevenue{}
	for _, m := range report.SalesByPaymentMethod {
		methods[m.Method] = m
	}
	assert.Equal(t, 1, methods[domain.PaymentCash].Count)
	assert.Equal(t, 1, methods[domain.PaymentCredit].Count)
	assert.Equal(t, 0, methods[domain.PaymentMobilePayment].Count)
	assert.True(t, methods[domain.PaymentMobilePayment].Revenue.IsZero())

	require.Len(t, report.DailySales, 5)
	assert.Equal(t, "2026-01-10", report.DailySales[0].Date)
	assert.Equal(t, 0, report.DailySales[0].Sales)
	assert.Equal(t, 1, report.DailySales[1].Sales)
	assert.True(t, report.DailySales[3].Revenue.Equal(money("1.50")))
	assert.Equal(t, "2026-01-14", report.DailySales[4].Date)

	require.Len(t, report.SalesByCategory, 1)
	assert.Equal(t, "Beverages", report.SalesByCategory[0].Category)
	assert.Equal(t, 2, report.SalesByCategory[0].Count)

	_, err = e.SalesReport(context.Background(), to, from)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestIntegrityCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.CreateCategory(ctx, "Beverages")
	require.NoError(t, err)

	water := f.item("BEV-001", 100, 20, "beverages", nil)
	e := f.engine()

	clean, err := e.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.True(t, clean.Healthy, "category labels match case-insensitively")
	assert.Empty(t, clean.Issues)

	orphan := f.item("ORPH-1", 5, 1, "Discontinued", nil)
	gone := f.item("GONE-1", 5, 1, "", nil)
	f.sale(now, domain.PaymentCash, "1.00", line(gone, 1, "1.00"))
	mismatch := f.sale(now, domain.PaymentCash, "100.00", line(water, 1, "0.50"))
	_, err = f.store.DeleteItem(ctx, gone.ID)
	require.NoError(t, err)

	report, err := e.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy)

	kinds := map[domain.IntegrityIssueKind]int64{}
	for _, issue := range report.Issues {
		kinds[issue.Kind] = issue.EntityID
	}
	assert.Equal(t, orphan.ID, kinds[domain.IssueUnknownCategory])
	assert.Contains(t, kinds, domain.IssueDanglingItemRef)
	assert.Equal(t, mismatch.ID, kinds[domain.IssueTotalMismatch])
	assert.Len(t, report.Issues, 3)
}
