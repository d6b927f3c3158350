package analytics

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ministore/internal/apperror"
	"ministore/internal/domain"
)

// maxReportDays bounds the zero-filled daily series of a sales report.
const maxReportDays = 3660

// TopSellingItems ranks items by quantity sold within the optional bounds.
// Equal quantities are ordered by revenue, then by item id, so the ranking is
// deterministic. Items deleted since the sale are reported as Unknown.
func (e *Engine) TopSellingItems(ctx context.Context, limit int, from, to *time.Time) ([]domain.TopSellingItem, error) {
	if limit < 1 {
		limit = DefaultTopSellingLimit
	}

	var items []domain.Item
	var lines []domain.SaleLine
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = e.src.ListAllItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		lines, err = e.src.ListSaleLinesInRange(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return topSelling(indexItems(items), lines, limit), nil
}

func topSelling(items map[int64]domain.Item, lines []domain.SaleLine, limit int) []domain.TopSellingItem {
	byItem := make(map[int64]*domain.TopSellingItem)
	for _, l := range lines {
		agg, ok := byItem[l.ItemID]
		if !ok {
			agg = &domain.TopSellingItem{ItemID: l.ItemID, ItemName: domain.UnknownItemLabel, ItemCode: domain.UnknownItemLabel}
			if item, found := items[l.ItemID]; found {
				agg.ItemName = item.Name
				agg.ItemCode = item.ItemCode
			}
			byItem[l.ItemID] = agg
		}
		agg.TotalSold += l.Quantity
		agg.Revenue = agg.Revenue.Add(l.TotalPrice)
	}

	out := make([]domain.TopSellingItem, 0, len(byItem))
	for _, agg := range byItem {
		out = append(out, *agg)
	}
	slices.SortFunc(out, func(a, b domain.TopSellingItem) int {
		if c := cmp.Compare(b.TotalSold, a.TotalSold); c != 0 {
			return c
		}
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DashboardStats computes the overview in one pass over items, sales and
// lines, which are loaded concurrently.
func (e *Engine) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var (
		items []domain.Item
		sales []domain.Sale
		lines []domain.SaleLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = e.src.ListAllItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		sales, err = e.src.ListSalesInRange(gctx, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		lines, err = e.src.ListSaleLinesInRange(gctx, nil, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := e.now()
	today := e.startOfDay(now)
	stats := &domain.DashboardStats{
		TotalItems:   len(items),
		TotalSales:   len(sales),
		TotalRevenue: decimal.Zero,
		Today:        newPeriod(today, today.AddDate(0, 0, 1)),
		ThisWeek:     newPeriod(startOfWeek(today), startOfWeek(today).AddDate(0, 0, 7)),
		ThisMonth:    newPeriod(startOfMonth(today), startOfMonth(today).AddDate(0, 1, 0)),
		GeneratedAt:  now.UTC(),
	}

	for _, item := range items {
		switch ClassifyStock(item) {
		case domain.StockLow:
			stats.LowStockItems++
		case domain.StockOutOfStock:
			stats.OutOfStockItems++
		}
	}

	for _, sale := range sales {
		stats.TotalRevenue = stats.TotalRevenue.Add(sale.TotalAmount)
		for _, period := range []*domain.PeriodSummary{&stats.Today, &stats.ThisWeek, &stats.ThisMonth} {
			if !sale.SaleDate.Before(period.From) && sale.SaleDate.Before(period.To) {
				period.Count++
				period.Revenue = period.Revenue.Add(sale.TotalAmount)
			}
		}
	}

	byID := indexItems(items)
	stats.TopSellingItems = topSelling(byID, lines, dashboardTopSellers)
	stats.RecentSales = recentSales(sales, dashboardRecentSales)
	stats.SalesByCategory = revenueByCategory(byID, lines)
	return stats, nil
}

func newPeriod(from, to time.Time) domain.PeriodSummary {
	return domain.PeriodSummary{From: from, To: to, Revenue: decimal.Zero}
}

func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(day time.Time) time.Time {
	y, m, _ := day.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, day.Location())
}

func recentSales(sales []domain.Sale, n int) []domain.Sale {
	out := slices.Clone(sales)
	slices.SortFunc(out, func(a, b domain.Sale) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []domain.Sale{}
	}
	return out
}

// revenueByCategory sums line revenue per item category label. Items without
// a label fall under Uncategorized and deleted items under Unknown.
func revenueByCategory(items map[int64]domain.Item, lines []domain.SaleLine) []domain.CategoryRevenue {
	byCategory := make(map[string]*domain.CategoryRevenue)
	for _, l := range lines {
		label := domain.UnknownItemLabel
		if item, ok := items[l.ItemID]; ok {
			label = domain.UncategorizedLabel
			if item.Category != nil {
				label = *item.Category
			}
		}
		agg, ok := byCategory[label]
		if !ok {
			agg = &domain.CategoryRevenue{Category: label, Revenue: decimal.Zero}
			byCategory[label] = agg
		}
		agg.Count++
		agg.Revenue = agg.Revenue.Add(l.TotalPrice)
	}

	out := make([]domain.CategoryRevenue, 0, len(byCategory))
	for _, agg := range byCategory {
		out = append(out, *agg)
	}
	slices.SortFunc(out, func(a, b domain.CategoryRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// SalesReport aggregates sales dated within [from, to]. Every payment method
// and every calendar day in the range appears, with zeros when nothing sold.
func (e *Engine) SalesReport(ctx context.Context, from, to time.Time) (*domain.SalesReport, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("report end date is before start date").
			WithDetail("start_date", from).
			WithDetail("end_date", to)
	}
	firstDay := e.startOfDay(from)
	lastDay := e.startOfDay(to)
	if days := calendarDays(firstDay, lastDay); days >= maxReportDays {
		return nil, apperror.NewValidation("report range is too long").WithDetail("days", days+1)
	}

	var (
		items []domain.Item
		sales []domain.Sale
		lines []domain.SaleLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = e.src.ListAllItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		sales, err = e.src.ListSalesInRange(gctx, &from, &to)
		return err
	})
	g.Go(func() (err error) {
		lines, err = e.src.ListSaleLinesInRange(gctx, &from, &to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.SalesReport{
		StartDate:    firstDay.Format(time.DateOnly),
		EndDate:      lastDay.Format(time.DateOnly),
		TotalSales:   len(sales),
		TotalRevenue: decimal.Zero,
	}

	byMethod := make(map[domain.PaymentMethod]*domain.PaymentMethodRevenue, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		report.SalesByPaymentMethod = append(report.SalesByPaymentMethod, domain.PaymentMethodRevenue{Method: m, Revenue: decimal.Zero})
	}
	for i := range report.SalesByPaymentMethod {
		byMethod[report.SalesByPaymentMethod[i].Method] = &report.SalesByPaymentMethod[i]
	}

	byDay := make(map[string]*domain.DailySales)
	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		report.DailySales = append(report.DailySales, domain.DailySales{Date: key, Revenue: decimal.Zero})
	}
	for i := range report.DailySales {
		byDay[report.DailySales[i].Date] = &report.DailySales[i]
	}

	for _, sale := range sales {
		report.TotalRevenue = report.TotalRevenue.Add(sale.TotalAmount)
		if m, ok := byMethod[sale.PaymentMethod]; ok {
			m.Count++
			m.Revenue = m.Revenue.Add(sale.TotalAmount)
		}
		if d, ok := byDay[sale.SaleDate.In(e.loc).Format(time.DateOnly)]; ok {
			d.Sales++
			d.Revenue = d.Revenue.Add(sale.TotalAmount)
		}
	}

	report.SalesByCategory = revenueByCategory(indexItems(items), lines)
	return report, nil
}

func indexItems(items []domain.Item) map[int64]domain.Item {
	out := make(map[int64]domain.Item, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}
