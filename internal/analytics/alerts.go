package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"ministore/internal/domain"
)

func (e *Engine) LowStockItems(ctx context.Context) ([]domain.Item, error) {
	return e.itemsWithStatus(ctx, domain.StockLow)
}

// LowStockItemsAt applies one threshold to every item in place of its own.
// Out-of-stock items are still excluded.
func (e *Engine) LowStockItemsAt(ctx context.Context, threshold int) ([]domain.Item, error) {
	items, err := e.src.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0)
	for _, item := range items {
		if item.StockQuantity > 0 && item.StockQuantity <= threshold {
			out = append(out, item)
		}
	}
	return out, nil
}

func (e *Engine) OutOfStockItems(ctx context.Context) ([]domain.Item, error) {
	return e.itemsWithStatus(ctx, domain.StockOutOfStock)
}

func (e *Engine) itemsWithStatus(ctx context.Context, status domain.StockStatus) ([]domain.Item, error) {
	items, err := e.src.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0)
	for _, item := range items {
		if ClassifyStock(item) == status {
			out = append(out, item)
		}
	}
	return out, nil
}

// ExpiringItems lists items that expired already or expire within
// ExpiryWindowDays, soonest first.
func (e *Engine) ExpiringItems(ctx context.Context) ([]domain.ExpiringItem, error) {
	items, err := e.src.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	return expiringItems(items, e.startOfDay(e.now())), nil
}

func expiringItems(items []domain.Item, today time.Time) []domain.ExpiringItem {
	out := make([]domain.ExpiringItem, 0)
	for _, item := range items {
		if item.ExpiryDate == nil {
			continue
		}
		days := DaysUntilExpiry(*item.ExpiryDate, today)
		severity, ok := ExpirySeverity(days)
		if !ok {
			continue
		}
		out = append(out, domain.ExpiringItem{
			Item:            item,
			DaysUntilExpiry: days,
			Expired:         days < 0,
			Severity:        severity,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.ExpiringItem) int {
		if c := cmp.Compare(a.DaysUntilExpiry, b.DaysUntilExpiry); c != 0 {
			return c
		}
		return cmp.Compare(a.Item.ID, b.Item.ID)
	})
	return out
}

// SlowMovingItems lists in-stock items with no sale line in the trailing
// SlowMovingDays.
func (e *Engine) SlowMovingItems(ctx context.Context) ([]domain.Item, error) {
	items, err := e.src.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	sold, err := e.recentlySold(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0)
	for _, item := range items {
		if isSlowMoving(item, sold) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (e *Engine) recentlySold(ctx context.Context) (map[int64]bool, error) {
	since := e.now().AddDate(0, 0, -SlowMovingDays)
	lines, err := e.src.ListSaleLinesInRange(ctx, &since, nil)
	if err != nil {
		return nil, err
	}
	sold := make(map[int64]bool, len(lines))
	for _, l := range lines {
		sold[l.ItemID] = true
	}
	return sold, nil
}

func isSlowMoving(item domain.Item, sold map[int64]bool) bool {
	return item.StockQuantity > 0 && !sold[item.ID]
}

// Alerts builds the combined feed: at most one stock alert and one expiry
// alert per item, most severe first. Items keep id order within a severity.
func (e *Engine) Alerts(ctx context.Context) ([]domain.Alert, error) {
	items, err := e.src.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	sold, err := e.recentlySold(ctx)
	if err != nil {
		return nil, err
	}
	today := e.startOfDay(e.now())

	alerts := make([]domain.Alert, 0)
	for _, item := range items {
		if a, ok := stockAlert(item, sold); ok {
			alerts = append(alerts, a)
		}
		if a, ok := expiryAlert(item, today); ok {
			alerts = append(alerts, a)
		}
	}
	slices.SortStableFunc(alerts, func(a, b domain.Alert) int {
		return cmp.Compare(a.Severity.Rank(), b.Severity.Rank())
	})
	return alerts, nil
}

func newAlert(item domain.Item, typ domain.AlertType, severity domain.Severity, msg string) domain.Alert {
	return domain.Alert{
		Type:          typ,
		Severity:      severity,
		ItemID:        item.ID,
		ItemName:      item.Name,
		ItemCode:      item.ItemCode,
		StockQuantity: item.StockQuantity,
		Threshold:     item.LowStockThreshold,
		Message:       msg,
	}
}

func stockAlert(item domain.Item, sold map[int64]bool) (domain.Alert, bool) {
	switch ClassifyStock(item) {
	case domain.StockOutOfStock:
		return newAlert(item, domain.AlertOutOfStock, domain.SeverityCritical,
			fmt.Sprintf("%s is out of stock", item.Name)), true
	case domain.StockLow:
		return newAlert(item, domain.AlertLowStock, LowStockSeverity(item),
			fmt.Sprintf("%s is low on stock (%d left, threshold %d)", item.Name, item.StockQuantity, item.LowStockThreshold)), true
	}
	if isSlowMoving(item, sold) {
		return newAlert(item, domain.AlertSlowMoving, domain.SeverityLow,
			fmt.Sprintf("%s has not sold in %d days", item.Name, SlowMovingDays)), true
	}
	return domain.Alert{}, false
}

func expiryAlert(item domain.Item, today time.Time) (domain.Alert, bool) {
	if item.ExpiryDate == nil {
		return domain.Alert{}, false
	}
	days := DaysUntilExpiry(*item.ExpiryDate, today)
	severity, ok := ExpirySeverity(days)
	if !ok {
		return domain.Alert{}, false
	}

	var a domain.Alert
	switch {
	case days < 0:
		a = newAlert(item, domain.AlertExpired, severity, fmt.Sprintf("%s expired %d days ago", item.Name, -days))
	case days == 0:
		a = newAlert(item, domain.AlertExpiringSoon, severity, fmt.Sprintf("%s expires today", item.Name))
	default:
		a = newAlert(item, domain.AlertExpiringSoon, severity, fmt.Sprintf("%s expires in %d days", item.Name, days))
	}
	a.DaysUntilExpiry = &days
	return a, true
}
