package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ministore/internal/domain"
	"ministore/internal/validation"
)

// IntegrityCheck scans the ledger for states the write paths should never
// produce or that deletions left behind.
func (e *Engine) IntegrityCheck(ctx context.Context) (*domain.IntegrityReport, error) {
	var (
		items      []domain.Item
		categories []domain.Category
		sales      []domain.Sale
		lines      []domain.SaleLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = e.src.ListAllItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = e.src.GetCategories(gctx)
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

	issues := make([]domain.IntegrityIssue, 0)
	issues = append(issues, itemIssues(items, categories)...)
	issues = append(issues, lineIssues(indexItems(items), sales, lines)...)

	return &domain.IntegrityReport{
		Healthy:   len(issues) == 0,
		Issues:    issues,
		CheckedAt: e.now().UTC(),
	}, nil
}

func itemIssues(items []domain.Item, categories []domain.Category) []domain.IntegrityIssue {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[strings.ToLower(c.Name)] = true
	}

	var out []domain.IntegrityIssue
	for _, item := range items {
		if item.StockQuantity < 0 {
			out = append(out, domain.IntegrityIssue{
				Kind:     domain.IssueNegativeStock,
				EntityID: item.ID,
				Message:  fmt.Sprintf("item %s has negative stock %d", item.ItemCode, item.StockQuantity),
			})
		}
		if item.Category != nil && !known[strings.ToLower(*item.Category)] {
			out = append(out, domain.IntegrityIssue{
				Kind:     domain.IssueUnknownCategory,
				EntityID: item.ID,
				Message:  fmt.Sprintf("item %s references unknown category %q", item.ItemCode, *item.Category),
			})
		}
	}
	return out
}

func lineIssues(items map[int64]domain.Item, sales []domain.Sale, lines []domain.SaleLine) []domain.IntegrityIssue {
	var out []domain.IntegrityIssue
	totals := make(map[int64]decimal.Decimal)
	for _, l := range lines {
		totals[l.SaleID] = totals[l.SaleID].Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		if _, ok := items[l.ItemID]; !ok {
			out = append(out, domain.IntegrityIssue{
				Kind:     domain.IssueDanglingItemRef,
				EntityID: l.ID,
				Message:  fmt.Sprintf("sale %d line %d references deleted item %d", l.SaleID, l.ID, l.ItemID),
			})
		}
	}

	for _, sale := range sales {
		computed, ok := totals[sale.ID]
		if !ok || validation.WithinTolerance(computed, sale.TotalAmount) {
			continue
		}
		out = append(out, domain.IntegrityIssue{
			Kind:     domain.IssueTotalMismatch,
			EntityID: sale.ID,
			Message:  fmt.Sprintf("sale %s total %s does not match line total %s", sale.InvoiceNumber, sale.TotalAmount.StringFixed(2), computed.StringFixed(2)),
		})
	}
	return out
}
