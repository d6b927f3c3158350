package memory

import (
	"cmp"
	"slices"

	"ministore/internal/domain"
)

// Snapshot is a point-in-time copy of the whole store, including id
// sequences, so a restore never reissues an id.
type Snapshot struct {
	Items          []domain.Item     `json:"items"`
	Categories     []domain.Category `json:"categories"`
	Sales          []domain.Sale     `json:"sales"`
	SaleItems      []domain.SaleItem `json:"sale_items"`
	NextItemID     int64             `json:"next_item_id"`
	NextCategoryID int64             `json:"next_category_id"`
	NextSaleID     int64             `json:"next_sale_id"`
	NextLineID     int64             `json:"next_line_id"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Items:          s.sortedItems(),
		Categories:     make([]domain.Category, 0, len(s.categories)),
		Sales:          make([]domain.Sale, 0, len(s.sales)),
		SaleItems:      make([]domain.SaleItem, 0, len(s.sales)),
		NextItemID:     s.nextItemID,
		NextCategoryID: s.nextCategoryID,
		NextSaleID:     s.nextSaleID,
		NextLineID:     s.nextLineID,
	}
	for _, c := range s.categories {
		snap.Categories = append(snap.Categories, c)
	}
	for _, sale := range s.sales {
		snap.Sales = append(snap.Sales, cloneSale(sale))
		snap.SaleItems = append(snap.SaleItems, s.saleLines[sale.ID]...)
	}
	slices.SortFunc(snap.Categories, func(a, b domain.Category) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Sales, func(a, b domain.Sale) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.SaleItems, func(a, b domain.SaleItem) int { return cmp.Compare(a.ID, b.ID) })
	return snap
}

// Restore replaces the store contents with snap. Sequences never move
// backwards past an id present in the data.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for _, item := range snap.Items {
		s.items[item.ID] = *cloneItem(item)
		s.itemIDByCode[item.ItemCode] = item.ID
		s.nextItemID = max(s.nextItemID, item.ID)
	}
	for _, c := range snap.Categories {
		s.categories[c.ID] = c
		s.nextCategoryID = max(s.nextCategoryID, c.ID)
	}
	for _, sale := range snap.Sales {
		s.sales[sale.ID] = cloneSale(sale)
		s.saleIDByInvoice[sale.InvoiceNumber] = sale.ID
		s.nextSaleID = max(s.nextSaleID, sale.ID)
	}
	for _, line := range snap.SaleItems {
		s.saleLines[line.SaleID] = append(s.saleLines[line.SaleID], line)
		s.nextLineID = max(s.nextLineID, line.ID)
	}
	s.nextItemID = max(s.nextItemID, snap.NextItemID)
	s.nextCategoryID = max(s.nextCategoryID, snap.NextCategoryID)
	s.nextSaleID = max(s.nextSaleID, snap.NextSaleID)
	s.nextLineID = max(s.nextLineID, snap.NextLineID)
}
