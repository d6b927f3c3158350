package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/store"
)

// Store keeps every entity in maps guarded by one RWMutex. Writers that touch
// several entities (sales and their stock decrements) hold the write lock for
// the whole operation, which makes them atomic with respect to each other.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	items           map[int64]domain.Item
	itemIDByCode    map[string]int64
	categories      map[int64]domain.Category
	sales           map[int64]domain.Sale
	saleLines       map[int64][]domain.SaleItem
	saleIDByInvoice map[string]int64

	nextItemID     int64
	nextCategoryID int64
	nextSaleID     int64
	nextLineID     int64
}

type Option func(*Store)

// WithClock replaces time.Now for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeeded returns a store preloaded with the demo catalog.
func NewSeeded(opts ...Option) *Store {
	s := New(opts...)
	if err := store.Seed(context.Background(), s); err != nil {
		panic(fmt.Sprintf("memory: seed demo catalog: %v", err))
	}
	return s
}

func (s *Store) reset() {
	s.items = make(map[int64]domain.Item)
	s.itemIDByCode = make(map[string]int64)
	s.categories = make(map[int64]domain.Category)
	s.sales = make(map[int64]domain.Sale)
	s.saleLines = make(map[int64][]domain.SaleItem)
	s.saleIDByInvoice = make(map[string]int64)
	s.nextItemID, s.nextCategoryID, s.nextSaleID, s.nextLineID = 0, 0, 0, 0
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) Initialize(_ context.Context) error {
	return nil
}

func (s *Store) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *Store) HealthCheck(_ context.Context) domain.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.HealthStatus{
		Status:    domain.HealthHealthy,
		Message:   fmt.Sprintf("in-memory store: %d items, %d sales", len(s.items), len(s.sales)),
		Timestamp: s.timestamp(),
	}
}

func (s *Store) GetItems(_ context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	q = store.NormalizeItemQuery(q)

	s.mu.RLock()
	items := s.sortedItems()
	s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	filtered := items[:0]
	for _, item := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.ItemCode), search) {
			continue
		}
		if q.Category != "" && (item.Category == nil || *item.Category != q.Category) {
			continue
		}
		filtered = append(filtered, item)
	}

	if q.SortBy != "" {
		desc := q.SortOrder == "desc"
		slices.SortStableFunc(filtered, func(a, b domain.Item) int {
			c := compareItems(a, b, q.SortBy)
			if desc {
				c = -c
			}
			if c == 0 {
				return cmp.Compare(a.ID, b.ID)
			}
			return c
		})
	}

	start, end := store.PageBounds(q.Page, q.Limit, len(filtered))
	page := make([]domain.Item, 0, end-start)
	page = append(page, filtered[start:end]...)
	return domain.ItemPage{
		Items:      page,
		Pagination: store.NewPagination(q.Page, q.Limit, len(filtered)),
	}, nil
}

func compareItems(a, b domain.Item, sortBy string) int {
	switch sortBy {
	case store.SortByName:
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case store.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case store.SortByPrice:
		return a.Price.Cmp(b.Price)
	case store.SortByStockQuantity:
		return cmp.Compare(a.StockQuantity, b.StockQuantity)
	}
	return 0
}

func (s *Store) GetItemByID(_ context.Context, id int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperror.NewNotFound("item", id)
	}
	return cloneItem(item), nil
}

func (s *Store) GetItemByCode(_ context.Context, code string) (*domain.Item, error) {
	code = store.NormalizeCode(code)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.itemIDByCode[code]
	if !ok {
		return nil, apperror.NewNotFound("item", code)
	}
	return cloneItem(s.items[id]), nil
}

func (s *Store) CreateItem(_ context.Context, in domain.ItemInput) (*domain.Item, error) {
	in = store.NormalizeItemInput(in)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.itemIDByCode[in.ItemCode]; exists {
		return nil, apperror.NewConflict("item", "item_code", in.ItemCode)
	}

	now := s.timestamp()
	item := domain.Item{
		ID:                s.nextItemID + 1,
		Name:              in.Name,
		ItemCode:          in.ItemCode,
		Price:             in.Price,
		StockQuantity:     in.StockQuantity,
		LowStockThreshold: *in.LowStockThreshold,
		Category:          in.Category,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.CheckItem(item); err != nil {
		return nil, err
	}

	s.nextItemID = item.ID
	s.items[item.ID] = *cloneItem(item)
	s.itemIDByCode[item.ItemCode] = item.ID
	return cloneItem(item), nil
}

func (s *Store) UpdateItem(_ context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	patch = store.NormalizeItemPatch(patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return nil, apperror.NewNotFound("item", id)
	}
	if patch.ItemCode != nil {
		if other, exists := s.itemIDByCode[*patch.ItemCode]; exists && other != id {
			return nil, apperror.NewConflict("item", "item_code", *patch.ItemCode)
		}
	}

	updated := *cloneItem(current)
	patch.Merge(&updated)
	updated.UpdatedAt = s.timestamp()
	if err := store.CheckItem(updated); err != nil {
		return nil, err
	}

	delete(s.itemIDByCode, current.ItemCode)
	s.itemIDByCode[updated.ItemCode] = id
	s.items[id] = updated
	return cloneItem(updated), nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperror.NewNotFound("item", id)
	}
	delete(s.items, id)
	delete(s.itemIDByCode, item.ItemCode)
	return cloneItem(item), nil
}

func (s *Store) SearchItems(_ context.Context, query string) ([]domain.Item, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	items := s.sortedItems()
	s.mu.RUnlock()

	out := make([]domain.Item, 0, store.MaxSearchResults)
	for _, item := range items {
		if len(out) == store.MaxSearchResults {
			break
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.ItemCode), needle) ||
			(item.Category != nil && strings.Contains(strings.ToLower(*item.Category), needle)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) ListAllItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedItems(), nil
}

func (s *Store) AdjustStock(_ context.Context, id int64, quantity int, op domain.StockOperation) (*domain.Item, error) {
	if err := store.CheckStockAdjustment(quantity, op); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperror.NewNotFound("item", id)
	}
	next, err := store.NextStock(item.StockQuantity, quantity, op)
	if err != nil {
		return nil, err
	}
	item.StockQuantity = next
	item.UpdatedAt = s.timestamp()
	s.items[id] = item
	return cloneItem(item), nil
}

func (s *Store) GetCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		if c := cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, apperror.NewNotFound("category", id)
	}
	return &c, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.categoryByName(name); ok {
		return &c, nil
	}
	return nil, apperror.NewNotFound("category", name)
}

func (s *Store) categoryByName(name string) (domain.Category, bool) {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Category{}, false
}

func (s *Store) CreateCategory(_ context.Context, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)
	if name == "" {
		return nil, apperror.NewValidation("category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categoryByName(name); exists {
		return nil, apperror.NewConflict("category", "name", name)
	}
	s.nextCategoryID++
	c := domain.Category{ID: s.nextCategoryID, Name: name, CreatedAt: s.timestamp()}
	s.categories[c.ID] = c
	return &c, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)
	if name == "" {
		return nil, apperror.NewValidation("category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, apperror.NewNotFound("category", id)
	}
	if other, exists := s.categoryByName(name); exists && other.ID != id {
		return nil, apperror.NewConflict("category", "name", name)
	}
	c.Name = name
	s.categories[id] = c
	return &c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, apperror.NewNotFound("category", id)
	}
	delete(s.categories, id)
	return &c, nil
}

func (s *Store) GetSales(_ context.Context, q domain.SaleQuery) (domain.SalePage, error) {
	q = store.NormalizeSaleQuery(q)
	customer := strings.ToLower(q.CustomerName)

	s.mu.RLock()
	filtered := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if q.PaymentMethod != "" && sale.PaymentMethod != q.PaymentMethod {
			continue
		}
		if customer != "" && (sale.CustomerName == nil || !strings.Contains(strings.ToLower(*sale.CustomerName), customer)) {
			continue
		}
		if !store.InRange(sale.SaleDate, q.StartDate, q.EndDate) {
			continue
		}
		filtered = append(filtered, cloneSale(sale))
	}
	s.mu.RUnlock()

	slices.SortFunc(filtered, func(a, b domain.Sale) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	start, end := store.PageBounds(q.Page, q.Limit, len(filtered))
	page := make([]domain.Sale, 0, end-start)
	page = append(page, filtered[start:end]...)
	return domain.SalePage{
		Sales:      page,
		Pagination: store.NewPagination(q.Page, q.Limit, len(filtered)),
	}, nil
}

func (s *Store) GetSaleByID(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, apperror.NewNotFound("sale", id)
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) GetSaleWithItems(_ context.Context, id int64) (*domain.SaleWithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, apperror.NewNotFound("sale", id)
	}
	return s.joinSale(sale), nil
}

func (s *Store) joinSale(sale domain.Sale) *domain.SaleWithItems {
	lines := s.saleLines[sale.ID]
	out := &domain.SaleWithItems{Sale: cloneSale(sale), Items: make([]domain.SaleItemDetail, 0, len(lines))}
	for _, line := range lines {
		detail := domain.SaleItemDetail{SaleItem: line, ItemName: domain.UnknownItemLabel, ItemCode: domain.UnknownItemLabel, ItemMissing: true}
		if item, ok := s.items[line.ItemID]; ok {
			detail.ItemName = item.Name
			detail.ItemCode = item.ItemCode
			detail.ItemMissing = false
		}
		out.Items = append(out.Items, detail)
	}
	return out
}

func (s *Store) CreateSale(_ context.Context, ns domain.NewSale) (*domain.SaleWithItems, error) {
	if err := store.CheckNewSale(ns); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.saleIDByInvoice[ns.Sale.InvoiceNumber]; exists {
		return nil, apperror.NewConflict("sale", "invoice_number", ns.Sale.InvoiceNumber)
	}
	for _, line := range ns.Lines {
		if _, ok := s.items[line.ItemID]; !ok {
			return nil, apperror.NewNotFound("item", line.ItemID)
		}
	}

	now := s.timestamp()
	sale := cloneSale(ns.Sale)
	sale.ID = s.nextSaleID + 1
	if sale.SaleDate.IsZero() {
		sale.SaleDate = now
	}
	sale.CreatedAt = now
	sale.UpdatedAt = now

	lines := make([]domain.SaleItem, 0, len(ns.Lines))
	for _, line := range ns.Lines {
		s.nextLineID++
		line.ID = s.nextLineID
		line.SaleID = sale.ID
		lines = append(lines, line)

		item := s.items[line.ItemID]
		item.StockQuantity = domain.StockSubtract.Apply(item.StockQuantity, line.Quantity)
		item.UpdatedAt = now
		s.items[item.ID] = item
	}

	s.nextSaleID = sale.ID
	s.sales[sale.ID] = sale
	s.saleLines[sale.ID] = lines
	s.saleIDByInvoice[sale.InvoiceNumber] = sale.ID
	return s.joinSale(sale), nil
}

func (s *Store) UpdateSale(_ context.Context, id int64, patch domain.SalePatch) (*domain.Sale, error) {
	patch = store.NormalizeSalePatch(patch)

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, apperror.NewNotFound("sale", id)
	}
	updated := cloneSale(sale)
	patch.Merge(&updated)
	if err := store.CheckSale(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.timestamp()
	s.sales[id] = updated
	out := cloneSale(updated)
	return &out, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64, restock bool) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, apperror.NewNotFound("sale", id)
	}
	if restock {
		now := s.timestamp()
		for _, line := range s.saleLines[id] {
			item, exists := s.items[line.ItemID]
			if !exists {
				continue
			}
			item.StockQuantity = min(item.StockQuantity+line.Quantity, domain.MaxStockQuantity)
			item.UpdatedAt = now
			s.items[item.ID] = item
		}
	}
	delete(s.sales, id)
	delete(s.saleLines, id)
	delete(s.saleIDByInvoice, sale.InvoiceNumber)
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) ListSalesInRange(_ context.Context, from, to *time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if store.InRange(sale.SaleDate, from, to) {
			out = append(out, cloneSale(sale))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, compareSalesAsc)
	return out, nil
}

func (s *Store) ListSaleLinesInRange(_ context.Context, from, to *time.Time) ([]domain.SaleLine, error) {
	s.mu.RLock()
	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if store.InRange(sale.SaleDate, from, to) {
			sales = append(sales, sale)
		}
	}
	slices.SortFunc(sales, compareSalesAsc)

	out := make([]domain.SaleLine, 0, len(sales))
	for _, sale := range sales {
		for _, line := range s.saleLines[sale.ID] {
			out = append(out, domain.SaleLine{SaleItem: line, SaleDate: sale.SaleDate, PaymentMethod: sale.PaymentMethod})
		}
	}
	s.mu.RUnlock()
	return out, nil
}

// sortedItems copies all items in insertion (id) order. Callers hold mu.
func (s *Store) sortedItems() []domain.Item {
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *cloneItem(item))
	}
	slices.SortFunc(out, func(a, b domain.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func compareSalesAsc(a, b domain.Sale) int {
	if c := a.SaleDate.Compare(b.SaleDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}

func cloneItem(item domain.Item) *domain.Item {
	out := item
	if item.Category != nil {
		c := *item.Category
		out.Category = &c
	}
	if item.ExpiryDate != nil {
		e := *item.ExpiryDate
		out.ExpiryDate = &e
	}
	return &out
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	if sale.CustomerName != nil {
		c := *sale.CustomerName
		out.CustomerName = &c
	}
	return out
}
