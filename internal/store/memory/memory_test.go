package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/domain"
	"ministore/internal/store"
	"ministore/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		s := New()
		require.NoError(t, s.Initialize(context.Background()))
		return s
	})
}

func TestNewSeededLoadsDemoCatalog(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	items, err := s.ListAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(store.DemoItems()))

	cats, err := s.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(store.DemoCategories))

	require.NoError(t, store.Seed(ctx, s), "seeding twice skips existing rows")
	items, err = s.ListAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(store.DemoItems()))
}

func TestClockStampsRows(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return at }))

	item, err := s.CreateItem(context.Background(), domain.ItemInput{Name: "Milk", ItemCode: "DRY-001", Price: decimal.NewFromInt(2), StockQuantity: 1})
	require.NoError(t, err)
	assert.Equal(t, at, item.CreatedAt)
	assert.Equal(t, at, item.UpdatedAt)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	cat := "Snacks"
	item, err := s.CreateItem(ctx, domain.ItemInput{Name: "Chips", ItemCode: "SNK-001", Price: decimal.NewFromInt(1), StockQuantity: 5, Category: &cat})
	require.NoError(t, err)

	item.StockQuantity = 999
	*item.Category = "Mutated"

	got, err := s.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
	assert.Equal(t, "Snacks", *got.Category)
}

func TestConcurrentSalesDoNotLoseDecrements(t *testing.T) {
	s := New()
	ctx := context.Background()
	item, err := s.CreateItem(ctx, domain.ItemInput{Name: "Water", ItemCode: "BEV-001", Price: decimal.NewFromInt(1), StockQuantity: 1000})
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateSale(ctx, domain.NewSale{
				Sale: domain.Sale{
					TotalAmount:   decimal.NewFromInt(3),
					PaymentMethod: domain.PaymentCash,
					InvoiceNumber: "INV-CONC-" + string(rune('A'+i%26)) + string(rune('A'+i/26)),
				},
				Lines: []domain.SaleItem{{ItemID: item.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(3)}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000-workers*3, got.StockQuantity)
}

func TestSnapshotRestoreKeepsSequences(t *testing.T) {
	src := New()
	ctx := context.Background()
	a, err := src.CreateItem(ctx, domain.ItemInput{Name: "A", ItemCode: "A-1", Price: decimal.NewFromInt(1), StockQuantity: 10})
	require.NoError(t, err)
	b, err := src.CreateItem(ctx, domain.ItemInput{Name: "B", ItemCode: "B-1", Price: decimal.NewFromInt(1), StockQuantity: 10})
	require.NoError(t, err)
	_, err = src.DeleteItem(ctx, b.ID)
	require.NoError(t, err)
	sale, err := src.CreateSale(ctx, domain.NewSale{
		Sale:  domain.Sale{TotalAmount: decimal.NewFromInt(2), PaymentMethod: domain.PaymentCredit, InvoiceNumber: "INV-SNAP-0001"},
		Lines: []domain.SaleItem{{ItemID: a.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(2)}},
	})
	require.NoError(t, err)

	dst := New()
	dst.Restore(src.Snapshot())

	got, err := dst.GetSaleWithItems(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "A-1", got.Items[0].ItemCode)

	next, err := dst.CreateItem(ctx, domain.ItemInput{Name: "C", ItemCode: "C-1", Price: decimal.NewFromInt(1), StockQuantity: 1})
	require.NoError(t, err)
	assert.Equal(t, b.ID+1, next.ID, "deleted ids are never reissued")

	_, err = dst.CreateSale(ctx, domain.NewSale{
		Sale: domain.Sale{TotalAmount: decimal.NewFromInt(1), PaymentMethod: domain.PaymentCash, InvoiceNumber: "INV-SNAP-0001"},
	})
	assert.Error(t, err, "invoice index is rebuilt")
}
