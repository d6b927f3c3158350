package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/domain"
	"ministore/internal/store"
	"ministore/internal/store/storetest"
)

// openTestStore connects to MINISTORE_TEST_DATABASE_URL and wipes it. The
// database must be disposable.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("MINISTORE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MINISTORE_TEST_DATABASE_URL to run postgres integration tests")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Cleanup(ctx))
	return s
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return openTestStore(t)
	})
}

func TestConcurrentStockAdjustmentsAreNotLost(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, domain.ItemInput{Name: "Water", ItemCode: "BEV-001", Price: decimal.NewFromInt(1), StockQuantity: 0})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustStock(ctx, item.ID, 5, domain.StockAdd)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, workers*5, got.StockQuantity)
}

func TestConcurrentSalesDecrementOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, domain.ItemInput{Name: "Chips", ItemCode: "SNK-001", Price: decimal.NewFromInt(1), StockQuantity: 100})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateSale(ctx, domain.NewSale{
				Sale: domain.Sale{
					TotalAmount:   decimal.NewFromInt(2),
					PaymentMethod: domain.PaymentCash,
					InvoiceNumber: fmt.Sprintf("INV-PG-%04d", i),
				},
				Lines: []domain.SaleItem{{ItemID: item.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(2)}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 100-workers*2, got.StockQuantity)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%50\\% off%", likePattern("50% off"))
	assert.Equal(t, "%a\\_b%", likePattern("a_b"))
	assert.Equal(t, "%c:\\\\tmp%", likePattern(`c:\tmp`))
}
