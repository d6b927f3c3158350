package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/store"
	"ministore/internal/store/storetest"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s := New(path, nil)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return openStore(t, filepath.Join(t.TempDir(), "ledger.json"))
	})
}

func TestMutationsSurviveReopen(t *testing.T) {
	for _, name := range []string{"ledger.json", "ledger.json.gz", "ledger.json.zst"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "data", name)

			first := openStore(t, path)
			item, err := first.CreateItem(ctx, domain.ItemInput{Name: "Rice 5kg", ItemCode: "GRC-001", Price: decimal.RequireFromString("8.00"), StockQuantity: 30})
			require.NoError(t, err)
			_, err = first.CreateSale(ctx, domain.NewSale{
				Sale:  domain.Sale{TotalAmount: decimal.RequireFromString("16.00"), PaymentMethod: domain.PaymentCash, InvoiceNumber: "INV-FILE-0001"},
				Lines: []domain.SaleItem{{ItemID: item.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("8.00"), TotalPrice: decimal.RequireFromString("16.00")}},
			})
			require.NoError(t, err)

			second := openStore(t, path)
			got, err := second.GetItemByCode(ctx, "GRC-001")
			require.NoError(t, err)
			assert.Equal(t, 28, got.StockQuantity)
			assert.True(t, got.Price.Equal(decimal.RequireFromString("8.00")))

			sales, err := second.ListSalesInRange(ctx, nil, nil)
			require.NoError(t, err)
			require.Len(t, sales, 1)
			assert.Equal(t, "INV-FILE-0001", sales[0].InvoiceNumber)

			next, err := second.CreateItem(ctx, domain.ItemInput{Name: "Milk", ItemCode: "DRY-001", Price: decimal.NewFromInt(2), StockQuantity: 1})
			require.NoError(t, err)
			assert.Equal(t, item.ID+1, next.ID)
		})
	}
}

func TestFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s := openStore(t, filepath.Join(dir, "ledger.json"))

	item, err := s.CreateItem(ctx, domain.ItemInput{Name: "Chips", ItemCode: "SNK-001", Price: decimal.NewFromInt(1), StockQuantity: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, s.HealthCheck(ctx).Status)

	require.NoError(t, os.RemoveAll(dir))

	_, err = s.AdjustStock(ctx, item.ID, 4, domain.StockSubtract)
	require.ErrorIs(t, err, apperror.ErrInternal)

	got, err := s.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity, "in-memory state matches the last durable snapshot")
	assert.Equal(t, domain.HealthDegraded, s.HealthCheck(ctx).Status)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err = s.AdjustStock(ctx, item.ID, 4, domain.StockSubtract)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, s.HealthCheck(ctx).Status)
}

func TestFailedMutationDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	s := openStore(t, path)

	_, err := s.DeleteItem(ctx, 42)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestCorruptSnapshotFailsInitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := New(path, nil).Initialize(context.Background())
	assert.ErrorIs(t, err, apperror.ErrInternal)
}

func TestNewerSnapshotVersionIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o644))

	err := New(path, nil).Initialize(context.Background())
	assert.ErrorIs(t, err, apperror.ErrInternal)
}
