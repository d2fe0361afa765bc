package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

func seedProduct(t *testing.T, repo *Repository, stock int64) *domain.Product {
	t.Helper()
	p, err := domain.NewProduct(0, "Thermos", decimal.NewFromInt(100), stock,
		domain.Merchant{ID: 9, Name: "Official Store"},
		address.Address{Province: "Guangdong", City: "Shenzhen", District: "Nanshan", Detail: "Science Park"})
	require.NoError(t, err)
	saved, err := repo.Save(context.Background(), p)
	require.NoError(t, err)
	return saved
}

func TestSave_AssignsIDAndCopies(t *testing.T) {
	repo := NewRepository()
	saved := seedProduct(t, repo, 5)
	require.Equal(t, int64(1), saved.ID)

	saved.Stock = 0
	fetched, err := repo.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), fetched.Stock)

	_, err = repo.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestReserve_IsConditional(t *testing.T) {
	repo := NewRepository()
	p := seedProduct(t, repo, 2)
	ctx := context.Background()

	updated, err := repo.Reserve(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), updated.Stock)
	require.Equal(t, int64(2), updated.SalesCount)

	_, err = repo.Reserve(ctx, p.ID, 1)
	require.ErrorIs(t, err, ports.ErrInsufficientStock)

	released, err := repo.Release(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), released.Stock)
	require.Equal(t, int64(0), released.SalesCount)

	_, err = repo.Reserve(ctx, 99, 1)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	repo := NewRepository()
	p := seedProduct(t, repo, 10)
	ctx := context.Background()

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(ctx, p.ID, 1); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(10), wins.Load())
	final, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), final.Stock)
	require.Equal(t, int64(10), final.SalesCount)
}
