package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	accountsmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/memory"
	catalogmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/memory"
)

func TestLoad_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	accounts := accountsmemory.NewRepository()
	products := catalogmemory.NewRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Load(ctx, accounts, products, logger))

	buyer, err := accounts.GetByID(ctx, BuyerID)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(BuyerBalance))

	_, err = accounts.Debit(ctx, BuyerID, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, Load(ctx, accounts, products, logger))

	buyer, err = accounts.GetByID(ctx, BuyerID)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(decimal.NewFromInt(9900)), "existing rows are not overwritten")

	all, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(demoProducts))

	laptop, err := products.GetByID(ctx, LaptopID)
	require.NoError(t, err)
	require.Equal(t, AppleMerchantID, laptop.Merchant.ID)
	require.Equal(t, "Apple Authorized Store", laptop.Merchant.Name)
}
