package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

func TestKind(t *testing.T) {
	require.Equal(t, "", Kind(nil))
	require.Equal(t, KindInsufficientStock, Kind(&InsufficientStockError{ProductID: 1}))
	require.Equal(t, KindProductNotFound, Kind(fmt.Errorf("wrapped: %w", &ProductNotFoundError{ProductID: 2})))
	require.Equal(t, KindConcurrentConflict, Kind(mapError(catalogports.ErrInsufficientStock)))
	require.Equal(t, KindConcurrentConflict, Kind(mapError(accountports.ErrInsufficientFunds)))
	require.Equal(t, KindConcurrentConflict, Kind(mapError(ports.ErrConflict)))
	require.Equal(t, KindOrderNotFound, Kind(mapError(orderports.ErrNotFound)))
	require.Equal(t, KindIdempotencyConflict, Kind(mapError(orderports.ErrIdempotencyConflict)))
	require.Equal(t, KindInvalidRequest, Kind(mapError(orderdomain.ErrMissingPhone)))
	require.Equal(t, KindInternal, Kind(errors.New("boom")))
}

func TestRebuild_RoundTripsTypedErrors(t *testing.T) {
	cases := []error{
		&ProductNotFoundError{ProductID: 9},
		&InsufficientStockError{ProductID: 3, Requested: 4, Available: 1},
		&InsufficientBalanceError{Required: decimal.RequireFromString("300.50"), Available: decimal.NewFromInt(12)},
		&InvalidStateTransitionError{OrderID: 5, From: orderdomain.StatusCompleted, To: orderdomain.StatusRefunded},
	}
	for _, original := range cases {
		rebuilt := Rebuild(Kind(original), original.Error(), Details(original))
		require.Equal(t, original.Error(), rebuilt.Error())
		require.Equal(t, Kind(original), Kind(rebuilt))
	}

	conflict := fmt.Errorf("%w: row locked", ErrConcurrentConflict)
	rebuilt := Rebuild(Kind(conflict), conflict.Error(), Details(conflict))
	require.ErrorIs(t, rebuilt, ErrConcurrentConflict)
	require.Equal(t, conflict.Error(), rebuilt.Error())

	unknown := Rebuild("something_else", "opaque", ErrorDetail{})
	require.Equal(t, KindInternal, Kind(unknown))
}

func TestFingerprintSettle(t *testing.T) {
	base := settlementtypes.SettleInput{
		UserID: 1,
		Lines: []settlementtypes.LineInput{
			{ProductID: 2, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
		ShippingAddress: settlementtypes.ShippingAddressInput{RecipientName: "A", Phone: "1", Province: "P", City: "C", District: "D", Detail: "X"},
		IdempotencyKey:  "k1",
	}
	reordered := base
	reordered.Lines = []settlementtypes.LineInput{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 1},
	}
	reordered.ShippingAddress.City = " C "
	reordered.IdempotencyKey = "k2"

	h1, err := FingerprintSettle(base)
	require.NoError(t, err)
	h2, err := FingerprintSettle(reordered)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	changed := base
	changed.Remarks = "gift wrap"
	h3, err := FingerprintSettle(changed)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}
