package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var origin = address.Address{Province: "Guangdong", City: "Shenzhen", District: "Nanshan", Detail: "Science Park"}

func TestNewProduct_Validates(t *testing.T) {
	_, err := NewProduct(1, " ", decimal.NewFromInt(10), 1, Merchant{ID: 7}, origin)
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = NewProduct(1, "Kettle", decimal.NewFromInt(-1), 1, Merchant{ID: 7}, origin)
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = NewProduct(1, "Kettle", decimal.NewFromInt(1), -1, Merchant{ID: 7}, origin)
	require.ErrorIs(t, err, ErrNegativeStock)

	_, err = NewProduct(1, "Kettle", decimal.NewFromInt(1), 1, Merchant{}, origin)
	require.ErrorIs(t, err, ErrInvalidMerchant)

	_, err = NewProduct(1, "Kettle", decimal.NewFromInt(1), 1, Merchant{ID: 7}, address.Address{City: "Shenzhen"})
	require.ErrorIs(t, err, address.ErrIncomplete)

	p, err := NewProduct(1, " Kettle ", decimal.RequireFromString("99.90"), 3, Merchant{ID: 7, Name: "Official"}, origin)
	require.NoError(t, err)
	require.Equal(t, "Kettle", p.Name)
}

func TestReserveAndRelease(t *testing.T) {
	p, err := NewProduct(1, "Kettle", decimal.NewFromInt(100), 5, Merchant{ID: 7}, origin)
	require.NoError(t, err)

	require.NoError(t, p.Reserve(3))
	require.Equal(t, int64(2), p.Stock)
	require.Equal(t, int64(3), p.SalesCount)

	require.ErrorIs(t, p.Reserve(3), ErrInsufficientStock)
	require.Equal(t, int64(2), p.Stock)
	require.ErrorIs(t, p.Reserve(0), ErrInvalidQuantity)

	require.NoError(t, p.Release(5))
	require.Equal(t, int64(7), p.Stock)
	require.Equal(t, int64(0), p.SalesCount)
}
