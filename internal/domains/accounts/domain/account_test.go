package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewAccount_DefaultsAndValidation(t *testing.T) {
	acc, err := NewAccount(1, "alice", "alice@example.com", "", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.Equal(t, RoleBuyer, acc.Role)

	_, err = NewAccount(1, "", "", RoleBuyer, decimal.Zero)
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = NewAccount(1, "bob", "bob.example.com", RoleBuyer, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewAccount(1, "bob", "", Role("root"), decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewAccount(1, "bob", "", RoleBuyer, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrNegativeBalance)
}

func TestDebitCredit(t *testing.T) {
	acc := &Account{Name: "alice", Role: RoleBuyer, Balance: decimal.NewFromInt(1000)}

	require.NoError(t, acc.Debit(decimal.NewFromInt(300)))
	require.True(t, decimal.NewFromInt(700).Equal(acc.Balance))

	require.ErrorIs(t, acc.Debit(decimal.NewFromInt(701)), ErrInsufficientFunds)
	require.True(t, decimal.NewFromInt(700).Equal(acc.Balance))

	require.ErrorIs(t, acc.Debit(decimal.Zero), ErrNonPositiveAmount)
	require.NoError(t, acc.Credit(decimal.RequireFromString("0.50")))
	require.Equal(t, "700.5", acc.Balance.String())
}

func TestAddSales_FloorsAtZero(t *testing.T) {
	acc := &Account{Role: RoleMerchant}
	acc.AddSales(3)
	acc.AddSales(-5)
	require.Equal(t, int64(0), acc.SalesCount)
}
