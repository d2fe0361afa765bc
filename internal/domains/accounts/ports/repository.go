package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
)

var (
	ErrNotFound = errors.New("account not found")
	// ErrInsufficientFunds is returned by Debit when the balance precondition fails at write time.
	ErrInsufficientFunds = errors.New("balance precondition failed")
)

// Repository persists accounts. Debit, Credit and AddSales are atomic
// single-record writes.
type Repository interface {
	Save(ctx context.Context, account *domain.Account) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	// Debit subtracts amount only if balance >= amount.
	Debit(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Account, error)
	Credit(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Account, error)
	// AddSales moves the merchant sales counter by delta (may be negative, floored at zero).
	AddSales(ctx context.Context, id int64, delta int64) error
}
