package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
)

var (
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by Reserve when the stock precondition fails at write time.
	ErrInsufficientStock = errors.New("stock precondition failed")
)

// Repository persists catalog products. Reserve and Release are conditional
// single-record writes; implementations must apply them atomically.
type Repository interface {
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	// Reserve decrements stock and increments sales by qty only if stock >= qty.
	Reserve(ctx context.Context, id int64, qty int64) (*domain.Product, error)
	// Release increments stock and decrements sales (floored at zero) by qty.
	Release(ctx context.Context, id int64, qty int64) (*domain.Product, error)
}
