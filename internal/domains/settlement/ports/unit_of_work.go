package ports

import (
	"context"
	"errors"

	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
)

// ErrConflict is returned by a unit of work when the store aborted it because a
// concurrent writer held or changed the rows it needed (lock timeout, deadlock,
// serialization failure).
var ErrConflict = errors.New("unit of work aborted by concurrent writer")

// Repositories is the set of stores a settlement operation touches.
type Repositories struct {
	Products    catalogports.Repository
	Accounts    accountports.Repository
	Orders      orderports.OrderRepository
	Logistics   orderports.LogisticsRepository
	Idempotency orderports.IdempotencyStore
}

// UnitOfWork makes a group of writes all-or-nothing.
type UnitOfWork interface {
	// Within runs fn with repositories bound to one atomic unit. If fn returns an
	// error every write made through repos is undone before Within returns.
	Within(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Reader returns repositories for read-only queries outside any unit.
	Reader() Repositories
}
