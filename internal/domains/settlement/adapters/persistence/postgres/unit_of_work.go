package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	accountspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/persistence/postgres"
	catalogpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/persistence/postgres"
	orderspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/adapters/persistence/postgres"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

// DefaultLockTimeout bounds how long a unit waits on a row lock.
const DefaultLockTimeout = 3 * time.Second

// PostgreSQL error codes that mean "lost a race, retry the whole unit".
const (
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs each settlement operation in one database transaction.
// Repositories bound inside Within lock the rows they read.
type UnitOfWork struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

type Option func(*UnitOfWork)

// WithLockTimeout sets the per-transaction lock_timeout. Zero keeps the default.
func WithLockTimeout(d time.Duration) Option {
	return func(u *UnitOfWork) {
		if d > 0 {
			u.lockTimeout = d
		}
	}
}

// NewUnitOfWork wires a transactional unit of work. Caller manages DB lifecycle.
func NewUnitOfWork(db *gorm.DB, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{db: db, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

func (u *UnitOfWork) Reader() ports.Repositories {
	return ports.Repositories{
		Products:    catalogpostgres.NewRepository(u.db),
		Accounts:    accountspostgres.NewRepository(u.db),
		Orders:      orderspostgres.NewOrderRepository(u.db),
		Logistics:   orderspostgres.NewLogisticsRepository(u.db),
		Idempotency: orderspostgres.NewIdempotencyStore(u.db),
	}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	if u == nil || u.db == nil {
		return errors.New("postgres unit of work not configured")
	}
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SET cannot take bind parameters; the value is an integer we format ourselves.
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", u.lockTimeout.Milliseconds())).Error; err != nil {
			return err
		}
		return fn(ctx, ports.Repositories{
			Products:    catalogpostgres.NewTxRepository(tx),
			Accounts:    accountspostgres.NewTxRepository(tx),
			Orders:      orderspostgres.NewTxOrderRepository(tx),
			Logistics:   orderspostgres.NewLogisticsRepository(tx),
			Idempotency: orderspostgres.NewIdempotencyStore(tx),
		})
	})
	return classify(err)
}

// classify maps lock and serialization aborts onto ports.ErrConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
			return fmt.Errorf("%w: %s (%s)", ports.ErrConflict, pgErr.Message, pgErr.Code)
		}
	}
	return err
}
