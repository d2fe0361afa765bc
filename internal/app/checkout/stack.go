// Package checkout assembles the settlement engine and its stores from configuration.
// The API, the Temporal worker and the seed tool share this wiring.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-checkout-server/internal/app/seed"
	accountsmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/memory"
	accountspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/persistence/postgres"
	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/persistence/postgres"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	ordersmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/adapters/memory"
	settlementmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/memory"
	settlementobs "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/observability"
	settlementpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/persistence/postgres"
	settlementapp "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	settlementports "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-checkout-server/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-checkout-server/internal/platform/postgres"
)

// ErrProcessLocalStores is returned when a caller needs stores shared across processes
// but the stack runs on in-memory stores.
var ErrProcessLocalStores = errors.New("settlement stores are in-memory and local to this process")

// Stack is a ready-to-use settlement engine plus the stores behind it.
type Stack struct {
	// Service is the instrumented settlement engine.
	Service  settlementports.Service
	Products catalogports.Repository
	Accounts accountports.Repository
	// DB is nil when running on in-memory stores.
	DB    *gorm.DB
	close func()
}

// Close releases the database pool, if any.
func (s *Stack) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Shared reports whether other processes see the same stores, which holds only for PostgreSQL.
func (s *Stack) Shared() bool {
	return s != nil && s.DB != nil
}

// RequireShared fails with ErrProcessLocalStores unless the stack is backed by PostgreSQL.
func (s *Stack) RequireShared() error {
	if !s.Shared() {
		return ErrProcessLocalStores
	}
	return nil
}

// Healthy reports whether the backing store is reachable.
func (s *Stack) Healthy(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return nil
	}
	return platformpostgres.Ping(ctx, s.DB)
}

// Build connects to PostgreSQL when configured, migrating the schema, and falls
// back to in-memory stores otherwise. Demo data is loaded when SeedDemoData is set.
func Build(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Stack, error) {
	logger := slog.Default()
	if instruments != nil && instruments.Logger != nil {
		logger = instruments.Logger
	}

	stack := &Stack{}
	var uow settlementports.UnitOfWork
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	if db != nil {
		if err := migrations.Run(db.WithContext(ctx)); err != nil {
			cleanup()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		stack.DB = db
		stack.close = cleanup
		stack.Products = catalogpostgres.NewRepository(db)
		stack.Accounts = accountspostgres.NewRepository(db)
		uow = settlementpostgres.NewUnitOfWork(db, settlementpostgres.WithLockTimeout(cfg.PostgresLockTimeout))
		logger.Info("settlement engine configured with postgres")
	} else {
		products := catalogmemory.NewRepository()
		accounts := accountsmemory.NewRepository()
		stack.Products = products
		stack.Accounts = accounts
		uow = settlementmemory.NewUnitOfWork(settlementports.Repositories{
			Products:    products,
			Accounts:    accounts,
			Orders:      ordersmemory.NewOrderRepository(),
			Logistics:   ordersmemory.NewLogisticsRepository(),
			Idempotency: ordersmemory.NewIdempotencyStore(),
		})
		logger.Info("settlement engine configured with in-memory stores")
	}

	if cfg.SeedDemoData {
		if err := seed.Load(ctx, stack.Accounts, stack.Products, logger); err != nil {
			stack.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	core := settlementapp.NewService(uow, settlementapp.WithGenerator(cfg.Generator()))
	obsOpts := []settlementobs.Option{settlementobs.WithLogger(logger)}
	if instruments != nil {
		obsOpts = append(obsOpts,
			settlementobs.WithTracer(instruments.Tracer("internal.settlement.application")),
			settlementobs.WithMeter(instruments.Meter("internal.settlement.application")),
		)
	}
	stack.Service = settlementobs.New(core, obsOpts...)
	return stack, nil
}
