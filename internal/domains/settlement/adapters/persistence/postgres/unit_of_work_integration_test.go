//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	accountspostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/persistence/postgres"
	accountdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	catalogpostgres "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/persistence/postgres"
	catalogdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/platform/migrations"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("checkout_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

type seeded struct {
	buyerID    int64
	merchantID int64
	productID  int64
}

func seed(t *testing.T, db *gorm.DB, balance, price, stock int64) seeded {
	t.Helper()
	ctx := context.Background()
	accounts := accountspostgres.NewRepository(db)
	products := catalogpostgres.NewRepository(db)

	buyer, err := accountdomain.NewAccount(0, "buyer", "buyer@example.com", accountdomain.RoleBuyer, decimal.NewFromInt(balance))
	require.NoError(t, err)
	savedBuyer, err := accounts.Save(ctx, buyer)
	require.NoError(t, err)

	merchant, err := accountdomain.NewAccount(0, "store", "store@example.com", accountdomain.RoleMerchant, decimal.Zero)
	require.NoError(t, err)
	savedMerchant, err := accounts.Save(ctx, merchant)
	require.NoError(t, err)

	product, err := catalogdomain.NewProduct(0, "Product A", decimal.NewFromInt(price), stock,
		catalogdomain.Merchant{ID: savedMerchant.ID, Name: savedMerchant.Name},
		address.Address{Province: "Guangdong", City: "Shenzhen", District: "Nanshan", Detail: "WH 1"})
	require.NoError(t, err)
	savedProduct, err := products.Save(ctx, product)
	require.NoError(t, err)

	return seeded{buyerID: savedBuyer.ID, merchantID: savedMerchant.ID, productID: savedProduct.ID}
}

func input(userID, productID, qty int64) settlementtypes.SettleInput {
	return settlementtypes.SettleInput{
		UserID: userID,
		Lines:  []settlementtypes.LineInput{{ProductID: productID, Quantity: qty}},
		ShippingAddress: settlementtypes.ShippingAddressInput{
			RecipientName: "Zhang San", Phone: "13700000000",
			Province: "Zhejiang", City: "Hangzhou", District: "Xihu", Detail: "18 Wensan Rd",
		},
	}
}

func TestPostgresSettlement_Example(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	s := seed(t, db, 1000, 100, 5)
	ctx := context.Background()

	svc := application.NewService(NewUnitOfWork(db))
	result, err := svc.Settle(ctx, input(s.buyerID, s.productID, 3))
	require.NoError(t, err)
	require.Equal(t, "300", result.Order.Total.String())
	require.Equal(t, orderdomain.StatusPaid, result.Order.Status)
	require.Len(t, result.Logistics.Trace, 5)

	product, err := catalogpostgres.NewRepository(db).GetByID(ctx, s.productID)
	require.NoError(t, err)
	require.Equal(t, int64(2), product.Stock)
	require.Equal(t, int64(3), product.SalesCount)

	buyer, err := accountspostgres.NewRepository(db).GetByID(ctx, s.buyerID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(700).Equal(buyer.Balance))

	loaded, err := svc.GetOrder(ctx, settlementtypes.OrderIdentifier{OrderID: result.Order.ID})
	require.NoError(t, err)
	require.Equal(t, result.Order.Number, loaded.Order.Number)
	require.Equal(t, result.Logistics.TrackingNumber, loaded.Logistics.TrackingNumber)

	refunded, err := svc.Refund(ctx, settlementtypes.OrderIdentifier{OrderID: result.Order.ID})
	require.NoError(t, err)
	require.Equal(t, orderdomain.StatusRefunded, refunded.Order.Status)
	require.Equal(t, orderdomain.LogisticsReturned, refunded.Logistics.Status)

	buyer, err = accountspostgres.NewRepository(db).GetByID(ctx, s.buyerID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1000).Equal(buyer.Balance))
}

type failingLogistics struct {
	orderports.LogisticsRepository
}

func (failingLogistics) Create(context.Context, *orderdomain.Logistics) (*orderdomain.Logistics, error) {
	return nil, errors.New("injected logistics failure")
}

// faultyUnitOfWork swaps the logistics store inside the real transaction.
type faultyUnitOfWork struct {
	*UnitOfWork
}

func (u faultyUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return u.UnitOfWork.Within(ctx, func(ctx context.Context, repos ports.Repositories) error {
		repos.Logistics = failingLogistics{LogisticsRepository: repos.Logistics}
		return fn(ctx, repos)
	})
}

func TestPostgresSettlement_RollsBackOnInjectedFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	s := seed(t, db, 1000, 100, 5)
	ctx := context.Background()

	svc := application.NewService(faultyUnitOfWork{UnitOfWork: NewUnitOfWork(db)})
	_, err := svc.Settle(ctx, input(s.buyerID, s.productID, 3))
	require.Error(t, err)

	product, err := catalogpostgres.NewRepository(db).GetByID(ctx, s.productID)
	require.NoError(t, err)
	require.Equal(t, int64(5), product.Stock)
	require.Equal(t, int64(0), product.SalesCount)

	accounts := accountspostgres.NewRepository(db)
	buyer, err := accounts.GetByID(ctx, s.buyerID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1000).Equal(buyer.Balance))
	merchant, err := accounts.GetByID(ctx, s.merchantID)
	require.NoError(t, err)
	require.Equal(t, int64(0), merchant.SalesCount)

	var orders int64
	require.NoError(t, db.Table("orders").Count(&orders).Error)
	require.Zero(t, orders)
}

func TestPostgresSettlement_LastUnitHasOneWinner(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	s := seed(t, db, 1000, 100, 1)
	ctx := context.Background()
	svc := application.NewService(NewUnitOfWork(db, WithLockTimeout(2*time.Second)))

	const buyers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Settle(ctx, input(s.buyerID, s.productID, 1))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			assert.True(t, errors.Is(err, application.ErrInsufficientStock) || errors.Is(err, application.ErrConcurrentConflict), "unexpected error: %v", err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)

	product, err := catalogpostgres.NewRepository(db).GetByID(ctx, s.productID)
	require.NoError(t, err)
	require.Equal(t, int64(0), product.Stock)
}

func TestPostgresSettlement_IdempotentReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()
	s := seed(t, db, 1000, 100, 5)
	ctx := context.Background()
	svc := application.NewService(NewUnitOfWork(db))

	in := input(s.buyerID, s.productID, 1)
	in.IdempotencyKey = "pg-key"
	first, err := svc.Settle(ctx, in)
	require.NoError(t, err)
	second, err := svc.Settle(ctx, in)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Order.ID, second.Order.ID)

	in.Lines[0].Quantity = 2
	_, err = svc.Settle(ctx, in)
	require.ErrorIs(t, err, application.ErrIdempotencyConflict)
}
