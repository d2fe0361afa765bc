package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrLogisticsNotFound = errors.New("logistics not found")
	ErrLogisticsExists   = errors.New("logistics already exists for order")
	// ErrStatusPrecondition is returned by UpdateStatus when the stored status is not one of the expected ones.
	ErrStatusPrecondition = errors.New("order status precondition failed")
)

// OrderRepository is the order ledger.
type OrderRepository interface {
	// Create inserts a new order and assigns its id.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	// UpdateStatus moves the order to `to` only if its current status is in `from`.
	UpdateStatus(ctx context.Context, id int64, from []domain.Status, to domain.Status, at time.Time) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}

// LogisticsRepository stores exactly one shipment per order.
type LogisticsRepository interface {
	Create(ctx context.Context, logistics *domain.Logistics) (*domain.Logistics, error)
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Logistics, error)
	// Save overwrites the mutable status fields of an existing shipment.
	Save(ctx context.Context, logistics *domain.Logistics) (*domain.Logistics, error)
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
