package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
)

var _ ports.LogisticsRepository = (*LogisticsRepository)(nil)

// LogisticsRepository keeps one shipment per order id.
type LogisticsRepository struct {
	mu      sync.RWMutex
	byOrder map[int64]*domain.Logistics
	nextID  int64
}

func NewLogisticsRepository() *LogisticsRepository {
	return &LogisticsRepository{byOrder: map[int64]*domain.Logistics{}}
}

func (r *LogisticsRepository) Create(_ context.Context, logistics *domain.Logistics) (*domain.Logistics, error) {
	if logistics == nil {
		return nil, errors.New("logistics is nil")
	}
	if err := logistics.Validate(); err != nil {
		return nil, err
	}
	clone := logistics.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byOrder[clone.OrderID]; exists {
		return nil, ports.ErrLogisticsExists
	}
	r.nextID++
	clone.ID = r.nextID
	r.byOrder[clone.OrderID] = clone
	return clone.Clone(), nil
}

func (r *LogisticsRepository) GetByOrderID(_ context.Context, orderID int64) (*domain.Logistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logistics, ok := r.byOrder[orderID]
	if !ok {
		return nil, ports.ErrLogisticsNotFound
	}
	return logistics.Clone(), nil
}

func (r *LogisticsRepository) Save(_ context.Context, logistics *domain.Logistics) (*domain.Logistics, error) {
	if logistics == nil {
		return nil, errors.New("logistics is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byOrder[logistics.OrderID]
	if !ok {
		return nil, ports.ErrLogisticsNotFound
	}
	src := logistics.Clone()
	next := current.Clone()
	next.Status = src.Status
	next.ShippedAt = src.ShippedAt
	next.DeliveredAt = src.DeliveredAt
	next.UpdatedAt = src.UpdatedAt
	r.byOrder[next.OrderID] = next
	return next.Clone(), nil
}

func (r *LogisticsRepository) DeleteByOrderID(_ context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrder[orderID]; !ok {
		return ports.ErrLogisticsNotFound
	}
	delete(r.byOrder, orderID)
	return nil
}
