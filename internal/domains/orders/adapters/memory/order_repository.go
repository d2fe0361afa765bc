package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
)

var _ ports.OrderRepository = (*OrderRepository)(nil)

// OrderRepository is an in-memory order ledger.
type OrderRepository struct {
	mu       sync.RWMutex
	orders   map[int64]*domain.Order
	byNumber map[string]int64
	nextID   int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   map[int64]*domain.Order{},
		byNumber: map[string]int64{},
	}
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	clone := order.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byNumber[clone.Number]; taken {
		return nil, errors.New("order number already exists")
	}
	r.nextID++
	clone.ID = r.nextID
	r.orders[clone.ID] = clone
	r.byNumber[clone.Number] = clone.ID
	return clone.Clone(), nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			list = append(list, order.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].OrderedAt.Equal(list[j].OrderedAt) {
			return list[i].OrderedAt.After(list[j].OrderedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id int64, from []domain.Status, to domain.Status, at time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if !containsStatus(from, order.Status) {
		return nil, ports.ErrStatusPrecondition
	}
	next := order.Clone()
	next.Status = to
	next.UpdatedAt = at.UTC()
	r.orders[id] = next
	return next.Clone(), nil
}

func (r *OrderRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	delete(r.byNumber, order.Number)
	delete(r.orders, id)
	return nil
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
