package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory account store.
type Repository struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
	nextID   int64
}

func NewRepository() *Repository {
	return &Repository{accounts: map[int64]*domain.Account{}}
}

func (r *Repository) Save(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, errors.New("account is nil")
	}
	clone := *account
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == 0 {
		r.nextID++
		clone.ID = r.nextID
	} else if clone.ID > r.nextID {
		r.nextID = clone.ID
	}
	r.accounts[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *acc
	return &clone, nil
}

func (r *Repository) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		clone := *acc
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *Repository) Debit(_ context.Context, id int64, amount decimal.Decimal) (*domain.Account, error) {
	return r.mutate(id, func(acc *domain.Account) error {
		if err := acc.Debit(amount); err != nil {
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return ports.ErrInsufficientFunds
			}
			return err
		}
		return nil
	})
}

func (r *Repository) Credit(_ context.Context, id int64, amount decimal.Decimal) (*domain.Account, error) {
	return r.mutate(id, func(acc *domain.Account) error {
		return acc.Credit(amount)
	})
}

func (r *Repository) AddSales(_ context.Context, id int64, delta int64) error {
	_, err := r.mutate(id, func(acc *domain.Account) error {
		acc.AddSales(delta)
		return nil
	})
	return err
}

func (r *Repository) mutate(id int64, fn func(acc *domain.Account) error) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	next := *acc
	if err := fn(&next); err != nil {
		return nil, err
	}
	r.accounts[id] = &next
	out := next
	return &out, nil
}
