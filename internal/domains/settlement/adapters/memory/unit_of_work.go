package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	accountdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork gives stores without transactions all-or-nothing semantics by
// journaling an inverse for every successful write and replaying the journal
// in reverse when the unit fails. Each individual write is already atomic on
// its record, so concurrent units serialize on conditional writes.
type UnitOfWork struct {
	repos ports.Repositories
}

// NewUnitOfWork wraps the given stores.
func NewUnitOfWork(repos ports.Repositories) *UnitOfWork {
	return &UnitOfWork{repos: repos}
}

func (u *UnitOfWork) Reader() ports.Repositories {
	return u.repos
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	j := &journal{}
	bound := ports.Repositories{
		Products:    &journaledProducts{inner: u.repos.Products, j: j},
		Accounts:    &journaledAccounts{inner: u.repos.Accounts, j: j},
		Orders:      &journaledOrders{inner: u.repos.Orders, j: j},
		Logistics:   &journaledLogistics{inner: u.repos.Logistics, j: j},
		Idempotency: &journaledIdempotency{inner: u.repos.Idempotency, j: j},
	}
	if err := fn(ctx, bound); err != nil {
		// Compensation must run even when the caller's context is already done.
		if cerr := j.rollback(context.WithoutCancel(ctx)); cerr != nil {
			return errors.Join(err, fmt.Errorf("compensation failed: %w", cerr))
		}
		return err
	}
	return nil
}

type undo func(ctx context.Context) error

type journal struct {
	steps []undo
}

func (j *journal) record(step undo) {
	j.steps = append(j.steps, step)
}

// rollback runs the inverses newest first and keeps going past failures.
func (j *journal) rollback(ctx context.Context) error {
	var errs []error
	for i := len(j.steps) - 1; i >= 0; i-- {
		if err := j.steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	j.steps = nil
	return errors.Join(errs...)
}

type journaledProducts struct {
	inner catalogports.Repository
	j     *journal
}

func (p *journaledProducts) Save(ctx context.Context, product *catalogdomain.Product) (*catalogdomain.Product, error) {
	return p.inner.Save(ctx, product)
}

func (p *journaledProducts) GetByID(ctx context.Context, id int64) (*catalogdomain.Product, error) {
	return p.inner.GetByID(ctx, id)
}

func (p *journaledProducts) List(ctx context.Context) ([]*catalogdomain.Product, error) {
	return p.inner.List(ctx)
}

func (p *journaledProducts) Reserve(ctx context.Context, id int64, qty int64) (*catalogdomain.Product, error) {
	product, err := p.inner.Reserve(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	p.j.record(func(ctx context.Context) error {
		_, err := p.inner.Release(ctx, id, qty)
		return err
	})
	return product, nil
}

func (p *journaledProducts) Release(ctx context.Context, id int64, qty int64) (*catalogdomain.Product, error) {
	product, err := p.inner.Release(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	p.j.record(func(ctx context.Context) error {
		_, err := p.inner.Reserve(ctx, id, qty)
		return err
	})
	return product, nil
}

type journaledAccounts struct {
	inner accountports.Repository
	j     *journal
}

func (a *journaledAccounts) Save(ctx context.Context, account *accountdomain.Account) (*accountdomain.Account, error) {
	return a.inner.Save(ctx, account)
}

func (a *journaledAccounts) GetByID(ctx context.Context, id int64) (*accountdomain.Account, error) {
	return a.inner.GetByID(ctx, id)
}

func (a *journaledAccounts) List(ctx context.Context) ([]*accountdomain.Account, error) {
	return a.inner.List(ctx)
}

func (a *journaledAccounts) Debit(ctx context.Context, id int64, amount decimal.Decimal) (*accountdomain.Account, error) {
	account, err := a.inner.Debit(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	a.j.record(func(ctx context.Context) error {
		_, err := a.inner.Credit(ctx, id, amount)
		return err
	})
	return account, nil
}

func (a *journaledAccounts) Credit(ctx context.Context, id int64, amount decimal.Decimal) (*accountdomain.Account, error) {
	account, err := a.inner.Credit(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	a.j.record(func(ctx context.Context) error {
		_, err := a.inner.Debit(ctx, id, amount)
		return err
	})
	return account, nil
}

// AddSales journals the delta actually applied, which differs from the
// requested one when the counter was floored at zero.
func (a *journaledAccounts) AddSales(ctx context.Context, id int64, delta int64) error {
	before, err := a.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.inner.AddSales(ctx, id, delta); err != nil {
		return err
	}
	applied := delta
	if before.SalesCount+delta < 0 {
		applied = -before.SalesCount
	}
	a.j.record(func(ctx context.Context) error {
		return a.inner.AddSales(ctx, id, -applied)
	})
	return nil
}

type journaledOrders struct {
	inner orderports.OrderRepository
	j     *journal
}

func (o *journaledOrders) Create(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	created, err := o.inner.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	o.j.record(func(ctx context.Context) error {
		return o.inner.Delete(ctx, created.ID)
	})
	return created, nil
}

func (o *journaledOrders) GetByID(ctx context.Context, id int64) (*orderdomain.Order, error) {
	return o.inner.GetByID(ctx, id)
}

func (o *journaledOrders) ListByUser(ctx context.Context, userID int64) ([]*orderdomain.Order, error) {
	return o.inner.ListByUser(ctx, userID)
}

func (o *journaledOrders) UpdateStatus(ctx context.Context, id int64, from []orderdomain.Status, to orderdomain.Status, at time.Time) (*orderdomain.Order, error) {
	before, err := o.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := o.inner.UpdateStatus(ctx, id, from, to, at)
	if err != nil {
		return nil, err
	}
	o.j.record(func(ctx context.Context) error {
		_, err := o.inner.UpdateStatus(ctx, id, []orderdomain.Status{to}, before.Status, before.UpdatedAt)
		return err
	})
	return updated, nil
}

func (o *journaledOrders) Delete(ctx context.Context, id int64) error {
	return o.inner.Delete(ctx, id)
}

type journaledLogistics struct {
	inner orderports.LogisticsRepository
	j     *journal
}

func (l *journaledLogistics) Create(ctx context.Context, logistics *orderdomain.Logistics) (*orderdomain.Logistics, error) {
	created, err := l.inner.Create(ctx, logistics)
	if err != nil {
		return nil, err
	}
	l.j.record(func(ctx context.Context) error {
		return l.inner.DeleteByOrderID(ctx, created.OrderID)
	})
	return created, nil
}

func (l *journaledLogistics) GetByOrderID(ctx context.Context, orderID int64) (*orderdomain.Logistics, error) {
	return l.inner.GetByOrderID(ctx, orderID)
}

func (l *journaledLogistics) Save(ctx context.Context, logistics *orderdomain.Logistics) (*orderdomain.Logistics, error) {
	before, err := l.inner.GetByOrderID(ctx, logistics.OrderID)
	if err != nil {
		return nil, err
	}
	saved, err := l.inner.Save(ctx, logistics)
	if err != nil {
		return nil, err
	}
	l.j.record(func(ctx context.Context) error {
		_, err := l.inner.Save(ctx, before)
		return err
	})
	return saved, nil
}

func (l *journaledLogistics) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return l.inner.DeleteByOrderID(ctx, orderID)
}

type journaledIdempotency struct {
	inner orderports.IdempotencyStore
	j     *journal
}

func (i *journaledIdempotency) Get(ctx context.Context, key string) (*orderports.IdempotencyRecord, error) {
	return i.inner.Get(ctx, key)
}

func (i *journaledIdempotency) Save(ctx context.Context, record orderports.IdempotencyRecord) (*orderports.IdempotencyRecord, error) {
	existing, err := i.inner.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	saved, err := i.inner.Save(ctx, record)
	if err != nil {
		return saved, err
	}
	if existing == nil {
		i.j.record(func(ctx context.Context) error {
			return i.inner.Delete(ctx, record.Key)
		})
	}
	return saved, nil
}

func (i *journaledIdempotency) Delete(ctx context.Context, key string) error {
	return i.inner.Delete(ctx, key)
}
