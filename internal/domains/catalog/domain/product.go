package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var (
	ErrEmptyName         = errors.New("product name is required")
	ErrNegativePrice     = errors.New("product price must not be negative")
	ErrNegativeStock     = errors.New("product stock must not be negative")
	ErrNegativeSales     = errors.New("product sales count must not be negative")
	ErrInvalidMerchant   = errors.New("product merchant id must be greater than zero")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Merchant identifies the seller account a product belongs to.
type Merchant struct {
	ID   int64
	Name string
}

// Product models a sellable catalog item and its inventory counters.
type Product struct {
	ID         int64
	Name       string
	Price      decimal.Decimal
	Stock      int64
	SalesCount int64
	Merchant   Merchant
	Origin     address.Address
}

// NewProduct validates and constructs a Product aggregate.
func NewProduct(id int64, name string, price decimal.Decimal, stock int64, merchant Merchant, origin address.Address) (*Product, error) {
	p := &Product{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Price:    price,
		Stock:    stock,
		Merchant: merchant,
		Origin:   origin.Normalize(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate enforces catalog invariants.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if p.SalesCount < 0 {
		return ErrNegativeSales
	}
	if p.Merchant.ID <= 0 {
		return ErrInvalidMerchant
	}
	return p.Origin.Validate()
}

// Reserve takes qty units out of stock and counts them as sold.
func (p *Product) Reserve(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	p.SalesCount += qty
	return nil
}

// Release puts qty units back into stock. The sales counter never drops below zero.
func (p *Product) Release(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += qty
	p.SalesCount -= qty
	if p.SalesCount < 0 {
		p.SalesCount = 0
	}
	return nil
}
