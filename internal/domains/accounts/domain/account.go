package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Role enumerates what an account may do in the shop.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

var (
	ErrEmptyName         = errors.New("account name is required")
	ErrInvalidEmail      = errors.New("email must contain '@'")
	ErrInvalidRole       = errors.New("account role is invalid")
	ErrNegativeBalance   = errors.New("account balance must not be negative")
	ErrNegativeSales     = errors.New("account sales count must not be negative")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account is a shop user holding a spendable balance. Merchants additionally
// accumulate the number of units sold across their products.
type Account struct {
	ID         int64
	Name       string
	Email      string
	Role       Role
	Balance    decimal.Decimal
	SalesCount int64
}

// NewAccount builds an account ensuring required invariants. An empty role defaults to buyer.
func NewAccount(id int64, name, email string, role Role, balance decimal.Decimal) (*Account, error) {
	if role == "" {
		role = RoleBuyer
	}
	acc := &Account{
		ID:      id,
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Role:    role,
		Balance: balance,
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Validate re-applies core invariants for persistence.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.Email != "" && !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if !isValidRole(a.Role) {
		return ErrInvalidRole
	}
	if a.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if a.SalesCount < 0 {
		return ErrNegativeSales
	}
	return nil
}

// CanAfford reports whether the balance covers amount.
func (a *Account) CanAfford(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Debit removes amount from the balance; the balance never goes negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !a.CanAfford(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// AddSales moves the merchant sales counter by delta, flooring at zero.
func (a *Account) AddSales(delta int64) {
	a.SalesCount += delta
	if a.SalesCount < 0 {
		a.SalesCount = 0
	}
}

func isValidRole(role Role) bool {
	switch role {
	case RoleBuyer, RoleMerchant, RoleAdmin:
		return true
	default:
		return false
	}
}
