package types

import (
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
)

// LineInput is one requested (product, quantity) pair. Prices are never taken from callers.
type LineInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// ShippingAddressInput carries the delivery fields supplied at checkout.
type ShippingAddressInput struct {
	RecipientName string `json:"name"`
	Phone         string `json:"phone"`
	Province      string `json:"province"`
	City          string `json:"city"`
	District      string `json:"district"`
	Detail        string `json:"detail"`
	PostalCode    string `json:"postalCode,omitempty"`
}

// SettleInput is a checkout request for one user.
type SettleInput struct {
	UserID          int64                `json:"userId"`
	Lines           []LineInput          `json:"lines"`
	ShippingAddress ShippingAddressInput `json:"shippingAddress"`
	Remarks         string               `json:"remarks,omitempty"`
	IdempotencyKey  string               `json:"idempotencyKey,omitempty"`
}

// OrderIdentifier addresses a single order.
type OrderIdentifier struct {
	OrderID int64 `json:"orderId"`
}

// UserIdentifier addresses a single account.
type UserIdentifier struct {
	UserID int64 `json:"userId"`
}

// Settlement is an order with its shipment. Logistics is nil only for orders
// that never reached payment.
type Settlement struct {
	Order     *orderdomain.Order     `json:"order"`
	Logistics *orderdomain.Logistics `json:"logistics,omitempty"`
	// Replayed is set when the result was served from an idempotency key.
	Replayed bool `json:"replayed,omitempty"`
}
