package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusShipping        Status = "shipping"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusRefunded        Status = "refunded"
)

// PaymentMethodBalance marks orders paid from the account balance.
const PaymentMethodBalance = "balance"

var (
	ErrNoItems                = errors.New("order must contain at least one item")
	ErrInvalidUser            = errors.New("order user id must be positive")
	ErrInvalidProduct         = errors.New("line item product id must be positive")
	ErrInvalidQuantity        = errors.New("line item quantity must be greater than zero")
	ErrNegativePrice          = errors.New("line item price must not be negative")
	ErrInvalidStatus          = errors.New("order status is invalid")
	ErrMissingRecipient       = errors.New("shipping address recipient name is required")
	ErrMissingPhone           = errors.New("shipping address phone is required")
	ErrTotalMismatch          = errors.New("order total does not match its line items")
	ErrTransitionNotPermitted = errors.New("order status transition not permitted")
)

// predecessors lists, per target status, the statuses an order may leave to reach it.
var predecessors = map[Status][]Status{
	StatusShipping:  {StatusPaid},
	StatusCompleted: {StatusShipping},
	StatusCancelled: {StatusPaid, StatusAwaitingPayment},
	StatusRefunded:  {StatusPaid, StatusShipping},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAwaitingPayment, StatusPaid, StatusShipping, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, from := range predecessors[next] {
		if from == s {
			return true
		}
	}
	return false
}

// LineItem is a product snapshot captured at settlement time.
type LineItem struct {
	ProductID    int64
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int64
	MerchantID   int64
	MerchantName string
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

func (l LineItem) Validate() error {
	if l.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// ShippingAddress is the delivery destination snapshot stored on an order.
type ShippingAddress struct {
	RecipientName string
	Phone         string
	Address       address.Address
	PostalCode    string
}

// Normalize trims whitespace from every field.
func (s ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		RecipientName: strings.TrimSpace(s.RecipientName),
		Phone:         strings.TrimSpace(s.Phone),
		Address:       s.Address.Normalize(),
		PostalCode:    strings.TrimSpace(s.PostalCode),
	}
}

// Validate checks that every required sub-field is present. PostalCode is optional.
func (s ShippingAddress) Validate() error {
	if strings.TrimSpace(s.RecipientName) == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(s.Phone) == "" {
		return ErrMissingPhone
	}
	return s.Address.Validate()
}

// PaymentInfo records how and when an order was paid.
type PaymentInfo struct {
	Method        string
	PaidAt        time.Time
	TransactionID string
}

// Order is a settled purchase. Items and Total are immutable after creation.
type Order struct {
	ID              int64
	Number          string
	UserID          int64
	Items           []LineItem
	Total           decimal.Decimal
	Status          Status
	ShippingAddress ShippingAddress
	Payment         PaymentInfo
	Remarks         string
	OrderedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder builds an order and computes its total from the line snapshots.
func NewOrder(userID int64, number string, items []LineItem, shipping ShippingAddress, remarks string, orderedAt time.Time) (*Order, error) {
	copied := make([]LineItem, len(items))
	copy(copied, items)
	o := &Order{
		Number:          strings.TrimSpace(number),
		UserID:          userID,
		Items:           copied,
		Total:           SumItems(copied),
		Status:          StatusAwaitingPayment,
		ShippingAddress: shipping.Normalize(),
		Remarks:         strings.TrimSpace(remarks),
		OrderedAt:       orderedAt.UTC(),
		UpdatedAt:       orderedAt.UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// SumItems is Σ price × quantity over items.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Validate re-applies core invariants for persistence.
func (o *Order) Validate() error {
	if o.UserID <= 0 {
		return ErrInvalidUser
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range o.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if !o.Total.Equal(SumItems(o.Items)) {
		return ErrTotalMismatch
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	return o.ShippingAddress.Validate()
}

// MarkPaid records a balance payment and moves the order to paid.
func (o *Order) MarkPaid(transactionID string, at time.Time) {
	o.Status = StatusPaid
	o.Payment = PaymentInfo{Method: PaymentMethodBalance, PaidAt: at.UTC(), TransactionID: transactionID}
	o.UpdatedAt = at.UTC()
}

// TransitionTo applies a state machine move.
func (o *Order) TransitionTo(next Status, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrTransitionNotPermitted
	}
	o.Status = next
	o.UpdatedAt = at.UTC()
	return nil
}

// ProductIDs returns the product ids referenced by the order in line order.
func (o *Order) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]LineItem, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
