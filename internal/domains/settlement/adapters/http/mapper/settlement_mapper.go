package mapper

import (
	"time"

	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

// OrderLine is one requested item in a checkout payload.
type OrderLine struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

// ShippingAddress is the delivery destination as sent and returned over HTTP.
type ShippingAddress struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Province   string `json:"province" binding:"required"`
	City       string `json:"city" binding:"required"`
	District   string `json:"district" binding:"required"`
	Detail     string `json:"detail" binding:"required"`
	PostalCode string `json:"postalCode,omitempty"`
}

// CreateOrder is the POST /orders request body.
type CreateOrder struct {
	UserID          int64           `json:"userId" binding:"required,gt=0"`
	Items           []OrderLine     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Remarks         string          `json:"remarks,omitempty" binding:"max=500"`
}

// Address is a postal locality without recipient details.
type Address struct {
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
	Detail   string `json:"detail"`
}

// OrderItem is a priced line of a settled order.
type OrderItem struct {
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	UnitPrice    string `json:"unitPrice"`
	Quantity     int64  `json:"quantity"`
	Subtotal     string `json:"subtotal"`
	MerchantID   int64  `json:"merchantId"`
	MerchantName string `json:"merchantName,omitempty"`
}

// Payment describes how an order was paid.
type Payment struct {
	Method        string     `json:"method,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
}

// Order is the HTTP representation of a settled order. Money travels as fixed two-decimal strings.
type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          int64           `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     string          `json:"totalAmount"`
	Status          string          `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Payment         Payment         `json:"payment"`
	Remarks         string          `json:"remarks,omitempty"`
	OrderedAt       time.Time       `json:"orderedAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TraceEvent is one shipment milestone.
type TraceEvent struct {
	Time        time.Time `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
}

// Logistics is the HTTP representation of an order's shipment.
type Logistics struct {
	ID                int64        `json:"id"`
	OrderID           int64        `json:"orderId"`
	Carrier           string       `json:"carrier"`
	TrackingNumber    string       `json:"trackingNumber"`
	Origin            Address      `json:"origin"`
	Destination       Address      `json:"destination"`
	Status            string       `json:"status"`
	Trace             []TraceEvent `json:"trace"`
	EstimatedDelivery time.Time    `json:"estimatedDelivery"`
	ShippedAt         *time.Time   `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time   `json:"deliveredAt,omitempty"`
}

// Settlement pairs an order with its shipment.
type Settlement struct {
	Order     Order      `json:"order"`
	Logistics *Logistics `json:"logistics,omitempty"`
}

// ToSettleInput maps a checkout payload onto the engine command.
func ToSettleInput(payload CreateOrder, idempotencyKey string) settlementtypes.SettleInput {
	lines := make([]settlementtypes.LineInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		lines = append(lines, settlementtypes.LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return settlementtypes.SettleInput{
		UserID: payload.UserID,
		Lines:  lines,
		ShippingAddress: settlementtypes.ShippingAddressInput{
			RecipientName: payload.ShippingAddress.Name,
			Phone:         payload.ShippingAddress.Phone,
			Province:      payload.ShippingAddress.Province,
			City:          payload.ShippingAddress.City,
			District:      payload.ShippingAddress.District,
			Detail:        payload.ShippingAddress.Detail,
			PostalCode:    payload.ShippingAddress.PostalCode,
		},
		Remarks:        payload.Remarks,
		IdempotencyKey: idempotencyKey,
	}
}

// FromSettlement renders an engine result.
func FromSettlement(s *settlementtypes.Settlement) Settlement {
	if s == nil {
		return Settlement{}
	}
	out := Settlement{}
	if s.Order != nil {
		out.Order = FromOrder(s.Order)
	}
	if s.Logistics != nil {
		logistics := FromLogistics(s.Logistics)
		out.Logistics = &logistics
	}
	return out
}

// FromOrder renders a domain order.
func FromOrder(o *orderdomain.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.Name,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal().StringFixed(2),
			MerchantID:   item.MerchantID,
			MerchantName: item.MerchantName,
		})
	}
	payment := Payment{Method: o.Payment.Method, TransactionID: o.Payment.TransactionID}
	if !o.Payment.PaidAt.IsZero() {
		paidAt := o.Payment.PaidAt
		payment.PaidAt = &paidAt
	}
	return Order{
		ID:          o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Items:       items,
		TotalAmount: o.Total.StringFixed(2),
		Status:      string(o.Status),
		ShippingAddress: ShippingAddress{
			Name:       o.ShippingAddress.RecipientName,
			Phone:      o.ShippingAddress.Phone,
			Province:   o.ShippingAddress.Address.Province,
			City:       o.ShippingAddress.Address.City,
			District:   o.ShippingAddress.Address.District,
			Detail:     o.ShippingAddress.Address.Detail,
			PostalCode: o.ShippingAddress.PostalCode,
		},
		Payment:   payment,
		Remarks:   o.Remarks,
		OrderedAt: o.OrderedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// FromOrderList renders a list of orders in the given order.
func FromOrderList(orders []*orderdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, FromOrder(o))
	}
	return out
}

// FromLogistics renders a shipment record.
func FromLogistics(l *orderdomain.Logistics) Logistics {
	trace := make([]TraceEvent, 0, len(l.Trace))
	for _, event := range l.Trace {
		trace = append(trace, TraceEvent{
			Time:        event.At,
			Location:    event.Location,
			Description: event.Description,
			Status:      string(event.Status),
		})
	}
	return Logistics{
		ID:                l.ID,
		OrderID:           l.OrderID,
		Carrier:           l.Carrier,
		TrackingNumber:    l.TrackingNumber,
		Origin:            fromAddress(l.Origin),
		Destination:       fromAddress(l.Destination),
		Status:            string(l.Status),
		Trace:             trace,
		EstimatedDelivery: l.EstimatedDelivery,
		ShippedAt:         l.ShippedAt,
		DeliveredAt:       l.DeliveredAt,
	}
}

func fromAddress(a address.Address) Address {
	return Address{Province: a.Province, City: a.City, District: a.District, Detail: a.Detail}
}
