package domain

import (
	"errors"
	"time"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

// LogisticsStatus is the shipment state shown to the buyer.
type LogisticsStatus string

const (
	LogisticsCollected LogisticsStatus = "collected"
	LogisticsInTransit LogisticsStatus = "in_transit"
	LogisticsDelivered LogisticsStatus = "delivered"
	LogisticsCancelled LogisticsStatus = "cancelled"
	LogisticsReturned  LogisticsStatus = "returned"
)

var (
	ErrMissingOrder    = errors.New("logistics order id must be positive")
	ErrMissingTracking = errors.New("logistics tracking number is required")
	ErrTraceOrder      = errors.New("trace events must be strictly increasing")
)

// TraceEvent is one milestone of a shipment history.
type TraceEvent struct {
	At          time.Time
	Location    string
	Description string
	Status      LogisticsStatus
}

// Logistics is the synthetic shipment attached 1:1 to an order. Carrier and
// TrackingNumber never change after creation.
type Logistics struct {
	ID                int64
	OrderID           int64
	Carrier           string
	TrackingNumber    string
	Origin            address.Address
	Destination       address.Address
	Status            LogisticsStatus
	Trace             []TraceEvent
	EstimatedDelivery time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (l *Logistics) Validate() error {
	if l.OrderID <= 0 {
		return ErrMissingOrder
	}
	if l.TrackingNumber == "" {
		return ErrMissingTracking
	}
	for i := 1; i < len(l.Trace); i++ {
		if !l.Trace[i].At.After(l.Trace[i-1].At) {
			return ErrTraceOrder
		}
	}
	return nil
}

// Follow moves the shipment to the state implied by the order reaching status.
// Statuses without a shipment counterpart leave it untouched.
func (l *Logistics) Follow(status Status, at time.Time) {
	at = at.UTC()
	switch status {
	case StatusShipping:
		l.Status = LogisticsInTransit
		l.ShippedAt = &at
	case StatusCompleted:
		l.Status = LogisticsDelivered
		l.DeliveredAt = &at
	case StatusCancelled:
		l.Status = LogisticsCancelled
	case StatusRefunded:
		l.Status = LogisticsReturned
	default:
		return
	}
	l.UpdatedAt = at
}

// Clone returns a deep copy.
func (l *Logistics) Clone() *Logistics {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Trace = make([]TraceEvent, len(l.Trace))
	copy(clone.Trace, l.Trace)
	if l.ShippedAt != nil {
		t := *l.ShippedAt
		clone.ShippedAt = &t
	}
	if l.DeliveredAt != nil {
		t := *l.DeliveredAt
		clone.DeliveredAt = &t
	}
	return &clone
}
