package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

const (
	DefaultCarrier        = "SF Express"
	DefaultTrackingPrefix = "SF"
	DefaultDeliveryWindow = 72 * time.Hour
)

// traceOffsets are the backdated milestones, oldest first.
var traceOffsets = [...]time.Duration{
	48 * time.Hour,
	40 * time.Hour,
	24 * time.Hour,
	10 * time.Hour,
	2 * time.Hour,
}

// Generator synthesizes shipments. It is deterministic for a given input.
type Generator struct {
	Carrier        string
	Prefix         string
	DeliveryWindow time.Duration
}

// NewGenerator fills blank settings with defaults.
func NewGenerator(carrier, prefix string, window time.Duration) Generator {
	g := Generator{Carrier: strings.TrimSpace(carrier), Prefix: strings.TrimSpace(prefix), DeliveryWindow: window}
	if g.Carrier == "" {
		g.Carrier = DefaultCarrier
	}
	if g.Prefix == "" {
		g.Prefix = DefaultTrackingPrefix
	}
	if g.DeliveryWindow <= 0 {
		g.DeliveryWindow = DefaultDeliveryWindow
	}
	return g
}

// TrackingNumber renders <prefix><createdAt unix seconds><order id padded to 6 digits>.
func (g Generator) TrackingNumber(orderID int64, createdAt time.Time) string {
	return fmt.Sprintf("%s%d%06d", g.Prefix, createdAt.Unix(), orderID%1_000_000)
}

// Generate builds a collected shipment for orderID with a five event trace.
func (g Generator) Generate(orderID int64, origin, destination address.Address, createdAt time.Time) *Logistics {
	createdAt = createdAt.UTC()
	return &Logistics{
		OrderID:           orderID,
		Carrier:           g.Carrier,
		TrackingNumber:    g.TrackingNumber(orderID, createdAt),
		Origin:            origin.Normalize(),
		Destination:       destination.Normalize(),
		Status:            LogisticsCollected,
		Trace:             GenerateTrace(origin, destination, createdAt),
		EstimatedDelivery: createdAt.Add(g.DeliveryWindow),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

// GenerateTrace returns exactly five events, strictly increasing and all before createdAt:
// pickup, origin hub arrival, in transit, destination hub arrival, out for delivery.
func GenerateTrace(origin, destination address.Address, createdAt time.Time) []TraceEvent {
	createdAt = createdAt.UTC()
	from := placeName(origin)
	to := placeName(destination)
	steps := [len(traceOffsets)]struct {
		location    string
		description string
		status      LogisticsStatus
	}{
		{origin.Locality(), fmt.Sprintf("Parcel picked up in %s", from), LogisticsCollected},
		{from + " sorting hub", fmt.Sprintf("Arrived at %s sorting hub", from), LogisticsCollected},
		{from + " - " + to, fmt.Sprintf("In transit from %s to %s", from, to), LogisticsInTransit},
		{to + " sorting hub", fmt.Sprintf("Arrived at %s sorting hub", to), LogisticsInTransit},
		{destination.Locality(), fmt.Sprintf("Out for delivery in %s", to), LogisticsInTransit},
	}
	events := make([]TraceEvent, 0, len(steps))
	for i, step := range steps {
		events = append(events, TraceEvent{
			At:          createdAt.Add(-traceOffsets[i]),
			Location:    step.location,
			Description: step.description,
			Status:      step.status,
		})
	}
	return events
}

func placeName(a address.Address) string {
	if city := strings.TrimSpace(a.City); city != "" {
		return city
	}
	if province := strings.TrimSpace(a.Province); province != "" {
		return province
	}
	return "unknown"
}
