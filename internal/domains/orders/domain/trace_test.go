package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var (
	shenzhen = address.Address{Province: "Guangdong", City: "Shenzhen", District: "Nanshan", Detail: "Warehouse 3"}
	hangzhou = address.Address{Province: "Zhejiang", City: "Hangzhou", District: "Xihu", Detail: "18 Wensan Rd"}
)

func TestGenerateTrace_OrderedAndBackdated(t *testing.T) {
	createdAt := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	events := GenerateTrace(shenzhen, hangzhou, createdAt)

	require.Len(t, events, 5)
	for i, ev := range events {
		require.True(t, ev.At.Before(createdAt), "event %d must precede creation", i)
		if i > 0 {
			require.True(t, ev.At.After(events[i-1].At), "event %d must follow event %d", i, i-1)
		}
	}
	require.Equal(t, createdAt.Add(-48*time.Hour), events[0].At)
	require.Equal(t, createdAt.Add(-2*time.Hour), events[4].At)
	require.Contains(t, events[0].Description, "Shenzhen")
	require.Contains(t, events[4].Description, "Hangzhou")
	require.Equal(t, LogisticsCollected, events[0].Status)
	require.Equal(t, LogisticsInTransit, events[2].Status)
}

func TestGenerateTrace_Deterministic(t *testing.T) {
	createdAt := time.Now()
	require.Equal(t, GenerateTrace(shenzhen, hangzhou, createdAt), GenerateTrace(shenzhen, hangzhou, createdAt))
}

func TestGenerator_Generate(t *testing.T) {
	createdAt := time.Unix(1710000000, 0)
	g := NewGenerator("", "", 0)
	logistics := g.Generate(42, shenzhen, hangzhou, createdAt)

	require.Equal(t, DefaultCarrier, logistics.Carrier)
	require.Equal(t, "SF1710000000000042", logistics.TrackingNumber)
	require.Equal(t, LogisticsCollected, logistics.Status)
	require.Equal(t, createdAt.UTC().Add(72*time.Hour), logistics.EstimatedDelivery)
	require.Equal(t, shenzhen, logistics.Origin)
	require.Equal(t, hangzhou, logistics.Destination)
	require.NoError(t, logistics.Validate())

	custom := NewGenerator("YTO", "YT", 24*time.Hour)
	require.Equal(t, "YT1710000000000042", custom.TrackingNumber(42, createdAt))
}

func TestLogistics_Follow(t *testing.T) {
	l := NewGenerator("", "", 0).Generate(1, shenzhen, hangzhou, time.Now())
	shipped := time.Now().Add(time.Hour)
	l.Follow(StatusShipping, shipped)
	require.Equal(t, LogisticsInTransit, l.Status)
	require.NotNil(t, l.ShippedAt)

	delivered := shipped.Add(time.Hour)
	l.Follow(StatusCompleted, delivered)
	require.Equal(t, LogisticsDelivered, l.Status)
	require.True(t, l.DeliveredAt.Equal(delivered))

	l.Follow(StatusRefunded, delivered)
	require.Equal(t, LogisticsReturned, l.Status)

	clone := l.Clone()
	clone.Trace[0].Location = "changed"
	require.NotEqual(t, "changed", l.Trace[0].Location)
}
