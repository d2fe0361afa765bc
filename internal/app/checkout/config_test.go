package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "POSTGRES_DSN", "POSTGRES_LOCK_TIMEOUT_MS", "TEMPORAL_DISABLED",
		"CARRIER_NAME", "CARRIER_PREFIX", "ESTIMATED_DELIVERY_HOURS", "SEED_DEMO_DATA"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Empty(t, cfg.PostgresDSN)
	require.Zero(t, cfg.PostgresLockTimeout)
	require.False(t, cfg.TemporalDisabled)
	require.Equal(t, orderdomain.DefaultCarrier, cfg.CarrierName)
	require.Equal(t, orderdomain.DefaultDeliveryWindow, cfg.EstimatedDelivery)
	require.False(t, cfg.SeedDemoData)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES_LOCK_TIMEOUT_MS", "1500")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("CARRIER_NAME", "ZTO Express")
	t.Setenv("CARRIER_PREFIX", "ZT")
	t.Setenv("ESTIMATED_DELIVERY_HOURS", "48")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 1500*time.Millisecond, cfg.PostgresLockTimeout)
	require.True(t, cfg.TemporalDisabled)
	require.True(t, cfg.SeedDemoData)
	require.Equal(t, 48*time.Hour, cfg.EstimatedDelivery)

	gen := cfg.Generator()
	require.Equal(t, "ZTO Express", gen.Carrier)
	require.Equal(t, "ZT", gen.Prefix)
}

func TestLoadConfig_RejectsInvalidNumbers(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("POSTGRES_LOCK_TIMEOUT_MS", "-1")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("POSTGRES_LOCK_TIMEOUT_MS", "")
	t.Setenv("ESTIMATED_DELIVERY_HOURS", "soon")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("ESTIMATED_DELIVERY_HOURS", "")
	t.Setenv("PORT", "http")
	_, err = LoadConfig()
	require.Error(t, err)
}
