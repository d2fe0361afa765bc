package checkout

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
)

// Config carries environment-driven settings shared by the API, worker and seed processes.
type Config struct {
	Port                string
	PostgresDSN         string
	PostgresLockTimeout time.Duration
	TemporalAddress     string
	TemporalNamespace   string
	TemporalDisabled    bool
	CarrierName         string
	CarrierPrefix       string
	EstimatedDelivery   time.Duration
	SeedDemoData        bool
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		CarrierName:       envDefault("CARRIER_NAME", orderdomain.DefaultCarrier),
		CarrierPrefix:     envDefault("CARRIER_PREFIX", orderdomain.DefaultTrackingPrefix),
		EstimatedDelivery: orderdomain.DefaultDeliveryWindow,
		SeedDemoData:      isTruthy(os.Getenv("SEED_DEMO_DATA")),
	}
	if raw := strings.TrimSpace(os.Getenv("POSTGRES_LOCK_TIMEOUT_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("POSTGRES_LOCK_TIMEOUT_MS must be a positive integer")
		}
		cfg.PostgresLockTimeout = time.Duration(ms) * time.Millisecond
	}
	if raw := strings.TrimSpace(os.Getenv("ESTIMATED_DELIVERY_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("ESTIMATED_DELIVERY_HOURS must be a positive integer")
		}
		cfg.EstimatedDelivery = time.Duration(hours) * time.Hour
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	return cfg, nil
}

// Generator builds the logistics generator for the configured carrier.
func (c Config) Generator() orderdomain.Generator {
	return orderdomain.NewGenerator(c.CarrierName, c.CarrierPrefix, c.EstimatedDelivery)
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
