//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Apurer/go-gin-checkout-server/internal/app/seed"
)

const (
	ProviderName = "checkout-api"
	ConsumerName = "storefront-web"

	StateCatalogSeeded = "demo catalog seeded"
	StateOrderPaid     = "order 1 is paid"
	StateOrderMissing  = "no order with id 404"
)

const (
	BuyerID        = seed.BuyerID
	KeyboardID     = seed.KeyboardID
	ScarceID       = seed.TShirtID
	ExistingOrder  = int64(1)
	MissingOrderID = int64(404)
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCheckoutPayload is a checkout the demo buyer can afford.
func ExampleCheckoutPayload(productID, quantity int64) map[string]any {
	return map[string]any{
		"userId": BuyerID,
		"items": []map[string]any{
			{"productId": productID, "quantity": quantity},
		},
		"shippingAddress": map[string]any{
			"name":     "Pact Buyer",
			"phone":    "13700000000",
			"province": "Sichuan",
			"city":     "Chengdu",
			"district": "Wuhou",
			"detail":   "Tianfu Avenue 100",
		},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
