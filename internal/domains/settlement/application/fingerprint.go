package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strings"

	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
)

type normalizedSettleInput struct {
	UserID   int64                                `json:"userId"`
	Lines    []settlementtypes.LineInput          `json:"lines"`
	Shipping settlementtypes.ShippingAddressInput `json:"shippingAddress"`
	Remarks  string                               `json:"remarks"`
}

// FingerprintSettle builds a deterministic hash of the checkout payload (excluding the idempotency key).
// Carts that differ only in line order or in how a product's quantity is split hash the same.
func FingerprintSettle(input settlementtypes.SettleInput) (string, error) {
	lines := mergeLines(input.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	normalized := normalizedSettleInput{
		UserID: input.UserID,
		Lines:  lines,
		Shipping: settlementtypes.ShippingAddressInput{
			RecipientName: strings.TrimSpace(input.ShippingAddress.RecipientName),
			Phone:         strings.TrimSpace(input.ShippingAddress.Phone),
			Province:      strings.TrimSpace(input.ShippingAddress.Province),
			City:          strings.TrimSpace(input.ShippingAddress.City),
			District:      strings.TrimSpace(input.ShippingAddress.District),
			Detail:        strings.TrimSpace(input.ShippingAddress.Detail),
			PostalCode:    strings.TrimSpace(input.ShippingAddress.PostalCode),
		},
		Remarks: strings.TrimSpace(input.Remarks),
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
// Sums saturate at math.MaxInt64 so an oversized cart still fails the stock check.
func mergeLines(lines []settlementtypes.LineInput) []settlementtypes.LineInput {
	merged := make([]settlementtypes.LineInput, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity = addQuantity(merged[i].Quantity, line.Quantity)
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func addQuantity(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
