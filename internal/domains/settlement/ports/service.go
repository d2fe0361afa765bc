package ports

import (
	"context"

	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
)

// Service defines the checkout use cases exposed to adapters (inbound/driving port).
type Service interface {
	Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error)
	Ship(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)
	Confirm(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)
	Cancel(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)
	Refund(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)
	GetOrder(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)
	ListOrders(ctx context.Context, input settlementtypes.UserIdentifier) ([]*orderdomain.Order, error)
}
