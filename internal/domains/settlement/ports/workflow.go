package ports

import (
	"context"

	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
)

// WorkflowOrchestrator runs checkout through durable workflow infrastructure.
type WorkflowOrchestrator interface {
	Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error)
}
