package settlement

import (
	"go.temporal.io/sdk/workflow"

	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/sequences"
)

const (
	// TaskQueue is where checkout workflows and activities are dispatched.
	TaskQueue = "checkout-settlement"
	// SettleOrderWorkflowName is the registered workflow type.
	SettleOrderWorkflowName = "settlement.workflows.SettleOrder"
)

// SettleOrderWorkflowInput carries the checkout command plus the caller's trace id for correlation.
type SettleOrderWorkflowInput struct {
	Command settlementtypes.SettleInput `json:"command"`
	TraceID string                      `json:"traceId,omitempty"`
}

// SettleOrderWorkflow runs one checkout.
func SettleOrderWorkflow(ctx workflow.Context, input SettleOrderWorkflowInput) (*settlementtypes.Settlement, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("settle order workflow started", "userId", input.Command.UserID, "traceId", input.TraceID)
	return sequences.RunSettlementSequence(ctx, input.Command)
}
