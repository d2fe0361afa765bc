package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	settlementactivities "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/activities/settlement"
)

// RunSettlementSequence executes checkout as a single activity attempt. The
// engine never retries; callers decide whether to submit the request again.
func RunSettlementSequence(ctx workflow.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("settlement sequence started", "userId", input.UserID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}

	var settlement settlementtypes.Settlement
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), settlementactivities.SettleOrderActivityName, input).Get(ctx, &settlement)
	if err != nil {
		logger.Error("settlement sequence failed", "userId", input.UserID, "error", err)
		return nil, err
	}
	if settlement.Order != nil {
		logger.Info("settlement sequence completed", "orderId", settlement.Order.ID)
	}
	return &settlement, nil
}
