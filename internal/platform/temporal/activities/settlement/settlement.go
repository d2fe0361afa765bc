package settlement

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	settlementports "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

// SettleOrderActivityName runs one checkout against the settlement engine.
const SettleOrderActivityName = "settlement.activities.SettleOrder"

// Activities groups activities that operate on the settlement engine.
type Activities struct {
	service settlementports.Service
}

// NewActivities wires the settlement engine into the Temporal activities bundle.
func NewActivities(service settlementports.Service) *Activities {
	return &Activities{service: service}
}

// SettleOrder executes checkout. Classified failures are returned as
// non-retryable application errors whose type is the error kind.
func (a *Activities) SettleOrder(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("settle activity not initialized", "userId", input.UserID)
		return nil, errors.New("settle activity not initialized")
	}
	logger.Info("SettleOrder activity started", "userId", input.UserID, "lines", len(input.Lines))
	result, err := a.service.Settle(ctx, input)
	if err != nil {
		logger.Error("SettleOrder activity failed", "userId", input.UserID, "kind", application.Kind(err), "error", err)
		return nil, EncodeError(err)
	}
	logger.Info("SettleOrder activity completed", "orderId", result.Order.ID, "replayed", result.Replayed)
	return result, nil
}

// EncodeError converts an engine error into a Temporal application error that keeps its kind and details.
func EncodeError(err error) error {
	if err == nil {
		return nil
	}
	kind := application.Kind(err)
	if kind == application.KindInternal {
		return temporal.NewApplicationErrorWithCause(err.Error(), kind, err)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, err, application.Details(err))
}

// DecodeError reverses EncodeError on an error returned from a workflow run.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var detail application.ErrorDetail
	if appErr.HasDetails() {
		_ = appErr.Details(&detail)
	}
	return application.Rebuild(appErr.Type(), appErr.Message(), detail)
}
