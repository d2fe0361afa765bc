package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	settlementactivities "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/activities/settlement"
	settlementworkflows "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/workflows/settlement"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalSettlementWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineSettlementWorkflows)(nil)
)

// TemporalSettlementWorkflows starts checkout workflows on a Temporal cluster.
type TemporalSettlementWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalSettlementWorkflows wires a Temporal client into the orchestrator.
func NewTemporalSettlementWorkflows(c client.Client) *TemporalSettlementWorkflows {
	return &TemporalSettlementWorkflows{client: c, taskQueue: settlementworkflows.TaskQueue}
}

// Settle starts the checkout workflow and waits for its result. Requests that carry an
// idempotency key map to a stable workflow id, so a retry attaches to the first run.
func (o *TemporalSettlementWorkflows) Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal settlement workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildSettlementWorkflowID(input, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		settlementworkflows.SettleOrderWorkflowName,
		settlementworkflows.SettleOrderWorkflowInput{Command: input, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && strings.TrimSpace(input.IdempotencyKey) != "" {
			run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
		} else {
			return nil, err
		}
	}
	var settlement settlementtypes.Settlement
	if err := run.Get(ctx, &settlement); err != nil {
		return nil, settlementactivities.DecodeError(err)
	}
	return &settlement, nil
}

// InlineSettlementWorkflows executes the engine directly without Temporal, useful for tests or dev fallbacks.
type InlineSettlementWorkflows struct {
	service ports.Service
}

// NewInlineSettlementWorkflows wraps the settlement engine for synchronous execution.
func NewInlineSettlementWorkflows(service ports.Service) *InlineSettlementWorkflows {
	return &InlineSettlementWorkflows{service: service}
}

// Settle delegates to the engine without durable orchestration.
func (o *InlineSettlementWorkflows) Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline settlement workflows not configured")
	}
	return o.service.Settle(ctx, input)
}

func buildSettlementWorkflowID(input settlementtypes.SettleInput, traceComponent string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return fmt.Sprintf("settle-order-idem-%d-%s", input.UserID, hashIdempotencyKey(key))
	}
	return fmt.Sprintf("settle-order-%d-%s", input.UserID, traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	// First 16 hex chars keep workflow ids readable.
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
