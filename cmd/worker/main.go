package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-checkout-server/internal/app/checkout"
	platformobservability "github.com/Apurer/go-gin-checkout-server/internal/platform/observability"
	settlementactivities "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/activities/settlement"
	temporalclient "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/client"
	settlementworkflows "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/workflows/settlement"
)

func main() {
	ctx := context.Background()
	const serviceName = "checkout-worker"
	cfg, err := checkout.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	// The worker never seeds; the API or cmd/seed owns demo data.
	cfg.SeedDemoData = false
	stack, err := checkout.Build(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to build settlement engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer stack.Close()
	if err := stack.RequireShared(); err != nil {
		logger.Error("worker requires POSTGRES_DSN so settlements reach the API's stores", slog.String("error", err.Error()))
		stack.Close()
		os.Exit(1)
	}
	activities := settlementactivities.NewActivities(stack.Service)

	temporalClient, err := temporalclient.Dial(temporalclient.Options{
		Address:    cfg.TemporalAddress,
		Namespace:  cfg.TemporalNamespace,
		TracerName: "temporal-worker",
	}, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, settlementworkflows.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(settlementworkflows.SettleOrderWorkflow, workflow.RegisterOptions{Name: settlementworkflows.SettleOrderWorkflowName})
	w.RegisterActivityWithOptions(activities.SettleOrder, activity.RegisterOptions{Name: settlementactivities.SettleOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", settlementworkflows.TaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
