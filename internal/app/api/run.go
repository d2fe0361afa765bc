package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	checkoutserver "github.com/Apurer/go-gin-checkout-server/go"
	"github.com/Apurer/go-gin-checkout-server/internal/app/checkout"
	settlementworkflows "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/workflows"
	settlementports "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	platformobservability "github.com/Apurer/go-gin-checkout-server/internal/platform/observability"
	temporalclient "github.com/Apurer/go-gin-checkout-server/internal/platform/temporal/client"
)

// dialTemporal is swapped in tests.
var dialTemporal = temporalclient.Dial

const serviceName = "checkout-api"

// Run boots the checkout HTTP API with observability, stores, and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := checkout.LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	stack, err := checkout.Build(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer stack.Close()

	workflows, closeWorkflows := newWorkflows(cfg, stack, instruments)
	defer closeWorkflows()

	handlers := checkoutserver.ApiHandleFunctions{
		OrderAPI:       checkoutserver.NewOrderAPI(stack.Service, workflows),
		HealthAPI:      checkoutserver.NewHealthAPI(stack.Healthy),
		DiagnosticsAPI: checkoutserver.NewDiagnosticsAPI(instruments.Counters),
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router := checkoutserver.NewRouterWithGinEngine(engine, handlers)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("checkout API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("checkout API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("checkout API shutting down")
	return server.Shutdown(shutdownCtx)
}

// newWorkflows picks the settlement orchestrator. Temporal is used only when the
// stores are shared with the worker; otherwise checkout runs inline in this process.
func newWorkflows(cfg checkout.Config, stack *checkout.Stack, instruments *platformobservability.Instruments) (settlementports.WorkflowOrchestrator, func()) {
	logger := instruments.Logger
	inline := settlementworkflows.NewInlineSettlementWorkflows(stack.Service)
	if cfg.TemporalDisabled {
		logger.Info("Temporal workflows disabled, settling inline")
		return inline, func() {}
	}
	if err := stack.RequireShared(); err != nil {
		logger.Warn("Temporal workflows skipped, settling inline", slog.String("error", err.Error()))
		return inline, func() {}
	}
	temporalClient, err := dialTemporal(temporalclient.Options{
		Address:    cfg.TemporalAddress,
		Namespace:  cfg.TemporalNamespace,
		TracerName: "temporal-client",
	}, instruments)
	if err != nil {
		logger.Warn("Temporal workflows unavailable, settling inline", slog.String("error", err.Error()))
		return inline, func() {}
	}
	logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	return settlementworkflows.NewTemporalSettlementWorkflows(temporalClient), temporalClient.Close
}
