package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

const tracerName = "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/observability/service"

// Service decorates the settlement port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// Settle runs checkout with instrumentation.
func (s *Service) Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	ctx, span := s.startSpan(ctx, "Service.Settle",
		attribute.Int64("user.id", input.UserID),
		attribute.Int("settle.lines", len(input.Lines)),
		attribute.Bool("settle.idempotent", input.IdempotencyKey != ""),
	)
	defer span.End()

	s.logInfo(ctx, "settling order", slog.Int64("user.id", input.UserID), slog.Int("lines", len(input.Lines)))
	result, err := s.inner.Settle(ctx, input)
	if err != nil {
		s.metrics.recordSettlement(ctx, application.Kind(err))
		return nil, s.handleError(ctx, span, err, "settlement failed", slog.Int64("user.id", input.UserID))
	}
	outcome := "settled"
	if result.Replayed {
		outcome = "replayed"
	}
	s.metrics.recordSettlement(ctx, outcome)
	span.SetAttributes(
		attribute.Int64("order.id", result.Order.ID),
		attribute.String("order.number", result.Order.Number),
		attribute.String("order.total", result.Order.Total.StringFixed(2)),
	)
	s.logInfo(ctx, "order settled",
		slog.Int64("order.id", result.Order.ID),
		slog.String("order.number", result.Order.Number),
		slog.String("order.total", result.Order.Total.StringFixed(2)),
		slog.Bool("replayed", result.Replayed),
	)
	return result, nil
}

func (s *Service) Ship(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, "ship", input, s.inner.Ship)
}

func (s *Service) Confirm(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, "confirm", input, s.inner.Confirm)
}

func (s *Service) Cancel(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, "cancel", input, s.inner.Cancel)
}

func (s *Service) Refund(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, "refund", input, s.inner.Refund)
}

func (s *Service) transition(
	ctx context.Context,
	action string,
	input settlementtypes.OrderIdentifier,
	call func(context.Context, settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error),
) (*settlementtypes.Settlement, error) {
	ctx, span := s.startSpan(ctx, "Service."+action, attribute.Int64("order.id", input.OrderID))
	defer span.End()

	s.logInfo(ctx, "order transition requested", slog.String("action", action), slog.Int64("order.id", input.OrderID))
	result, err := call(ctx, input)
	if err != nil {
		s.metrics.recordTransition(ctx, action, application.Kind(err))
		return nil, s.handleError(ctx, span, err, "order transition failed", slog.String("action", action), slog.Int64("order.id", input.OrderID))
	}
	s.metrics.recordTransition(ctx, action, "ok")
	span.SetAttributes(attribute.String("order.status", string(result.Order.Status)))
	s.logInfo(ctx, "order transitioned",
		slog.String("action", action),
		slog.Int64("order.id", result.Order.ID),
		slog.String("status", string(result.Order.Status)),
	)
	return result, nil
}

// GetOrder loads an order with its shipment.
func (s *Service) GetOrder(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.Int64("order.id", input.OrderID))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.Int64("order.id", input.OrderID))
	}
	return result, nil
}

// ListOrders returns a user's orders.
func (s *Service) ListOrders(ctx context.Context, input settlementtypes.UserIdentifier) ([]*orderdomain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.ListOrders", attribute.Int64("user.id", input.UserID))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.Int64("user.id", input.UserID))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	s.logInfo(ctx, "listed orders", slog.Int64("user.id", input.UserID), slog.Int("count", len(result)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

// logFailure logs caller mistakes at warn and everything else at error.
func (s *Service) logFailure(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	kind := application.Kind(err)
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("error.kind", kind))
	level := slog.LevelWarn
	if kind == application.KindInternal {
		level = slog.LevelError
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", application.Kind(err)))
	}
	s.logFailure(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	settlements metric.Int64Counter
	transitions metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	settlements, _ := m.Int64Counter("settlement.service.settlements", metric.WithDescription("Checkout attempts by outcome"))
	transitions, _ := m.Int64Counter("settlement.service.transitions", metric.WithDescription("Order state transitions by action and outcome"))
	return serviceMetrics{settlements: settlements, transitions: transitions}
}

func (m serviceMetrics) recordSettlement(ctx context.Context, outcome string) {
	addCounter(ctx, m.settlements, 1, attribute.String("outcome", outcome))
}

func (m serviceMetrics) recordTransition(ctx context.Context, action, outcome string) {
	addCounter(ctx, m.transitions, 1, attribute.String("action", action), attribute.String("outcome", outcome))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
