package checkoutserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-checkout-server/internal/app/seed"
	accountsmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/adapters/memory"
	catalogmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/adapters/memory"
	ordersmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/adapters/memory"
	settlementmapper "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/http/mapper"
	settlementmemory "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/memory"
	settlementworkflows "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/workflows"
	settlementapp "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	settlementports "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	apierrors "github.com/Apurer/go-gin-checkout-server/internal/shared/errors"
)

type testApp struct {
	router   *gin.Engine
	accounts *accountsmemory.Repository
	products *catalogmemory.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	accounts := accountsmemory.NewRepository()
	products := catalogmemory.NewRepository()
	require.NoError(t, seed.Load(ctx, accounts, products, slog.New(slog.NewTextHandler(io.Discard, nil))))

	uow := settlementmemory.NewUnitOfWork(settlementports.Repositories{
		Products:    products,
		Accounts:    accounts,
		Orders:      ordersmemory.NewOrderRepository(),
		Logistics:   ordersmemory.NewLogisticsRepository(),
		Idempotency: ordersmemory.NewIdempotencyStore(),
	})
	service := settlementapp.NewService(uow, settlementapp.WithClock(func() time.Time {
		return time.Date(2024, 6, 18, 10, 0, 0, 0, time.UTC)
	}))
	handlers := ApiHandleFunctions{
		OrderAPI:  NewOrderAPI(service, settlementworkflows.NewInlineSettlementWorkflows(service)),
		HealthAPI: NewHealthAPI(nil),
	}
	return &testApp{
		router:   NewRouterWithGinEngine(gin.New(), handlers),
		accounts: accounts,
		products: products,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func checkoutPayload(userID int64, lines ...settlementmapper.OrderLine) settlementmapper.CreateOrder {
	return settlementmapper.CreateOrder{
		UserID: userID,
		Items:  lines,
		ShippingAddress: settlementmapper.ShippingAddress{
			Name: "Han Meimei", Phone: "13900000000",
			Province: "Zhejiang", City: "Hangzhou", District: "Xihu", Detail: "Wensan Road 90",
		},
	}
}

func decodeSettlement(t *testing.T, rec *httptest.ResponseRecorder) settlementmapper.Settlement {
	t.Helper()
	var out settlementmapper.Settlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ProblemDetail {
	t.Helper()
	require.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var out apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSettleOrder_Created(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.KeyboardID, Quantity: 2}), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decodeSettlement(t, rec)
	require.Equal(t, "paid", out.Order.Status)
	require.Equal(t, "798.00", out.Order.TotalAmount)
	require.Equal(t, "balance", out.Order.Payment.Method)
	require.NotNil(t, out.Logistics)
	require.Equal(t, "collected", out.Logistics.Status)
	require.Equal(t, out.Order.ID, out.Logistics.OrderID)

	buyer, err := app.accounts.GetByID(context.Background(), seed.BuyerID)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(seed.BuyerBalance.Sub(decimal.NewFromInt(798))))
}

func TestSettleOrder_ValidationProblems(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders", checkoutPayload(seed.BuyerID), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, settlementapp.KindInvalidRequest, problem.Kind)
	fields, ok := problem.Extensions["fields"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, fields, "items")

	rec = app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.KeyboardID, Quantity: 0}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields = decodeProblem(t, rec).Extensions["fields"].(map[string]any)
	require.Contains(t, fields, "items[0].quantity")

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	app.router.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestSettleOrder_BusinessRejections(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.TShirtID, Quantity: 3}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, settlementapp.KindInsufficientStock, problem.Kind)
	require.EqualValues(t, seed.TShirtID, problem.Extensions["productId"])
	require.Equal(t, "1", problem.Extensions["available"])
	require.Equal(t, "3", problem.Extensions["required"])

	rec = app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.LaptopID, Quantity: 2}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem = decodeProblem(t, rec)
	require.Equal(t, settlementapp.KindInsufficientBalance, problem.Kind)
	require.Equal(t, "11998.00", problem.Extensions["required"])
	require.Equal(t, "10000.00", problem.Extensions["available"])

	rec = app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: 999, Quantity: 1}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, settlementapp.KindProductNotFound, decodeProblem(t, rec).Kind)

	rec = app.do(t, http.MethodPost, "/orders",
		checkoutPayload(999, settlementmapper.OrderLine{ProductID: seed.KeyboardID, Quantity: 1}), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, settlementapp.KindAccountNotFound, decodeProblem(t, rec).Kind)

	product, err := app.products.GetByID(context.Background(), seed.TShirtID)
	require.NoError(t, err)
	require.EqualValues(t, 1, product.Stock)
}

func TestSettleOrder_IdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	payload := checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.KeyboardID, Quantity: 1})
	headers := map[string]string{IdempotencyKeyHeader: "cart-7f3a"}

	first := app.do(t, http.MethodPost, "/orders", payload, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := app.do(t, http.MethodPost, "/orders", payload, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, decodeSettlement(t, first).Order.ID, decodeSettlement(t, second).Order.ID)

	buyer, err := app.accounts.GetByID(context.Background(), seed.BuyerID)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(seed.BuyerBalance.Sub(decimal.NewFromInt(399))), "replay must not charge twice")

	payload.Items[0].Quantity = 2
	conflict := app.do(t, http.MethodPost, "/orders", payload, headers)
	require.Equal(t, http.StatusConflict, conflict.Code)
	require.Equal(t, settlementapp.KindIdempotencyConflict, decodeProblem(t, conflict).Kind)
}

func TestOrderTransitions(t *testing.T) {
	app := newTestApp(t)
	created := app.do(t, http.MethodPost, "/orders",
		checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: seed.WatchID, Quantity: 1}), nil)
	require.Equal(t, http.StatusCreated, created.Code)
	orderPath := "/orders/" + jsonNumber(decodeSettlement(t, created).Order.ID)

	rec := app.do(t, http.MethodPost, orderPath+"/confirm", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, settlementapp.KindInvalidStateTransition, problem.Kind)
	require.Equal(t, "paid", problem.Extensions["from"])
	require.Equal(t, "completed", problem.Extensions["to"])

	rec = app.do(t, http.MethodPost, orderPath+"/ship", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shipped := decodeSettlement(t, rec)
	require.Equal(t, "shipping", shipped.Order.Status)
	require.Equal(t, "in_transit", shipped.Logistics.Status)
	require.NotNil(t, shipped.Logistics.ShippedAt)

	rec = app.do(t, http.MethodPost, orderPath+"/refund", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refunded := decodeSettlement(t, rec)
	require.Equal(t, "refunded", refunded.Order.Status)
	require.Equal(t, "returned", refunded.Logistics.Status)

	buyer, err := app.accounts.GetByID(context.Background(), seed.BuyerID)
	require.NoError(t, err)
	require.True(t, buyer.Balance.Equal(seed.BuyerBalance))

	rec = app.do(t, http.MethodPost, orderPath+"/cancel", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/orders/424242/ship", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, settlementapp.KindOrderNotFound, decodeProblem(t, rec).Kind)
}

func TestOrderQueries(t *testing.T) {
	app := newTestApp(t)
	for _, productID := range []int64{seed.KeyboardID, seed.WatchID} {
		rec := app.do(t, http.MethodPost, "/orders",
			checkoutPayload(seed.BuyerID, settlementmapper.OrderLine{ProductID: productID, Quantity: 1}), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/users/4/orders", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []settlementmapper.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	require.Greater(t, orders[0].ID, orders[1].ID, "newest first")

	rec = app.do(t, http.MethodGet, "/orders/"+jsonNumber(orders[0].ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, orders[0].OrderNumber, decodeSettlement(t, rec).Order.OrderNumber)

	rec = app.do(t, http.MethodGet, "/orders/abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeProblem(t, rec).Extensions["fields"], "orderId")

	rec = app.do(t, http.MethodGet, "/users/999/orders", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{HealthAPI: NewHealthAPI(nil)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	down := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{HealthAPI: NewHealthAPI(func(context.Context) error {
		return errors.New("database unreachable")
	})})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
