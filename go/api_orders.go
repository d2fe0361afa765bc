package checkoutserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	settlementmapper "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/adapters/http/mapper"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	settlementports "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
)

// IdempotencyKeyHeader lets clients retry POST /orders safely.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// OrderAPI wires HTTP transport with the settlement engine and its workflows.
type OrderAPI struct {
	service   settlementports.Service
	workflows settlementports.WorkflowOrchestrator
}

// NewOrderAPI creates an OrderAPI. When workflows is nil checkout runs directly on the service.
func NewOrderAPI(service settlementports.Service, workflows settlementports.WorkflowOrchestrator) OrderAPI {
	return OrderAPI{service: service, workflows: workflows}
}

// Post /orders
// Settles a checkout request into a paid order with a shipment
func (api *OrderAPI) SettleOrder(c *gin.Context) {
	var payload settlementmapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		respondValidation(c, map[string]string{IdempotencyKeyHeader: "must be at most 128 characters"})
		return
	}
	settlement, err := api.settle(c.Request.Context(), settlementmapper.ToSettleInput(payload, key))
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	if settlement.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.JSON(http.StatusCreated, settlementmapper.FromSettlement(settlement))
}

func (api *OrderAPI) settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	if api.workflows != nil {
		return api.workflows.Settle(ctx, input)
	}
	return api.service.Settle(ctx, input)
}

// Get /orders/:orderId
// Returns an order with its shipment
func (api *OrderAPI) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	settlement, err := api.service.GetOrder(c.Request.Context(), settlementtypes.OrderIdentifier{OrderID: id})
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementmapper.FromSettlement(settlement))
}

// Post /orders/:orderId/ship
func (api *OrderAPI) ShipOrder(c *gin.Context) {
	api.transition(c, api.service.Ship)
}

// Post /orders/:orderId/confirm
func (api *OrderAPI) ConfirmOrder(c *gin.Context) {
	api.transition(c, api.service.Confirm)
}

// Post /orders/:orderId/cancel
// Cancels an order, returning funds and stock when it was already paid
func (api *OrderAPI) CancelOrder(c *gin.Context) {
	api.transition(c, api.service.Cancel)
}

// Post /orders/:orderId/refund
// Refunds a paid or shipping order
func (api *OrderAPI) RefundOrder(c *gin.Context) {
	api.transition(c, api.service.Refund)
}

type transitionFunc func(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error)

func (api *OrderAPI) transition(c *gin.Context, apply transitionFunc) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	settlement, err := apply(c.Request.Context(), settlementtypes.OrderIdentifier{OrderID: id})
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementmapper.FromSettlement(settlement))
}

// Get /users/:userId/orders
// Lists a user's orders, newest first
func (api *OrderAPI) ListUserOrders(c *gin.Context) {
	id, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	orders, err := api.service.ListOrders(c.Request.Context(), settlementtypes.UserIdentifier{UserID: id})
	if err != nil {
		respondSettlementError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementmapper.FromOrderList(orders))
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return id, true
}
