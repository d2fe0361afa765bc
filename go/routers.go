package checkoutserver

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers exposed by the checkout API.
type ApiHandleFunctions struct {
	OrderAPI       OrderAPI
	HealthAPI      HealthAPI
	DiagnosticsAPI DiagnosticsAPI
}

var registerJSONNames sync.Once

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the checkout routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	registerJSONNames.Do(useJSONFieldNames)
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPut:
			router.PUT(route.Pattern, route.HandlerFunc)
		case http.MethodPatch:
			router.PATCH(route.Pattern, route.HandlerFunc)
		case http.MethodDelete:
			router.DELETE(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"SettleOrder", http.MethodPost, "/orders", handleFunctions.OrderAPI.SettleOrder},
		{"GetOrder", http.MethodGet, "/orders/:orderId", handleFunctions.OrderAPI.GetOrder},
		{"ShipOrder", http.MethodPost, "/orders/:orderId/ship", handleFunctions.OrderAPI.ShipOrder},
		{"ConfirmOrder", http.MethodPost, "/orders/:orderId/confirm", handleFunctions.OrderAPI.ConfirmOrder},
		{"CancelOrder", http.MethodPost, "/orders/:orderId/cancel", handleFunctions.OrderAPI.CancelOrder},
		{"RefundOrder", http.MethodPost, "/orders/:orderId/refund", handleFunctions.OrderAPI.RefundOrder},
		{"ListUserOrders", http.MethodGet, "/users/:userId/orders", handleFunctions.OrderAPI.ListUserOrders},
		{"Healthz", http.MethodGet, "/healthz", handleFunctions.HealthAPI.Healthz},
		{"Counters", http.MethodGet, "/debug/counters", handleFunctions.DiagnosticsAPI.Counters},
	}
}

// useJSONFieldNames makes validator report json names ("items[0].quantity") instead of Go field names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}
