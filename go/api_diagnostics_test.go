package checkoutserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	platformobservability "github.com/Apurer/go-gin-checkout-server/internal/platform/observability"
)

func TestCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{DiagnosticsAPI: NewDiagnosticsAPI(
		func(context.Context) ([]platformobservability.CounterPoint, error) {
			return []platformobservability.CounterPoint{
				{Name: "settlement.service.settlements", Attributes: map[string]string{"outcome": "success"}, Value: 3},
			}, nil
		})})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/counters", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Counters []platformobservability.CounterPoint `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Counters, 1)
	require.Equal(t, int64(3), body.Counters[0].Value)
	require.Equal(t, "success", body.Counters[0].Attributes["outcome"])

	failing := NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{DiagnosticsAPI: NewDiagnosticsAPI(
		func(context.Context) ([]platformobservability.CounterPoint, error) {
			return nil, errors.New("reader is shutdown")
		})})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/counters", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
