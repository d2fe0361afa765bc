package checkoutserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	platformobservability "github.com/Apurer/go-gin-checkout-server/internal/platform/observability"
)

// DiagnosticsAPI exposes in-process counters for operators.
type DiagnosticsAPI struct {
	counters func(ctx context.Context) ([]platformobservability.CounterPoint, error)
}

func NewDiagnosticsAPI(counters func(ctx context.Context) ([]platformobservability.CounterPoint, error)) DiagnosticsAPI {
	return DiagnosticsAPI{counters: counters}
}

// Get /debug/counters
func (api *DiagnosticsAPI) Counters(c *gin.Context) {
	points := []platformobservability.CounterPoint{}
	if api.counters != nil {
		collected, err := api.counters(c.Request.Context())
		if err != nil {
			responder.RespondError(c, err)
			return
		}
		if collected != nil {
			points = collected
		}
	}
	c.JSON(http.StatusOK, gin.H{"counters": points})
}
