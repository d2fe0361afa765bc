package checkoutserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/Apurer/go-gin-checkout-server/internal/shared/errors"
)

// HealthAPI reports process and dependency liveness.
type HealthAPI struct {
	check func(ctx context.Context) error
}

// NewHealthAPI builds a health endpoint. A nil check always reports ok.
func NewHealthAPI(check func(ctx context.Context) error) HealthAPI {
	return HealthAPI{check: check}
}

// Get /healthz
func (api *HealthAPI) Healthz(c *gin.Context) {
	if api.check != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := api.check(ctx); err != nil {
			respondProblem(c, apierrors.ProblemDetail{
				Type:   "/problems/unavailable",
				Title:  "Service Unavailable",
				Status: http.StatusServiceUnavailable,
				Detail: err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
