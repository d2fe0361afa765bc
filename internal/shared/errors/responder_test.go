package errors

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errOutOfStock = errors.New("out of stock")

func TestResponder_MapsKnownErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	responder := NewResponder("", func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errOutOfStock) {
			return ErrInsufficient.WithKind("insufficient_stock").WithExtension("productId", 10), true
		}
		return ProblemDetail{}, false
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)
	responder.RespondError(c, errOutOfStock)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "insufficient_stock", body.Kind)
	require.Equal(t, "/orders", body.Instance)
	require.EqualValues(t, 10, body.Extensions["productId"])
	require.Nil(t, ErrInsufficient.Extensions)
}

func TestResponder_FallsBackToInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	responder := NewResponder("https://checkout.example")
	responder.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	responder.RespondError(c, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "https://checkout.example"+TypeInternal, body.Type)
	require.Equal(t, "Internal Server Error", body.Detail)
}
