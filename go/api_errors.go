package checkoutserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	settlementapp "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application"
	apierrors "github.com/Apurer/go-gin-checkout-server/internal/shared/errors"
)

var responder = apierrors.NewResponder("", settlementProblem)

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

func respondValidation(c *gin.Context, fields map[string]string) {
	responder.Respond(c, apierrors.NewValidationProblem(fields).WithKind(settlementapp.KindInvalidRequest))
}

// respondBindError turns request binding failures into 400 problems, with per-field
// messages when the validator produced them.
func respondBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
		respondValidation(c, fields)
		return
	}
	responder.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()).WithKind(settlementapp.KindInvalidRequest))
}

func respondSettlementError(c *gin.Context, err error) {
	responder.RespondError(c, err)
}

// settlementProblem maps the settlement error taxonomy onto problem details.
// Internal errors are left to the responder's 500 fallback.
func settlementProblem(err error) (apierrors.ProblemDetail, bool) {
	kind := settlementapp.Kind(err)
	detail := settlementapp.Details(err)
	var problem apierrors.ProblemDetail
	switch kind {
	case settlementapp.KindInvalidRequest:
		problem = apierrors.ErrValidation
	case settlementapp.KindProductNotFound:
		problem = apierrors.ErrBadRequest.WithExtension("productId", detail.ProductID)
	case settlementapp.KindInsufficientStock:
		problem = apierrors.ErrInsufficient.
			WithExtension("productId", detail.ProductID).
			WithExtension("available", detail.Available).
			WithExtension("required", fmt.Sprint(detail.Requested))
	case settlementapp.KindInsufficientBalance:
		problem = apierrors.ErrInsufficient.
			WithExtension("available", detail.Available).
			WithExtension("required", detail.Required)
	case settlementapp.KindInvalidStateTransition:
		problem = apierrors.ErrStateTransition.
			WithExtension("orderId", detail.OrderID).
			WithExtension("from", detail.From).
			WithExtension("to", detail.To)
	case settlementapp.KindAccountNotFound, settlementapp.KindOrderNotFound:
		problem = apierrors.ErrNotFound
	case settlementapp.KindConcurrentConflict, settlementapp.KindIdempotencyConflict:
		problem = apierrors.ErrConflict
	default:
		return apierrors.ProblemDetail{}, false
	}
	return problem.WithKind(kind).WithDetail(err.Error()), true
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " element(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}
