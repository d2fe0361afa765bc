package application

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	accountdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var (
	ErrInvalidRequest         = errors.New("invalid settlement request")
	ErrAccountNotFound        = errors.New("account not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrConcurrentConflict     = errors.New("concurrent modification, retry the operation")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrOrderNotFound          = errors.New("order not found")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with a different request")
)

// Stable error classes, used as Temporal application error types and metric attributes.
const (
	KindInvalidRequest         = "invalid_request"
	KindAccountNotFound        = "account_not_found"
	KindProductNotFound        = "product_not_found"
	KindInsufficientStock      = "insufficient_stock"
	KindInsufficientBalance    = "insufficient_balance"
	KindConcurrentConflict     = "concurrent_conflict"
	KindInvalidStateTransition = "invalid_state_transition"
	KindOrderNotFound          = "order_not_found"
	KindIdempotencyConflict    = "idempotency_conflict"
	KindInternal               = "internal"
)

var kinds = []struct {
	sentinel error
	kind     string
}{
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrProductNotFound, KindProductNotFound},
	{ErrInsufficientStock, KindInsufficientStock},
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrConcurrentConflict, KindConcurrentConflict},
	{ErrInvalidStateTransition, KindInvalidStateTransition},
	{ErrOrderNotFound, KindOrderNotFound},
	{ErrIdempotencyConflict, KindIdempotencyConflict},
}

// ProductNotFoundError names the missing product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError carries the stock left for display.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientBalanceError carries the order total and the spendable balance.
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, available %s", e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidStateTransitionError reports a rejected state machine move.
type InvalidStateTransitionError struct {
	OrderID int64
	From    orderdomain.Status
	To      orderdomain.Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// Kind returns the stable class of err, or KindInternal for anything unclassified.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorDetail is the structured payload of a classified error. Decimal amounts
// travel as strings to stay exact across serialization.
type ErrorDetail struct {
	ProductID int64  `json:"productId,omitempty"`
	Requested int64  `json:"requested,omitempty"`
	Available string `json:"available,omitempty"`
	Required  string `json:"required,omitempty"`
	OrderID   int64  `json:"orderId,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// Details extracts the structured fields carried by the typed errors.
func Details(err error) ErrorDetail {
	var (
		notFound *ProductNotFoundError
		stock    *InsufficientStockError
		balance  *InsufficientBalanceError
		state    *InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &stock):
		return ErrorDetail{ProductID: stock.ProductID, Requested: stock.Requested, Available: fmt.Sprint(stock.Available)}
	case errors.As(err, &balance):
		return ErrorDetail{Required: balance.Required.StringFixed(2), Available: balance.Available.StringFixed(2)}
	case errors.As(err, &notFound):
		return ErrorDetail{ProductID: notFound.ProductID}
	case errors.As(err, &state):
		return ErrorDetail{OrderID: state.OrderID, From: string(state.From), To: string(state.To)}
	default:
		return ErrorDetail{}
	}
}

// Rebuild reconstructs an error from its kind, message and details, so errors that
// crossed a process boundary still match errors.Is and errors.As.
func Rebuild(kind, message string, detail ErrorDetail) error {
	switch kind {
	case KindProductNotFound:
		return &ProductNotFoundError{ProductID: detail.ProductID}
	case KindInsufficientStock:
		var available int64
		_, _ = fmt.Sscan(detail.Available, &available)
		return &InsufficientStockError{ProductID: detail.ProductID, Requested: detail.Requested, Available: available}
	case KindInsufficientBalance:
		required, _ := decimal.NewFromString(detail.Required)
		available, _ := decimal.NewFromString(detail.Available)
		return &InsufficientBalanceError{Required: required, Available: available}
	case KindInvalidStateTransition:
		return &InvalidStateTransitionError{
			OrderID: detail.OrderID,
			From:    orderdomain.Status(detail.From),
			To:      orderdomain.Status(detail.To),
		}
	}
	for _, k := range kinds {
		if k.kind == kind {
			return &remoteError{sentinel: k.sentinel, message: message}
		}
	}
	return errors.New(message)
}

type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string {
	if e.message == "" {
		return e.sentinel.Error()
	}
	return e.message
}

func (e *remoteError) Unwrap() error { return e.sentinel }

// mapError translates port and domain errors into the settlement taxonomy.
// Errors already classified pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	switch {
	case errors.Is(err, catalogports.ErrInsufficientStock),
		errors.Is(err, accountports.ErrInsufficientFunds),
		errors.Is(err, orderports.ErrStatusPrecondition),
		errors.Is(err, ports.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConcurrentConflict, err)
	case errors.Is(err, orderports.ErrIdempotencyConflict):
		return fmt.Errorf("%w: %w", ErrIdempotencyConflict, err)
	case errors.Is(err, orderports.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrOrderNotFound, err)
	case errors.Is(err, accountports.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	case isValidationError(err):
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return err
}

func isValidationError(err error) bool {
	for _, target := range []error{
		orderdomain.ErrNoItems,
		orderdomain.ErrInvalidUser,
		orderdomain.ErrInvalidProduct,
		orderdomain.ErrInvalidQuantity,
		orderdomain.ErrMissingRecipient,
		orderdomain.ErrMissingPhone,
		address.ErrIncomplete,
		catalogdomain.ErrInvalidQuantity,
		accountdomain.ErrNonPositiveAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
