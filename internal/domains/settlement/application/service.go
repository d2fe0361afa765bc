package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	accountports "github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
	catalogdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	catalogports "github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	orderdomain "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	settlementtypes "github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/application/types"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/settlement/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

// Service is the settlement engine: checkout plus the post-payment order lifecycle.
type Service struct {
	uow       ports.UnitOfWork
	generator orderdomain.Generator
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithGenerator overrides the logistics generator settings.
func WithGenerator(g orderdomain.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how order numbers and transaction ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService wires the settlement engine around a unit of work.
func NewService(uow ports.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:       uow,
		generator: orderdomain.NewGenerator("", "", 0),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ ports.Service = (*Service)(nil)

// Settle validates a cart against current stock and balance, then debits the
// buyer, reserves stock, records the order and creates its shipment in one unit.
func (s *Service) Settle(ctx context.Context, input settlementtypes.SettleInput) (*settlementtypes.Settlement, error) {
	lines, shipping, err := normalizeSettleInput(input)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	if key != "" {
		requestHash, err = FingerprintSettle(input)
		if err != nil {
			return nil, err
		}
		replayed, err := s.replay(ctx, key, requestHash)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	var result *settlementtypes.Settlement
	err = s.uow.Within(ctx, func(ctx context.Context, repos ports.Repositories) error {
		settled, err := s.settle(ctx, repos, input.UserID, lines, shipping, input.Remarks)
		if err != nil {
			return err
		}
		if key != "" {
			record := orderports.IdempotencyRecord{Key: key, RequestHash: requestHash, OrderID: settled.Order.ID}
			if _, err := repos.Idempotency.Save(ctx, record); err != nil {
				return err
			}
		}
		result = settled
		return nil
	})
	if err != nil {
		if key != "" && errors.Is(err, orderports.ErrIdempotencyConflict) {
			// A concurrent request with the same key committed first.
			replayed, replayErr := s.replay(ctx, key, requestHash)
			if replayErr != nil || replayed != nil {
				return replayed, replayErr
			}
		}
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Service) settle(
	ctx context.Context,
	repos ports.Repositories,
	userID int64,
	lines []settlementtypes.LineInput,
	shipping orderdomain.ShippingAddress,
	remarks string,
) (*settlementtypes.Settlement, error) {
	account, err := repos.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, accountports.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
		}
		return nil, err
	}

	// Products are read in ascending id order so concurrent settlements lock rows consistently.
	ids := sortedProductIDs(lines)
	products := make(map[int64]*catalogdomain.Product, len(ids))
	for _, id := range ids {
		product, err := repos.Products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, catalogports.ErrNotFound) {
				continue
			}
			return nil, err
		}
		products[id] = product
	}

	// Validation: nothing below writes until every line, and the balance, check out.
	items := make([]orderdomain.LineItem, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity > product.Stock {
			return nil, &InsufficientStockError{ProductID: product.ID, Requested: line.Quantity, Available: product.Stock}
		}
		items = append(items, orderdomain.LineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			UnitPrice:    product.Price,
			Quantity:     line.Quantity,
			MerchantID:   product.Merchant.ID,
			MerchantName: product.Merchant.Name,
		})
	}
	total := orderdomain.SumItems(items)
	if !account.CanAfford(total) {
		return nil, &InsufficientBalanceError{Required: total, Available: account.Balance}
	}

	now := s.now().UTC()
	order, err := orderdomain.NewOrder(userID, s.orderNumber(now), items, shipping, remarks, now)
	if err != nil {
		return nil, mapError(err)
	}
	order.MarkPaid(s.transactionID(), now)

	for _, id := range ids {
		qty := quantityOf(lines, id)
		if _, err := repos.Products.Reserve(ctx, id, qty); err != nil {
			return nil, mapError(err)
		}
	}
	if total.IsPositive() {
		if _, err := repos.Accounts.Debit(ctx, userID, total); err != nil {
			return nil, mapError(err)
		}
	}
	if err := adjustMerchantSales(ctx, repos.Accounts, items, 1); err != nil {
		return nil, mapError(err)
	}

	created, err := repos.Orders.Create(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	origin := products[lines[0].ProductID].Origin
	logistics, err := repos.Logistics.Create(ctx, s.generator.Generate(created.ID, origin, shipping.Address, now))
	if err != nil {
		return nil, mapError(err)
	}
	return &settlementtypes.Settlement{Order: created, Logistics: logistics}, nil
}

func (s *Service) replay(ctx context.Context, key, requestHash string) (*settlementtypes.Settlement, error) {
	reader := s.uow.Reader()
	record, err := reader.Idempotency.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.RequestHash != requestHash {
		return nil, fmt.Errorf("%w: key %q", ErrIdempotencyConflict, key)
	}
	settlement, err := s.load(ctx, reader, record.OrderID)
	if err != nil {
		return nil, err
	}
	settlement.Replayed = true
	return settlement, nil
}

// Ship moves a paid order to shipping.
func (s *Service) Ship(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, input.OrderID, orderdomain.StatusShipping)
}

// Confirm records delivery of a shipping order.
func (s *Service) Confirm(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, input.OrderID, orderdomain.StatusCompleted)
}

// Cancel voids a paid or unpaid order, reversing any settlement effects.
func (s *Service) Cancel(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, input.OrderID, orderdomain.StatusCancelled)
}

// Refund returns the money of a paid or shipping order and restocks its items.
func (s *Service) Refund(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	return s.transition(ctx, input.OrderID, orderdomain.StatusRefunded)
}

func (s *Service) transition(ctx context.Context, orderID int64, to orderdomain.Status) (*settlementtypes.Settlement, error) {
	var result *settlementtypes.Settlement
	err := s.uow.Within(ctx, func(ctx context.Context, repos ports.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		next := order.Clone()
		if err := next.TransitionTo(to, now); err != nil {
			if errors.Is(err, orderdomain.ErrTransitionNotPermitted) {
				return &InvalidStateTransitionError{OrderID: order.ID, From: order.Status, To: to}
			}
			return err
		}
		updated, err := repos.Orders.UpdateStatus(ctx, order.ID, []orderdomain.Status{order.Status}, next.Status, next.UpdatedAt)
		if err != nil {
			return err
		}
		if reversesSettlement(order.Status, to) {
			if err := reverseSettlement(ctx, repos, order); err != nil {
				return err
			}
		}
		logistics, err := repos.Logistics.GetByOrderID(ctx, order.ID)
		switch {
		case errors.Is(err, orderports.ErrLogisticsNotFound):
			logistics = nil
		case err != nil:
			return err
		default:
			logistics.Follow(to, now)
			if logistics, err = repos.Logistics.Save(ctx, logistics); err != nil {
				return err
			}
		}
		result = &settlementtypes.Settlement{Order: updated, Logistics: logistics}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// reversesSettlement reports whether moving from -> to must undo the money and stock effects.
func reversesSettlement(from, to orderdomain.Status) bool {
	if to != orderdomain.StatusCancelled && to != orderdomain.StatusRefunded {
		return false
	}
	return from == orderdomain.StatusPaid || from == orderdomain.StatusShipping
}

// reverseSettlement applies the inverse of the stored line quantities and total.
// Products and merchants that no longer exist are skipped.
func reverseSettlement(ctx context.Context, repos ports.Repositories, order *orderdomain.Order) error {
	if order.Total.IsPositive() {
		if _, err := repos.Accounts.Credit(ctx, order.UserID, order.Total); err != nil && !errors.Is(err, accountports.ErrNotFound) {
			return err
		}
	}
	quantities := map[int64]int64{}
	for _, item := range order.Items {
		quantities[item.ProductID] += item.Quantity
	}
	for _, id := range sortedKeys(quantities) {
		if _, err := repos.Products.Release(ctx, id, quantities[id]); err != nil && !errors.Is(err, catalogports.ErrNotFound) {
			return err
		}
	}
	return adjustMerchantSales(ctx, repos.Accounts, order.Items, -1)
}

// adjustMerchantSales moves each referenced merchant's sales counter by sign*quantity.
// Lines without a merchant, or whose merchant account is gone, are skipped.
func adjustMerchantSales(ctx context.Context, accounts accountports.Repository, items []orderdomain.LineItem, sign int64) error {
	deltas := map[int64]int64{}
	for _, item := range items {
		if item.MerchantID > 0 {
			deltas[item.MerchantID] += item.Quantity
		}
	}
	for _, merchantID := range sortedKeys(deltas) {
		if err := accounts.AddSales(ctx, merchantID, sign*deltas[merchantID]); err != nil && !errors.Is(err, accountports.ErrNotFound) {
			return err
		}
	}
	return nil
}

// GetOrder loads an order with its shipment.
func (s *Service) GetOrder(ctx context.Context, input settlementtypes.OrderIdentifier) (*settlementtypes.Settlement, error) {
	settlement, err := s.load(ctx, s.uow.Reader(), input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	return settlement, nil
}

// ListOrders returns a user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, input settlementtypes.UserIdentifier) ([]*orderdomain.Order, error) {
	reader := s.uow.Reader()
	if _, err := reader.Accounts.GetByID(ctx, input.UserID); err != nil {
		return nil, mapError(err)
	}
	orders, err := reader.Orders.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

func (s *Service) load(ctx context.Context, repos ports.Repositories, orderID int64) (*settlementtypes.Settlement, error) {
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	logistics, err := repos.Logistics.GetByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, orderports.ErrLogisticsNotFound) {
		return nil, err
	}
	return &settlementtypes.Settlement{Order: order, Logistics: logistics}, nil
}

func (s *Service) orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "ORD" + now.Format("20060102150405") + suffix
}

func (s *Service) transactionID() string {
	return "PAY" + strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
}

// normalizeSettleInput rejects malformed requests before any store is read.
func normalizeSettleInput(input settlementtypes.SettleInput) ([]settlementtypes.LineInput, orderdomain.ShippingAddress, error) {
	var shipping orderdomain.ShippingAddress
	if input.UserID <= 0 {
		return nil, shipping, fmt.Errorf("%w: %w", ErrInvalidRequest, orderdomain.ErrInvalidUser)
	}
	if len(input.Lines) == 0 {
		return nil, shipping, fmt.Errorf("%w: %w", ErrInvalidRequest, orderdomain.ErrNoItems)
	}
	for _, line := range input.Lines {
		if line.ProductID <= 0 {
			return nil, shipping, fmt.Errorf("%w: %w", ErrInvalidRequest, orderdomain.ErrInvalidProduct)
		}
		if line.Quantity <= 0 {
			return nil, shipping, fmt.Errorf("%w: %w (product %d)", ErrInvalidRequest, orderdomain.ErrInvalidQuantity, line.ProductID)
		}
	}
	shipping = orderdomain.ShippingAddress{
		RecipientName: input.ShippingAddress.RecipientName,
		Phone:         input.ShippingAddress.Phone,
		Address: address.Address{
			Province: input.ShippingAddress.Province,
			City:     input.ShippingAddress.City,
			District: input.ShippingAddress.District,
			Detail:   input.ShippingAddress.Detail,
		},
		PostalCode: input.ShippingAddress.PostalCode,
	}.Normalize()
	if err := shipping.Validate(); err != nil {
		return nil, shipping, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return mergeLines(input.Lines), shipping, nil
}

func sortedProductIDs(lines []settlementtypes.LineInput) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func quantityOf(lines []settlementtypes.LineInput, productID int64) int64 {
	for _, line := range lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

func sortedKeys(m map[int64]int64) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
