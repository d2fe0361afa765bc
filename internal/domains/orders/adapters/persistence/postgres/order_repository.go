package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var _ ports.OrderRepository = (*OrderRepository)(nil)

// OrderRepository persists orders in PostgreSQL using GORM.
type OrderRepository struct {
	db         *gorm.DB
	lockOnRead bool
}

// NewOrderRepository wires a PostgreSQL-backed order ledger. Caller manages DB lifecycle.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// NewTxOrderRepository binds the ledger to an open transaction; point reads lock the row.
func NewTxOrderRepository(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx, lockOnRead: true}
}

// Migrate creates or updates the order and logistics tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderRecord{}, &logisticsRecord{}, &idempotencyRecord{})
}

type lineItemJSON struct {
	ProductID    int64           `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int64           `json:"quantity"`
	MerchantID   int64           `json:"merchantId"`
	MerchantName string          `json:"merchantName"`
}

type orderRecord struct {
	ID            int64           `gorm:"primaryKey;column:id"`
	Number        string          `gorm:"column:order_number;uniqueIndex;size:64"`
	UserID        int64           `gorm:"column:user_id;index"`
	Items         []lineItemJSON  `gorm:"column:items;type:jsonb;serializer:json"`
	ProductIDs    pq.Int64Array   `gorm:"column:product_ids;type:bigint[]"`
	Total         decimal.Decimal `gorm:"column:total;type:numeric(14,2)"`
	Status        string          `gorm:"column:status;size:32;index"`
	RecipientName string          `gorm:"column:recipient_name"`
	Phone         string          `gorm:"column:phone"`
	Province      string          `gorm:"column:province"`
	City          string          `gorm:"column:city"`
	District      string          `gorm:"column:district"`
	Detail        string          `gorm:"column:detail"`
	PostalCode    string          `gorm:"column:postal_code"`
	PaymentMethod string          `gorm:"column:payment_method"`
	PaidAt        *time.Time      `gorm:"column:paid_at"`
	TransactionID string          `gorm:"column:transaction_id"`
	Remarks       string          `gorm:"column:remarks"`
	OrderedAt     time.Time       `gorm:"column:ordered_at;index"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (orderRecord) TableName() string { return "orders" }

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	record := toOrderRecord(order)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx)
	if r.lockOnRead {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record orderRecord
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ordered_at DESC").Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, from []domain.Status, to domain.Status, at time.Time) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	expected := make([]string, 0, len(from))
	for _, s := range from {
		expected = append(expected, string(s))
	}
	result := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(map[string]any{"status": string(to), "updated_at": at.UTC()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrStatusPrecondition
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&orderRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toOrderRecord(o *domain.Order) orderRecord {
	items := make([]lineItemJSON, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineItemJSON{
			ProductID:    item.ProductID,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			MerchantID:   item.MerchantID,
			MerchantName: item.MerchantName,
		})
	}
	record := orderRecord{
		ID:            o.ID,
		Number:        o.Number,
		UserID:        o.UserID,
		Items:         items,
		ProductIDs:    pq.Int64Array(o.ProductIDs()),
		Total:         o.Total,
		Status:        string(o.Status),
		RecipientName: o.ShippingAddress.RecipientName,
		Phone:         o.ShippingAddress.Phone,
		Province:      o.ShippingAddress.Address.Province,
		City:          o.ShippingAddress.Address.City,
		District:      o.ShippingAddress.Address.District,
		Detail:        o.ShippingAddress.Address.Detail,
		PostalCode:    o.ShippingAddress.PostalCode,
		PaymentMethod: o.Payment.Method,
		TransactionID: o.Payment.TransactionID,
		Remarks:       o.Remarks,
		OrderedAt:     o.OrderedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if !o.Payment.PaidAt.IsZero() {
		paidAt := o.Payment.PaidAt
		record.PaidAt = &paidAt
	}
	return record
}

func (r orderRecord) toDomain() *domain.Order {
	items := make([]domain.LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, domain.LineItem{
			ProductID:    item.ProductID,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			MerchantID:   item.MerchantID,
			MerchantName: item.MerchantName,
		})
	}
	order := &domain.Order{
		ID:     r.ID,
		Number: r.Number,
		UserID: r.UserID,
		Items:  items,
		Total:  r.Total,
		Status: domain.Status(r.Status),
		ShippingAddress: domain.ShippingAddress{
			RecipientName: r.RecipientName,
			Phone:         r.Phone,
			Address: address.Address{
				Province: r.Province,
				City:     r.City,
				District: r.District,
				Detail:   r.Detail,
			},
			PostalCode: r.PostalCode,
		},
		Payment: domain.PaymentInfo{
			Method:        r.PaymentMethod,
			TransactionID: r.TransactionID,
		},
		Remarks:   r.Remarks,
		OrderedAt: r.OrderedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.PaidAt != nil {
		order.Payment.PaidAt = r.PaidAt.UTC()
	}
	return order
}
