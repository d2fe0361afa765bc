package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var _ ports.LogisticsRepository = (*LogisticsRepository)(nil)

// LogisticsRepository persists shipments in PostgreSQL using GORM.
type LogisticsRepository struct {
	db *gorm.DB
}

func NewLogisticsRepository(db *gorm.DB) *LogisticsRepository {
	return &LogisticsRepository{db: db}
}

type traceEventJSON struct {
	At          time.Time `json:"at"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
}

type logisticsRecord struct {
	ID                  int64            `gorm:"primaryKey;column:id"`
	OrderID             int64            `gorm:"column:order_id;uniqueIndex"`
	Carrier             string           `gorm:"column:carrier"`
	TrackingNumber      string           `gorm:"column:tracking_number;uniqueIndex;size:64"`
	OriginProvince      string           `gorm:"column:origin_province"`
	OriginCity          string           `gorm:"column:origin_city"`
	OriginDistrict      string           `gorm:"column:origin_district"`
	OriginDetail        string           `gorm:"column:origin_detail"`
	DestinationProvince string           `gorm:"column:destination_province"`
	DestinationCity     string           `gorm:"column:destination_city"`
	DestinationDistrict string           `gorm:"column:destination_district"`
	DestinationDetail   string           `gorm:"column:destination_detail"`
	Status              string           `gorm:"column:status;size:32"`
	Trace               []traceEventJSON `gorm:"column:trace;type:jsonb;serializer:json"`
	EstimatedDelivery   time.Time        `gorm:"column:estimated_delivery"`
	ShippedAt           *time.Time       `gorm:"column:shipped_at"`
	DeliveredAt         *time.Time       `gorm:"column:delivered_at"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (logisticsRecord) TableName() string { return "logistics" }

func (r *LogisticsRepository) Create(ctx context.Context, logistics *domain.Logistics) (*domain.Logistics, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if logistics == nil {
		return nil, errors.New("logistics is nil")
	}
	if err := logistics.Validate(); err != nil {
		return nil, err
	}
	record := toLogisticsRecord(logistics)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrLogisticsExists
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *LogisticsRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.Logistics, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record logisticsRecord
	if err := r.db.WithContext(ctx).First(&record, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrLogisticsNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Save writes status and milestone timestamps; carrier, tracking number and trace stay as created.
func (r *LogisticsRepository) Save(ctx context.Context, logistics *domain.Logistics) (*domain.Logistics, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if logistics == nil {
		return nil, errors.New("logistics is nil")
	}
	result := r.db.WithContext(ctx).Model(&logisticsRecord{}).
		Where("order_id = ?", logistics.OrderID).
		Updates(map[string]any{
			"status":       string(logistics.Status),
			"shipped_at":   logistics.ShippedAt,
			"delivered_at": logistics.DeliveredAt,
			"updated_at":   logistics.UpdatedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrLogisticsNotFound
	}
	return r.GetByOrderID(ctx, logistics.OrderID)
}

func (r *LogisticsRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&logisticsRecord{}, "order_id = ?", orderID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrLogisticsNotFound
	}
	return nil
}

func (r *LogisticsRepository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres logistics repository not configured")
	}
	return nil
}

func toLogisticsRecord(l *domain.Logistics) logisticsRecord {
	trace := make([]traceEventJSON, 0, len(l.Trace))
	for _, ev := range l.Trace {
		trace = append(trace, traceEventJSON{
			At:          ev.At.UTC(),
			Location:    ev.Location,
			Description: ev.Description,
			Status:      string(ev.Status),
		})
	}
	return logisticsRecord{
		ID:                  l.ID,
		OrderID:             l.OrderID,
		Carrier:             l.Carrier,
		TrackingNumber:      l.TrackingNumber,
		OriginProvince:      l.Origin.Province,
		OriginCity:          l.Origin.City,
		OriginDistrict:      l.Origin.District,
		OriginDetail:        l.Origin.Detail,
		DestinationProvince: l.Destination.Province,
		DestinationCity:     l.Destination.City,
		DestinationDistrict: l.Destination.District,
		DestinationDetail:   l.Destination.Detail,
		Status:              string(l.Status),
		Trace:               trace,
		EstimatedDelivery:   l.EstimatedDelivery,
		ShippedAt:           l.ShippedAt,
		DeliveredAt:         l.DeliveredAt,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

func (r logisticsRecord) toDomain() *domain.Logistics {
	trace := make([]domain.TraceEvent, 0, len(r.Trace))
	for _, ev := range r.Trace {
		trace = append(trace, domain.TraceEvent{
			At:          ev.At.UTC(),
			Location:    ev.Location,
			Description: ev.Description,
			Status:      domain.LogisticsStatus(ev.Status),
		})
	}
	return &domain.Logistics{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Carrier:        r.Carrier,
		TrackingNumber: r.TrackingNumber,
		Origin: address.Address{
			Province: r.OriginProvince,
			City:     r.OriginCity,
			District: r.OriginDistrict,
			Detail:   r.OriginDetail,
		},
		Destination: address.Address{
			Province: r.DestinationProvince,
			City:     r.DestinationCity,
			District: r.DestinationDistrict,
			Detail:   r.DestinationDetail,
		},
		Status:            domain.LogisticsStatus(r.Status),
		Trace:             trace,
		EstimatedDelivery: r.EstimatedDelivery.UTC(),
		ShippedAt:         utcPtr(r.ShippedAt),
		DeliveredAt:       utcPtr(r.DeliveredAt),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
