package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/catalog/ports"
	"github.com/Apurer/go-gin-checkout-server/internal/shared/address"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists products in PostgreSQL using GORM.
type Repository struct {
	db         *gorm.DB
	lockOnRead bool
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NewTxRepository binds the repository to an open transaction. Point reads take
// row locks (SELECT ... FOR UPDATE) so validation holds until commit.
func NewTxRepository(tx *gorm.DB) *Repository {
	return &Repository{db: tx, lockOnRead: true}
}

// Migrate creates or updates the products table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&productRecord{})
}

type productRecord struct {
	ID             int64           `gorm:"primaryKey;column:id"`
	Name           string          `gorm:"column:name"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2)"`
	Stock          int64           `gorm:"column:stock;check:chk_products_stock,stock >= 0"`
	SalesCount     int64           `gorm:"column:sales_count"`
	MerchantID     int64           `gorm:"column:merchant_id;index"`
	MerchantName   string          `gorm:"column:merchant_name"`
	OriginProvince string          `gorm:"column:origin_province"`
	OriginCity     string          `gorm:"column:origin_city"`
	OriginDistrict string          `gorm:"column:origin_district"`
	OriginDetail   string          `gorm:"column:origin_detail"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Save inserts or updates a product.
func (r *Repository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(product)
	query := r.db.WithContext(ctx)
	if record.ID != 0 {
		query = query.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "price", "stock", "sales_count", "merchant_id", "merchant_name",
				"origin_province", "origin_city", "origin_district", "origin_detail", "updated_at",
			}),
		})
	}
	if err := query.Create(&record).Error; err != nil {
		return nil, err
	}
	return r.load(ctx, record.ID, false)
}

// GetByID fetches a product, locking the row when bound to a transaction.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.load(ctx, id, r.lockOnRead)
}

// List returns every product ordered by id.
func (r *Repository) List(ctx context.Context) ([]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

// Reserve is a conditional decrement: it only matches rows with enough stock.
func (r *Repository) Reserve(ctx context.Context, id int64, qty int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]any{
			"stock":       gorm.Expr("stock - ?", qty),
			"sales_count": gorm.Expr("sales_count + ?", qty),
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.load(ctx, id, false); err != nil {
			return nil, err
		}
		return nil, ports.ErrInsufficientStock
	}
	return r.load(ctx, id, false)
}

// Release restores stock and rolls back the sales counter without going below zero.
func (r *Repository) Release(ctx context.Context, id int64, qty int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":       gorm.Expr("stock + ?", qty),
			"sales_count": gorm.Expr("GREATEST(sales_count - ?, 0)", qty),
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.load(ctx, id, false)
}

func (r *Repository) load(ctx context.Context, id int64, lock bool) (*domain.Product, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record productRecord
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres product repository not configured")
	}
	return nil
}

func toRecord(p *domain.Product) productRecord {
	return productRecord{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		Stock:          p.Stock,
		SalesCount:     p.SalesCount,
		MerchantID:     p.Merchant.ID,
		MerchantName:   p.Merchant.Name,
		OriginProvince: p.Origin.Province,
		OriginCity:     p.Origin.City,
		OriginDistrict: p.Origin.District,
		OriginDetail:   p.Origin.Detail,
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:         r.ID,
		Name:       r.Name,
		Price:      r.Price,
		Stock:      r.Stock,
		SalesCount: r.SalesCount,
		Merchant:   domain.Merchant{ID: r.MerchantID, Name: r.MerchantName},
		Origin: address.Address{
			Province: r.OriginProvince,
			City:     r.OriginCity,
			District: r.OriginDistrict,
			Detail:   r.OriginDetail,
		},
	}
}
