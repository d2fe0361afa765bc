package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/domain"
	"github.com/Apurer/go-gin-checkout-server/internal/domains/accounts/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists accounts in PostgreSQL using GORM.
type Repository struct {
	db         *gorm.DB
	lockOnRead bool
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NewTxRepository binds the repository to an open transaction with locking reads.
func NewTxRepository(tx *gorm.DB) *Repository {
	return &Repository{db: tx, lockOnRead: true}
}

// Migrate creates or updates the accounts table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&accountRecord{})
}

type accountRecord struct {
	ID         int64           `gorm:"primaryKey;column:id"`
	Name       string          `gorm:"column:name"`
	Email      string          `gorm:"column:email"`
	Role       string          `gorm:"column:role"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(14,2);check:chk_accounts_balance,balance >= 0"`
	SalesCount int64           `gorm:"column:sales_count"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (accountRecord) TableName() string { return "accounts" }

func (r *Repository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errors.New("account is nil")
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(account)
	query := r.db.WithContext(ctx)
	if record.ID != 0 {
		query = query.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role", "balance", "sales_count", "updated_at"}),
		})
	}
	if err := query.Create(&record).Error; err != nil {
		return nil, err
	}
	return r.load(ctx, record.ID, false)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.load(ctx, id, r.lockOnRead)
}

func (r *Repository) List(ctx context.Context) ([]*domain.Account, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []accountRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(records))
	for i := range records {
		accounts = append(accounts, records[i].toDomain())
	}
	return accounts, nil
}

// Debit subtracts amount only from rows whose balance covers it.
func (r *Repository) Debit(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Account, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}
	result := r.db.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.load(ctx, id, false); err != nil {
			return nil, err
		}
		return nil, ports.ErrInsufficientFunds
	}
	return r.load(ctx, id, false)
}

func (r *Repository) Credit(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Account, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}
	result := r.db.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.load(ctx, id, false)
}

func (r *Repository) AddSales(ctx context.Context, id int64, delta int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sales_count": gorm.Expr("GREATEST(sales_count + ?, 0)", delta),
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) load(ctx context.Context, id int64, lock bool) (*domain.Account, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record accountRecord
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
		return errors.New("postgres account repository not configured")
	}
	return nil
}

func toRecord(a *domain.Account) accountRecord {
	return accountRecord{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Role:       string(a.Role),
		Balance:    a.Balance,
		SalesCount: a.SalesCount,
	}
}

func (r accountRecord) toDomain() *domain.Account {
	return &domain.Account{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Role:       domain.Role(r.Role),
		Balance:    r.Balance,
		SalesCount: r.SalesCount,
	}
}
