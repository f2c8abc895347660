package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
)

// Repository manages persistence for trading accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.TradingAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error)
	FindByLogin(ctx context.Context, login int64) (*models.TradingAccount, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.TradingAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a trading account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.TradingAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error) {
	var account models.TradingAccount
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByLogin(ctx context.Context, login int64) (*models.TradingAccount, error) {
	var account models.TradingAccount
	if err := r.db.WithContext(ctx).
		Where("login = ?", login).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.TradingAccount, error) {
	var list []models.TradingAccount
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
