package deposits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// Repository manages persistence for deposits. State changes go through
// UpdateStateIf only: the WHERE clause on the current state makes every
// transition a compare-and-set, so concurrent callbacks and multiple API
// replicas cannot double-apply one.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deposit *models.Deposit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	FindByCregisID(ctx context.Context, cregisID string) (*models.Deposit, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Deposit, error)
	UpdateStateIf(ctx context.Context, id uuid.UUID, from enums.DepositState, updates map[string]any) (bool, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.Deposit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deposits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deposit *models.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&deposit).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *repository) FindByCregisID(ctx context.Context, cregisID string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.WithContext(ctx).
		Where("cregis_id = ?", cregisID).
		First(&deposit).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&deposit).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

// UpdateStateIf applies updates only when the row is still in the expected
// state. Returns false when another writer got there first.
func (r *repository) UpdateStateIf(ctx context.Context, id uuid.UUID, from enums.DepositState, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.Deposit, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var deposits []models.Deposit
	if err := query.Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}
