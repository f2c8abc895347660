package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// Repository manages persistence for withdrawal requests. Status changes use
// the same conditional-update shape as deposits so a cancel racing a review
// cannot double-apply.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from enums.WithdrawalStatus, updates map[string]any) (bool, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.Withdrawal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&withdrawal).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from enums.WithdrawalStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int, before *time.Time) ([]models.Withdrawal, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var withdrawals []models.Withdrawal
	if err := query.Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}
