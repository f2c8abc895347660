package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
)

// Repository manages persistence for payout destinations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, method *models.PaymentMethod) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment methods repository bound to the provided
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

func (r *repository) Create(ctx context.Context, method *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PaymentMethod{}).Error
}
