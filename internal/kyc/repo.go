package kyc

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
)

// Repository manages persistence for KYC profiles. One profile per user,
// enforced by the unique user_id key.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, profile *models.KYCProfile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a KYC repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, profile *models.KYCProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "document_type", "document_number", "document_url",
				"submitted_at", "reject_reason", "updated_at",
			}),
		}).
		Create(profile).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCProfile, error) {
	var profile models.KYCProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
