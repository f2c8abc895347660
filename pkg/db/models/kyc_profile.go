package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// KYCProfile holds identity verification state for a user.
type KYCProfile struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Status         enums.KYCStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DocumentType   *string         `gorm:"column:document_type;type:text"`
	DocumentNumber *string         `gorm:"column:document_number;type:text"`
	DocumentURL    *string         `gorm:"column:document_url;type:text"`
	SubmittedAt    *time.Time      `gorm:"column:submitted_at"`
	ReviewedBy     *uuid.UUID      `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt     *time.Time      `gorm:"column:reviewed_at"`
	RejectReason   *string         `gorm:"column:reject_reason;type:text"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
