package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// PaymentMethod is a payout destination saved by a client, reviewed by staff
// before it can be used on a withdrawal.
type PaymentMethod struct {
	ID           uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Status       enums.PaymentMethodStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Kind         string                    `gorm:"column:kind;type:text;not null;default:'crypto'"`
	Currency     string                    `gorm:"column:currency;type:text;not null"`
	Chain        *string                   `gorm:"column:chain;type:text"`
	Address      string                    `gorm:"column:address;type:text;not null"`
	Label        *string                   `gorm:"column:label;type:text"`
	ReviewedBy   *uuid.UUID                `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt   *time.Time                `gorm:"column:reviewed_at"`
	RejectReason *string                   `gorm:"column:reject_reason;type:text"`
	CreatedAt    time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
