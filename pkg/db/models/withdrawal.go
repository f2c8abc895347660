package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// Withdrawal is a client request to move funds off a trading account.
type Withdrawal struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	TradingAccountID uuid.UUID              `gorm:"column:trading_account_id;type:uuid;not null"`
	PaymentMethodID  uuid.UUID              `gorm:"column:payment_method_id;type:uuid;not null"`
	Status           enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:numeric(20,8);not null"`
	Currency         string                 `gorm:"column:currency;type:text;not null;default:'USD'"`
	ReviewedBy       *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt       *time.Time             `gorm:"column:reviewed_at"`
	RejectReason     *string                `gorm:"column:reject_reason;type:text"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
