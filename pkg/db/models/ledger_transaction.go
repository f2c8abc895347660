package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// LedgerTransaction is the financial record mirrored from a deposit. The
// unique DepositID key makes creation idempotent, and CreditStatus is the
// at-most-once gate in front of the MT5 balance call.
type LedgerTransaction struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DepositID         uuid.UUID          `gorm:"column:deposit_id;type:uuid;not null;uniqueIndex"`
	UserID            uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	TradingAccountID  uuid.UUID          `gorm:"column:trading_account_id;type:uuid;not null"`
	Type              string             `gorm:"column:type;type:text;not null;default:'deposit'"`
	Status            enums.LedgerStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount            decimal.Decimal    `gorm:"column:amount;type:numeric(20,8);not null"`
	Currency          string             `gorm:"column:currency;type:text;not null"`
	CreditStatus      enums.CreditStatus `gorm:"column:credit_status;type:text;not null;default:'pending'"`
	CreditAttemptedAt *time.Time         `gorm:"column:credit_attempted_at"`
	CreditedAt        *time.Time         `gorm:"column:credited_at"`
	CreditedBy        *string            `gorm:"column:credited_by;type:text"`
	CreditedLogin     *int64             `gorm:"column:credited_login"`
	Comment           *string            `gorm:"column:comment;type:text"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
