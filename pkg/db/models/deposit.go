package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/enums"
)

// Deposit is the payment record driving the gateway reconciliation flow.
// CregisID and OrderID are the two lookup keys a callback may carry; state
// transitions are applied only through conditional updates keyed on the
// current state.
type Deposit struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	TradingAccountID uuid.UUID          `gorm:"column:trading_account_id;type:uuid;not null;index"`
	OrderID          string             `gorm:"column:order_id;type:text;not null;uniqueIndex"`
	CregisID         *string            `gorm:"column:cregis_id;type:text;uniqueIndex"`
	State            enums.DepositState `gorm:"column:state;type:text;not null;default:'pending'"`
	Amount           decimal.Decimal    `gorm:"column:amount;type:numeric(20,8);not null"`
	Currency         string             `gorm:"column:currency;type:text;not null;default:'USD'"`
	PaidAmount       *decimal.Decimal   `gorm:"column:paid_amount;type:numeric(20,8)"`
	PaidCurrency     *string            `gorm:"column:paid_currency;type:text"`
	Chain            *string            `gorm:"column:chain;type:text"`
	TxHash           *string            `gorm:"column:tx_hash;type:text"`
	FromAddress      *string            `gorm:"column:from_address;type:text"`
	ToAddress        *string            `gorm:"column:to_address;type:text"`
	GatewayStatus    *string            `gorm:"column:gateway_status;type:text"`
	CheckoutURL      *string            `gorm:"column:checkout_url;type:text"`
	DepositAddress   *string            `gorm:"column:deposit_address;type:text"`
	ExpiresAt        *time.Time         `gorm:"column:expires_at"`
	ApprovedAt       *time.Time         `gorm:"column:approved_at"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	RejectedAt       *time.Time         `gorm:"column:rejected_at"`
	RejectReason     *string            `gorm:"column:reject_reason;type:text"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
