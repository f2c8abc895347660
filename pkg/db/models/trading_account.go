package models

import (
	"time"

	"github.com/google/uuid"
)

// TradingAccount maps a CRM user to an MT5 login that receives credited funds.
type TradingAccount struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Login     int64     `gorm:"column:login;not null;uniqueIndex"`
	Platform  string    `gorm:"column:platform;type:text;not null;default:'mt5'"`
	Group     string    `gorm:"column:account_group;type:text;not null"`
	Leverage  int       `gorm:"column:leverage;not null;default:100"`
	Currency  string    `gorm:"column:currency;type:text;not null;default:'USD'"`
	IsDemo    bool      `gorm:"column:is_demo;not null;default:false"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
