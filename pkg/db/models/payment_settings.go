package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

// PaymentSettings is one enabled settlement method for an account, with the
// public handle shown to paying customers (wallet username, transfer email).
// Owned by the account CRUD surface; the settlement engine reads it only.
type PaymentSettings struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID           `gorm:"column:account_id;type:uuid;not null;index;uniqueIndex:idx_payment_settings_account_method,priority:1"`
	Method    enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;uniqueIndex:idx_payment_settings_account_method,priority:2"`
	Handle    *string             `gorm:"column:handle"`
	Enabled   bool                `gorm:"column:enabled;not null;default:true"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
