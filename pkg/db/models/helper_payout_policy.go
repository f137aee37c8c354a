package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

// HelperPayoutPolicy describes how a helper's cut is computed from a job
// price: an absolute amount when fixed, percentage points when percentage.
type HelperPayoutPolicy struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID        `gorm:"column:account_id;type:uuid;not null;index"`
	HelperID  uuid.UUID        `gorm:"column:helper_id;type:uuid;not null;uniqueIndex:idx_helper_payout_policies_helper_id"`
	Mode      enums.PayoutMode `gorm:"column:mode;type:payout_mode;not null"`
	Value     decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
