package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Position is an investment holding assigned to a tier. AccruedRoiUsd only
// grows through the accrual process and only returns to zero through a claim
// that credits the ledger by the same amount.
type Position struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	TierID        uuid.UUID            `gorm:"column:tier_id;type:uuid;not null" json:"tier_id"`
	PrincipalUsd  decimal.Decimal      `gorm:"column:principal_usd;type:numeric(24,8);not null" json:"principal_usd"`
	StartedAt     time.Time            `gorm:"column:started_at;not null" json:"started_at"`
	MaturesAt     time.Time            `gorm:"column:matures_at;not null" json:"matures_at"`
	LastAccruedAt time.Time            `gorm:"column:last_accrued_at;not null" json:"last_accrued_at"`
	AccruedRoiUsd decimal.Decimal      `gorm:"column:accrued_roi_usd;type:numeric(24,8);not null;default:0" json:"accrued_roi_usd"`
	Status        enums.PositionStatus `gorm:"column:status;type:position_status_enum;not null;default:'active'" json:"status"`
	// MergedIntoID back-references the position created by a merge.
	MergedIntoID *uuid.UUID `gorm:"column:merged_into_id;type:uuid" json:"merged_into_id,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName pins the table name for GORM.
func (Position) TableName() string { return "positions" }

// Tier is read-only reference data describing a principal band, its daily ROI
// rate and maturity period.
type Tier struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TierName     string          `gorm:"column:tier_name;not null;uniqueIndex" json:"tier_name"`
	MinAmountUsd decimal.Decimal `gorm:"column:min_amount_usd;type:numeric(24,8);not null" json:"min_amount_usd"`
	MaxAmountUsd decimal.Decimal `gorm:"column:max_amount_usd;type:numeric(24,8);not null" json:"max_amount_usd"`
	DailyRoiPct  decimal.Decimal `gorm:"column:daily_roi_pct;type:numeric(8,4);not null" json:"daily_roi_pct"`
	MaturityDays int             `gorm:"column:maturity_days;not null" json:"maturity_days"`
	Allocation   string          `gorm:"column:allocation" json:"allocation,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (Tier) TableName() string { return "tiers" }
