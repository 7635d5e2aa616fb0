package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoiClaim is one payout of a position's accrued ROI. Claims recur over a
// position's life, so each gets its own row for the ledger credit to
// reference under the replay guard.
type RoiClaim struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PositionID uuid.UUID       `gorm:"column:position_id;type:uuid;not null;index" json:"position_id"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	AmountUsd  decimal.Decimal `gorm:"column:amount_usd;type:numeric(24,8);not null" json:"amount_usd"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (RoiClaim) TableName() string { return "roi_claims" }

// PositionUpgrade is one principal top-up on an active position, referenced
// by the ledger debit it produced.
type PositionUpgrade struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PositionID uuid.UUID       `gorm:"column:position_id;type:uuid;not null;index" json:"position_id"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	AmountUsd  decimal.Decimal `gorm:"column:amount_usd;type:numeric(24,8);not null" json:"amount_usd"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (PositionUpgrade) TableName() string { return "position_upgrades" }
