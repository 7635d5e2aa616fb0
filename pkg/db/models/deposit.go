package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Deposit is a user-created funding request. It carries no ledger effect until
// a privileged actor confirms it; terminal-state fields are written exactly
// once by the decision engine.
type Deposit struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Method         string          `gorm:"column:method;not null" json:"method"`
	Currency       enums.Currency  `gorm:"column:currency;type:currency_enum;not null" json:"currency"`
	ExpectedAmount decimal.Decimal `gorm:"column:expected_amount;type:numeric(24,8);not null" json:"expected_amount"`
	// UniqueAmount disambiguates on-chain payments that share a deposit address.
	UniqueAmount    *decimal.Decimal    `gorm:"column:unique_amount;type:numeric(24,8)" json:"unique_amount,omitempty"`
	Status          enums.DepositStatus `gorm:"column:status;type:deposit_status_enum;not null;default:'pending'" json:"status"`
	ActualAmount    *decimal.Decimal    `gorm:"column:actual_amount;type:numeric(24,8)" json:"actual_amount,omitempty"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	RejectedAt      *time.Time          `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	ConfirmedBy     *uuid.UUID          `gorm:"column:confirmed_by;type:uuid" json:"confirmed_by,omitempty"`
	RejectedBy      *uuid.UUID          `gorm:"column:rejected_by;type:uuid" json:"rejected_by,omitempty"`
	RejectionReason *string             `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName pins the table name for GORM.
func (Deposit) TableName() string { return "deposits" }
