package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Withdrawal is a user-created payout request. Funds are reserved at creation
// time: a debit of amount + fee_amount hits the ledger in the same transaction
// as the insert, so a pending withdrawal can never be double-spent.
type Withdrawal struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Currency        enums.Currency         `gorm:"column:currency;type:currency_enum;not null" json:"currency"`
	Amount          decimal.Decimal        `gorm:"column:amount;type:numeric(24,8);not null" json:"amount"`
	FeeAmount       decimal.Decimal        `gorm:"column:fee_amount;type:numeric(24,8);not null" json:"fee_amount"`
	Method          string                 `gorm:"column:method;not null" json:"method"`
	MethodID        uuid.UUID              `gorm:"column:method_id;type:uuid;not null" json:"method_id"`
	Status          enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status_enum;not null;default:'pending'" json:"status"`
	DecidedAt       *time.Time             `gorm:"column:decided_at" json:"decided_at,omitempty"`
	DecidedBy       *uuid.UUID             `gorm:"column:decided_by;type:uuid" json:"decided_by,omitempty"`
	RejectionReason *string                `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName pins the table name for GORM.
func (Withdrawal) TableName() string { return "withdrawals" }

// WithdrawalMethod is a payout destination owned by a single user. The fee
// percentage applied to withdrawals lives on the method.
type WithdrawalMethod struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Method    string          `gorm:"column:method;not null" json:"method"`
	Label     string          `gorm:"column:label;not null" json:"label"`
	Details   json.RawMessage `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	FeePct    decimal.Decimal `gorm:"column:fee_pct;type:numeric(8,4);not null" json:"fee_pct"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (WithdrawalMethod) TableName() string { return "withdrawal_methods" }
