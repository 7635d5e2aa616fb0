package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// LedgerEntry records an immutable, signed balance change for a user and
// currency. Credits are positive, debits negative. Rows are never updated or
// deleted; effects are undone by appending an offsetting entry with
// Reversal set.
//
// The unique index over (ref_table, ref_id, reason, reversal, currency)
// guarantees that a replayed decision cannot append the same entry twice,
// while still admitting a conversion's debit and credit legs under one ref.
type LedgerEntry struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index:idx_ledger_user_currency" json:"user_id"`
	Currency  enums.Currency     `gorm:"column:currency;type:currency_enum;not null;index:idx_ledger_user_currency;uniqueIndex:uq_ledger_ref_once" json:"currency"`
	Amount    decimal.Decimal    `gorm:"column:amount;type:numeric(24,8);not null" json:"amount"`
	Reason    enums.LedgerReason `gorm:"column:reason;type:ledger_reason_enum;not null;uniqueIndex:uq_ledger_ref_once" json:"reason"`
	RefTable  string             `gorm:"column:ref_table;not null;uniqueIndex:uq_ledger_ref_once" json:"ref_table"`
	RefID     uuid.UUID          `gorm:"column:ref_id;type:uuid;not null;uniqueIndex:uq_ledger_ref_once" json:"ref_id"`
	Reversal  bool               `gorm:"column:reversal;not null;default:false;uniqueIndex:uq_ledger_ref_once" json:"reversal"`
	Meta      json.RawMessage    `gorm:"column:meta;type:jsonb" json:"meta,omitempty"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (LedgerEntry) TableName() string { return "ledger_entries" }
