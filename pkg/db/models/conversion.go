package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/enums"
)

// Conversion is a single-shot USDT to USD exchange. A committed conversion is
// backed by ledger entries referencing its id: a USDT debit of UsdtAmount and,
// when UsdNet is positive, a USD credit of UsdNet.
type Conversion struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	UsdtAmount     decimal.Decimal        `gorm:"column:usdt_amount;type:numeric(24,8);not null" json:"usdt_amount"`
	FxRate         decimal.Decimal        `gorm:"column:fx_rate;type:numeric(16,8);not null" json:"fx_rate"`
	MarkupPct      decimal.Decimal        `gorm:"column:markup_pct;type:numeric(8,4);not null" json:"markup_pct"`
	FeeFixedUsd    decimal.Decimal        `gorm:"column:fee_fixed_usd;type:numeric(24,8);not null" json:"fee_fixed_usd"`
	FeePct         decimal.Decimal        `gorm:"column:fee_pct;type:numeric(8,4);not null" json:"fee_pct"`
	UsdGross       decimal.Decimal        `gorm:"column:usd_gross;type:numeric(24,8);not null" json:"usd_gross"`
	UsdAfterMarkup decimal.Decimal        `gorm:"column:usd_after_markup;type:numeric(24,8);not null" json:"usd_after_markup"`
	UsdNet         decimal.Decimal        `gorm:"column:usd_net;type:numeric(24,8);not null" json:"usd_net"`
	Status         enums.ConversionStatus `gorm:"column:status;type:conversion_status_enum;not null" json:"status"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the table name for GORM.
func (Conversion) TableName() string { return "conversions" }
