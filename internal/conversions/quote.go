package conversions

import (
	"github.com/shopspring/decimal"

	"github.com/vantagefund/wallet-engine/pkg/config"
)

var oneHundred = decimal.NewFromInt(100)

// Quote is the deterministic outcome of the conversion formula for a given
// USDT amount and fee schedule. The same numbers are persisted on the
// conversion row so a committed conversion can always be re-derived.
type Quote struct {
	UsdtAmount     decimal.Decimal `json:"usdt_amount"`
	FxRate         decimal.Decimal `json:"fx_rate"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
	FeeFixedUsd    decimal.Decimal `json:"fee_fixed_usd"`
	FeePct         decimal.Decimal `json:"fee_pct"`
	UsdGross       decimal.Decimal `json:"usd_gross"`
	UsdAfterMarkup decimal.Decimal `json:"usd_after_markup"`
	FeeTotalUsd    decimal.Decimal `json:"fee_total_usd"`
	UsdNet         decimal.Decimal `json:"usd_net"`
}

// ComputeQuote applies the conversion formula:
//
//	usd_gross        = usdt_amount * fx_rate
//	usd_after_markup = usd_gross * (1 - markup_pct/100)
//	fee              = fee_fixed_usd + fee_pct/100 * usd_after_markup
//	usd_net          = max(0, usd_after_markup - fee)
//
// UsdGross is the raw fx product; fees and the net payout derive from the
// post-markup figure.
func ComputeQuote(usdtAmount decimal.Decimal, schedule config.ConversionConfig) Quote {
	gross := usdtAmount.Mul(schedule.FxRate)
	afterMarkup := gross.Mul(decimal.NewFromInt(1).Sub(schedule.MarkupPct.Div(oneHundred)))
	fee := schedule.FeeFixedUsd.Add(schedule.FeePct.Div(oneHundred).Mul(afterMarkup))
	net := afterMarkup.Sub(fee)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Quote{
		UsdtAmount:     usdtAmount,
		FxRate:         schedule.FxRate,
		MarkupPct:      schedule.MarkupPct,
		FeeFixedUsd:    schedule.FeeFixedUsd,
		FeePct:         schedule.FeePct,
		UsdGross:       gross,
		UsdAfterMarkup: afterMarkup,
		FeeTotalUsd:    fee,
		UsdNet:         net,
	}
}
