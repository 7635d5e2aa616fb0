package enums

import "fmt"

// LedgerReason maps to the ledger_reason_enum enum in Postgres and attributes
// every balance change to the operation that produced it.
type LedgerReason string

const (
	LedgerReasonDeposit         LedgerReason = "deposit"
	LedgerReasonWithdrawal      LedgerReason = "withdrawal"
	LedgerReasonConversion      LedgerReason = "conversion"
	LedgerReasonRoiClaim        LedgerReason = "roi_claim"
	LedgerReasonPositionOpen    LedgerReason = "position_open"
	LedgerReasonPositionUpgrade LedgerReason = "position_upgrade"
)

var validLedgerReasons = []LedgerReason{
	LedgerReasonDeposit,
	LedgerReasonWithdrawal,
	LedgerReasonConversion,
	LedgerReasonRoiClaim,
	LedgerReasonPositionOpen,
	LedgerReasonPositionUpgrade,
}

// IsValid reports whether the value matches the canonical ledger reason enum.
func (r LedgerReason) IsValid() bool {
	for _, candidate := range validLedgerReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseLedgerReason converts raw input into LedgerReason.
func ParseLedgerReason(value string) (LedgerReason, error) {
	for _, candidate := range validLedgerReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger reason %q", value)
}
