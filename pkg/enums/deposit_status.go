package enums

import "fmt"

// DepositStatus maps to the deposit_status_enum enum in Postgres.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
)

var validDepositStatuses = []DepositStatus{
	DepositStatusPending,
	DepositStatusConfirmed,
	DepositStatusRejected,
}

// IsValid reports whether the status is part of the deposit lifecycle.
func (s DepositStatus) IsValid() bool {
	for _, candidate := range validDepositStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the deposit can no longer change state.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusConfirmed || s == DepositStatusRejected
}

// ParseDepositStatus converts raw input into DepositStatus.
func ParseDepositStatus(value string) (DepositStatus, error) {
	for _, candidate := range validDepositStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit status %q", value)
}
