package enums

import "fmt"

// PositionStatus maps to the position_status_enum enum in Postgres.
type PositionStatus string

const (
	PositionStatusActive  PositionStatus = "active"
	PositionStatusMatured PositionStatus = "matured"
	PositionStatusMerged  PositionStatus = "merged"
)

var validPositionStatuses = []PositionStatus{
	PositionStatusActive,
	PositionStatusMatured,
	PositionStatusMerged,
}

// IsValid reports whether the status is part of the position lifecycle.
func (s PositionStatus) IsValid() bool {
	for _, candidate := range validPositionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePositionStatus converts raw input into PositionStatus.
func ParsePositionStatus(value string) (PositionStatus, error) {
	for _, candidate := range validPositionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid position status %q", value)
}
