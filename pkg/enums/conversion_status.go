package enums

// ConversionStatus maps to the conversion_status_enum enum in Postgres.
// Conversions are single-shot so a committed row is always completed; failed
// exists for rows persisted by compensation tooling.
type ConversionStatus string

const (
	ConversionStatusCompleted ConversionStatus = "completed"
	ConversionStatusFailed    ConversionStatus = "failed"
)

// IsValid reports whether the conversion status is recognized.
func (s ConversionStatus) IsValid() bool {
	return s == ConversionStatusCompleted || s == ConversionStatusFailed
}
