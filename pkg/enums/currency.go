package enums

import "fmt"

// Currency represents the denominations the wallet ledger supports.
type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyUSDT,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// Currencies returns every supported currency.
func Currencies() []Currency {
	out := make([]Currency, len(validCurrencies))
	copy(out, validCurrencies)
	return out
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
