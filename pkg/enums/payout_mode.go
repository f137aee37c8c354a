package enums

import "fmt"

// PayoutMode selects how a helper's payout is derived from a job price.
type PayoutMode string

const (
	PayoutModeFixed      PayoutMode = "fixed"
	PayoutModePercentage PayoutMode = "percentage"
)

var validPayoutModes = []PayoutMode{
	PayoutModeFixed,
	PayoutModePercentage,
}

// String implements fmt.Stringer.
func (m PayoutMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PayoutMode.
func (m PayoutMode) IsValid() bool {
	for _, candidate := range validPayoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMode converts raw input into a PayoutMode.
func ParsePayoutMode(value string) (PayoutMode, error) {
	for _, candidate := range validPayoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout mode %q", value)
}
