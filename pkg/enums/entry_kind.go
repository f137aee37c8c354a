package enums

import "fmt"

// EntryKind distinguishes money owed to the account from money it owes.
type EntryKind string

const (
	EntryKindRevenue EntryKind = "revenue"
	EntryKindExpense EntryKind = "expense"
)

var validEntryKinds = []EntryKind{
	EntryKindRevenue,
	EntryKindExpense,
}

// String implements fmt.Stringer.
func (k EntryKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EntryKind.
func (k EntryKind) IsValid() bool {
	for _, candidate := range validEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntryKind converts raw input into an EntryKind.
func ParseEntryKind(value string) (EntryKind, error) {
	for _, candidate := range validEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry kind %q", value)
}
