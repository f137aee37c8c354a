package enums

import "fmt"

// PaymentMethod describes how a customer settled an invoice.
type PaymentMethod string

const (
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodACH     PaymentMethod = "ach"
	PaymentMethodCashApp PaymentMethod = "cash_app"
	PaymentMethodZelle   PaymentMethod = "zelle"
	PaymentMethodVenmo   PaymentMethod = "venmo"
	PaymentMethodCash    PaymentMethod = "cash"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodACH,
	PaymentMethodCashApp,
	PaymentMethodZelle,
	PaymentMethodVenmo,
	PaymentMethodCash,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsWallet reports whether the method is a peer-to-peer wallet app.
func (p PaymentMethod) IsWallet() bool {
	switch p {
	case PaymentMethodCashApp, PaymentMethodZelle, PaymentMethodVenmo:
		return true
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
