package fees

import (
	"github.com/shopspring/decimal"

	"github.com/moralesdev/fieldbill-backend/pkg/db/models"
	"github.com/moralesdev/fieldbill-backend/pkg/enums"
	pkgerrors "github.com/moralesdev/fieldbill-backend/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultCapPoints bounds a payout at 100% of the job price.
	DefaultCapPoints = decimal.NewFromInt(100)
)

// Compute returns the helper payout owed for a job price under the given
// policy, rounded half-up to cents and floored at zero.
//
// The result depends only on (price, policy); settlement retries may re-run
// it and expect the identical fee.
func Compute(price decimal.Decimal, policy models.HelperPayoutPolicy) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) {
		// Callers validate prices upstream; this is a defensive floor.
		return decimal.Zero
	}

	var fee decimal.Decimal
	switch policy.Mode {
	case enums.PayoutModePercentage:
		fee = price.Mul(policy.Value).Div(hundred)
	case enums.PayoutModeFixed:
		fee = policy.Value
	default:
		return decimal.Zero
	}

	if fee.IsNegative() {
		return decimal.Zero
	}
	// Round is half away from zero, which is half-up for non-negative fees.
	return fee.Round(2)
}

// Validate checks a computed fee against the job price and the percentage cap.
// Business violations come back as coded validation errors; Validate never
// panics.
func Validate(fee, price, capPoints decimal.Decimal) error {
	if capPoints.LessThanOrEqual(decimal.Zero) {
		capPoints = DefaultCapPoints
	}
	if fee.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "fee must not be negative").
			WithDetails(map[string]string{"fee": fee.String()})
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive").
			WithDetails(map[string]string{"price": price.String()})
	}
	points := fee.Div(price).Mul(hundred)
	if points.GreaterThan(capPoints) {
		return pkgerrors.New(pkgerrors.CodeValidation, "fee exceeds payout cap").
			WithDetails(map[string]string{
				"fee_points": points.Round(2).String(),
				"cap_points": capPoints.String(),
			})
	}
	return nil
}

// FromCents converts a stored minor-unit amount to its decimal form.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

// ToCents converts a decimal amount to minor units, rounding half-up.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
