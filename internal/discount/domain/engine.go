package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IsValid reports whether d applies at now. Both window bounds are inclusive.
func IsValid(d *Discount, now time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	return !now.Before(d.ValidFrom) && !now.After(d.ValidTo)
}

// ComputeFinalPrice applies d to base. A nil discount leaves the price unchanged.
// The discount never takes the price below zero; Applied is the clamped amount.
func ComputeFinalPrice(base decimal.Decimal, d *Discount) (PriceBreakdown, error) {
	if !base.IsPositive() {
		return PriceBreakdown{}, ErrInvalidBasePrice
	}
	if d == nil {
		return PriceBreakdown{Original: base, Final: base, Applied: decimal.Zero}, nil
	}

	var amount decimal.Decimal
	switch d.DiscountType {
	case Percentage:
		// decimal.Round rounds half away from zero, which is half-up for positive amounts.
		amount = base.Mul(d.Value).Div(hundred).Round(2)
	case FixedAmount:
		amount = d.Value
	default:
		return PriceBreakdown{}, ErrInvalidDiscountType
	}

	final := base.Sub(amount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return PriceBreakdown{
		Original: base,
		Final:    final,
		Applied:  base.Sub(final),
	}, nil
}

// ValidateTerms checks the type, value and window of a discount before it is written.
func ValidateTerms(discountType DiscountType, value decimal.Decimal, validFrom, validTo time.Time) error {
	switch discountType {
	case Percentage, FixedAmount:
	default:
		return ErrInvalidDiscountType
	}
	if !value.IsPositive() {
		return ErrInvalidValue
	}
	if !value.Equal(value.Round(2)) {
		return ErrInvalidValuePrecision
	}
	if discountType == Percentage && value.GreaterThan(hundred) {
		return ErrInvalidPercentage
	}
	if validFrom.IsZero() || validTo.IsZero() || !validTo.After(validFrom) {
		return ErrInvalidWindow
	}
	return nil
}
