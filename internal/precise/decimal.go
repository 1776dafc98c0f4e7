// internal/precise/decimal.go
package precise

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromDecimal converts a shopspring decimal, truncating digits past Decimals.
func FromDecimal(d decimal.Decimal) (Number, error) {
	if d.IsNegative() {
		return Zero, fmt.Errorf("%w: %s", ErrNegative, d.String())
	}
	raw, err := WideFromBig(d.Shift(Decimals).Truncate(0).BigInt())
	if err != nil {
		return Zero, err
	}
	return Number{value: raw}, nil
}

// Decimal converts to a shopspring decimal without loss.
func (n Number) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(n.value.Big(), -Decimals)
}

// Decimal converts to a shopspring decimal without loss.
func (s Signed) Decimal() decimal.Decimal {
	d := s.value.Decimal()
	if s.negative {
		return d.Neg()
	}
	return d
}

// SignedFromDecimal converts a shopspring decimal of either sign.
func SignedFromDecimal(d decimal.Decimal) (Signed, error) {
	n, err := FromDecimal(d.Abs())
	if err != nil {
		return SignedZero, err
	}
	return NewSigned(n, d.IsNegative()), nil
}
