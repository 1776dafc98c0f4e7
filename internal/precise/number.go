// internal/precise/number.go
package precise

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the number of fractional digits carried by a PreciseNumber.
const Decimals = 12

var (
	oneWide  = WideFromUint64(1_000_000_000_000)
	halfWide = WideFromUint64(500_000_000_000)
)

// Number is an unsigned fixed-point decimal with Decimals fractional digits.
//
// Rounding rule: every operation truncates toward zero. Callers that need
// a different direction use Floor/Ceiling (or the ToUint64 helpers) explicitly.
type Number struct {
	value WideUint
}

// Well-known values.
var (
	Zero = Number{}
	One  = Number{value: oneWide}
	Two  = Number{value: WideFromUint64(2_000_000_000_000)}
	// Epsilon is one unit of least precision.
	Epsilon = Number{value: WideOne}
)

// NewNumber converts a whole integer.
func NewNumber(whole uint64) (Number, error) {
	v, err := WideFromUint64(whole).Mul(oneWide)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// MustNumber is NewNumber for inputs known to fit (all uint64 values do).
func MustNumber(whole uint64) Number {
	n, err := NewNumber(whole)
	if err != nil {
		panic(err)
	}
	return n
}

// FromRaw wraps an already-scaled value.
func FromRaw(raw WideUint) Number {
	return Number{value: raw}
}

// FromRawUint64 wraps an already-scaled uint64.
func FromRawUint64(raw uint64) Number {
	return Number{value: WideFromUint64(raw)}
}

// FromFraction returns num / den.
func FromFraction(num, den uint64) (Number, error) {
	return MustNumber(num).CheckedDiv(MustNumber(den))
}

// FromScaled interprets amount as an integer with the given number of decimals,
// e.g. FromScaled(1_500_000, 6) == 1.5. Digits beyond Decimals are truncated.
func FromScaled(amount uint64, decimals uint8) (Number, error) {
	a := WideFromUint64(amount)
	if decimals <= Decimals {
		p, err := pow10(Decimals - decimals)
		if err != nil {
			return Zero, err
		}
		v, err := a.Mul(p)
		if err != nil {
			return Zero, err
		}
		return Number{value: v}, nil
	}
	p, err := pow10(decimals - Decimals)
	if err != nil {
		return Zero, err
	}
	v, err := a.Div(p)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// ParseNumber parses a plain decimal string such as "1.0001". Extra fractional
// digits are truncated.
func ParseNumber(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty number", ErrConversion)
	}
	if strings.HasPrefix(s, "-") {
		return Zero, fmt.Errorf("%w: %q", ErrNegative, s)
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Decimals {
		fracPart = fracPart[:Decimals]
	}
	fracPart += strings.Repeat("0", Decimals-len(fracPart))
	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		return Zero, nil
	}
	raw, err := WideFromDecimalString(digits)
	if err != nil {
		return Zero, err
	}
	return Number{value: raw}, nil
}

// Raw returns the scaled representation.
func (n Number) Raw() WideUint { return n.value }

// IsZero reports n == 0.
func (n Number) IsZero() bool { return n.value.IsZero() }

// Cmp compares n and o.
func (n Number) Cmp(o Number) int { return n.value.Cmp(o.value) }

// Eq reports n == o.
func (n Number) Eq(o Number) bool { return n.value.Eq(o.value) }

// Lt reports n < o.
func (n Number) Lt(o Number) bool { return n.value.Lt(o.value) }

// Gt reports n > o.
func (n Number) Gt(o Number) bool { return n.value.Gt(o.value) }

// CheckedAdd returns n + o.
func (n Number) CheckedAdd(o Number) (Number, error) {
	v, err := n.value.Add(o.value)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// CheckedSub returns n - o, failing with ErrUnderflow if o > n.
func (n Number) CheckedSub(o Number) (Number, error) {
	v, err := n.value.Sub(o.value)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// CheckedMul returns n * o truncated to Decimals.
func (n Number) CheckedMul(o Number) (Number, error) {
	v, err := n.value.MulDiv(o.value, oneWide)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// CheckedDiv returns n / o truncated to Decimals.
func (n Number) CheckedDiv(o Number) (Number, error) {
	if o.IsZero() {
		return Zero, ErrDivideByZero
	}
	v, err := n.value.MulDiv(oneWide, o.value)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// AbsDiff returns |n - o|.
func (n Number) AbsDiff(o Number) Number {
	if n.Lt(o) {
		n, o = o, n
	}
	v, _ := n.value.Sub(o.value)
	return Number{value: v}
}

// AlmostEqual reports |n - o| <= tolerance.
func (n Number) AlmostEqual(o, tolerance Number) bool {
	return !n.AbsDiff(o).Gt(tolerance)
}

// Floor drops the fractional part.
func (n Number) Floor() Number {
	rem, _ := n.value.Rem(oneWide)
	v, _ := n.value.Sub(rem)
	return Number{value: v}
}

// Ceiling rounds up to the next whole value.
func (n Number) Ceiling() (Number, error) {
	rem, _ := n.value.Rem(oneWide)
	if rem.IsZero() {
		return n, nil
	}
	v, _ := n.value.Sub(rem)
	v, err := v.Add(oneWide)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}, nil
}

// Round rounds half up to the nearest whole value.
func (n Number) Round() (Number, error) {
	v, err := n.value.Add(halfWide)
	if err != nil {
		return Zero, err
	}
	return Number{value: v}.Floor(), nil
}

// Pow raises n to an integer exponent by repeated squaring. Each
// multiplication truncates.
func (n Number) Pow(exp uint64) (Number, error) {
	result := One
	base := n
	for exp > 0 {
		if exp&1 == 1 {
			var err error
			if result, err = result.CheckedMul(base); err != nil {
				return Zero, fmt.Errorf("pow: %w", err)
			}
		}
		exp >>= 1
		if exp > 0 {
			var err error
			if base, err = base.CheckedMul(base); err != nil {
				return Zero, fmt.Errorf("pow: %w", err)
			}
		}
	}
	return result, nil
}

// ToUint64Floor converts to an integer rounding down.
func (n Number) ToUint64Floor() (uint64, error) {
	v, err := n.value.Div(oneWide)
	if err != nil {
		return 0, err
	}
	return v.Uint64()
}

// ToUint64Ceiling converts to an integer rounding up.
func (n Number) ToUint64Ceiling() (uint64, error) {
	c, err := n.Ceiling()
	if err != nil {
		return 0, err
	}
	return c.ToUint64Floor()
}

// ToScaledFloor converts to an integer amount with the given decimals,
// rounding down. It is the inverse of FromScaled.
func (n Number) ToScaledFloor(decimals uint8) (uint64, error) {
	v, err := n.toScaled(decimals, false)
	if err != nil {
		return 0, err
	}
	return v.Uint64()
}

// ToScaledCeiling converts to an integer amount with the given decimals,
// rounding up.
func (n Number) ToScaledCeiling(decimals uint8) (uint64, error) {
	v, err := n.toScaled(decimals, true)
	if err != nil {
		return 0, err
	}
	return v.Uint64()
}

func (n Number) toScaled(decimals uint8, up bool) (WideUint, error) {
	if decimals >= Decimals {
		p, err := pow10(decimals - Decimals)
		if err != nil {
			return WideZero, err
		}
		return n.value.Mul(p)
	}
	div, err := pow10(Decimals - decimals)
	if err != nil {
		return WideZero, err
	}
	q, err := n.value.Div(div)
	if err != nil {
		return WideZero, err
	}
	if up {
		if r, _ := n.value.Rem(div); !r.IsZero() {
			return q.Add(WideOne)
		}
	}
	return q, nil
}

// Float64 is a lossy conversion used for root initial guesses and display.
func (n Number) Float64() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(n.value.Big()), new(big.Float).SetInt(oneWide.Big())).Float64()
	return f
}

// String renders the value with all Decimals fractional digits trimmed of
// trailing zeros.
func (n Number) String() string {
	digits := n.value.String()
	if len(digits) <= Decimals {
		digits = strings.Repeat("0", Decimals-len(digits)+1) + digits
	}
	intPart := digits[:len(digits)-Decimals]
	frac := strings.TrimRight(digits[len(digits)-Decimals:], "0")
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

// pow10 returns 10^exp; 10^77 is the largest power that fits.
func pow10(exp uint8) (WideUint, error) {
	r := WideOne
	ten := WideFromUint64(10)
	for i := uint8(0); i < exp; i++ {
		var err error
		if r, err = r.Mul(ten); err != nil {
			return WideZero, fmt.Errorf("pow10(%d): %w", exp, err)
		}
	}
	return r, nil
}
