// internal/precise/signed.go
package precise

import "fmt"

// Signed is a Number with a sign. Curve inversions produce terms that are
// negative before they are combined; Signed lets them be added safely and
// coerced back with Unsigned once the result is known to be non-negative.
type Signed struct {
	value    Number
	negative bool
}

// SignedZero is the signed zero. Zero is never negative.
var SignedZero = Signed{}

// NewSigned builds a signed value, normalizing negative zero.
func NewSigned(v Number, negative bool) Signed {
	if v.IsZero() {
		negative = false
	}
	return Signed{value: v, negative: negative}
}

// Positive wraps a non-negative Number.
func Positive(v Number) Signed { return Signed{value: v} }

// Negative returns -v.
func Negative(v Number) Signed { return NewSigned(v, true) }

// Abs returns the magnitude.
func (s Signed) Abs() Number { return s.value }

// IsNegative reports s < 0.
func (s Signed) IsNegative() bool { return s.negative }

// IsZero reports s == 0.
func (s Signed) IsZero() bool { return s.value.IsZero() }

// Neg flips the sign.
func (s Signed) Neg() Signed { return NewSigned(s.value, !s.negative) }

// Cmp compares s and o.
func (s Signed) Cmp(o Signed) int {
	switch {
	case s.negative && !o.negative:
		return -1
	case !s.negative && o.negative:
		return 1
	case s.negative:
		return o.value.Cmp(s.value)
	default:
		return s.value.Cmp(o.value)
	}
}

// CheckedAdd returns s + o.
func (s Signed) CheckedAdd(o Signed) (Signed, error) {
	if s.negative == o.negative {
		v, err := s.value.CheckedAdd(o.value)
		if err != nil {
			return SignedZero, err
		}
		return NewSigned(v, s.negative), nil
	}
	// opposite signs: the larger magnitude wins the sign
	if s.value.Cmp(o.value) >= 0 {
		v, err := s.value.CheckedSub(o.value)
		if err != nil {
			return SignedZero, err
		}
		return NewSigned(v, s.negative), nil
	}
	v, err := o.value.CheckedSub(s.value)
	if err != nil {
		return SignedZero, err
	}
	return NewSigned(v, o.negative), nil
}

// CheckedSub returns s - o.
func (s Signed) CheckedSub(o Signed) (Signed, error) {
	return s.CheckedAdd(o.Neg())
}

// CheckedMul returns s * o.
func (s Signed) CheckedMul(o Signed) (Signed, error) {
	v, err := s.value.CheckedMul(o.value)
	if err != nil {
		return SignedZero, err
	}
	return NewSigned(v, s.negative != o.negative), nil
}

// CheckedDiv returns s / o.
func (s Signed) CheckedDiv(o Signed) (Signed, error) {
	v, err := s.value.CheckedDiv(o.value)
	if err != nil {
		return SignedZero, err
	}
	return NewSigned(v, s.negative != o.negative), nil
}

// Sqrt returns the square root; negative input fails with ErrInvalidSqrt.
func (s Signed) Sqrt() (Signed, error) {
	if s.negative {
		return SignedZero, fmt.Errorf("%w: %s", ErrInvalidSqrt, s)
	}
	v, err := s.value.Sqrt()
	if err != nil {
		return SignedZero, err
	}
	return Positive(v), nil
}

// Unsigned coerces back to a Number. A negative value is an internal
// consistency failure and is reported, never clamped.
func (s Signed) Unsigned() (Number, error) {
	if s.negative {
		return Zero, fmt.Errorf("%w: %s", ErrNegative, s)
	}
	return s.value, nil
}

func (s Signed) String() string {
	if s.negative {
		return "-" + s.value.String()
	}
	return s.value.String()
}
