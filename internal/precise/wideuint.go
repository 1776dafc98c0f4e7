// internal/precise/wideuint.go
package precise

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// WideUint is an immutable 256-bit unsigned integer. It backs PreciseNumber and
// never wraps: overflow, underflow and division by zero surface as errors.
type WideUint struct {
	v uint256.Int
}

// WideUint constants.
var (
	WideZero = WideUint{}
	WideOne  = WideFromUint64(1)
	WideMax  = WideUint{v: *new(uint256.Int).SetAllOne()}
)

// WideFromUint64 converts a native uint64.
func WideFromUint64(x uint64) WideUint {
	var w WideUint
	w.v.SetUint64(x)
	return w
}

// WideFromUint128 converts a 128-bit value.
func WideFromUint128(x uint128.Uint128) WideUint {
	var w WideUint
	w.v[0] = x.Lo
	w.v[1] = x.Hi
	return w
}

// WideFromBig converts a non-negative big.Int, failing when it needs more than 256 bits.
func WideFromBig(b *big.Int) (WideUint, error) {
	if b.Sign() < 0 {
		return WideZero, ErrNegative
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return WideZero, fmt.Errorf("%w: %s exceeds 256 bits", ErrOverflow, b.String())
	}
	return WideUint{v: *v}, nil
}

// WideFromDecimalString parses a base-10 integer.
func WideFromDecimalString(s string) (WideUint, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return WideZero, fmt.Errorf("%w: parse %q: %v", ErrConversion, s, err)
	}
	return WideUint{v: *v}, nil
}

// WideFromBytes32 decodes a big-endian 32-byte value.
func WideFromBytes32(b [32]byte) WideUint {
	var w WideUint
	w.v.SetBytes32(b[:])
	return w
}

// Bytes32 encodes the value as 32 big-endian bytes.
func (w WideUint) Bytes32() [32]byte {
	return w.v.Bytes32()
}

// Add returns w + o.
func (w WideUint) Add(o WideUint) (WideUint, error) {
	var r WideUint
	if _, overflow := r.v.AddOverflow(&w.v, &o.v); overflow {
		return WideZero, ErrOverflow
	}
	return r, nil
}

// Sub returns w - o.
func (w WideUint) Sub(o WideUint) (WideUint, error) {
	var r WideUint
	if _, underflow := r.v.SubOverflow(&w.v, &o.v); underflow {
		return WideZero, ErrUnderflow
	}
	return r, nil
}

// Mul returns w * o.
func (w WideUint) Mul(o WideUint) (WideUint, error) {
	var r WideUint
	if _, overflow := r.v.MulOverflow(&w.v, &o.v); overflow {
		return WideZero, ErrOverflow
	}
	return r, nil
}

// Div returns floor(w / o).
func (w WideUint) Div(o WideUint) (WideUint, error) {
	if o.IsZero() {
		return WideZero, ErrDivideByZero
	}
	var r WideUint
	r.v.Div(&w.v, &o.v)
	return r, nil
}

// Rem returns w mod o.
func (w WideUint) Rem(o WideUint) (WideUint, error) {
	if o.IsZero() {
		return WideZero, ErrDivideByZero
	}
	var r WideUint
	r.v.Mod(&w.v, &o.v)
	return r, nil
}

// MulDiv returns floor(w * m / d) using a 512-bit intermediate product, so it
// only fails when the final quotient does not fit.
func (w WideUint) MulDiv(m, d WideUint) (WideUint, error) {
	if d.IsZero() {
		return WideZero, ErrDivideByZero
	}
	var r WideUint
	if _, overflow := r.v.MulDivOverflow(&w.v, &m.v, &d.v); overflow {
		return WideZero, ErrOverflow
	}
	return r, nil
}

// Lsh shifts left, failing if any set bit falls off.
func (w WideUint) Lsh(n uint) (WideUint, error) {
	if w.IsZero() {
		return w, nil
	}
	if uint(w.v.BitLen())+n > 256 {
		return WideZero, ErrOverflow
	}
	var r WideUint
	r.v.Lsh(&w.v, n)
	return r, nil
}

// Rsh shifts right.
func (w WideUint) Rsh(n uint) WideUint {
	var r WideUint
	r.v.Rsh(&w.v, n)
	return r
}

// Cmp compares w and o and returns -1, 0 or +1.
func (w WideUint) Cmp(o WideUint) int {
	return w.v.Cmp(&o.v)
}

// Eq reports w == o.
func (w WideUint) Eq(o WideUint) bool { return w.v.Eq(&o.v) }

// Lt reports w < o.
func (w WideUint) Lt(o WideUint) bool { return w.v.Lt(&o.v) }

// Gt reports w > o.
func (w WideUint) Gt(o WideUint) bool { return w.v.Gt(&o.v) }

// IsZero reports w == 0.
func (w WideUint) IsZero() bool { return w.v.IsZero() }

// BitLen returns the number of significant bits.
func (w WideUint) BitLen() int { return w.v.BitLen() }

// Uint64 converts to uint64 exactly.
func (w WideUint) Uint64() (uint64, error) {
	if !w.v.IsUint64() {
		return 0, fmt.Errorf("%w: %s > max uint64", ErrConversion, w.String())
	}
	return w.v.Uint64(), nil
}

// Uint128 converts to a 128-bit value exactly.
func (w WideUint) Uint128() (uint128.Uint128, error) {
	if w.v[2] != 0 || w.v[3] != 0 {
		return uint128.Zero, fmt.Errorf("%w: %s > max uint128", ErrConversion, w.String())
	}
	return uint128.New(w.v[0], w.v[1]), nil
}

// Big returns a copy as big.Int.
func (w WideUint) Big() *big.Int {
	return w.v.ToBig()
}

// String renders the base-10 value.
func (w WideUint) String() string {
	return w.v.Dec()
}
