// internal/precise/roots.go
package precise

import (
	"fmt"
	"math"
	"math/big"
)

// maxRootIterations bounds every Newton iteration in this package.
const maxRootIterations = 100

var scaleBig = big.NewInt(1_000_000_000_000)

// Sqrt returns the truncated square root of n.
func (n Number) Sqrt() (Number, error) {
	return n.NthRoot(2)
}

// NthRoot returns n^(1/degree) truncated to Decimals digits.
//
// The root is taken over the raw scaled integer,
// floor((raw * 10^(12*(degree-1)))^(1/degree)), so inputs down to one unit of
// least precision keep their full precision.
func (n Number) NthRoot(degree uint8) (Number, error) {
	if degree == 0 {
		return Zero, ErrInvalidRoot
	}
	if degree == 1 || n.IsZero() {
		return n, nil
	}
	return n.PowFrac(1, degree)
}

// PowFrac returns n^(num/den) truncated to Decimals digits. With
// raw = n * 10^12 the result is floor((raw^num * 10^(12*(den-num)))^(1/den));
// when num > den the scale factor divides instead, which does not change the
// floor of the root.
func (n Number) PowFrac(num, den uint8) (Number, error) {
	if den == 0 {
		return Zero, ErrInvalidRoot
	}
	if num == 0 {
		return One, nil
	}
	if n.IsZero() {
		return Zero, nil
	}
	g := gcd(num, den)
	num, den = num/g, den/g

	radicand := new(big.Int).Exp(n.value.Big(), big.NewInt(int64(num)), nil)
	switch {
	case den > num:
		radicand.Mul(radicand, new(big.Int).Exp(scaleBig, big.NewInt(int64(den-num)), nil))
	case num > den:
		radicand.Quo(radicand, new(big.Int).Exp(scaleBig, big.NewInt(int64(num-den)), nil))
	}

	root, err := intRoot(radicand, den)
	if err != nil {
		return Zero, err
	}
	raw, err := WideFromBig(root)
	if err != nil {
		return Zero, err
	}
	return Number{value: raw}, nil
}

// intRoot returns floor(x^(1/degree)) by integer Newton iteration from an
// estimate above the root. Iterates decrease until they stop moving.
func intRoot(x *big.Int, degree uint8) (*big.Int, error) {
	if x.Sign() == 0 {
		return new(big.Int), nil
	}
	if degree == 1 {
		return new(big.Int).Set(x), nil
	}

	d := big.NewInt(int64(degree))
	dMinus1 := big.NewInt(int64(degree - 1))
	guess := rootEstimate(x, degree)

	for i := 0; i < maxRootIterations; i++ {
		gp := new(big.Int).Exp(guess, dMinus1, nil)
		next := new(big.Int).Quo(x, gp)
		next.Add(next, new(big.Int).Mul(guess, dMinus1))
		next.Quo(next, d)
		if next.Cmp(guess) >= 0 {
			return settleRoot(x, guess, d), nil
		}
		guess = next
	}
	return nil, fmt.Errorf("%w: degree %d after %d iterations", ErrNoConvergence, degree, maxRootIterations)
}

// rootEstimate returns a value slightly above x^(1/degree), taken from the
// float64 logarithm of the leading 64 bits of x.
func rootEstimate(x *big.Int, degree uint8) *big.Int {
	shift := 0
	if bl := x.BitLen(); bl > 64 {
		shift = bl - 64
	}
	top := new(big.Int).Rsh(x, uint(shift)).Uint64()
	e := (math.Log2(float64(top)) + float64(shift)) / float64(degree)

	whole := math.Floor(e)
	mant := uint64(math.Exp2(e-whole) * (1 << 52))
	est := new(big.Int).SetUint64(mant)
	if k := int(whole) - 52; k >= 0 {
		est.Lsh(est, uint(k))
	} else {
		est.Rsh(est, uint(-k))
	}
	// float error is far below 2^-20 relative
	est.Add(est, new(big.Int).Rsh(est, 20))
	return est.Add(est, big.NewInt(1))
}

// settleRoot nudges r onto floor(x^(1/d)).
func settleRoot(x, r, d *big.Int) *big.Int {
	r = new(big.Int).Set(r)
	one := big.NewInt(1)
	for r.Sign() > 0 && new(big.Int).Exp(r, d, nil).Cmp(x) > 0 {
		r.Sub(r, one)
	}
	for {
		up := new(big.Int).Add(r, one)
		if new(big.Int).Exp(up, d, nil).Cmp(x) > 0 {
			return r
		}
		r = up
	}
}

func gcd(a, b uint8) uint8 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
