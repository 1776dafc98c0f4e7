package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// price = a + m*s
func (l Linear) price(s precise.Number) (precise.Number, error) {
	ms, err := l.Slope.CheckedMul(s)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear price: %w", err)
	}
	p, err := l.Intercept.CheckedAdd(ms)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear price: %w", err)
	}
	return p, nil
}

// cost = a*(t-f) + m*(t²-f²)/2, with t²-f² taken as (t-f)(t+f).
func (l Linear) cost(f, t precise.Number) (precise.Number, error) {
	dt, err := t.CheckedSub(f)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	sum, err := t.CheckedAdd(f)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	sq, err := dt.CheckedMul(sum)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	area, err := sq.CheckedMul(l.Slope)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	area, err = area.CheckedDiv(precise.Two)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	base, err := l.Intercept.CheckedMul(dt)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	total, err := base.CheckedAdd(area)
	if err != nil {
		return precise.Zero, fmt.Errorf("linear cost: %w", err)
	}
	return total, nil
}

// exponent returns pow+frac, the numerator of 1+k over frac.
func (e Exponential) exponent() (uint8, error) {
	if e.Frac == 0 {
		return 0, fmt.Errorf("%w: exponential frac is zero", ErrInvalidCurve)
	}
	n := uint16(e.Pow) + uint16(e.Frac)
	if n > 255 {
		return 0, fmt.Errorf("%w: exponent %d/%d too large", ErrInvalidCurve, e.Pow, e.Frac)
	}
	return uint8(n), nil
}

// price = c * s^(pow/frac) + b
func (e Exponential) price(s precise.Number) (precise.Number, error) {
	if e.Frac == 0 {
		return precise.Zero, fmt.Errorf("%w: exponential frac is zero", ErrInvalidCurve)
	}
	sk, err := s.PowFrac(e.Pow, e.Frac)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential price: %w", err)
	}
	p, err := e.C.CheckedMul(sk)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential price: %w", err)
	}
	p, err = p.CheckedAdd(e.B)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential price: %w", err)
	}
	return p, nil
}

// cost = c/(1+k) * (t^(1+k) - f^(1+k)) + b*(t-f), k = pow/frac.
func (e Exponential) cost(f, t precise.Number) (precise.Number, error) {
	n, err := e.exponent()
	if err != nil {
		return precise.Zero, err
	}
	hi, err := t.PowFrac(n, e.Frac)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	lo, err := f.PowFrac(n, e.Frac)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	// root truncation can reorder nearly equal powers; that is a hard failure
	delta, err := precise.Positive(hi).CheckedSub(precise.Positive(lo))
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	diff, err := delta.Unsigned()
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}

	area, err := e.C.CheckedMul(diff)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	area, err = area.CheckedMul(precise.MustNumber(uint64(e.Frac)))
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	area, err = area.CheckedDiv(precise.MustNumber(uint64(n)))
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}

	dt, err := t.CheckedSub(f)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	flat, err := e.B.CheckedMul(dt)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	total, err := area.CheckedAdd(flat)
	if err != nil {
		return precise.Zero, fmt.Errorf("exponential cost: %w", err)
	}
	return total, nil
}

// pieceIndex returns the last piece whose start is <= supply.
func pieceIndex(pieces []Piece, supply precise.Number) (int, error) {
	idx := -1
	for i, p := range pieces {
		if p.StartSupply.Gt(supply) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: no piece covers supply %s", ErrInvalidCurve, supply)
	}
	return idx, nil
}

func piecewisePrice(pieces []Piece, supply precise.Number) (precise.Number, error) {
	idx, err := pieceIndex(pieces, supply)
	if err != nil {
		return precise.Zero, err
	}
	return pieces[idx].price(supply)
}

// piecewiseCost sums each piece's closed form over its clipped sub-range.
func piecewiseCost(pieces []Piece, from, to precise.Number) (precise.Number, error) {
	if len(pieces) == 0 || !pieces[0].StartSupply.IsZero() {
		return precise.Zero, fmt.Errorf("%w: piecewise curve must start at zero", ErrInvalidCurve)
	}
	total := precise.Zero
	for i, p := range pieces {
		lo := p.StartSupply
		if from.Gt(lo) {
			lo = from
		}
		hi := to
		if i+1 < len(pieces) && pieces[i+1].StartSupply.Lt(hi) {
			hi = pieces[i+1].StartSupply
		}
		if !lo.Lt(hi) {
			continue
		}
		c, err := p.cost(lo, hi)
		if err != nil {
			return precise.Zero, fmt.Errorf("piece %d: %w", i, err)
		}
		if total, err = total.CheckedAdd(c); err != nil {
			return precise.Zero, fmt.Errorf("piecewise cost: %w", err)
		}
	}
	return total, nil
}
