package curve

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// maxBracketDoublings bounds the search for an upper bracket in bisect.
const maxBracketDoublings = 128

// TargetForReserve returns the largest supply increase d such that
// Cost(supply, supply+d) <= budget.
//
// Linear curves and exponential curves without an offset are inverted in
// closed form; everything else bisects on Cost. Closed-form results are
// re-checked against Cost and fall back to bisection when they overshoot.
func (d Definition) TargetForReserve(supply, budget precise.Number) (precise.Number, error) {
	if budget.IsZero() {
		return precise.Zero, nil
	}

	var (
		estimate precise.Number
		err      error
	)
	switch d.Kind {
	case KindLinear:
		estimate, err = d.Linear.targetForReserve(supply, budget)
	case KindExponential:
		if !d.Exponential.B.IsZero() {
			return d.bisect(supply, budget, precise.Zero)
		}
		estimate, err = d.Exponential.targetForReserve(supply, budget)
	case KindPiecewise:
		return d.bisect(supply, budget, precise.Zero)
	default:
		return precise.Zero, fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, d.Kind)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidCurve) {
			return precise.Zero, err
		}
		return d.bisect(supply, budget, precise.Zero)
	}

	end, err := supply.CheckedAdd(estimate)
	if err != nil {
		return d.bisect(supply, budget, estimate)
	}
	cost, err := d.Cost(supply, end)
	if err != nil || cost.Gt(budget) {
		return d.bisect(supply, budget, estimate)
	}
	return estimate, nil
}

// targetForReserve solves m/2*x² + p*x = B for x, p = a + m*s, in the
// cancellation-free form x = 2B / (p + sqrt(p² + 2mB)).
func (l Linear) targetForReserve(supply, budget precise.Number) (precise.Number, error) {
	p, err := l.price(supply)
	if err != nil {
		return precise.Zero, err
	}
	if l.Slope.IsZero() {
		if p.IsZero() {
			return precise.Zero, fmt.Errorf("%w: zero price", ErrInvalidCurve)
		}
		return budget.CheckedDiv(p)
	}

	pp, err := p.CheckedMul(p)
	if err != nil {
		return precise.Zero, err
	}
	mb, err := l.Slope.CheckedMul(budget)
	if err != nil {
		return precise.Zero, err
	}
	mb2, err := mb.CheckedMul(precise.Two)
	if err != nil {
		return precise.Zero, err
	}
	disc, err := pp.CheckedAdd(mb2)
	if err != nil {
		return precise.Zero, err
	}
	root, err := disc.Sqrt()
	if err != nil {
		return precise.Zero, err
	}
	den, err := p.CheckedAdd(root)
	if err != nil {
		return precise.Zero, err
	}
	num, err := budget.CheckedMul(precise.Two)
	if err != nil {
		return precise.Zero, err
	}
	return num.CheckedDiv(den)
}

// targetForReserve inverts c/(1+k) * ((s+x)^(1+k) - s^(1+k)) = B when b == 0:
// s+x = (B*(1+k)/c + s^(1+k))^(1/(1+k)).
func (e Exponential) targetForReserve(supply, budget precise.Number) (precise.Number, error) {
	n, err := e.exponent()
	if err != nil {
		return precise.Zero, err
	}
	if e.C.IsZero() {
		return precise.Zero, fmt.Errorf("%w: zero price", ErrInvalidCurve)
	}
	base, err := supply.PowFrac(n, e.Frac)
	if err != nil {
		return precise.Zero, err
	}
	scaled, err := budget.CheckedMul(precise.MustNumber(uint64(n)))
	if err != nil {
		return precise.Zero, err
	}
	if scaled, err = scaled.CheckedDiv(precise.MustNumber(uint64(e.Frac))); err != nil {
		return precise.Zero, err
	}
	if scaled, err = scaled.CheckedDiv(e.C); err != nil {
		return precise.Zero, err
	}
	x, err := scaled.CheckedAdd(base)
	if err != nil {
		return precise.Zero, err
	}
	end, err := x.PowFrac(e.Frac, n)
	if err != nil {
		return precise.Zero, err
	}
	delta, err := precise.Positive(end).CheckedSub(precise.Positive(supply))
	if err != nil {
		return precise.Zero, err
	}
	return delta.Unsigned()
}

// bisect finds the largest x with Cost(supply, supply+x) <= budget to one unit
// of least precision. A non-zero hint is used as the upper bracket.
func (d Definition) bisect(supply, budget, hint precise.Number) (precise.Number, error) {
	fits := func(x precise.Number) (bool, error) {
		end, err := supply.CheckedAdd(x)
		if err != nil {
			if errors.Is(err, precise.ErrOverflow) {
				return false, nil
			}
			return false, err
		}
		c, err := d.Cost(supply, end)
		if err != nil {
			if errors.Is(err, precise.ErrOverflow) {
				return false, nil
			}
			return false, err
		}
		return !c.Gt(budget), nil
	}

	lo := precise.Zero.Raw()
	hi := hint.Raw()
	if hint.IsZero() {
		hi = precise.One.Raw()
		for i := 0; ; i++ {
			if i == maxBracketDoublings {
				return precise.Zero, fmt.Errorf("bracket target for budget %s: %w", budget, precise.ErrNoConvergence)
			}
			ok, err := fits(precise.FromRaw(hi))
			if err != nil {
				return precise.Zero, err
			}
			if !ok {
				break
			}
			lo = hi
			next, err := hi.Lsh(1)
			if err != nil {
				// the whole representable range is affordable
				return precise.FromRaw(hi), nil
			}
			hi = next
		}
	}

	for {
		gap, _ := hi.Sub(lo)
		if !gap.Gt(precise.WideOne) {
			break
		}
		mid, err := lo.Add(gap.Rsh(1))
		if err != nil {
			return precise.Zero, err
		}
		ok, err := fits(precise.FromRaw(mid))
		if err != nil {
			return precise.Zero, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return precise.FromRaw(lo), nil
}
