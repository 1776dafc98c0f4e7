package curve

import "fmt"

// Validate checks that the definition is well formed: coefficients present,
// exponents representable, pieces sorted from zero and the price never
// stepping down at a piece boundary. Slopes and coefficients are unsigned, so
// linear and exponential formulas are non-decreasing by construction.
func (d Definition) Validate() error {
	switch d.Kind {
	case KindLinear:
		return d.Linear.validate()
	case KindExponential:
		return d.Exponential.validate()
	case KindPiecewise:
		return validatePieces(d.Pieces)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, d.Kind)
	}
}

func (l Linear) validate() error {
	if l.Intercept.IsZero() && l.Slope.IsZero() {
		return fmt.Errorf("%w: linear price is zero everywhere", ErrInvalidCurve)
	}
	return nil
}

func (e Exponential) validate() error {
	if _, err := e.exponent(); err != nil {
		return err
	}
	if e.C.IsZero() && e.B.IsZero() {
		return fmt.Errorf("%w: exponential price is zero everywhere", ErrInvalidCurve)
	}
	return nil
}

func validatePieces(pieces []Piece) error {
	if len(pieces) == 0 {
		return fmt.Errorf("%w: piecewise curve has no pieces", ErrInvalidCurve)
	}
	if len(pieces) > MaxPieces {
		return fmt.Errorf("%w: %d pieces, max %d", ErrInvalidCurve, len(pieces), MaxPieces)
	}
	if !pieces[0].StartSupply.IsZero() {
		return fmt.Errorf("%w: first piece starts at %s, want 0", ErrInvalidCurve, pieces[0].StartSupply)
	}

	for i, p := range pieces {
		switch p.Kind {
		case KindLinear:
			if err := p.Linear.validate(); err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
		case KindExponential:
			if err := p.Exponential.validate(); err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
		default:
			return fmt.Errorf("%w: piece %d has kind %s", ErrInvalidCurve, i, p.Kind)
		}
		if i == 0 {
			continue
		}

		prev := pieces[i-1]
		if !prev.StartSupply.Lt(p.StartSupply) {
			return fmt.Errorf("%w: piece %d starts at %s, not after %s", ErrInvalidCurve, i, p.StartSupply, prev.StartSupply)
		}
		left, err := prev.price(p.StartSupply)
		if err != nil {
			return fmt.Errorf("piece %d boundary: %w", i, err)
		}
		right, err := p.price(p.StartSupply)
		if err != nil {
			return fmt.Errorf("piece %d boundary: %w", i, err)
		}
		if right.Lt(left) {
			return fmt.Errorf("%w: price drops from %s to %s at supply %s", ErrInvalidCurve, left, right, p.StartSupply)
		}
	}
	return nil
}
