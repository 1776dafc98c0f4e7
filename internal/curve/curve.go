// =============================
// File: internal/curve/curve.go
// =============================
package curve

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// Kind tags the formula a Definition (or a Piece) evaluates.
type Kind uint8

const (
	KindLinear Kind = iota
	KindExponential
	KindPiecewise
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindExponential:
		return "exponential"
	case KindPiecewise:
		return "piecewise"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MaxPieces bounds the number of segments in a piecewise curve.
const MaxPieces = 16

// ContinuityTolerance is the largest spot-price jump, in whole reserve units,
// that a curve replacement may introduce at the current supply.
var ContinuityTolerance = precise.FromRawUint64(1_000) // 1e-9

// Linear is price(s) = Intercept + Slope*s.
type Linear struct {
	Intercept precise.Number
	Slope     precise.Number
}

// Exponential is price(s) = C * s^(Pow/Frac) + B.
type Exponential struct {
	C    precise.Number
	B    precise.Number
	Pow  uint8
	Frac uint8
}

// Piece is one segment of a piecewise curve. It applies from StartSupply up to
// the next piece's StartSupply and evaluates its formula at the absolute supply.
type Piece struct {
	StartSupply precise.Number
	Kind        Kind // KindLinear or KindExponential
	Linear      Linear
	Exponential Exponential
}

// Definition is an immutable pricing formula. Kind selects which of the
// remaining fields is meaningful. Supply and price are in whole units.
type Definition struct {
	Kind        Kind
	Linear      Linear
	Exponential Exponential
	Pieces      []Piece
}

// NewLinear builds a linear curve.
func NewLinear(intercept, slope precise.Number) Definition {
	return Definition{Kind: KindLinear, Linear: Linear{Intercept: intercept, Slope: slope}}
}

// NewExponential builds c * s^(pow/frac) + b.
func NewExponential(c, b precise.Number, pow, frac uint8) Definition {
	return Definition{Kind: KindExponential, Exponential: Exponential{C: c, B: b, Pow: pow, Frac: frac}}
}

// NewPiecewise builds a piecewise curve from pieces ordered by start supply.
func NewPiecewise(pieces ...Piece) Definition {
	return Definition{Kind: KindPiecewise, Pieces: append([]Piece(nil), pieces...)}
}

// LinearPiece is a linear segment starting at start.
func LinearPiece(start, intercept, slope precise.Number) Piece {
	return Piece{StartSupply: start, Kind: KindLinear, Linear: Linear{Intercept: intercept, Slope: slope}}
}

// ExponentialPiece is an exponential segment starting at start.
func ExponentialPiece(start, c, b precise.Number, pow, frac uint8) Piece {
	return Piece{StartSupply: start, Kind: KindExponential, Exponential: Exponential{C: c, B: b, Pow: pow, Frac: frac}}
}

// Price returns the spot price at supply.
func (d Definition) Price(supply precise.Number) (precise.Number, error) {
	switch d.Kind {
	case KindLinear:
		return d.Linear.price(supply)
	case KindExponential:
		return d.Exponential.price(supply)
	case KindPiecewise:
		return piecewisePrice(d.Pieces, supply)
	default:
		return precise.Zero, fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, d.Kind)
	}
}

// Cost returns the reserve needed to move supply from `from` to `to`, i.e. the
// definite integral of Price over [from, to]. It is evaluated in closed form.
func (d Definition) Cost(from, to precise.Number) (precise.Number, error) {
	if from.Gt(to) {
		return precise.Zero, fmt.Errorf("%w: from %s > to %s", ErrInvalidRange, from, to)
	}
	if from.Eq(to) {
		return precise.Zero, nil
	}
	switch d.Kind {
	case KindLinear:
		return d.Linear.cost(from, to)
	case KindExponential:
		return d.Exponential.cost(from, to)
	case KindPiecewise:
		return piecewiseCost(d.Pieces, from, to)
	default:
		return precise.Zero, fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, d.Kind)
	}
}

func (d Definition) String() string {
	switch d.Kind {
	case KindLinear:
		return d.Linear.String()
	case KindExponential:
		return d.Exponential.String()
	case KindPiecewise:
		parts := make([]string, 0, len(d.Pieces))
		for _, p := range d.Pieces {
			parts = append(parts, fmt.Sprintf("[%s..) %s", p.StartSupply, p.formulaString()))
		}
		return "piecewise{" + strings.Join(parts, "; ") + "}"
	default:
		return d.Kind.String()
	}
}

func (l Linear) String() string {
	return fmt.Sprintf("linear(%s + %s*s)", l.Intercept, l.Slope)
}

func (e Exponential) String() string {
	return fmt.Sprintf("exponential(%s*s^(%d/%d) + %s)", e.C, e.Pow, e.Frac, e.B)
}

func (p Piece) price(supply precise.Number) (precise.Number, error) {
	switch p.Kind {
	case KindLinear:
		return p.Linear.price(supply)
	case KindExponential:
		return p.Exponential.price(supply)
	default:
		return precise.Zero, fmt.Errorf("%w: piece kind %s", ErrInvalidCurve, p.Kind)
	}
}

func (p Piece) cost(from, to precise.Number) (precise.Number, error) {
	switch p.Kind {
	case KindLinear:
		return p.Linear.cost(from, to)
	case KindExponential:
		return p.Exponential.cost(from, to)
	default:
		return precise.Zero, fmt.Errorf("%w: piece kind %s", ErrInvalidCurve, p.Kind)
	}
}

func (p Piece) formulaString() string {
	if p.Kind == KindExponential {
		return p.Exponential.String()
	}
	return p.Linear.String()
}
