// internal/scenario/build.go
package scenario

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// keyFor derives a stable address from a label so that repeated runs of a
// scenario produce the same accounts.
func keyFor(label string) solana.PublicKey {
	sum := sha256.Sum256([]byte("curvebond/scenario/" + label))
	return solana.PublicKeyFromBytes(sum[:])
}

// parseAmount converts a decimal string of whole units to base units.
// Empty means zero.
func parseAmount(s string, decimals uint8) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows u64", s)
	}
	return bi.Uint64(), nil
}

func parseOptionalAmount(s string, decimals uint8) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseAmount(s, decimals)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// formatAmount renders base units as whole units.
func formatAmount(v uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals)).String()
}

func number(s string) (precise.Number, error) {
	if s == "" {
		return precise.Zero, nil
	}
	return precise.ParseNumber(s)
}

func buildCurve(spec CurveSpec) (curve.Definition, error) {
	switch spec.Kind {
	case "linear":
		base, slope, err := pair(spec.Base, spec.Slope)
		if err != nil {
			return curve.Definition{}, err
		}
		return curve.NewLinear(base, slope), nil
	case "exponential":
		c, b, err := pair(spec.C, spec.B)
		if err != nil {
			return curve.Definition{}, err
		}
		return curve.NewExponential(c, b, spec.Pow, spec.Frac), nil
	case "piecewise":
		pieces := make([]curve.Piece, 0, len(spec.Pieces))
		for i, ps := range spec.Pieces {
			p, err := buildPiece(ps)
			if err != nil {
				return curve.Definition{}, fmt.Errorf("piece %d: %w", i, err)
			}
			pieces = append(pieces, p)
		}
		return curve.NewPiecewise(pieces...), nil
	default:
		return curve.Definition{}, fmt.Errorf("unknown curve kind %q", spec.Kind)
	}
}

func buildPiece(ps PieceSpec) (curve.Piece, error) {
	from, err := number(ps.From)
	if err != nil {
		return curve.Piece{}, err
	}
	switch ps.Kind {
	case "linear":
		base, slope, err := pair(ps.Base, ps.Slope)
		if err != nil {
			return curve.Piece{}, err
		}
		return curve.LinearPiece(from, base, slope), nil
	case "exponential":
		c, b, err := pair(ps.C, ps.B)
		if err != nil {
			return curve.Piece{}, err
		}
		return curve.ExponentialPiece(from, c, b, ps.Pow, ps.Frac), nil
	default:
		return curve.Piece{}, fmt.Errorf("unknown piece kind %q", ps.Kind)
	}
}

func pair(a, b string) (precise.Number, precise.Number, error) {
	x, err := number(a)
	if err != nil {
		return precise.Zero, precise.Zero, err
	}
	y, err := number(b)
	if err != nil {
		return precise.Zero, precise.Zero, err
	}
	return x, y, nil
}
