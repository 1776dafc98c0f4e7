// internal/curve/codec.go
package curve

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// Borsh layout:
//
//	kind u8
//	linear:      intercept u128, slope u128
//	exponential: c u128, b u128, pow u8, frac u8
//	piecewise:   len u32, then per piece start_supply u128, kind u8, formula
//
// Numbers are stored as their raw 12-decimal scaled value.

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (d Definition) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(d.Kind)); err != nil {
		return err
	}
	switch d.Kind {
	case KindLinear:
		return d.Linear.encode(enc)
	case KindExponential:
		return d.Exponential.encode(enc)
	case KindPiecewise:
		if len(d.Pieces) > MaxPieces {
			return fmt.Errorf("%w: %d pieces, max %d", ErrInvalidCurve, len(d.Pieces), MaxPieces)
		}
		if err := enc.WriteUint32(uint32(len(d.Pieces)), bin.LE); err != nil {
			return err
		}
		for i, p := range d.Pieces {
			if err := writeNumber(enc, p.StartSupply); err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
			if err := enc.WriteUint8(uint8(p.Kind)); err != nil {
				return err
			}
			var err error
			switch p.Kind {
			case KindLinear:
				err = p.Linear.encode(enc)
			case KindExponential:
				err = p.Exponential.encode(enc)
			default:
				err = fmt.Errorf("%w: piece kind %s", ErrInvalidCurve, p.Kind)
			}
			if err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, d.Kind)
	}
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (d *Definition) UnmarshalWithDecoder(dec *bin.Decoder) error {
	kind, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("read curve kind: %w", err)
	}
	*d = Definition{Kind: Kind(kind)}
	switch d.Kind {
	case KindLinear:
		return d.Linear.decode(dec)
	case KindExponential:
		return d.Exponential.decode(dec)
	case KindPiecewise:
		n, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return fmt.Errorf("read piece count: %w", err)
		}
		if n > MaxPieces {
			return fmt.Errorf("%w: %d pieces, max %d", ErrInvalidCurve, n, MaxPieces)
		}
		d.Pieces = make([]Piece, n)
		for i := range d.Pieces {
			p := &d.Pieces[i]
			if p.StartSupply, err = readNumber(dec); err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
			pk, err := dec.ReadUint8()
			if err != nil {
				return fmt.Errorf("piece %d kind: %w", i, err)
			}
			p.Kind = Kind(pk)
			switch p.Kind {
			case KindLinear:
				err = p.Linear.decode(dec)
			case KindExponential:
				err = p.Exponential.decode(dec)
			default:
				err = fmt.Errorf("%w: piece kind %s", ErrInvalidCurve, p.Kind)
			}
			if err != nil {
				return fmt.Errorf("piece %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidCurve, kind)
	}
}

func (l Linear) encode(enc *bin.Encoder) error {
	if err := writeNumber(enc, l.Intercept); err != nil {
		return fmt.Errorf("intercept: %w", err)
	}
	if err := writeNumber(enc, l.Slope); err != nil {
		return fmt.Errorf("slope: %w", err)
	}
	return nil
}

func (l *Linear) decode(dec *bin.Decoder) (err error) {
	if l.Intercept, err = readNumber(dec); err != nil {
		return fmt.Errorf("intercept: %w", err)
	}
	if l.Slope, err = readNumber(dec); err != nil {
		return fmt.Errorf("slope: %w", err)
	}
	return nil
}

func (e Exponential) encode(enc *bin.Encoder) error {
	if err := writeNumber(enc, e.C); err != nil {
		return fmt.Errorf("c: %w", err)
	}
	if err := writeNumber(enc, e.B); err != nil {
		return fmt.Errorf("b: %w", err)
	}
	if err := enc.WriteUint8(e.Pow); err != nil {
		return err
	}
	return enc.WriteUint8(e.Frac)
}

func (e *Exponential) decode(dec *bin.Decoder) (err error) {
	if e.C, err = readNumber(dec); err != nil {
		return fmt.Errorf("c: %w", err)
	}
	if e.B, err = readNumber(dec); err != nil {
		return fmt.Errorf("b: %w", err)
	}
	if e.Pow, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("pow: %w", err)
	}
	if e.Frac, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("frac: %w", err)
	}
	return nil
}

func writeNumber(enc *bin.Encoder, n precise.Number) error {
	u, err := n.Raw().Uint128()
	if err != nil {
		return err
	}
	return enc.WriteUint128(bin.Uint128{Lo: u.Lo, Hi: u.Hi}, bin.LE)
}

func readNumber(dec *bin.Decoder) (precise.Number, error) {
	u, err := dec.ReadUint128(bin.LE)
	if err != nil {
		return precise.Zero, err
	}
	return precise.FromRaw(precise.WideFromUint128(uint128.New(u.Lo, u.Hi))), nil
}
