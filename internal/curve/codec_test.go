package curve

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvebond/internal/precise"
)

func TestDefinitionCodec(t *testing.T) {
	tests := []struct {
		name  string
		curve Definition
		size  int
	}{
		{"linear", NewLinear(precise.One, num(t, "0.0001")), 1 + 16 + 16},
		{"exponential", NewExponential(num(t, "0.5"), precise.One, 3, 2), 1 + 16 + 16 + 1 + 1},
		{"piecewise", stepCurve(t), 1 + 4 + 2*(16+1+16+16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bin.MarshalBorsh(&tt.curve)
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
			assert.Equal(t, byte(tt.curve.Kind), data[0])

			var got Definition
			require.NoError(t, bin.UnmarshalBorsh(&got, data))
			assert.Equal(t, tt.curve.String(), got.String())

			for _, s := range []uint64{0, 10, 150} {
				want, err := tt.curve.Price(whole(s))
				require.NoError(t, err)
				have, err := got.Price(whole(s))
				require.NoError(t, err)
				assert.True(t, want.Eq(have))
			}
		})
	}
}

func TestDefinitionCodec_Rejects(t *testing.T) {
	_, err := bin.MarshalBorsh(&Definition{Kind: Kind(7)})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	var d Definition
	err = bin.UnmarshalBorsh(&d, []byte{byte(KindPiecewise), 0xff, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	err = bin.UnmarshalBorsh(&d, []byte{byte(KindLinear), 1, 2})
	assert.Error(t, err)
}
