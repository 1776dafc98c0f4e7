package precise

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigned_Arithmetic(t *testing.T) {
	three := Positive(MustNumber(3))
	five := Positive(MustNumber(5))

	tests := []struct {
		name string
		op   func() (Signed, error)
		want string
	}{
		{"neg plus pos", func() (Signed, error) { return three.Neg().CheckedAdd(five) }, "2"},
		{"pos minus larger", func() (Signed, error) { return three.CheckedSub(five) }, "-2"},
		{"neg minus pos", func() (Signed, error) { return three.Neg().CheckedSub(five) }, "-8"},
		{"neg times neg", func() (Signed, error) { return three.Neg().CheckedMul(five.Neg()) }, "15"},
		{"neg div pos", func() (Signed, error) { return mustSigned(t, "-7.5").CheckedDiv(three) }, "-2.5"},
		{"cancel to zero", func() (Signed, error) { return three.CheckedSub(three) }, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSigned_ZeroIsNeverNegative(t *testing.T) {
	z := NewSigned(Zero, true)
	assert.False(t, z.IsNegative())
	assert.Equal(t, 0, z.Cmp(SignedZero))

	diff, err := Positive(One).CheckedSub(Positive(One))
	require.NoError(t, err)
	assert.False(t, diff.IsNegative())
}

func TestSigned_Coercion(t *testing.T) {
	v, err := Positive(Two).Unsigned()
	require.NoError(t, err)
	assert.True(t, v.Eq(Two))

	_, err = Negative(Two).Unsigned()
	assert.ErrorIs(t, err, ErrNegative)

	_, err = Negative(MustNumber(4)).Sqrt()
	assert.ErrorIs(t, err, ErrInvalidSqrt)

	r, err := Positive(MustNumber(9)).Sqrt()
	require.NoError(t, err)
	assert.Equal(t, "3", r.String())
}

func TestSigned_Cmp(t *testing.T) {
	assert.Equal(t, -1, Negative(One).Cmp(Positive(One)))
	assert.Equal(t, 1, Negative(One).Cmp(Negative(Two)))
	assert.Equal(t, -1, Positive(One).Cmp(Positive(Two)))
}

func mustSigned(t *testing.T, s string) Signed {
	t.Helper()
	v, err := SignedFromDecimal(decimal.RequireFromString(s))
	require.NoError(t, err)
	return v
}
