package precise

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Number {
	t.Helper()
	n, err := ParseNumber(s)
	require.NoError(t, err)
	return n
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		raw  uint64
		text string
	}{
		{"0", 0, "0"},
		{"1", 1_000_000_000_000, "1"},
		{"1.0001", 1_000_100_000_000, "1.0001"},
		{"0.000000000001", 1, "0.000000000001"},
		{"0.0000000000019", 1, "0.000000000001"},
		{".5", 500_000_000_000, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := mustParse(t, tt.in)
			assert.True(t, n.Raw().Eq(WideFromUint64(tt.raw)), "raw %s", n.Raw())
			assert.Equal(t, tt.text, n.String())
		})
	}

	_, err := ParseNumber("-1")
	assert.ErrorIs(t, err, ErrNegative)
	_, err = ParseNumber("abc")
	assert.Error(t, err)
}

func TestNumber_Arithmetic(t *testing.T) {
	a := mustParse(t, "1.5")
	b := MustNumber(2)

	sum, err := a.CheckedAdd(b)
	require.NoError(t, err)
	assert.Equal(t, "3.5", sum.String())

	_, err = a.CheckedSub(b)
	assert.ErrorIs(t, err, ErrUnderflow)

	prod, err := a.CheckedMul(b)
	require.NoError(t, err)
	assert.Equal(t, "3", prod.String())

	third, err := One.CheckedDiv(MustNumber(3))
	require.NoError(t, err)
	assert.Equal(t, "0.333333333333", third.String(), "division truncates")

	_, err = One.CheckedDiv(Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)

	cube, err := a.Pow(3)
	require.NoError(t, err)
	assert.Equal(t, "3.375", cube.String())

	p, err := Two.Pow(10)
	require.NoError(t, err)
	assert.True(t, p.Eq(MustNumber(1024)))

	one, err := MustNumber(17).Pow(0)
	require.NoError(t, err)
	assert.True(t, one.Eq(One))

	_, err = MustNumber(1_000_000_000_000_000_000).Pow(5)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestNumber_Rounding(t *testing.T) {
	n := mustParse(t, "2.5")
	assert.Equal(t, "2", n.Floor().String())

	c, err := n.Ceiling()
	require.NoError(t, err)
	assert.Equal(t, "3", c.String())

	r, err := n.Round()
	require.NoError(t, err)
	assert.Equal(t, "3", r.String())

	whole := MustNumber(4)
	c, err = whole.Ceiling()
	require.NoError(t, err)
	assert.True(t, c.Eq(whole))

	f, err := n.ToUint64Floor()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f)

	up, err := n.ToUint64Ceiling()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), up)

	amt := mustParse(t, "1.0000001")
	lo, err := amt.ToScaledFloor(6)
	require.NoError(t, err)
	hi, err := amt.ToScaledCeiling(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), lo)
	assert.Equal(t, uint64(1_000_001), hi)

	scaled, err := FromScaled(1_500_000, 6)
	require.NoError(t, err)
	assert.Equal(t, "1.5", scaled.String())

	tiny, err := FromScaled(1, 18)
	require.NoError(t, err)
	assert.True(t, tiny.IsZero(), "digits beyond precision are truncated")
}

func TestNumber_AddSubRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := FromRawUint64(rng.Uint64())
		b := FromRawUint64(rng.Uint64())
		sum, err := a.CheckedAdd(b)
		require.NoError(t, err)
		back, err := sum.CheckedSub(b)
		require.NoError(t, err)
		assert.True(t, back.AlmostEqual(a, Epsilon), "a=%s b=%s back=%s", a, b, back)
	}
}

func TestNumber_Sqrt(t *testing.T) {
	four, err := MustNumber(4).Sqrt()
	require.NoError(t, err)
	assert.True(t, four.Eq(Two))

	two, err := Two.Sqrt()
	require.NoError(t, err)
	assert.InDelta(t, 1.414213562373, two.Float64(), 1e-11)

	zero, err := Zero.Sqrt()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		x := FromRawUint64(rng.Uint64())
		root, err := x.Sqrt()
		require.NoError(t, err)
		sq, err := root.CheckedMul(root)
		require.NoError(t, err)
		xf := x.Float64()
		assert.InDelta(t, xf, sq.Float64(), xf*1e-9+1e-9, "x=%s root=%s", x, root)
	}
}

func TestNumber_NthRootAndPowFrac(t *testing.T) {
	cbrt, err := MustNumber(8).NthRoot(3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, cbrt.Float64(), 1e-11)

	_, err = MustNumber(8).NthRoot(0)
	assert.ErrorIs(t, err, ErrInvalidRoot)

	// 4^(3/2) = 8
	p, err := MustNumber(4).PowFrac(3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, p.Float64(), 1e-10)

	// 6/4 reduces to 3/2
	q, err := MustNumber(4).PowFrac(6, 4)
	require.NoError(t, err)
	assert.True(t, q.Eq(p))

	unit, err := MustNumber(99).PowFrac(0, 3)
	require.NoError(t, err)
	assert.True(t, unit.Eq(One))
}

func TestNumber_Decimal(t *testing.T) {
	d := decimal.RequireFromString("1234.567890123456789")
	n, err := FromDecimal(d)
	require.NoError(t, err)
	assert.Equal(t, "1234.567890123456", n.String())
	assert.True(t, n.Decimal().Equal(decimal.RequireFromString("1234.567890123456")))

	_, err = FromDecimal(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegative)
}

func TestNumber_NthRootSmallInputs(t *testing.T) {
	// 10^(-12/7)
	r, err := Epsilon.NthRoot(7)
	require.NoError(t, err)
	assert.InDelta(t, 0.019306977288832, r.Float64(), 1e-11)

	for degree := uint8(2); degree < 255; degree++ {
		for _, raw := range []uint64{1, 7, 1_000, 999_999_999_999, 1_000_000_000_000} {
			_, err := FromRawUint64(raw).NthRoot(degree)
			require.NoError(t, err, "raw=%d degree=%d", raw, degree)
		}
	}

	// 0.2^(8/7) is about 0.1589
	p, err := MustNumber(1).CheckedDiv(MustNumber(5))
	require.NoError(t, err)
	p, err = p.PowFrac(8, 7)
	require.NoError(t, err)
	assert.InDelta(t, 0.158919480940, p.Float64(), 1e-11)
}

func TestIntRoot_IsFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		x := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), uint(1+rng.Intn(600))))
		x.Add(x, big.NewInt(1))
		degree := uint8(2 + rng.Intn(40))

		r, err := intRoot(x, degree)
		require.NoError(t, err)
		d := big.NewInt(int64(degree))
		assert.LessOrEqual(t, new(big.Int).Exp(r, d, nil).Cmp(x), 0, "x=%s d=%d", x, degree)
		up := new(big.Int).Add(r, big.NewInt(1))
		assert.Greater(t, new(big.Int).Exp(up, d, nil).Cmp(x), 0, "x=%s d=%d", x, degree)
	}

	// perfect powers land exactly
	r, err := intRoot(new(big.Int).Exp(big.NewInt(12345), big.NewInt(9), nil), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), r.Int64())
}

func TestNumber_PowFracOverflow(t *testing.T) {
	huge := FromRaw(WideMax)
	_, err := huge.PowFrac(3, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestScaled_DecimalsBeyondRange(t *testing.T) {
	_, err := FromScaled(1, 90)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = One.ToScaledFloor(90)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = One.ToScaledCeiling(90)
	assert.ErrorIs(t, err, ErrOverflow)

	// 10^77 still fits
	v, err := FromScaled(5, 89)
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}
