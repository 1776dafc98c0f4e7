package bonding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

func TestTokenBondingV0_Codec(t *testing.T) {
	mintCap, freeze := uint64(42), int64(-7)
	in := TokenBondingV0{
		Version:                   PoolVersion,
		State:                     PoolActive,
		Curve:                     newKey(),
		ReserveMint:               newKey(),
		TargetMint:                newKey(),
		ReserveVault:              newKey(),
		TargetMintAuthority:       newKey(),
		GeneralAuthority:          newKey(),
		ReserveAuthority:          keyPtr(newKey()),
		Index:                     3,
		Bump:                      254,
		ReserveDecimals:           9,
		TargetDecimals:            6,
		CurrentSupply:             1 << 40,
		ReserveBalanceFromBonding: 12345,
		AccumulatedFees:           7,
		MintCap:                   &mintCap,
		GoLiveUnixTime:            testNow,
		FreezeBuyUnixTime:         &freeze,
		BuyFrozen:                 true,
		FounderRewardBps:          9_999,
	}

	data, err := EncodeAccount(TokenBondingDiscriminator, in)
	require.NoError(t, err)

	// discriminator + fixed fields + options (3 set of 32/8/8, 3 unset)
	const want = 8 + 1 + 1 + 6*32 + (1 + 32) + 1 + 2 + 5 + 3*8 + (1 + 8) + 1 + 8 + (1 + 8) + 8 + 1 + 1 + 2
	assert.Len(t, data, want)

	var out TokenBondingV0
	require.NoError(t, DecodeAccount(data, TokenBondingDiscriminator, &out))
	assert.Equal(t, in, out)

	err = DecodeAccount(data, CurveDiscriminator, &out)
	assert.ErrorIs(t, err, ErrInvalidAccount)

	err = DecodeAccount(append(data, 0), TokenBondingDiscriminator, &out)
	assert.ErrorIs(t, err, ErrInvalidAccount)

	err = DecodeAccount(data[:4], TokenBondingDiscriminator, &out)
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestCurveV0_Codec(t *testing.T) {
	in := CurveV0{Definition: curve.NewPiecewise(
		curve.LinearPiece(precise.Zero, precise.One, precise.Zero),
		curve.ExponentialPiece(precise.MustNumber(10), precise.One, precise.One, 1, 2),
	)}
	data, err := EncodeAccount(CurveDiscriminator, in)
	require.NoError(t, err)

	var out CurveV0
	require.NoError(t, DecodeAccount(data, CurveDiscriminator, &out))
	assert.Equal(t, in.Definition.String(), out.Definition.String())
}

func TestPoolState_String(t *testing.T) {
	assert.Equal(t, "active", PoolActive.String())
	assert.Equal(t, "closed", PoolClosed.String())
	assert.Equal(t, "state(9)", PoolState(9).String())
}
