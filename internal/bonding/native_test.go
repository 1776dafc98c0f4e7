package bonding

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/events"
)

const sol = uint64(1_000_000_000)

// newNativeFixture is newFixture with the pool priced in wrapped SOL.
func newNativeFixture(t *testing.T, def curve.Definition, opt func(*InitializePoolArgs)) *fixture {
	t.Helper()
	f := newFixture(t, def, nil)

	ix, err := NewInitializeSolStorageInstruction(f.admin, InitializeSolStorageArgs{})
	require.NoError(t, err)
	_, err = f.engine.Process(f.ctx, f.env, ix)
	require.NoError(t, err)

	target := newKey()
	addrs, err := f.engine.PoolAddresses(target, 0)
	require.NoError(t, err)
	require.NoError(t, f.bank.CreateMint(target, addrs.MintAuthority, testDecimals))

	args := InitializePoolArgs{
		Curve:            f.curveID,
		TargetMint:       target,
		ReserveMint:      solana.SolMint,
		GeneralAuthority: f.admin,
		ReserveAuthority: keyPtr(f.admin),
		CurveAuthority:   keyPtr(f.admin),
	}
	if opt != nil {
		opt(&args)
	}
	ix, err = NewInitializePoolInstruction(f.admin, args)
	require.NoError(t, err)
	receipt, err := f.engine.Process(f.ctx, f.env, ix)
	require.NoError(t, err)

	f.pool, f.targetMint, f.addrs, f.reserveMint = receipt.Pool, target, addrs, solana.SolMint
	return f
}

func (f *fixture) native(owner solana.PublicKey) uint64 {
	f.t.Helper()
	b, err := f.bank.NativeBalance(owner)
	require.NoError(f.t, err)
	return b
}

// requireWrappedBacked checks that storage holds the whole wrapped supply.
func (f *fixture) requireWrappedBacked() {
	f.t.Helper()
	st, err := f.engine.SolStorage(f.env)
	require.NoError(f.t, err)
	info, err := f.bank.MintInfo(st.WrappedMint)
	require.NoError(f.t, err)
	assert.Equal(f.t, info.Supply, f.native(st.Storage))
}

func (f *fixture) process(ix Instruction, err error) (*Receipt, error) {
	f.t.Helper()
	require.NoError(f.t, err)
	return f.engine.Process(f.ctx, f.env, ix)
}

func TestWrappedSol_RoundTrip(t *testing.T) {
	f := newNativeFixture(t, testCurve(t), nil)
	alice := newKey()
	require.NoError(t, f.bank.Airdrop(alice, 10*sol))

	st, err := f.engine.SolStorage(f.env)
	require.NoError(t, err)
	assert.Equal(t, solana.SolMint, st.WrappedMint)
	info, err := f.bank.MintInfo(solana.SolMint)
	require.NoError(t, err)
	assert.Equal(t, st.MintAuthority, info.Authority)
	assert.Equal(t, uint8(9), info.Decimals)

	receipt, err := f.process(NewBuyWrappedSolInstruction(alice, BuyWrappedSolArgs{Amount: 4 * sol}))
	require.NoError(t, err)
	assert.Equal(t, InstructionBuyWrappedSol, receipt.Instruction)
	assert.Equal(t, 6*sol, f.native(alice))
	assert.Equal(t, 4*sol, f.reserveBalance(alice))
	f.requireWrappedBacked()

	_, err = f.process(NewSellWrappedSolInstruction(alice, SellWrappedSolArgs{Amount: sol}))
	require.NoError(t, err)
	assert.Equal(t, 7*sol, f.native(alice))
	assert.Equal(t, 3*sol, f.reserveBalance(alice))

	_, err = f.process(NewSellWrappedSolInstruction(alice, SellWrappedSolArgs{All: true}))
	require.NoError(t, err)
	assert.Equal(t, 10*sol, f.native(alice))
	assert.Zero(t, f.reserveBalance(alice))
	f.requireWrappedBacked()

	_, err = f.process(NewSellWrappedSolInstruction(alice, SellWrappedSolArgs{All: true}))
	assert.ErrorIs(t, err, ErrInvalidArgs)
	_, err = f.process(NewSellWrappedSolInstruction(alice, SellWrappedSolArgs{Amount: 1}))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = f.process(NewBuyWrappedSolInstruction(alice, BuyWrappedSolArgs{Amount: 11 * sol}))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = f.process(NewInitializeSolStorageInstruction(alice, InitializeSolStorageArgs{}))
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestWrappedSol_RequiresStorage(t *testing.T) {
	f := newFixture(t, testCurve(t), nil)
	alice := newKey()
	require.NoError(t, f.bank.Airdrop(alice, sol))

	_, err := f.process(NewBuyWrappedSolInstruction(alice, BuyWrappedSolArgs{Amount: sol}))
	assert.ErrorIs(t, err, ErrInvalidAccount)

	// пул с обычным резервом не принимает нативную оплату
	_, err = f.process(NewInitializeSolStorageInstruction(alice, InitializeSolStorageArgs{}))
	require.NoError(t, err)
	_, err = f.process(NewBuyNativeInstruction(alice, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: unit, MaximumPrice: sol},
	}))
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestBuyNative_PaysFromNativeBalance(t *testing.T) {
	f := newNativeFixture(t, testCurve(t), nil)
	alice := newKey()
	require.NoError(t, f.bank.Airdrop(alice, 2_000*sol))

	receipt, err := f.process(NewBuyNativeInstruction(alice, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: 1_000 * unit, MaximumPrice: 1_100 * sol},
	}))
	require.NoError(t, err)
	assert.Equal(t, InstructionBuyNative, receipt.Instruction)
	require.NotNil(t, receipt.Trade)
	assert.Equal(t, 1_050*sol, receipt.Trade.Total)
	assert.Equal(t, 950*sol, f.native(alice))
	assert.Zero(t, f.reserveBalance(alice))
	assert.Equal(t, 1_000*unit, f.targetBalance(alice))
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, events.TradeExecuted, receipt.Events[0].Type())

	receipt, err = f.process(NewBuyNativeInstruction(alice, BuyArgs{
		Pool:          f.pool,
		ReserveAmount: &BuyReserveAmount{ReserveAmount: 100 * sol, MinimumTargetAmount: unit},
	}))
	require.NoError(t, err)
	assert.LessOrEqual(t, receipt.Trade.Total, 100*sol)
	assert.Equal(t, 850*sol+(100*sol-receipt.Trade.Total), f.native(alice))
	assert.Zero(t, f.reserveBalance(alice))

	f.requireConserved(2)
	f.requireWrappedBacked()
}

func TestBuyNative_Rejects(t *testing.T) {
	f := newNativeFixture(t, testCurve(t), nil)
	alice := newKey()
	require.NoError(t, f.bank.Airdrop(alice, 2_000*sol))

	_, err := f.process(NewBuyNativeInstruction(alice, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: 1_000 * unit, MaximumPrice: 1_000 * sol},
	}))
	var slip *SlippageError
	require.ErrorAs(t, err, &slip)
	assert.Equal(t, 1_050*sol, slip.Actual)

	_, err = f.process(NewBuyNativeInstruction(alice, BuyArgs{Pool: f.pool}))
	assert.ErrorIs(t, err, ErrInvalidArgs)

	g := newNativeFixture(t, testCurve(t), nil)
	bob := newKey()
	require.NoError(t, g.bank.Airdrop(bob, 10*sol))
	_, err = g.process(NewBuyNativeInstruction(bob, BuyArgs{
		Pool:         g.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: 1_000 * unit, MaximumPrice: 1_100 * sol},
	}))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSellNative_PaysOutNative(t *testing.T) {
	f := newNativeFixture(t, testCurve(t), func(a *InitializePoolArgs) {
		a.FounderRewardBps = 100
	})
	alice := newKey()
	require.NoError(t, f.bank.Airdrop(alice, 2_000*sol))

	bought, err := f.engine.BuyNative(f.ctx, f.env, alice, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: 1_000 * unit, MaximumPrice: 2_000 * sol},
	})
	require.NoError(t, err)
	before := f.native(alice)
	assert.Equal(t, 2_000*sol-bought.Trade.Total, before)

	sold, err := f.process(NewSellNativeInstruction(alice, SellArgs{Pool: f.pool, TargetAmount: 400 * unit}))
	require.NoError(t, err)
	assert.Equal(t, InstructionSellNative, sold.Instruction)
	assert.Positive(t, sold.Trade.Total)
	assert.Equal(t, before+sold.Trade.Total, f.native(alice))
	assert.Zero(t, f.reserveBalance(alice))
	assert.Equal(t, 600*unit, f.targetBalance(alice))

	_, err = f.process(NewSellNativeInstruction(alice, SellArgs{Pool: f.pool, TargetAmount: 400 * unit, MinimumPrice: 1_000 * sol}))
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	f.requireConserved(2)
	f.requireWrappedBacked()
}

func TestTransferReservesNative(t *testing.T) {
	f := newNativeFixture(t, testCurve(t), func(a *InitializePoolArgs) {
		a.FounderRewardBps = 100
	})
	alice := newKey()
	treasury := newKey()
	require.NoError(t, f.bank.Airdrop(alice, 2_000*sol))
	_, err := f.engine.BuyNative(f.ctx, f.env, alice, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: 1_000 * unit, MaximumPrice: 2_000 * sol},
	})
	require.NoError(t, err)

	_, err = f.process(NewTransferReservesNativeInstruction(alice, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: treasury}))
	assert.ErrorIs(t, err, ErrUnauthorized)

	fees := f.loadPool().AccumulatedFees
	assert.Equal(t, uint64(10_500_000_000), fees)
	receipt, err := f.process(NewTransferReservesNativeInstruction(f.admin, TransferReservesArgs{
		Pool: f.pool, Amount: fees, Destination: treasury,
	}))
	require.NoError(t, err)
	assert.Equal(t, InstructionTransferReservesNative, receipt.Instruction)
	assert.Equal(t, fees, f.native(treasury))
	assert.Zero(t, f.reserveBalance(treasury))
	require.Len(t, receipt.Events, 1)
	moved, ok := receipt.Events[0].(*events.ReservesTransferredEvent)
	require.True(t, ok)
	assert.Equal(t, treasury, moved.Destination)

	st, err := f.engine.SolStorage(f.env)
	require.NoError(t, err)
	assert.Zero(t, f.reserveBalance(st.Storage))
	f.requireConserved(1)
	f.requireWrappedBacked()

	_, err = f.process(NewTransferReservesNativeInstruction(f.admin, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: treasury}))
	assert.ErrorIs(t, err, ErrInsufficientReserve)
}
