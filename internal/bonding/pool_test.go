package bonding

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvebond/internal/events"
)

func TestInitializePool_Record(t *testing.T) {
	mintCap := 1_000 * unit
	f := newFixture(t, testCurve(t), func(a *InitializePoolArgs) {
		a.FounderRewardBps = 500
		a.MintCap = &mintCap
	})

	p := f.loadPool()
	assert.Equal(t, PoolActive, p.State)
	assert.Equal(t, f.curveID, p.Curve)
	assert.Equal(t, f.addrs.Vault, p.ReserveVault)
	assert.Equal(t, f.addrs.MintAuthority, p.TargetMintAuthority)
	assert.Equal(t, f.addrs.Bump, p.Bump)
	assert.Equal(t, testDecimals, p.ReserveDecimals)
	assert.Equal(t, testDecimals, p.TargetDecimals)
	assert.Equal(t, uint16(500), p.FounderRewardBps)
	assert.Equal(t, testNow, p.GoLiveUnixTime)
	assert.Equal(t, testNow, p.CreatedAtUnixTime)
	require.NotNil(t, p.MintCap)
	assert.Equal(t, mintCap, *p.MintCap)
	assert.Nil(t, p.PurchaseCap)
	assert.Zero(t, p.CurrentSupply)
	assert.Zero(t, f.vault())
}

func TestInitializePool_Rejects(t *testing.T) {
	f := newFixture(t, testCurve(t), nil)

	base := func() InitializePoolArgs {
		target := newKey()
		addrs, err := f.engine.PoolAddresses(target, 0)
		require.NoError(t, err)
		require.NoError(t, f.bank.CreateMint(target, addrs.MintAuthority, 9))
		return InitializePoolArgs{
			Curve:            f.curveID,
			TargetMint:       target,
			ReserveMint:      f.reserveMint,
			GeneralAuthority: f.admin,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*InitializePoolArgs)
		wantErr error
	}{
		{"fee above 100%", func(a *InitializePoolArgs) { a.FounderRewardBps = 10_001 }, ErrInvalidFee},
		{"unknown curve", func(a *InitializePoolArgs) { a.Curve = newKey() }, ErrCurveNotFound},
		{"same mints", func(a *InitializePoolArgs) { a.ReserveMint = a.TargetMint }, ErrInvalidArgs},
		{"no general authority", func(a *InitializePoolArgs) { a.GeneralAuthority = solana.PublicKey{} }, ErrInvalidArgs},
		{"pool exists", func(a *InitializePoolArgs) { a.TargetMint = f.targetMint }, ErrPoolExists},
		{"wrong mint authority", func(a *InitializePoolArgs) {
			a.TargetMint = newKey()
			require.NoError(t, f.bank.CreateMint(a.TargetMint, f.admin, 6))
		}, ErrInvalidMintAuthority},
		{"missing target mint", func(a *InitializePoolArgs) { a.TargetMint = newKey() }, ErrInvalidArgs},
		{"reserve decimals beyond scale", func(a *InitializePoolArgs) {
			a.ReserveMint = newKey()
			require.NoError(t, f.bank.CreateMint(a.ReserveMint, f.admin, 90))
		}, ErrInvalidArgs},
		{"target decimals beyond scale", func(a *InitializePoolArgs) {
			a.TargetMint = newKey()
			addrs, err := f.engine.PoolAddresses(a.TargetMint, 0)
			require.NoError(t, err)
			require.NoError(t, f.bank.CreateMint(a.TargetMint, addrs.MintAuthority, 13))
		}, ErrInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := base()
			tt.mutate(&args)
			_, err := f.engine.InitializePool(f.ctx, f.env, f.admin, args)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// A second index of the same mint is a distinct pool.
	addrs, err := f.engine.PoolAddresses(f.targetMint, 1)
	require.NoError(t, err)
	assert.NotEqual(t, f.pool, addrs.Pool)
}

func TestClosePool_Scenario(t *testing.T) {
	f := newFixture(t, testCurve(t), func(a *InitializePoolArgs) {
		a.FounderRewardBps = 100
	})
	alice := f.trader(100 * unit)
	refund := newKey()

	_, err := f.buy(alice, 5*unit, 100*unit)
	require.NoError(t, err)

	_, err = f.engine.ClosePool(f.ctx, f.env, f.admin, ClosePoolArgs{Pool: f.pool, Refund: refund})
	assert.ErrorIs(t, err, ErrNotEmpty)

	_, err = f.sell(alice, 5*unit, 0)
	require.NoError(t, err)

	_, err = f.engine.ClosePool(f.ctx, f.env, alice, ClosePoolArgs{Pool: f.pool, Refund: refund})
	assert.ErrorIs(t, err, ErrUnauthorized)

	leftover := f.vault()
	require.NotZero(t, leftover)
	receipt, err := f.engine.ClosePool(f.ctx, f.env, f.admin, ClosePoolArgs{Pool: f.pool, Refund: refund})
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	closed, ok := receipt.Events[0].(*events.PoolClosedEvent)
	require.True(t, ok)
	assert.Equal(t, leftover, closed.Swept)
	assert.Equal(t, leftover, f.reserveBalance(refund))
	assert.Zero(t, f.vault())

	p := f.loadPool()
	assert.Equal(t, PoolClosed, p.State)
	assert.Zero(t, p.ReserveBalanceFromBonding)
	assert.Zero(t, p.AccumulatedFees)

	_, err = f.buy(alice, unit, 100*unit)
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = f.sell(alice, unit, 0)
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = f.engine.TransferReserves(f.ctx, f.env, f.admin, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: refund})
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = f.engine.ClosePool(f.ctx, f.env, f.admin, ClosePoolArgs{Pool: f.pool, Refund: refund})
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = f.engine.UpdatePool(f.ctx, f.env, f.admin, UpdatePoolArgs{Pool: f.pool, GeneralAuthority: f.admin})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestUpdatePool(t *testing.T) {
	f := newFixture(t, testCurve(t), nil)
	alice := f.trader(100 * unit)
	next := newKey()

	update := UpdatePoolArgs{
		Pool:             f.pool,
		GeneralAuthority: next,
		CurveAuthority:   nil,
		FounderRewardBps: 250,
		BuyFrozen:        true,
		GoLiveUnixTime:   testNow,
	}

	_, err := f.engine.UpdatePool(f.ctx, f.env, alice, update)
	assert.ErrorIs(t, err, ErrUnauthorized)

	bad := update
	bad.FounderRewardBps = 10_001
	_, err = f.engine.UpdatePool(f.ctx, f.env, f.admin, bad)
	assert.ErrorIs(t, err, ErrInvalidFee)

	bad = update
	bad.GeneralAuthority = solana.PublicKey{}
	_, err = f.engine.UpdatePool(f.ctx, f.env, f.admin, bad)
	assert.ErrorIs(t, err, ErrInvalidArgs)

	receipt, err := f.engine.UpdatePool(f.ctx, f.env, f.admin, update)
	require.NoError(t, err)
	assert.Equal(t, events.PoolUpdated, receipt.Events[0].Type())

	p := f.loadPool()
	assert.Equal(t, next, p.GeneralAuthority)
	assert.Nil(t, p.CurveAuthority)
	assert.Equal(t, uint16(250), p.FounderRewardBps)
	assert.True(t, p.BuyFrozen)

	_, err = f.buy(alice, unit, 100*unit)
	assert.ErrorIs(t, err, ErrPoolFrozen)

	// The old general authority lost its rights.
	_, err = f.engine.UpdatePool(f.ctx, f.env, f.admin, update)
	assert.ErrorIs(t, err, ErrUnauthorized)

	update.BuyFrozen = false
	_, err = f.engine.UpdatePool(f.ctx, f.env, next, update)
	require.NoError(t, err)
	_, err = f.buy(alice, unit, 100*unit)
	require.NoError(t, err)

	tight := uint64(1)
	update.MintCap = &tight
	_, err = f.engine.UpdatePool(f.ctx, f.env, next, update)
	assert.ErrorIs(t, err, ErrMintCapExceeded)
}

func TestUpdateReserveAuthority(t *testing.T) {
	f := newFixture(t, testCurve(t), func(a *InitializePoolArgs) {
		a.FounderRewardBps = 1_000
	})
	alice := f.trader(100 * unit)
	next := newKey()
	_, err := f.buy(alice, 10*unit, 100*unit)
	require.NoError(t, err)

	_, err = f.engine.UpdateReserveAuthority(f.ctx, f.env, alice, UpdateReserveAuthorityArgs{Pool: f.pool, NewReserveAuthority: &next})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.engine.UpdateReserveAuthority(f.ctx, f.env, f.admin, UpdateReserveAuthorityArgs{Pool: f.pool, NewReserveAuthority: &next})
	require.NoError(t, err)

	_, err = f.engine.TransferReserves(f.ctx, f.env, f.admin, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: f.admin})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.engine.TransferReserves(f.ctx, f.env, next, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: next})
	require.NoError(t, err)

	// Dropping the authority locks the reserves.
	_, err = f.engine.UpdateReserveAuthority(f.ctx, f.env, next, UpdateReserveAuthorityArgs{Pool: f.pool})
	require.NoError(t, err)
	assert.Nil(t, f.loadPool().ReserveAuthority)
	_, err = f.engine.TransferReserves(f.ctx, f.env, next, TransferReservesArgs{Pool: f.pool, Amount: 1, Destination: next})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
