package bonding

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/ledger"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

const (
	testNow      int64 = 1_700_000_000
	testDecimals uint8 = 6
	unit               = uint64(1_000_000)
)

type mapState map[solana.PublicKey][]byte

func (m mapState) GetAccount(id solana.PublicKey) ([]byte, bool, error) {
	data, ok := m[id]
	return data, ok, nil
}

func (m mapState) PutAccount(id solana.PublicKey, data []byte) error {
	m[id] = append([]byte(nil), data...)
	return nil
}

func (m mapState) snapshot() map[solana.PublicKey]string {
	out := make(map[solana.PublicKey]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	engine      *Engine
	state       mapState
	bank        *ledger.Bank
	env         Env
	admin       solana.PublicKey
	reserveMint solana.PublicKey
	targetMint  solana.PublicKey
	curveID     solana.PublicKey
	pool        solana.PublicKey
	addrs       PoolAddresses
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func num(t *testing.T, s string) precise.Number {
	t.Helper()
	n, err := precise.ParseNumber(s)
	require.NoError(t, err)
	return n
}

// testCurve is price(s) = 1 + 0.0001*s.
func testCurve(t *testing.T) curve.Definition {
	return curve.NewLinear(precise.One, num(t, "0.0001"))
}

// newFixture creates mints, a curve and a pool. opt may adjust the pool args
// before initialization.
func newFixture(t *testing.T, def curve.Definition, opt func(*InitializePoolArgs)) *fixture {
	t.Helper()
	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		engine:      NewEngine(DefaultProgramID, zap.NewNop()),
		state:       mapState{},
		admin:       newKey(),
		reserveMint: newKey(),
		targetMint:  newKey(),
	}
	f.bank = ledger.NewBank(f.state, zap.NewNop())
	f.env = Env{State: f.state, Ledger: f.bank, Now: testNow}

	var err error
	f.addrs, err = f.engine.PoolAddresses(f.targetMint, 0)
	require.NoError(t, err)
	require.NoError(t, f.bank.CreateMint(f.reserveMint, f.admin, testDecimals))
	require.NoError(t, f.bank.CreateMint(f.targetMint, f.addrs.MintAuthority, testDecimals))

	ix, err := NewCreateCurveInstruction(f.admin, CreateCurveArgs{Definition: def})
	require.NoError(t, err)
	receipt, err := f.engine.Process(f.ctx, f.env, ix)
	require.NoError(t, err)
	f.curveID = receipt.Curve

	args := InitializePoolArgs{
		Curve:            f.curveID,
		TargetMint:       f.targetMint,
		ReserveMint:      f.reserveMint,
		GeneralAuthority: f.admin,
		ReserveAuthority: keyPtr(f.admin),
		CurveAuthority:   keyPtr(f.admin),
	}
	if opt != nil {
		opt(&args)
	}
	ix, err = NewInitializePoolInstruction(f.admin, args)
	require.NoError(t, err)
	receipt, err = f.engine.Process(f.ctx, f.env, ix)
	require.NoError(t, err)
	f.pool = receipt.Pool
	require.Equal(t, f.addrs.Pool, f.pool)
	return f
}

func (f *fixture) fund(owner solana.PublicKey, amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.bank.Mint(f.reserveMint, owner, f.admin, amount))
}

func (f *fixture) trader(funds uint64) solana.PublicKey {
	f.t.Helper()
	k := newKey()
	f.fund(k, funds)
	return k
}

func (f *fixture) buy(signer solana.PublicKey, target, maxPrice uint64) (*Receipt, error) {
	return f.engine.Buy(f.ctx, f.env, signer, BuyArgs{
		Pool:         f.pool,
		TargetAmount: &BuyTargetAmount{TargetAmount: target, MaximumPrice: maxPrice},
	})
}

func (f *fixture) sell(signer solana.PublicKey, target, minPrice uint64) (*Receipt, error) {
	return f.engine.Sell(f.ctx, f.env, signer, SellArgs{Pool: f.pool, TargetAmount: target, MinimumPrice: minPrice})
}

func (f *fixture) loadPool() *TokenBondingV0 {
	f.t.Helper()
	p, err := f.engine.Pool(f.env, f.pool)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) reserveBalance(owner solana.PublicKey) uint64 {
	f.t.Helper()
	b, err := f.bank.Balance(f.reserveMint, owner)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) targetBalance(owner solana.PublicKey) uint64 {
	f.t.Helper()
	b, err := f.bank.Balance(f.targetMint, owner)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) vault() uint64 {
	return f.reserveBalance(f.addrs.Vault)
}

// requireConserved checks vault == reserve + fees and that the curve reserve
// tracks cost(0, supply) within one base unit per trade.
func (f *fixture) requireConserved(trades uint64) {
	f.t.Helper()
	p := f.loadPool()
	require.Equal(f.t, p.ReserveBalanceFromBonding+p.AccumulatedFees, f.vault())

	def, err := f.engine.Curve(f.env, p.Curve)
	require.NoError(f.t, err)
	lo, err := curveCost(def, p, 0, p.CurrentSupply, false)
	require.NoError(f.t, err)
	hi, err := curveCost(def, p, 0, p.CurrentSupply, true)
	require.NoError(f.t, err)
	require.GreaterOrEqual(f.t, p.ReserveBalanceFromBonding+trades, lo)
	require.LessOrEqual(f.t, p.ReserveBalanceFromBonding, hi+trades)

	info, err := f.bank.MintInfo(f.targetMint)
	require.NoError(f.t, err)
	require.Equal(f.t, p.CurrentSupply, info.Supply)
}
