// =============================
// File: internal/bonding/engine.go
// =============================
package bonding

import (
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// DefaultProgramID is the program id pools and curves are derived under when
// the configuration does not override it.
var DefaultProgramID = solana.MustPublicKeyFromBase58("DCy6L7FGjNZr6oYLZsojS9aC9LJ2XniiTiF7qhkEfBme")

const (
	// PoolVersion is written into every new pool record.
	PoolVersion uint8 = 0
	// MaxFeeBps is 100%.
	MaxFeeBps = 10_000
)

// Engine executes bonding instructions. It holds no pool state: every call
// reads the accounts it needs from the Env it is given.
type Engine struct {
	programID solana.PublicKey
	logger    *zap.Logger
}

// NewEngine creates an engine deriving accounts under programID.
func NewEngine(programID solana.PublicKey, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		programID: programID,
		logger:    logger.Named("bonding"),
	}
}

// ProgramID returns the id accounts are derived under.
func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

// PoolAddresses derives the accounts of the pool for targetMint/index.
func (e *Engine) PoolAddresses(targetMint solana.PublicKey, index uint16) (PoolAddresses, error) {
	return DerivePoolAddresses(e.programID, targetMint, index)
}

// Pool loads a pool record.
func (e *Engine) Pool(env Env, id solana.PublicKey) (*TokenBondingV0, error) {
	return loadPool(env.State, id)
}

// Curve loads a curve definition.
func (e *Engine) Curve(env Env, id solana.PublicKey) (curve.Definition, error) {
	c, err := loadCurve(env.State, id)
	if err != nil {
		return curve.Definition{}, err
	}
	return c.Definition, nil
}

func loadPool(state State, id solana.PublicKey) (*TokenBondingV0, error) {
	data, ok, err := state.GetAccount(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	var pool TokenBondingV0
	if err := DecodeAccount(data, TokenBondingDiscriminator, &pool); err != nil {
		return nil, fmt.Errorf("pool %s: %w", id, err)
	}
	return &pool, nil
}

func storePool(state State, id solana.PublicKey, pool *TokenBondingV0) error {
	data, err := EncodeAccount(TokenBondingDiscriminator, pool)
	if err != nil {
		return err
	}
	return state.PutAccount(id, data)
}

func loadCurve(state State, id solana.PublicKey) (CurveV0, error) {
	data, ok, err := state.GetAccount(id)
	if err != nil {
		return CurveV0{}, fmt.Errorf("failed to read curve %s: %w", id, err)
	}
	if !ok {
		return CurveV0{}, fmt.Errorf("%w: %s", ErrCurveNotFound, id)
	}
	var c CurveV0
	if err := DecodeAccount(data, CurveDiscriminator, &c); err != nil {
		return CurveV0{}, fmt.Errorf("curve %s: %w", id, err)
	}
	return c, nil
}

func storeCurve(state State, id solana.PublicKey, c CurveV0) error {
	data, err := EncodeAccount(CurveDiscriminator, c)
	if err != nil {
		return err
	}
	return state.PutAccount(id, data)
}

func loadProgramState(state State, id solana.PublicKey) (ProgramStateV0, error) {
	data, ok, err := state.GetAccount(id)
	if err != nil {
		return ProgramStateV0{}, fmt.Errorf("failed to read program state: %w", err)
	}
	if !ok {
		return ProgramStateV0{}, nil
	}
	var ps ProgramStateV0
	if err := DecodeAccount(data, ProgramStateDiscriminator, &ps); err != nil {
		return ProgramStateV0{}, fmt.Errorf("program state: %w", err)
	}
	return ps, nil
}

// --- checked u64 ---

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d: %w", ErrArithmetic, a, b, precise.ErrOverflow)
	}
	return sum, nil
}

func subU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d: %w", ErrArithmetic, a, b, precise.ErrUnderflow)
	}
	return diff, nil
}

// feeFor is ceil(amount * bps / 10000).
func feeFor(amount uint64, bps uint16) (uint64, error) {
	if bps == 0 || amount == 0 {
		return 0, nil
	}
	num, err := precise.WideFromUint64(amount).Mul(precise.WideFromUint64(uint64(bps)))
	if err != nil {
		return 0, arith("fee", err)
	}
	num, err = num.Add(precise.WideFromUint64(MaxFeeBps - 1))
	if err != nil {
		return 0, arith("fee", err)
	}
	q, err := num.Div(precise.WideFromUint64(MaxFeeBps))
	if err != nil {
		return 0, arith("fee", err)
	}
	fee, err := q.Uint64()
	if err != nil {
		return 0, arith("fee", err)
	}
	return fee, nil
}

// budgetBeforeFee is the largest curve cost c with c + feeFor(c) <= total,
// up to one base unit; callers re-check the total.
func budgetBeforeFee(total uint64, bps uint16) (uint64, error) {
	if bps == 0 {
		return total, nil
	}
	q, err := precise.WideFromUint64(total).MulDiv(
		precise.WideFromUint64(MaxFeeBps),
		precise.WideFromUint64(MaxFeeBps+uint64(bps)),
	)
	if err != nil {
		return 0, arith("fee budget", err)
	}
	v, err := q.Uint64()
	if err != nil {
		return 0, arith("fee budget", err)
	}
	return v, nil
}

// --- unit conversions ---

// wholeUnits converts base units into whole units.
func wholeUnits(amount uint64, decimals uint8) (precise.Number, error) {
	n, err := precise.FromScaled(amount, decimals)
	if err != nil {
		return precise.Zero, arith("to whole units", err)
	}
	return n, nil
}

// curveCost prices the supply range [from, from+delta) given in target base
// units and returns the reserve amount in reserve base units, rounded up when
// the caller pays and down when the caller receives.
func curveCost(def curve.Definition, pool *TokenBondingV0, from, to uint64, roundUp bool) (uint64, error) {
	f, err := wholeUnits(from, pool.TargetDecimals)
	if err != nil {
		return 0, err
	}
	t, err := wholeUnits(to, pool.TargetDecimals)
	if err != nil {
		return 0, err
	}
	cost, err := def.Cost(f, t)
	if err != nil {
		return 0, arith("curve cost", err)
	}
	var out uint64
	if roundUp {
		out, err = cost.ToScaledCeiling(pool.ReserveDecimals)
	} else {
		out, err = cost.ToScaledFloor(pool.ReserveDecimals)
	}
	if err != nil {
		return 0, arith("curve cost", err)
	}
	return out, nil
}

// requiredBacking is ceil(cost(0, supply)), the reserve the vault may never
// drop below.
func requiredBacking(def curve.Definition, pool *TokenBondingV0) (uint64, error) {
	return curveCost(def, pool, 0, pool.CurrentSupply, true)
}

// spotPrice is the curve price at the pool's current supply.
func spotPrice(def curve.Definition, pool *TokenBondingV0) (precise.Number, error) {
	s, err := wholeUnits(pool.CurrentSupply, pool.TargetDecimals)
	if err != nil {
		return precise.Zero, err
	}
	p, err := def.Price(s)
	if err != nil {
		return precise.Zero, arith("spot price", err)
	}
	return p, nil
}

func requireActive(pool *TokenBondingV0) error {
	switch pool.State {
	case PoolActive:
		return nil
	case PoolClosed:
		return ErrPoolClosed
	default:
		return fmt.Errorf("%w: pool state %s", ErrInvalidAccount, pool.State)
	}
}

func requireSigner(signer solana.PublicKey, authority *solana.PublicKey, role string) error {
	if authority == nil || !authority.Equals(signer) {
		return fmt.Errorf("%w: %s is not the %s", ErrUnauthorized, signer, role)
	}
	return nil
}

func keyPtr(k solana.PublicKey) *solana.PublicKey {
	return &k
}
