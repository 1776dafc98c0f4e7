// =============================
// File: internal/bonding/curves.go
// =============================
package bonding

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/events"
)

// CreateCurveArgs are the arguments of create_curve_v0.
type CreateCurveArgs struct {
	Definition curve.Definition
}

// UpdateCurveArgs are the arguments of update_curve_v0.
type UpdateCurveArgs struct {
	Pool       solana.PublicKey
	Definition curve.Definition
}

// CreateCurve validates and stores an immutable curve. The receipt carries the
// new curve id.
func (e *Engine) CreateCurve(ctx context.Context, env Env, signer solana.PublicKey, args CreateCurveArgs) (*Receipt, error) {
	if err := args.Definition.Validate(); err != nil {
		return nil, err
	}
	id, err := e.storeNewCurve(env, args.Definition)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Curve created",
		zap.String("curve", id.String()),
		zap.String("definition", args.Definition.String()),
		zap.String("signer", signer.String()))

	return &Receipt{
		Instruction: InstructionCreateCurve,
		Curve:       id,
		Events: []events.Event{&events.CurveCreatedEvent{
			BaseEvent:  events.NewBase(events.CurveCreated, env.Now),
			Curve:      id,
			Definition: args.Definition.String(),
		}},
	}, nil
}

// storeNewCurve assigns the next curve id and bumps the counter.
func (e *Engine) storeNewCurve(env Env, def curve.Definition) (solana.PublicKey, error) {
	psAddr, err := ProgramStateAddress(e.programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ps, err := loadProgramState(env.State, psAddr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	id, err := CurveAddress(e.programID, ps.CurveCount)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, exists, err := env.State.GetAccount(id); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to read curve %s: %w", id, err)
	} else if exists {
		return solana.PublicKey{}, fmt.Errorf("%w: curve %s already stored", ErrInvalidAccount, id)
	}
	if ps.CurveCount, err = addU64(ps.CurveCount, 1); err != nil {
		return solana.PublicKey{}, err
	}

	if err := storeCurve(env.State, id, CurveV0{Definition: def}); err != nil {
		return solana.PublicKey{}, err
	}
	data, err := EncodeAccount(ProgramStateDiscriminator, ps)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := env.State.PutAccount(psAddr, data); err != nil {
		return solana.PublicKey{}, err
	}
	return id, nil
}

// UpdateCurve replaces the pool's curve. The new curve must price the current
// supply within curve.ContinuityTolerance of the old one, and the vault must
// still back the full cost of the outstanding supply under the new curve.
// The curve reserve is rebased to that cost and any surplus becomes fees.
func (e *Engine) UpdateCurve(ctx context.Context, env Env, signer solana.PublicKey, args UpdateCurveArgs) (*Receipt, error) {
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if err := requireSigner(signer, pool.CurveAuthority, "curve authority"); err != nil {
		return nil, err
	}
	if err := args.Definition.Validate(); err != nil {
		return nil, err
	}
	old, err := loadCurve(env.State, pool.Curve)
	if err != nil {
		return nil, err
	}

	supply, err := wholeUnits(pool.CurrentSupply, pool.TargetDecimals)
	if err != nil {
		return nil, err
	}
	if err := curve.CheckContinuity(old.Definition, args.Definition, supply, curve.ContinuityTolerance); err != nil {
		return nil, arith("continuity", err)
	}

	backing, err := requiredBacking(args.Definition, pool)
	if err != nil {
		return nil, err
	}
	vault, err := env.Ledger.Balance(pool.ReserveMint, pool.ReserveVault)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance: %w", err)
	}
	if vault < backing {
		return nil, fmt.Errorf("%w: vault holds %d, new curve needs %d", ErrInsufficientReserve, vault, backing)
	}

	id, err := e.storeNewCurve(env, args.Definition)
	if err != nil {
		return nil, err
	}
	oldID := pool.Curve
	pool.Curve = id
	pool.ReserveBalanceFromBonding = backing
	pool.AccumulatedFees = vault - backing
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	e.logger.Info("Pool curve updated",
		zap.String("pool", args.Pool.String()),
		zap.String("old_curve", oldID.String()),
		zap.String("new_curve", id.String()),
		zap.Uint64("reserve", backing),
		zap.Uint64("fees", pool.AccumulatedFees))

	return &Receipt{
		Instruction: InstructionUpdateCurve,
		Pool:        args.Pool,
		Curve:       id,
		Events: []events.Event{&events.CurveUpdatedEvent{
			BaseEvent: events.NewBase(events.CurveUpdated, env.Now),
			Pool:      args.Pool,
			OldCurve:  oldID,
			NewCurve:  id,
		}},
	}, nil
}
