// =============================
// File: internal/bonding/pool.go
// =============================
package bonding

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// InitializePoolArgs are the arguments of initialize_token_bonding_v0.
type InitializePoolArgs struct {
	Curve            solana.PublicKey
	TargetMint       solana.PublicKey
	ReserveMint      solana.PublicKey
	Index            uint16
	GeneralAuthority solana.PublicKey
	ReserveAuthority *solana.PublicKey `bin:"optional"`
	CurveAuthority   *solana.PublicKey `bin:"optional"`
	FounderRewardBps uint16
	MintCap          *uint64 `bin:"optional"`
	PurchaseCap      *uint64 `bin:"optional"`
	// GoLiveUnixTime defaults to the current time.
	GoLiveUnixTime    *int64 `bin:"optional"`
	FreezeBuyUnixTime *int64 `bin:"optional"`
	BuyFrozen         bool
	SellFrozen        bool
}

// UpdatePoolArgs are the arguments of update_token_bonding_v0. Every field is
// written; callers pass the current value to leave one unchanged.
type UpdatePoolArgs struct {
	Pool              solana.PublicKey
	GeneralAuthority  solana.PublicKey
	CurveAuthority    *solana.PublicKey `bin:"optional"`
	FounderRewardBps  uint16
	BuyFrozen         bool
	SellFrozen        bool
	MintCap           *uint64 `bin:"optional"`
	PurchaseCap       *uint64 `bin:"optional"`
	GoLiveUnixTime    int64
	FreezeBuyUnixTime *int64 `bin:"optional"`
}

// UpdateReserveAuthorityArgs are the arguments of update_reserve_authority_v0.
// A nil authority locks the reserves for good.
type UpdateReserveAuthorityArgs struct {
	Pool                solana.PublicKey
	NewReserveAuthority *solana.PublicKey `bin:"optional"`
}

// ClosePoolArgs are the arguments of close_token_bonding_v0.
type ClosePoolArgs struct {
	Pool   solana.PublicKey
	Refund solana.PublicKey
}

// InitializePool creates an active pool with zero supply for an existing
// curve. The target mint's authority must already be the pool's derived
// mint authority.
func (e *Engine) InitializePool(ctx context.Context, env Env, signer solana.PublicKey, args InitializePoolArgs) (*Receipt, error) {
	if args.FounderRewardBps > MaxFeeBps {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, args.FounderRewardBps)
	}
	if args.TargetMint.Equals(args.ReserveMint) {
		return nil, fmt.Errorf("%w: target and reserve mint are the same", ErrInvalidArgs)
	}
	if args.GeneralAuthority.IsZero() {
		return nil, fmt.Errorf("%w: general authority is required", ErrInvalidArgs)
	}
	if _, err := loadCurve(env.State, args.Curve); err != nil {
		return nil, err
	}

	addrs, err := e.PoolAddresses(args.TargetMint, args.Index)
	if err != nil {
		return nil, err
	}
	if _, exists, err := env.State.GetAccount(addrs.Pool); err != nil {
		return nil, fmt.Errorf("failed to read pool %s: %w", addrs.Pool, err)
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, addrs.Pool)
	}

	target, err := env.Ledger.MintInfo(args.TargetMint)
	if err != nil {
		return nil, fmt.Errorf("%w: target mint: %v", ErrInvalidArgs, err)
	}
	if !target.Authority.Equals(addrs.MintAuthority) {
		return nil, fmt.Errorf("%w: target mint authority is %s, want %s",
			ErrInvalidMintAuthority, target.Authority, addrs.MintAuthority)
	}
	reserve, err := env.Ledger.MintInfo(args.ReserveMint)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve mint: %v", ErrInvalidArgs, err)
	}
	// amounts convert to whole units exactly only up to the fixed-point scale
	if reserve.Decimals > precise.Decimals || target.Decimals > precise.Decimals {
		return nil, fmt.Errorf("%w: mint decimals %d/%d exceed %d",
			ErrInvalidArgs, reserve.Decimals, target.Decimals, precise.Decimals)
	}

	goLive := env.Now
	if args.GoLiveUnixTime != nil {
		goLive = *args.GoLiveUnixTime
	}

	if err := env.Ledger.OpenAccount(args.ReserveMint, addrs.Vault); err != nil {
		return nil, fmt.Errorf("failed to open reserve vault: %w", err)
	}

	pool := &TokenBondingV0{
		Version:             PoolVersion,
		State:               PoolActive,
		Curve:               args.Curve,
		ReserveMint:         args.ReserveMint,
		TargetMint:          args.TargetMint,
		ReserveVault:        addrs.Vault,
		TargetMintAuthority: addrs.MintAuthority,
		GeneralAuthority:    args.GeneralAuthority,
		ReserveAuthority:    args.ReserveAuthority,
		CurveAuthority:      args.CurveAuthority,
		Index:               args.Index,
		Bump:                addrs.Bump,
		VaultBump:           addrs.VaultBump,
		AuthorityBump:       addrs.AuthorityBump,
		ReserveDecimals:     reserve.Decimals,
		TargetDecimals:      target.Decimals,
		MintCap:             args.MintCap,
		PurchaseCap:         args.PurchaseCap,
		GoLiveUnixTime:      goLive,
		FreezeBuyUnixTime:   args.FreezeBuyUnixTime,
		CreatedAtUnixTime:   env.Now,
		BuyFrozen:           args.BuyFrozen,
		SellFrozen:          args.SellFrozen,
		FounderRewardBps:    args.FounderRewardBps,
	}
	if err := storePool(env.State, addrs.Pool, pool); err != nil {
		return nil, err
	}

	e.logger.Info("Pool initialized",
		zap.String("pool", addrs.Pool.String()),
		zap.String("curve", args.Curve.String()),
		zap.String("target_mint", args.TargetMint.String()),
		zap.String("reserve_mint", args.ReserveMint.String()),
		zap.Uint16("founder_reward_bps", args.FounderRewardBps),
		zap.Int64("go_live", goLive))

	return &Receipt{
		Instruction: InstructionInitializePool,
		Pool:        addrs.Pool,
		Curve:       args.Curve,
		Events: []events.Event{&events.PoolInitializedEvent{
			BaseEvent:   events.NewBase(events.PoolInitialized, env.Now),
			Pool:        addrs.Pool,
			Curve:       args.Curve,
			TargetMint:  args.TargetMint,
			ReserveMint: args.ReserveMint,
			Vault:       addrs.Vault,
		}},
	}, nil
}

// UpdatePool rewrites the general-authority controlled fields.
func (e *Engine) UpdatePool(ctx context.Context, env Env, signer solana.PublicKey, args UpdatePoolArgs) (*Receipt, error) {
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if err := requireSigner(signer, keyPtr(pool.GeneralAuthority), "general authority"); err != nil {
		return nil, err
	}
	if args.FounderRewardBps > MaxFeeBps {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, args.FounderRewardBps)
	}
	if args.GeneralAuthority.IsZero() {
		return nil, fmt.Errorf("%w: general authority is required", ErrInvalidArgs)
	}
	if args.MintCap != nil && *args.MintCap < pool.CurrentSupply {
		return nil, fmt.Errorf("%w: mint cap %d is below supply %d", ErrMintCapExceeded, *args.MintCap, pool.CurrentSupply)
	}

	pool.GeneralAuthority = args.GeneralAuthority
	pool.CurveAuthority = args.CurveAuthority
	pool.FounderRewardBps = args.FounderRewardBps
	pool.BuyFrozen = args.BuyFrozen
	pool.SellFrozen = args.SellFrozen
	pool.MintCap = args.MintCap
	pool.PurchaseCap = args.PurchaseCap
	pool.GoLiveUnixTime = args.GoLiveUnixTime
	pool.FreezeBuyUnixTime = args.FreezeBuyUnixTime
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	e.logger.Info("Pool updated",
		zap.String("pool", args.Pool.String()),
		zap.Bool("buy_frozen", args.BuyFrozen),
		zap.Bool("sell_frozen", args.SellFrozen),
		zap.Uint16("founder_reward_bps", args.FounderRewardBps))

	return &Receipt{
		Instruction: InstructionUpdatePool,
		Pool:        args.Pool,
		Curve:       pool.Curve,
		Events: []events.Event{&events.PoolUpdatedEvent{
			BaseEvent: events.NewBase(events.PoolUpdated, env.Now),
			Pool:      args.Pool,
			Signer:    signer,
			Change:    "pool",
		}},
	}, nil
}

// UpdateReserveAuthority hands the reserve authority over, or removes it.
func (e *Engine) UpdateReserveAuthority(ctx context.Context, env Env, signer solana.PublicKey, args UpdateReserveAuthorityArgs) (*Receipt, error) {
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if err := requireSigner(signer, pool.ReserveAuthority, "reserve authority"); err != nil {
		return nil, err
	}

	pool.ReserveAuthority = args.NewReserveAuthority
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	next := "none"
	if args.NewReserveAuthority != nil {
		next = args.NewReserveAuthority.String()
	}
	e.logger.Info("Reserve authority updated",
		zap.String("pool", args.Pool.String()),
		zap.String("new_authority", next))

	return &Receipt{
		Instruction: InstructionUpdateReserveAuthority,
		Pool:        args.Pool,
		Curve:       pool.Curve,
		Events: []events.Event{&events.PoolUpdatedEvent{
			BaseEvent: events.NewBase(events.PoolUpdated, env.Now),
			Pool:      args.Pool,
			Signer:    signer,
			Change:    "reserve_authority",
		}},
	}, nil
}

// ClosePool retires an empty pool. Whatever the vault still holds (fees and
// rounding dust) is swept to the refund owner.
func (e *Engine) ClosePool(ctx context.Context, env Env, signer solana.PublicKey, args ClosePoolArgs) (*Receipt, error) {
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if err := requireSigner(signer, keyPtr(pool.GeneralAuthority), "general authority"); err != nil {
		return nil, err
	}
	if pool.CurrentSupply > 0 {
		return nil, fmt.Errorf("%w: supply is %d", ErrNotEmpty, pool.CurrentSupply)
	}
	if args.Refund.IsZero() {
		return nil, fmt.Errorf("%w: refund owner is required", ErrInvalidArgs)
	}

	swept, err := env.Ledger.Balance(pool.ReserveMint, pool.ReserveVault)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance: %w", err)
	}
	if swept > 0 {
		if err := env.Ledger.Transfer(pool.ReserveMint, pool.ReserveVault, args.Refund, pool.ReserveVault, swept); err != nil {
			return nil, fmt.Errorf("failed to sweep vault: %w", err)
		}
	}

	pool.State = PoolClosed
	pool.ReserveBalanceFromBonding = 0
	pool.AccumulatedFees = 0
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	e.logger.Info("Pool closed",
		zap.String("pool", args.Pool.String()),
		zap.String("refund", args.Refund.String()),
		zap.Uint64("swept", swept))

	return &Receipt{
		Instruction: InstructionClosePool,
		Pool:        args.Pool,
		Curve:       pool.Curve,
		Events: []events.Event{&events.PoolClosedEvent{
			BaseEvent: events.NewBase(events.PoolClosed, env.Now),
			Pool:      args.Pool,
			Refund:    args.Refund,
			Swept:     swept,
		}},
	}, nil
}
