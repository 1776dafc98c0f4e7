// =============================
// File: internal/bonding/trade.go
// =============================
package bonding

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/events"
)

// BuyTargetAmount buys an exact target amount, paying at most MaximumPrice
// (cost plus fee) in reserve base units.
type BuyTargetAmount struct {
	TargetAmount uint64
	MaximumPrice uint64
}

// BuyReserveAmount spends up to ReserveAmount and requires at least
// MinimumTargetAmount in return.
type BuyReserveAmount struct {
	ReserveAmount       uint64
	MinimumTargetAmount uint64
}

// BuyArgs are the arguments of buy_v1. Exactly one mode must be set.
type BuyArgs struct {
	Pool          solana.PublicKey
	TargetAmount  *BuyTargetAmount  `bin:"optional"`
	ReserveAmount *BuyReserveAmount `bin:"optional"`
}

// SellArgs are the arguments of sell_v1.
type SellArgs struct {
	Pool         solana.PublicKey
	TargetAmount uint64
	// MinimumPrice is the least the seller accepts after fees.
	MinimumPrice uint64
}

// TransferReservesArgs are the arguments of transfer_reserves_v0.
type TransferReservesArgs struct {
	Pool        solana.PublicKey
	Amount      uint64
	Destination solana.PublicKey
}

// Buy mints target tokens to the signer against reserve tokens paid into the
// pool vault.
func (e *Engine) Buy(ctx context.Context, env Env, signer solana.PublicKey, args BuyArgs) (*Receipt, error) {
	if (args.TargetAmount == nil) == (args.ReserveAmount == nil) {
		return nil, fmt.Errorf("%w: exactly one of target amount or reserve amount is required", ErrInvalidArgs)
	}
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if pool.BuyFrozen || (pool.FreezeBuyUnixTime != nil && env.Now >= *pool.FreezeBuyUnixTime) {
		return nil, fmt.Errorf("%w: buys are frozen", ErrPoolFrozen)
	}
	if env.Now < pool.GoLiveUnixTime {
		return nil, fmt.Errorf("%w: goes live at %d, now %d", ErrNotLive, pool.GoLiveUnixTime, env.Now)
	}
	c, err := loadCurve(env.State, pool.Curve)
	if err != nil {
		return nil, err
	}

	var q BuyQuote
	if args.TargetAmount != nil {
		q, err = quoteBuyTarget(c.Definition, pool, args.TargetAmount.TargetAmount)
		if err != nil {
			return nil, err
		}
		if q.Total > args.TargetAmount.MaximumPrice {
			return nil, &SlippageError{Side: "buy", Bound: args.TargetAmount.MaximumPrice, Actual: q.Total}
		}
	} else {
		q, err = quoteBuyReserve(c.Definition, pool, args.ReserveAmount.ReserveAmount)
		if errors.Is(err, errBuysNothing) && args.ReserveAmount.MinimumTargetAmount > 0 {
			return nil, &SlippageError{Side: "buy", Bound: args.ReserveAmount.MinimumTargetAmount}
		}
		if err != nil {
			return nil, err
		}
		if q.TargetAmount < args.ReserveAmount.MinimumTargetAmount {
			return nil, &SlippageError{Side: "buy", Bound: args.ReserveAmount.MinimumTargetAmount, Actual: q.TargetAmount}
		}
	}

	supplyAfter, err := addU64(pool.CurrentSupply, q.TargetAmount)
	if err != nil {
		return nil, err
	}
	if pool.MintCap != nil && supplyAfter > *pool.MintCap {
		return nil, fmt.Errorf("%w: supply would reach %d, cap %d", ErrMintCapExceeded, supplyAfter, *pool.MintCap)
	}
	if pool.PurchaseCap != nil && q.TargetAmount > *pool.PurchaseCap {
		return nil, fmt.Errorf("%w: buying %d, cap %d", ErrPurchaseCapExceeded, q.TargetAmount, *pool.PurchaseCap)
	}
	reserveAfter, err := addU64(pool.ReserveBalanceFromBonding, q.Cost)
	if err != nil {
		return nil, err
	}
	feesAfter, err := addU64(pool.AccumulatedFees, q.Fee)
	if err != nil {
		return nil, err
	}
	balance, err := env.Ledger.Balance(pool.ReserveMint, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer balance: %w", err)
	}
	if balance < q.Total {
		return nil, fmt.Errorf("%w: buyer holds %d, needs %d", ErrInsufficientFunds, balance, q.Total)
	}

	// Все проверки пройдены, дальше только мутации.
	if err := env.Ledger.Transfer(pool.ReserveMint, signer, pool.ReserveVault, signer, q.Total); err != nil {
		return nil, fmt.Errorf("failed to pay reserves: %w", err)
	}
	if err := env.Ledger.Mint(pool.TargetMint, signer, pool.TargetMintAuthority, q.TargetAmount); err != nil {
		return nil, fmt.Errorf("failed to mint target: %w", err)
	}
	pool.CurrentSupply = supplyAfter
	pool.ReserveBalanceFromBonding = reserveAfter
	pool.AccumulatedFees = feesAfter
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	return e.tradeReceipt(env, InstructionBuy, args.Pool, pool, c.Definition, signer, Trade{
		Side:          events.SideBuy,
		Trader:        signer,
		TargetAmount:  q.TargetAmount,
		ReserveAmount: q.Cost,
		Fee:           q.Fee,
		Total:         q.Total,
	})
}

// Sell burns the signer's target tokens and pays the curve value less fees
// out of the vault.
func (e *Engine) Sell(ctx context.Context, env Env, signer solana.PublicKey, args SellArgs) (*Receipt, error) {
	pool, err := loadPool(env.State, args.Pool)
	if err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if pool.SellFrozen {
		return nil, fmt.Errorf("%w: sells are frozen", ErrPoolFrozen)
	}
	if args.TargetAmount == 0 {
		return nil, fmt.Errorf("%w: target amount is zero", ErrInvalidArgs)
	}
	if args.TargetAmount > pool.CurrentSupply {
		return nil, fmt.Errorf("%w: selling %d of %d", ErrInsufficientSupply, args.TargetAmount, pool.CurrentSupply)
	}
	held, err := env.Ledger.Balance(pool.TargetMint, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to read seller balance: %w", err)
	}
	if held < args.TargetAmount {
		return nil, fmt.Errorf("%w: seller holds %d, selling %d", ErrInsufficientFunds, held, args.TargetAmount)
	}
	c, err := loadCurve(env.State, pool.Curve)
	if err != nil {
		return nil, err
	}

	q, err := quoteSell(c.Definition, pool, args.TargetAmount)
	if err != nil {
		return nil, err
	}
	if q.Proceeds < args.MinimumPrice {
		return nil, &SlippageError{Side: "sell", Bound: args.MinimumPrice, Actual: q.Proceeds}
	}
	vault, err := env.Ledger.Balance(pool.ReserveMint, pool.ReserveVault)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance: %w", err)
	}
	if vault < q.Proceeds {
		return nil, fmt.Errorf("%w: vault holds %d, owes %d", ErrInsufficientReserve, vault, q.Proceeds)
	}
	reserveAfter, err := subU64(pool.ReserveBalanceFromBonding, q.Gross)
	if err != nil {
		return nil, err
	}
	feesAfter, err := addU64(pool.AccumulatedFees, q.Fee)
	if err != nil {
		return nil, err
	}

	if err := env.Ledger.Burn(pool.TargetMint, signer, signer, args.TargetAmount); err != nil {
		return nil, fmt.Errorf("failed to burn target: %w", err)
	}
	if q.Proceeds > 0 {
		if err := env.Ledger.Transfer(pool.ReserveMint, pool.ReserveVault, signer, pool.ReserveVault, q.Proceeds); err != nil {
			return nil, fmt.Errorf("failed to pay proceeds: %w", err)
		}
	}
	pool.CurrentSupply -= args.TargetAmount
	pool.ReserveBalanceFromBonding = reserveAfter
	pool.AccumulatedFees = feesAfter
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	return e.tradeReceipt(env, InstructionSell, args.Pool, pool, c.Definition, signer, Trade{
		Side:          events.SideSell,
		Trader:        signer,
		TargetAmount:  args.TargetAmount,
		ReserveAmount: q.Gross,
		Fee:           q.Fee,
		Total:         q.Proceeds,
	})
}

// TransferReserves lets the reserve authority withdraw from the vault down to
// the curve's backing of the outstanding supply. Accumulated fees go first.
func (e *Engine) TransferReserves(ctx context.Context, env Env, signer solana.PublicKey, args TransferReservesArgs) (*Receipt, error) {
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
	if args.Amount == 0 || args.Destination.IsZero() {
		return nil, fmt.Errorf("%w: amount and destination are required", ErrInvalidArgs)
	}
	c, err := loadCurve(env.State, pool.Curve)
	if err != nil {
		return nil, err
	}

	backing, err := requiredBacking(c.Definition, pool)
	if err != nil {
		return nil, err
	}
	vault, err := env.Ledger.Balance(pool.ReserveMint, pool.ReserveVault)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance: %w", err)
	}
	if args.Amount > vault || vault-args.Amount < backing {
		return nil, fmt.Errorf("%w: vault %d, withdrawing %d, backing %d",
			ErrInsufficientReserve, vault, args.Amount, backing)
	}

	fromFees := min(args.Amount, pool.AccumulatedFees)
	reserveAfter, err := subU64(pool.ReserveBalanceFromBonding, args.Amount-fromFees)
	if err != nil {
		return nil, err
	}

	if err := env.Ledger.Transfer(pool.ReserveMint, pool.ReserveVault, args.Destination, pool.ReserveVault, args.Amount); err != nil {
		return nil, fmt.Errorf("failed to transfer reserves: %w", err)
	}
	pool.AccumulatedFees -= fromFees
	pool.ReserveBalanceFromBonding = reserveAfter
	if err := storePool(env.State, args.Pool, pool); err != nil {
		return nil, err
	}

	e.logger.Info("Reserves transferred",
		zap.String("pool", args.Pool.String()),
		zap.String("destination", args.Destination.String()),
		zap.Uint64("amount", args.Amount),
		zap.Uint64("from_fees", fromFees))

	return &Receipt{
		Instruction: InstructionTransferReserves,
		Pool:        args.Pool,
		Curve:       pool.Curve,
		Events: []events.Event{&events.ReservesTransferredEvent{
			BaseEvent:   events.NewBase(events.ReservesTransferred, env.Now),
			Pool:        args.Pool,
			Destination: args.Destination,
			Amount:      args.Amount,
			FromFees:    fromFees,
		}},
	}, nil
}

func (e *Engine) tradeReceipt(env Env, ix string, poolID solana.PublicKey, pool *TokenBondingV0, def curve.Definition, signer solana.PublicKey, t Trade) (*Receipt, error) {
	price, err := spotPrice(def, pool)
	if err != nil {
		return nil, err
	}
	t.SupplyAfter = pool.CurrentSupply
	t.ReserveAfter = pool.ReserveBalanceFromBonding
	t.SpotPrice = price

	e.logger.Debug("Trade executed",
		zap.String("pool", poolID.String()),
		zap.String("side", string(t.Side)),
		zap.String("trader", signer.String()),
		zap.Uint64("target_amount", t.TargetAmount),
		zap.Uint64("reserve_amount", t.ReserveAmount),
		zap.Uint64("fee", t.Fee),
		zap.Uint64("supply_after", t.SupplyAfter),
		zap.String("spot_price", price.String()))

	return &Receipt{
		Instruction: ix,
		Pool:        poolID,
		Curve:       pool.Curve,
		Trade:       &t,
		Events: []events.Event{&events.TradeExecutedEvent{
			BaseEvent:     events.NewBase(events.TradeExecuted, env.Now),
			Pool:          poolID,
			Trader:        signer,
			Side:          t.Side,
			TargetAmount:  t.TargetAmount,
			ReserveAmount: t.ReserveAmount,
			Fee:           t.Fee,
			SupplyAfter:   t.SupplyAfter,
			SpotPrice:     price.String(),
		}},
	}, nil
}
