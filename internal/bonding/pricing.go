// =============================
// File: internal/bonding/pricing.go
// =============================
package bonding

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// maxBudgetAdjustments bounds how often a reserve-mode buy shrinks its budget
// after rounding pushed the total over the caller's reserve amount.
const maxBudgetAdjustments = 8

// errBuysNothing marks a reserve amount too small to mint one base unit.
var errBuysNothing = fmt.Errorf("%w: reserve amount buys nothing", ErrInvalidArgs)

// BuyQuote is the price of minting TargetAmount at the pool's supply.
type BuyQuote struct {
	TargetAmount uint64
	// Cost is ceil(curve cost) in reserve base units.
	Cost  uint64
	Fee   uint64
	Total uint64
}

// SellQuote is the payout of burning TargetAmount at the pool's supply.
type SellQuote struct {
	TargetAmount uint64
	// Gross is floor(curve cost) in reserve base units.
	Gross    uint64
	Fee      uint64
	Proceeds uint64
}

// QuoteBuy prices a target-amount buy against the pool's committed state.
func (e *Engine) QuoteBuy(env Env, poolID solana.PublicKey, targetAmount uint64) (BuyQuote, error) {
	pool, def, err := e.loadPoolAndCurve(env, poolID)
	if err != nil {
		return BuyQuote{}, err
	}
	return quoteBuyTarget(def, pool, targetAmount)
}

// QuoteBuyWithReserve finds the largest buy whose total fits reserveAmount.
func (e *Engine) QuoteBuyWithReserve(env Env, poolID solana.PublicKey, reserveAmount uint64) (BuyQuote, error) {
	pool, def, err := e.loadPoolAndCurve(env, poolID)
	if err != nil {
		return BuyQuote{}, err
	}
	return quoteBuyReserve(def, pool, reserveAmount)
}

// QuoteSell prices a sell against the pool's committed state.
func (e *Engine) QuoteSell(env Env, poolID solana.PublicKey, targetAmount uint64) (SellQuote, error) {
	pool, def, err := e.loadPoolAndCurve(env, poolID)
	if err != nil {
		return SellQuote{}, err
	}
	if targetAmount > pool.CurrentSupply {
		return SellQuote{}, fmt.Errorf("%w: selling %d of %d", ErrInsufficientSupply, targetAmount, pool.CurrentSupply)
	}
	return quoteSell(def, pool, targetAmount)
}

// SpotPrice is the curve price at the pool's current supply, in whole reserve
// units per whole target unit.
func (e *Engine) SpotPrice(env Env, poolID solana.PublicKey) (precise.Number, error) {
	pool, def, err := e.loadPoolAndCurve(env, poolID)
	if err != nil {
		return precise.Zero, err
	}
	return spotPrice(def, pool)
}

func (e *Engine) loadPoolAndCurve(env Env, poolID solana.PublicKey) (*TokenBondingV0, curve.Definition, error) {
	pool, err := loadPool(env.State, poolID)
	if err != nil {
		return nil, curve.Definition{}, err
	}
	c, err := loadCurve(env.State, pool.Curve)
	if err != nil {
		return nil, curve.Definition{}, err
	}
	return pool, c.Definition, nil
}

func quoteBuyTarget(def curve.Definition, pool *TokenBondingV0, delta uint64) (BuyQuote, error) {
	if delta == 0 {
		return BuyQuote{}, fmt.Errorf("%w: target amount is zero", ErrInvalidArgs)
	}
	to, err := addU64(pool.CurrentSupply, delta)
	if err != nil {
		return BuyQuote{}, err
	}
	cost, err := curveCost(def, pool, pool.CurrentSupply, to, true)
	if err != nil {
		return BuyQuote{}, err
	}
	fee, err := feeFor(cost, pool.FounderRewardBps)
	if err != nil {
		return BuyQuote{}, err
	}
	total, err := addU64(cost, fee)
	if err != nil {
		return BuyQuote{}, err
	}
	return BuyQuote{TargetAmount: delta, Cost: cost, Fee: fee, Total: total}, nil
}

// quoteBuyReserve inverts the curve for the fee-free part of reserveAmount.
// Rounding the cost up (and the fee up) can overshoot by a few base units, in
// which case the budget shrinks by the overshoot and the inverse is redone.
func quoteBuyReserve(def curve.Definition, pool *TokenBondingV0, reserveAmount uint64) (BuyQuote, error) {
	if reserveAmount == 0 {
		return BuyQuote{}, fmt.Errorf("%w: reserve amount is zero", ErrInvalidArgs)
	}
	budget, err := budgetBeforeFee(reserveAmount, pool.FounderRewardBps)
	if err != nil {
		return BuyQuote{}, err
	}
	supply, err := wholeUnits(pool.CurrentSupply, pool.TargetDecimals)
	if err != nil {
		return BuyQuote{}, err
	}

	for i := 0; i <= maxBudgetAdjustments; i++ {
		budgetWhole, err := wholeUnits(budget, pool.ReserveDecimals)
		if err != nil {
			return BuyQuote{}, err
		}
		deltaWhole, err := def.TargetForReserve(supply, budgetWhole)
		if err != nil {
			return BuyQuote{}, arith("target for reserve", err)
		}
		delta, err := deltaWhole.ToScaledFloor(pool.TargetDecimals)
		if err != nil {
			return BuyQuote{}, arith("target for reserve", err)
		}
		if delta == 0 {
			return BuyQuote{}, fmt.Errorf("%w: %d", errBuysNothing, reserveAmount)
		}

		q, err := quoteBuyTarget(def, pool, delta)
		if err != nil {
			return BuyQuote{}, err
		}
		if q.Total <= reserveAmount {
			return q, nil
		}
		over := q.Total - reserveAmount
		if over >= budget {
			break
		}
		budget -= over
	}
	return BuyQuote{}, fmt.Errorf("%w: %d", errBuysNothing, reserveAmount)
}

func quoteSell(def curve.Definition, pool *TokenBondingV0, delta uint64) (SellQuote, error) {
	if delta == 0 {
		return SellQuote{}, fmt.Errorf("%w: target amount is zero", ErrInvalidArgs)
	}
	from, err := subU64(pool.CurrentSupply, delta)
	if err != nil {
		return SellQuote{}, err
	}
	gross, err := curveCost(def, pool, from, pool.CurrentSupply, false)
	if err != nil {
		return SellQuote{}, err
	}
	// Rounding dust may leave the last sellers a base unit short of the exact
	// integral; the pool never pays out more than its curve reserve.
	if gross > pool.ReserveBalanceFromBonding {
		gross = pool.ReserveBalanceFromBonding
	}
	fee, err := feeFor(gross, pool.FounderRewardBps)
	if err != nil {
		return SellQuote{}, err
	}
	proceeds, err := subU64(gross, fee)
	if err != nil {
		return SellQuote{}, err
	}
	return SellQuote{TargetAmount: delta, Gross: gross, Fee: fee, Proceeds: proceeds}, nil
}
