// =============================
// File: internal/bonding/errors.go
// =============================
package bonding

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// Ошибки программы. Порядок в errorCodes определяет коды 6000+n,
// его нельзя менять: клиенты сопоставляют ошибки по числовому коду.
var (
	ErrArithmetic             = errors.New("arithmetic error")
	ErrSlippageExceeded       = errors.New("slippage exceeded")
	ErrInsufficientReserve    = errors.New("insufficient reserve")
	ErrInsufficientSupply     = errors.New("insufficient supply")
	ErrMintCapExceeded        = errors.New("mint cap exceeded")
	ErrPurchaseCapExceeded    = errors.New("purchase cap exceeded")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidCurveContinuity = curve.ErrInvalidCurveContinuity
	ErrNotEmpty               = errors.New("pool not empty")
	ErrPoolFrozen             = errors.New("pool frozen")
	ErrNotLive                = errors.New("pool not live")
	ErrPoolClosed             = errors.New("pool closed")
	ErrCurveNotFound          = errors.New("curve not found")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrInvalidCurve           = curve.ErrInvalidCurve
	ErrInvalidFee             = errors.New("invalid fee")
	ErrInvalidMintAuthority   = errors.New("invalid mint authority")
	ErrInvalidArgs            = errors.New("invalid arguments")
	ErrPoolExists             = errors.New("pool already exists")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrUnknownInstruction     = errors.New("unknown instruction")
	ErrInvalidAccount         = errors.New("invalid account data")
)

// ErrorCodeOffset is the first program error code.
const ErrorCodeOffset = 6000

var errorCodes = []error{
	ErrArithmetic,
	ErrSlippageExceeded,
	ErrInsufficientReserve,
	ErrInsufficientSupply,
	ErrMintCapExceeded,
	ErrPurchaseCapExceeded,
	ErrUnauthorized,
	ErrInvalidCurveContinuity,
	ErrNotEmpty,
	ErrPoolFrozen,
	ErrNotLive,
	ErrPoolClosed,
	ErrCurveNotFound,
	ErrPoolNotFound,
	ErrInvalidCurve,
	ErrInvalidFee,
	ErrInvalidMintAuthority,
	ErrInvalidArgs,
	ErrPoolExists,
	ErrInsufficientFunds,
	ErrUnknownInstruction,
	ErrInvalidAccount,
}

// Code maps an engine error to its program error code. Errors that carry no
// program error report false.
func Code(err error) (uint32, bool) {
	if err == nil {
		return 0, false
	}
	for i, target := range errorCodes {
		if errors.Is(err, target) {
			return uint32(ErrorCodeOffset + i), true
		}
	}
	return 0, false
}

// IsRetryable reports whether resubmitting with different parameters may
// succeed. Only slippage qualifies; everything else will fail again against
// the same state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSlippageExceeded)
}

// SlippageError carries the amounts of a rejected trade.
type SlippageError struct {
	// Side is "buy" or "sell".
	Side string
	// Bound is the caller's maximum price (buy) or minimum amount (sell, reserve-mode buy).
	Bound uint64
	// Actual is the computed amount that violated the bound.
	Actual uint64
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("slippage exceeded on %s: bound %d, actual %d", e.Side, e.Bound, e.Actual)
}

// Unwrap makes errors.Is(err, ErrSlippageExceeded) hold.
func (e *SlippageError) Unwrap() error {
	return ErrSlippageExceeded
}

// arith wraps numeric failures from the precise package so that callers can
// match ErrArithmetic while the underlying cause stays inspectable.
func arith(op string, err error) error {
	if precise.IsArithmetic(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrArithmetic, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
