// =============================
// File: internal/bonding/native.go
// =============================
package bonding

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/ledger"
)

const (
	seedSolStorage          = "sol-storage"
	seedWrappedSolAuthority = "wrapped-sol-authority"
)

var SolStorageDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "SolStorageV0")

// SolStorageV0 describes the wrapped native asset. The storage account holds
// exactly the native balance backing the wrapped supply.
type SolStorageV0 struct {
	WrappedMint   solana.PublicKey
	Storage       solana.PublicKey
	MintAuthority solana.PublicKey
	StorageBump   uint8
	AuthorityBump uint8
}

// InitializeSolStorageArgs are the arguments of initialize_sol_storage_v0.
// A zero WrappedMint means solana.SolMint.
type InitializeSolStorageArgs struct {
	WrappedMint solana.PublicKey
}

// BuyWrappedSolArgs wraps Amount of the signer's native balance.
type BuyWrappedSolArgs struct {
	Amount uint64
}

// SellWrappedSolArgs unwraps Amount, or the whole wrapped balance when All
// is set.
type SellWrappedSolArgs struct {
	Amount uint64
	All    bool
}

// SolStorageAddresses derives the native storage account and the wrapped
// mint authority.
func SolStorageAddresses(programID solana.PublicKey) (SolStorageV0, error) {
	var out SolStorageV0
	var err error
	out.Storage, out.StorageBump, err = solana.FindProgramAddress([][]byte{[]byte(seedSolStorage)}, programID)
	if err != nil {
		return SolStorageV0{}, fmt.Errorf("failed to derive sol storage: %w", err)
	}
	out.MintAuthority, out.AuthorityBump, err = solana.FindProgramAddress([][]byte{[]byte(seedWrappedSolAuthority)}, programID)
	if err != nil {
		return SolStorageV0{}, fmt.Errorf("failed to derive wrapped sol authority: %w", err)
	}
	return out, nil
}

// SolStorage loads the wrapped native asset record.
func (e *Engine) SolStorage(env Env) (SolStorageV0, error) {
	addrs, err := SolStorageAddresses(e.programID)
	if err != nil {
		return SolStorageV0{}, err
	}
	data, ok, err := env.State.GetAccount(addrs.Storage)
	if err != nil {
		return SolStorageV0{}, fmt.Errorf("failed to read sol storage: %w", err)
	}
	if !ok {
		return SolStorageV0{}, fmt.Errorf("%w: sol storage is not initialized", ErrInvalidAccount)
	}
	var st SolStorageV0
	if err := DecodeAccount(data, SolStorageDiscriminator, &st); err != nil {
		return SolStorageV0{}, fmt.Errorf("sol storage: %w", err)
	}
	return st, nil
}

// InitializeSolStorage creates the wrapped native mint under the derived
// mint authority. It runs once per program.
func (e *Engine) InitializeSolStorage(ctx context.Context, env Env, signer solana.PublicKey, args InitializeSolStorageArgs) (*Receipt, error) {
	st, err := SolStorageAddresses(e.programID)
	if err != nil {
		return nil, err
	}
	if _, exists, err := env.State.GetAccount(st.Storage); err != nil {
		return nil, fmt.Errorf("failed to read sol storage: %w", err)
	} else if exists {
		return nil, fmt.Errorf("%w: sol storage already initialized", ErrInvalidAccount)
	}
	st.WrappedMint = args.WrappedMint
	if st.WrappedMint.IsZero() {
		st.WrappedMint = solana.SolMint
	}
	if err := env.Ledger.CreateMint(st.WrappedMint, st.MintAuthority, ledger.NativeDecimals); err != nil {
		return nil, fmt.Errorf("%w: wrapped mint: %v", ErrInvalidArgs, err)
	}
	data, err := EncodeAccount(SolStorageDiscriminator, st)
	if err != nil {
		return nil, err
	}
	if err := env.State.PutAccount(st.Storage, data); err != nil {
		return nil, err
	}

	e.logger.Info("Sol storage initialized",
		zap.String("storage", st.Storage.String()),
		zap.String("wrapped_mint", st.WrappedMint.String()),
		zap.String("payer", signer.String()))
	return &Receipt{Instruction: InstructionInitializeSolStorage}, nil
}

// BuyWrappedSol moves native balance into storage and mints the same amount
// of the wrapped asset to the signer.
func (e *Engine) BuyWrappedSol(ctx context.Context, env Env, signer solana.PublicKey, args BuyWrappedSolArgs) (*Receipt, error) {
	st, err := e.SolStorage(env)
	if err != nil {
		return nil, err
	}
	if args.Amount == 0 {
		return nil, fmt.Errorf("%w: amount is zero", ErrInvalidArgs)
	}
	if err := wrapNative(env, st, signer, args.Amount); err != nil {
		return nil, err
	}
	return &Receipt{Instruction: InstructionBuyWrappedSol}, nil
}

// SellWrappedSol burns the signer's wrapped asset and releases the native
// balance behind it.
func (e *Engine) SellWrappedSol(ctx context.Context, env Env, signer solana.PublicKey, args SellWrappedSolArgs) (*Receipt, error) {
	st, err := e.SolStorage(env)
	if err != nil {
		return nil, err
	}
	amount := args.Amount
	if args.All {
		if amount, err = env.Ledger.Balance(st.WrappedMint, signer); err != nil {
			return nil, fmt.Errorf("failed to read wrapped balance: %w", err)
		}
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount is zero", ErrInvalidArgs)
	}
	if err := unwrapNative(env, st, signer, amount); err != nil {
		return nil, err
	}
	return &Receipt{Instruction: InstructionSellWrappedSol}, nil
}

// BuyNative is Buy paid from the signer's native balance. The pool's reserve
// must be the wrapped native asset; whatever the trade does not spend is
// unwrapped again.
func (e *Engine) BuyNative(ctx context.Context, env Env, signer solana.PublicKey, args BuyArgs) (*Receipt, error) {
	st, err := e.nativePool(env, args.Pool)
	if err != nil {
		return nil, err
	}
	var bound uint64
	switch {
	case args.TargetAmount != nil && args.ReserveAmount == nil:
		bound = args.TargetAmount.MaximumPrice
	case args.ReserveAmount != nil && args.TargetAmount == nil:
		bound = args.ReserveAmount.ReserveAmount
	default:
		return nil, fmt.Errorf("%w: exactly one of target amount or reserve amount is required", ErrInvalidArgs)
	}
	native, err := env.Ledger.NativeBalance(signer)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance: %w", err)
	}
	wrapped := min(bound, native)
	if wrapped > 0 {
		if err := wrapNative(env, st, signer, wrapped); err != nil {
			return nil, err
		}
	}

	receipt, err := e.Buy(ctx, env, signer, args)
	if err != nil {
		return nil, err
	}
	spent := receipt.Trade.Total
	if spent > wrapped {
		return nil, fmt.Errorf("%w: buyer holds %d lamports, needs %d", ErrInsufficientFunds, native, spent)
	}
	if change := wrapped - spent; change > 0 {
		if err := unwrapNative(env, st, signer, change); err != nil {
			return nil, err
		}
	}
	receipt.Instruction = InstructionBuyNative
	return receipt, nil
}

// SellNative is Sell with the proceeds paid out as native balance.
func (e *Engine) SellNative(ctx context.Context, env Env, signer solana.PublicKey, args SellArgs) (*Receipt, error) {
	st, err := e.nativePool(env, args.Pool)
	if err != nil {
		return nil, err
	}
	receipt, err := e.Sell(ctx, env, signer, args)
	if err != nil {
		return nil, err
	}
	if proceeds := receipt.Trade.Total; proceeds > 0 {
		if err := unwrapNative(env, st, signer, proceeds); err != nil {
			return nil, err
		}
	}
	receipt.Instruction = InstructionSellNative
	return receipt, nil
}

// TransferReservesNative withdraws reserves like TransferReserves and pays
// the destination in native balance.
func (e *Engine) TransferReservesNative(ctx context.Context, env Env, signer solana.PublicKey, args TransferReservesArgs) (*Receipt, error) {
	st, err := e.nativePool(env, args.Pool)
	if err != nil {
		return nil, err
	}
	if args.Destination.IsZero() {
		return nil, fmt.Errorf("%w: amount and destination are required", ErrInvalidArgs)
	}
	// резервы идут в storage, там сжигаются и выплачиваются нативом
	viaStorage := args
	viaStorage.Destination = st.Storage
	receipt, err := e.TransferReserves(ctx, env, signer, viaStorage)
	if err != nil {
		return nil, err
	}
	if err := env.Ledger.Burn(st.WrappedMint, st.Storage, st.Storage, args.Amount); err != nil {
		return nil, fmt.Errorf("failed to burn wrapped reserves: %w", err)
	}
	if err := env.Ledger.TransferNative(st.Storage, args.Destination, st.Storage, args.Amount); err != nil {
		return nil, fmt.Errorf("failed to release native reserves: %w", err)
	}
	for _, ev := range receipt.Events {
		if rt, ok := ev.(*events.ReservesTransferredEvent); ok {
			rt.Destination = args.Destination
		}
	}
	receipt.Instruction = InstructionTransferReservesNative
	return receipt, nil
}

// nativePool checks that the pool is priced in the wrapped native asset.
func (e *Engine) nativePool(env Env, poolID solana.PublicKey) (SolStorageV0, error) {
	st, err := e.SolStorage(env)
	if err != nil {
		return SolStorageV0{}, err
	}
	pool, err := loadPool(env.State, poolID)
	if err != nil {
		return SolStorageV0{}, err
	}
	if !pool.ReserveMint.Equals(st.WrappedMint) {
		return SolStorageV0{}, fmt.Errorf("%w: pool reserve %s is not the wrapped native mint", ErrInvalidArgs, pool.ReserveMint)
	}
	return st, nil
}

func wrapNative(env Env, st SolStorageV0, owner solana.PublicKey, amount uint64) error {
	if err := env.Ledger.TransferNative(owner, st.Storage, owner, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return fmt.Errorf("%w: wrap: %v", ErrInsufficientFunds, err)
		}
		return fmt.Errorf("failed to wrap: %w", err)
	}
	if err := env.Ledger.Mint(st.WrappedMint, owner, st.MintAuthority, amount); err != nil {
		return fmt.Errorf("failed to mint wrapped: %w", err)
	}
	return nil
}

func unwrapNative(env Env, st SolStorageV0, owner solana.PublicKey, amount uint64) error {
	if err := env.Ledger.Burn(st.WrappedMint, owner, owner, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return fmt.Errorf("%w: unwrap: %v", ErrInsufficientFunds, err)
		}
		return fmt.Errorf("failed to unwrap: %w", err)
	}
	if err := env.Ledger.TransferNative(st.Storage, owner, st.Storage, amount); err != nil {
		return fmt.Errorf("failed to release native: %w", err)
	}
	return nil
}
