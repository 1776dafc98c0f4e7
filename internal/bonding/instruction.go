// =============================
// File: internal/bonding/instruction.go
// =============================
package bonding

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/precise"
)

// Instruction names, as the client and the error codes know them.
const (
	InstructionCreateCurve            = "create_curve_v0"
	InstructionInitializePool         = "initialize_token_bonding_v0"
	InstructionBuy                    = "buy_v1"
	InstructionSell                   = "sell_v1"
	InstructionTransferReserves       = "transfer_reserves_v0"
	InstructionUpdateReserveAuthority = "update_reserve_authority_v0"
	InstructionUpdatePool             = "update_token_bonding_v0"
	InstructionUpdateCurve            = "update_curve_v0"
	InstructionClosePool              = "close_token_bonding_v0"

	InstructionInitializeSolStorage   = "initialize_sol_storage_v0"
	InstructionBuyWrappedSol          = "buy_wrapped_sol_v0"
	InstructionSellWrappedSol         = "sell_wrapped_sol_v0"
	InstructionBuyNative              = "buy_native_v0"
	InstructionSellNative             = "sell_native_v0"
	InstructionTransferReservesNative = "transfer_reserves_native_v0"
)

// Discriminators: sha256("global:<name>")[:8].
var discriminators = map[string]bin.TypeID{
	InstructionCreateCurve:            bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionCreateCurve),
	InstructionInitializePool:         bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionInitializePool),
	InstructionBuy:                    bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionBuy),
	InstructionSell:                   bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionSell),
	InstructionTransferReserves:       bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionTransferReserves),
	InstructionUpdateReserveAuthority: bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionUpdateReserveAuthority),
	InstructionUpdatePool:             bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionUpdatePool),
	InstructionUpdateCurve:            bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionUpdateCurve),
	InstructionClosePool:              bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionClosePool),

	InstructionInitializeSolStorage:   bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionInitializeSolStorage),
	InstructionBuyWrappedSol:          bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionBuyWrappedSol),
	InstructionSellWrappedSol:         bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionSellWrappedSol),
	InstructionBuyNative:              bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionBuyNative),
	InstructionSellNative:             bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionSellNative),
	InstructionTransferReservesNative: bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, InstructionTransferReservesNative),
}

// Instruction is one signed call into the engine.
type Instruction struct {
	Signer solana.PublicKey
	// Data is the 8-byte discriminator followed by the borsh-encoded args.
	Data []byte
}

// Trade summarizes a committed buy or sell.
type Trade struct {
	Side   events.Side
	Trader solana.PublicKey
	// TargetAmount minted (buy) or burned (sell).
	TargetAmount uint64
	// ReserveAmount is the curve cost (buy) or gross proceeds (sell).
	ReserveAmount uint64
	Fee           uint64
	// Total is what the buyer paid or the seller received.
	Total        uint64
	SupplyAfter  uint64
	ReserveAfter uint64
	SpotPrice    precise.Number
}

// Receipt is the result of a successful instruction. Events are only
// published by the host once the instruction's writes are committed.
type Receipt struct {
	Instruction string
	Pool        solana.PublicKey
	Curve       solana.PublicKey
	Trade       *Trade
	Events      []events.Event
}

// InstructionName resolves the discriminator of data. Unknown data reports "".
func InstructionName(data []byte) string {
	if len(data) < 8 {
		return ""
	}
	for name, disc := range discriminators {
		if disc.Equal(data[:8]) {
			return name
		}
	}
	return ""
}

// EncodeInstruction builds an instruction from a name and its args struct.
func EncodeInstruction(name string, signer solana.PublicKey, args interface{}) (Instruction, error) {
	disc, ok := discriminators[name]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %s", ErrUnknownInstruction, name)
	}
	var buf bytes.Buffer
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(&buf).Encode(args); err != nil {
		return Instruction{}, fmt.Errorf("failed to encode %s args: %w", name, err)
	}
	return Instruction{Signer: signer, Data: buf.Bytes()}, nil
}

func NewCreateCurveInstruction(signer solana.PublicKey, args CreateCurveArgs) (Instruction, error) {
	return EncodeInstruction(InstructionCreateCurve, signer, args)
}

func NewInitializePoolInstruction(signer solana.PublicKey, args InitializePoolArgs) (Instruction, error) {
	return EncodeInstruction(InstructionInitializePool, signer, args)
}

func NewBuyInstruction(signer solana.PublicKey, args BuyArgs) (Instruction, error) {
	return EncodeInstruction(InstructionBuy, signer, args)
}

func NewSellInstruction(signer solana.PublicKey, args SellArgs) (Instruction, error) {
	return EncodeInstruction(InstructionSell, signer, args)
}

func NewTransferReservesInstruction(signer solana.PublicKey, args TransferReservesArgs) (Instruction, error) {
	return EncodeInstruction(InstructionTransferReserves, signer, args)
}

func NewUpdateReserveAuthorityInstruction(signer solana.PublicKey, args UpdateReserveAuthorityArgs) (Instruction, error) {
	return EncodeInstruction(InstructionUpdateReserveAuthority, signer, args)
}

func NewUpdatePoolInstruction(signer solana.PublicKey, args UpdatePoolArgs) (Instruction, error) {
	return EncodeInstruction(InstructionUpdatePool, signer, args)
}

func NewUpdateCurveInstruction(signer solana.PublicKey, args UpdateCurveArgs) (Instruction, error) {
	return EncodeInstruction(InstructionUpdateCurve, signer, args)
}

func NewClosePoolInstruction(signer solana.PublicKey, args ClosePoolArgs) (Instruction, error) {
	return EncodeInstruction(InstructionClosePool, signer, args)
}

func NewInitializeSolStorageInstruction(signer solana.PublicKey, args InitializeSolStorageArgs) (Instruction, error) {
	return EncodeInstruction(InstructionInitializeSolStorage, signer, args)
}

func NewBuyWrappedSolInstruction(signer solana.PublicKey, args BuyWrappedSolArgs) (Instruction, error) {
	return EncodeInstruction(InstructionBuyWrappedSol, signer, args)
}

func NewSellWrappedSolInstruction(signer solana.PublicKey, args SellWrappedSolArgs) (Instruction, error) {
	return EncodeInstruction(InstructionSellWrappedSol, signer, args)
}

// NewBuyNativeInstruction takes the same args as buy_v1.
func NewBuyNativeInstruction(signer solana.PublicKey, args BuyArgs) (Instruction, error) {
	return EncodeInstruction(InstructionBuyNative, signer, args)
}

func NewSellNativeInstruction(signer solana.PublicKey, args SellArgs) (Instruction, error) {
	return EncodeInstruction(InstructionSellNative, signer, args)
}

func NewTransferReservesNativeInstruction(signer solana.PublicKey, args TransferReservesArgs) (Instruction, error) {
	return EncodeInstruction(InstructionTransferReservesNative, signer, args)
}

// Process decodes ix and runs its handler against env. On error the caller
// must discard every write the handler made to env.
func (e *Engine) Process(ctx context.Context, env Env, ix Instruction) (*Receipt, error) {
	name := InstructionName(ix.Data)
	if name == "" {
		return nil, fmt.Errorf("%w: %d bytes of data", ErrUnknownInstruction, len(ix.Data))
	}
	payload := ix.Data[8:]

	logger := e.logger.With(zap.String("instruction", name), zap.String("signer", ix.Signer.String()))
	logger.Debug("Processing instruction")

	var (
		receipt *Receipt
		err     error
	)
	switch name {
	case InstructionCreateCurve:
		var args CreateCurveArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.CreateCurve(ctx, env, ix.Signer, args)
		}
	case InstructionInitializePool:
		var args InitializePoolArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.InitializePool(ctx, env, ix.Signer, args)
		}
	case InstructionBuy:
		var args BuyArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.Buy(ctx, env, ix.Signer, args)
		}
	case InstructionSell:
		var args SellArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.Sell(ctx, env, ix.Signer, args)
		}
	case InstructionTransferReserves:
		var args TransferReservesArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.TransferReserves(ctx, env, ix.Signer, args)
		}
	case InstructionUpdateReserveAuthority:
		var args UpdateReserveAuthorityArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.UpdateReserveAuthority(ctx, env, ix.Signer, args)
		}
	case InstructionUpdatePool:
		var args UpdatePoolArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.UpdatePool(ctx, env, ix.Signer, args)
		}
	case InstructionUpdateCurve:
		var args UpdateCurveArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.UpdateCurve(ctx, env, ix.Signer, args)
		}
	case InstructionClosePool:
		var args ClosePoolArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.ClosePool(ctx, env, ix.Signer, args)
		}
	case InstructionInitializeSolStorage:
		var args InitializeSolStorageArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.InitializeSolStorage(ctx, env, ix.Signer, args)
		}
	case InstructionBuyWrappedSol:
		var args BuyWrappedSolArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.BuyWrappedSol(ctx, env, ix.Signer, args)
		}
	case InstructionSellWrappedSol:
		var args SellWrappedSolArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.SellWrappedSol(ctx, env, ix.Signer, args)
		}
	case InstructionBuyNative:
		var args BuyArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.BuyNative(ctx, env, ix.Signer, args)
		}
	case InstructionSellNative:
		var args SellArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.SellNative(ctx, env, ix.Signer, args)
		}
	case InstructionTransferReservesNative:
		var args TransferReservesArgs
		if err = decodeArgs(payload, &args); err == nil {
			receipt, err = e.TransferReservesNative(ctx, env, ix.Signer, args)
		}
	}
	if err != nil {
		code, _ := Code(err)
		logger.Debug("Instruction rejected", zap.Uint32("code", code), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return receipt, nil
}

func decodeArgs(data []byte, v interface{}) error {
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if dec.HasRemaining() {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidArgs, dec.Remaining())
	}
	return nil
}
