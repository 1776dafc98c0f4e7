// =============================
// File: internal/bonding/state.go
// =============================
package bonding

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curvebond/internal/curve"
)

// PoolState is the lifecycle of a bonding pool.
type PoolState uint8

const (
	PoolUninitialized PoolState = iota
	PoolActive
	PoolClosed
)

func (s PoolState) String() string {
	switch s {
	case PoolUninitialized:
		return "uninitialized"
	case PoolActive:
		return "active"
	case PoolClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Дискриминаторы аккаунтов в стиле Anchor: sha256("account:<Name>")[:8].
var (
	ProgramStateDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "ProgramStateV0")
	CurveDiscriminator        = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "CurveV0")
	TokenBondingDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "TokenBondingV0")
)

const discriminatorSize = 8

// ProgramStateV0 holds the counter curve ids are derived from.
type ProgramStateV0 struct {
	CurveCount uint64
}

// CurveV0 is a stored, immutable curve.
type CurveV0 struct {
	Definition curve.Definition
}

// TokenBondingV0 is the persistent record of one bonding pool. Field order
// and widths are the on-account layout and must not change.
type TokenBondingV0 struct {
	Version                   uint8
	State                     PoolState
	Curve                     solana.PublicKey
	ReserveMint               solana.PublicKey
	TargetMint                solana.PublicKey
	ReserveVault              solana.PublicKey
	TargetMintAuthority       solana.PublicKey
	GeneralAuthority          solana.PublicKey
	ReserveAuthority          *solana.PublicKey `bin:"optional"`
	CurveAuthority            *solana.PublicKey `bin:"optional"`
	Index                     uint16
	Bump                      uint8
	VaultBump                 uint8
	AuthorityBump             uint8
	ReserveDecimals           uint8
	TargetDecimals            uint8
	CurrentSupply             uint64
	ReserveBalanceFromBonding uint64
	AccumulatedFees           uint64
	MintCap                   *uint64 `bin:"optional"`
	PurchaseCap               *uint64 `bin:"optional"`
	GoLiveUnixTime            int64
	FreezeBuyUnixTime         *int64 `bin:"optional"`
	CreatedAtUnixTime         int64
	BuyFrozen                 bool
	SellFrozen                bool
	FounderRewardBps          uint16
}

// VaultBacking is what the vault should hold: curve reserve plus fees.
func (p *TokenBondingV0) VaultBacking() (uint64, error) {
	return addU64(p.ReserveBalanceFromBonding, p.AccumulatedFees)
}

// EncodeAccount serializes v behind its discriminator.
func EncodeAccount(disc bin.TypeID, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount checks the discriminator and deserializes into v.
func DecodeAccount(data []byte, disc bin.TypeID, v interface{}) error {
	if len(data) < discriminatorSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAccount, len(data))
	}
	if !disc.Equal(data[:discriminatorSize]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccount)
	}
	dec := bin.NewBorshDecoder(data[discriminatorSize:])
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	if dec.HasRemaining() {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidAccount, dec.Remaining())
	}
	return nil
}
