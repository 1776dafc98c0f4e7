// =============================
// File: internal/ledger/bank.go
// =============================
package ledger

import (
	"errors"
	"fmt"
	"math/bits"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var (
	ErrMintNotFound      = errors.New("mint not found")
	ErrMintExists        = errors.New("mint already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOwnerMismatch     = errors.New("authority does not own the account")
	ErrMintAuthority     = errors.New("invalid mint authority")
	ErrSupplyOverflow    = errors.New("supply overflow")
	ErrCorruptAccount    = errors.New("corrupt ledger account")
)

var (
	mintDiscriminator    = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "LedgerMint")
	accountDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "LedgerTokenAccount")
)

// AccountState is the id-keyed account view the bank reads and writes.
type AccountState interface {
	GetAccount(id solana.PublicKey) ([]byte, bool, error)
	PutAccount(id solana.PublicKey, data []byte) error
}

// MintInfo describes a fungible asset.
type MintInfo struct {
	Authority solana.PublicKey
	Decimals  uint8
	Supply    uint64
}

// TokenAccount is one owner's balance of one asset.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// Bank is an in-process fungible-asset ledger. Balances live in token
// accounts at the owner's associated token address, so every address is
// derived the same way the chain derives it.
type Bank struct {
	state  AccountState
	logger *zap.Logger
}

// NewBank creates a bank over state.
func NewBank(state AccountState, logger *zap.Logger) *Bank {
	return &Bank{state: state, logger: logger.Named("ledger")}
}

// AccountAddress returns where owner's balance of asset is stored.
func AccountAddress(asset, owner solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, asset)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account: %w", err)
	}
	return addr, nil
}

// CreateMint registers a new asset.
func (b *Bank) CreateMint(asset, authority solana.PublicKey, decimals uint8) error {
	if _, ok, err := b.state.GetAccount(asset); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrMintExists, asset)
	}
	b.logger.Debug("Create mint",
		zap.Stringer("asset", asset),
		zap.Stringer("authority", authority),
		zap.Uint8("decimals", decimals))
	return b.putMint(asset, MintInfo{Authority: authority, Decimals: decimals})
}

// SetMintAuthority hands the mint authority to next. Only the current
// authority may do so.
func (b *Bank) SetMintAuthority(asset, current, next solana.PublicKey) error {
	m, err := b.MintInfo(asset)
	if err != nil {
		return err
	}
	if !m.Authority.Equals(current) {
		return fmt.Errorf("%w: %s is not the authority of %s", ErrMintAuthority, current, asset)
	}
	m.Authority = next
	return b.putMint(asset, m)
}

// MintInfo loads an asset.
func (b *Bank) MintInfo(asset solana.PublicKey) (MintInfo, error) {
	data, ok, err := b.state.GetAccount(asset)
	if err != nil {
		return MintInfo{}, err
	}
	if !ok {
		return MintInfo{}, fmt.Errorf("%w: %s", ErrMintNotFound, asset)
	}
	var m MintInfo
	if err := decode(data, mintDiscriminator, &m); err != nil {
		return MintInfo{}, fmt.Errorf("mint %s: %w", asset, err)
	}
	return m, nil
}

// OpenAccount creates owner's token account for asset if it does not exist.
func (b *Bank) OpenAccount(asset, owner solana.PublicKey) error {
	if _, err := b.MintInfo(asset); err != nil {
		return err
	}
	_, _, err := b.loadAccount(asset, owner, true)
	return err
}

// Balance returns owner's balance of asset; a missing account holds zero.
func (b *Bank) Balance(asset, owner solana.PublicKey) (uint64, error) {
	acc, _, err := b.loadAccount(asset, owner, false)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

// Transfer moves amount of asset between owners. The authority must be the
// source owner.
func (b *Bank) Transfer(asset, from, to, authority solana.PublicKey, amount uint64) error {
	if !authority.Equals(from) {
		return fmt.Errorf("%w: %s signing for %s", ErrOwnerMismatch, authority, from)
	}
	if _, err := b.MintInfo(asset); err != nil {
		return err
	}
	src, srcAddr, err := b.loadAccount(asset, from, false)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientFunds, from, src.Amount, asset, amount)
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}
	dst, dstAddr, err := b.loadAccount(asset, to, true)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: balance of %s", ErrSupplyOverflow, to)
	}
	src.Amount -= amount
	dst.Amount = sum
	if err := b.putAccount(srcAddr, src); err != nil {
		return err
	}
	if err := b.putAccount(dstAddr, dst); err != nil {
		return err
	}

	b.logger.Debug("Transfer",
		zap.Stringer("asset", asset),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount))
	return nil
}

// Mint creates amount of asset in to's account, signed by the mint authority.
func (b *Bank) Mint(asset, to, authority solana.PublicKey, amount uint64) error {
	m, err := b.MintInfo(asset)
	if err != nil {
		return err
	}
	if !m.Authority.Equals(authority) {
		return fmt.Errorf("%w: %s is not the authority of %s", ErrMintAuthority, authority, asset)
	}
	supply, carry := bits.Add64(m.Supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrSupplyOverflow, asset)
	}
	dst, dstAddr, err := b.loadAccount(asset, to, true)
	if err != nil {
		return err
	}
	// supply bounds every balance, so this cannot overflow
	dst.Amount += amount
	m.Supply = supply
	if err := b.putMint(asset, m); err != nil {
		return err
	}
	if err := b.putAccount(dstAddr, dst); err != nil {
		return err
	}

	b.logger.Debug("Mint",
		zap.Stringer("asset", asset),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount))
	return nil
}

// Burn destroys amount of asset held by owner. The authority must be the owner.
func (b *Bank) Burn(asset, owner, authority solana.PublicKey, amount uint64) error {
	if !authority.Equals(owner) {
		return fmt.Errorf("%w: %s signing for %s", ErrOwnerMismatch, authority, owner)
	}
	m, err := b.MintInfo(asset)
	if err != nil {
		return err
	}
	src, srcAddr, err := b.loadAccount(asset, owner, false)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d of %s, burning %d", ErrInsufficientFunds, owner, src.Amount, asset, amount)
	}
	src.Amount -= amount
	m.Supply -= amount
	if err := b.putMint(asset, m); err != nil {
		return err
	}
	if err := b.putAccount(srcAddr, src); err != nil {
		return err
	}

	b.logger.Debug("Burn",
		zap.Stringer("asset", asset),
		zap.Stringer("owner", owner),
		zap.Uint64("amount", amount))
	return nil
}

// loadAccount returns the token account of owner, optionally creating it.
// A missing account that is not created is returned as an empty balance.
func (b *Bank) loadAccount(asset, owner solana.PublicKey, create bool) (TokenAccount, solana.PublicKey, error) {
	addr, err := AccountAddress(asset, owner)
	if err != nil {
		return TokenAccount{}, addr, err
	}
	data, ok, err := b.state.GetAccount(addr)
	if err != nil {
		return TokenAccount{}, addr, err
	}
	if !ok {
		acc := TokenAccount{Mint: asset, Owner: owner}
		if create {
			if err := b.putAccount(addr, acc); err != nil {
				return TokenAccount{}, addr, err
			}
		}
		return acc, addr, nil
	}
	var acc TokenAccount
	if err := decode(data, accountDiscriminator, &acc); err != nil {
		return TokenAccount{}, addr, fmt.Errorf("token account %s: %w", addr, err)
	}
	if !acc.Mint.Equals(asset) || !acc.Owner.Equals(owner) {
		return TokenAccount{}, addr, fmt.Errorf("%w: %s is not %s's %s account", ErrCorruptAccount, addr, owner, asset)
	}
	return acc, addr, nil
}

func (b *Bank) putMint(asset solana.PublicKey, m MintInfo) error {
	data, err := encode(mintDiscriminator, &m)
	if err != nil {
		return err
	}
	return b.state.PutAccount(asset, data)
}

func (b *Bank) putAccount(addr solana.PublicKey, acc TokenAccount) error {
	data, err := encode(accountDiscriminator, &acc)
	if err != nil {
		return err
	}
	return b.state.PutAccount(addr, data)
}
