// =============================
// File: internal/ledger/native.go
// =============================
package ledger

import (
	"fmt"
	"math/bits"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// NativeDecimals is the precision of the native asset (lamports per SOL).
const NativeDecimals uint8 = 9

var nativeDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "LedgerNativeAccount")

// NativeAccount is one owner's balance of the native asset. It has no mint:
// native supply only grows through Airdrop.
type NativeAccount struct {
	Owner    solana.PublicKey
	Lamports uint64
}

// NativeAddress returns where owner's native balance is stored.
func NativeAddress(owner solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("native"), owner.Bytes()}, solana.SystemProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive native account: %w", err)
	}
	return addr, nil
}

// NativeBalance returns owner's native balance; a missing account holds zero.
func (b *Bank) NativeBalance(owner solana.PublicKey) (uint64, error) {
	acc, _, err := b.loadNative(owner)
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// Airdrop credits amount of new native asset to owner.
func (b *Bank) Airdrop(to solana.PublicKey, amount uint64) error {
	dst, addr, err := b.loadNative(to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst.Lamports, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: native balance of %s", ErrSupplyOverflow, to)
	}
	dst.Lamports = sum
	if err := b.putNative(addr, dst); err != nil {
		return err
	}
	b.logger.Debug("Airdrop", zap.Stringer("to", to), zap.Uint64("lamports", amount))
	return nil
}

// TransferNative moves native asset between owners. The authority must be
// the source owner.
func (b *Bank) TransferNative(from, to, authority solana.PublicKey, amount uint64) error {
	if !authority.Equals(from) {
		return fmt.Errorf("%w: %s signing for %s", ErrOwnerMismatch, authority, from)
	}
	src, srcAddr, err := b.loadNative(from)
	if err != nil {
		return err
	}
	if src.Lamports < amount {
		return fmt.Errorf("%w: %s holds %d lamports, needs %d", ErrInsufficientFunds, from, src.Lamports, amount)
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}
	dst, dstAddr, err := b.loadNative(to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst.Lamports, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: native balance of %s", ErrSupplyOverflow, to)
	}
	src.Lamports -= amount
	dst.Lamports = sum
	if err := b.putNative(srcAddr, src); err != nil {
		return err
	}
	if err := b.putNative(dstAddr, dst); err != nil {
		return err
	}

	b.logger.Debug("Native transfer",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("lamports", amount))
	return nil
}

func (b *Bank) loadNative(owner solana.PublicKey) (NativeAccount, solana.PublicKey, error) {
	addr, err := NativeAddress(owner)
	if err != nil {
		return NativeAccount{}, addr, err
	}
	data, ok, err := b.state.GetAccount(addr)
	if err != nil {
		return NativeAccount{}, addr, err
	}
	if !ok {
		return NativeAccount{Owner: owner}, addr, nil
	}
	var acc NativeAccount
	if err := decode(data, nativeDiscriminator, &acc); err != nil {
		return NativeAccount{}, addr, fmt.Errorf("native account %s: %w", addr, err)
	}
	if !acc.Owner.Equals(owner) {
		return NativeAccount{}, addr, fmt.Errorf("%w: %s is not %s's native account", ErrCorruptAccount, addr, owner)
	}
	return acc, addr, nil
}

func (b *Bank) putNative(addr solana.PublicKey, acc NativeAccount) error {
	data, err := encode(nativeDiscriminator, &acc)
	if err != nil {
		return err
	}
	return b.state.PutAccount(addr, data)
}
