// internal/bonding/interfaces.go
package bonding

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curvebond/internal/ledger"
)

// State is the id-keyed account view a handler reads and writes. Writes are
// only durable once the host commits the instruction.
type State interface {
	GetAccount(id solana.PublicKey) ([]byte, bool, error)
	PutAccount(id solana.PublicKey, data []byte) error
}

// Ledger is the fungible-asset ledger the engine moves value through.
type Ledger interface {
	MintInfo(asset solana.PublicKey) (ledger.MintInfo, error)
	Balance(asset, owner solana.PublicKey) (uint64, error)
	OpenAccount(asset, owner solana.PublicKey) error
	Transfer(asset, from, to, authority solana.PublicKey, amount uint64) error
	Mint(asset, to, authority solana.PublicKey, amount uint64) error
	Burn(asset, owner, authority solana.PublicKey, amount uint64) error
	CreateMint(asset, authority solana.PublicKey, decimals uint8) error

	NativeBalance(owner solana.PublicKey) (uint64, error)
	TransferNative(from, to, authority solana.PublicKey, amount uint64) error
}

// Env is everything one instruction executes against.
type Env struct {
	State  State
	Ledger Ledger
	// Now is the host clock in unix seconds.
	Now int64
}
