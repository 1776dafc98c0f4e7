// =============================
// File: internal/bonding/accounts.go
// =============================
package bonding

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds.
const (
	seedProgramState    = "program-state"
	seedCurve           = "curve"
	seedTokenBonding    = "token-bonding"
	seedReserves        = "reserves"
	seedTargetAuthority = "target-authority"
)

// PoolAddresses are the derived accounts of one bonding pool.
type PoolAddresses struct {
	Pool          solana.PublicKey
	Bump          uint8
	Vault         solana.PublicKey
	VaultBump     uint8
	MintAuthority solana.PublicKey
	AuthorityBump uint8
}

// ProgramStateAddress derives the singleton program-state account.
func ProgramStateAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedProgramState)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive program state: %w", err)
	}
	return addr, nil
}

// CurveAddress derives the id of the n-th curve.
func CurveAddress(programID solana.PublicKey, n uint64) (solana.PublicKey, error) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], n)
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedCurve), le[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive curve %d: %w", n, err)
	}
	return addr, nil
}

// DerivePoolAddresses вычисляет PDA пула, его хранилища резерва и
// authority минта целевого токена.
func DerivePoolAddresses(programID, targetMint solana.PublicKey, index uint16) (PoolAddresses, error) {
	var le [2]byte
	binary.LittleEndian.PutUint16(le[:], index)

	var out PoolAddresses
	var err error
	out.Pool, out.Bump, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedTokenBonding), targetMint.Bytes(), le[:]},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("failed to derive pool: %w", err)
	}

	out.Vault, out.VaultBump, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedReserves), out.Pool.Bytes()},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("failed to derive reserve vault: %w", err)
	}

	out.MintAuthority, out.AuthorityBump, err = solana.FindProgramAddress(
		[][]byte{[]byte(seedTargetAuthority), out.Pool.Bytes()},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("failed to derive target mint authority: %w", err)
	}
	return out, nil
}
