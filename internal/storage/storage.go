// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("storage closed")

// Batch is the set of account writes one instruction commits.
type Batch map[solana.PublicKey][]byte

// AccountStore определяет интерфейс для работы с хранилищем аккаунтов.
// Commit must apply a batch atomically: either every write lands or none.
type AccountStore interface {
	GetAccount(ctx context.Context, id solana.PublicKey) ([]byte, bool, error)
	Commit(ctx context.Context, batch Batch) error
	// ForEach visits every account. Order is unspecified.
	ForEach(ctx context.Context, fn func(id solana.PublicKey, data []byte) error) error
	Close() error
}
