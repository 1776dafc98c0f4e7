// internal/runtime/tx.go
package runtime

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/bonding"
	"github.com/rovshanmuradov/curvebond/internal/ledger"
	"github.com/rovshanmuradov/curvebond/internal/storage"
)

// Tx is a copy-on-write overlay over the account store. Reads fall through
// to the store until a key is written; writes stay in the overlay until the
// runtime commits them as one batch.
type Tx struct {
	ctx     context.Context
	store   storage.AccountStore
	pending storage.Batch
	now     int64
	logger  *zap.Logger
}

func newTx(ctx context.Context, store storage.AccountStore, now int64, logger *zap.Logger) *Tx {
	return &Tx{
		ctx:     ctx,
		store:   store,
		pending: make(storage.Batch),
		now:     now,
		logger:  logger,
	}
}

func (tx *Tx) GetAccount(id solana.PublicKey) ([]byte, bool, error) {
	if data, ok := tx.pending[id]; ok {
		return append([]byte(nil), data...), true, nil
	}
	return tx.store.GetAccount(tx.ctx, id)
}

func (tx *Tx) PutAccount(id solana.PublicKey, data []byte) error {
	if err := tx.ctx.Err(); err != nil {
		return err
	}
	tx.pending[id] = append([]byte(nil), data...)
	return nil
}

// Now is the clock reading the transaction was opened with.
func (tx *Tx) Now() int64 { return tx.now }

// Changed returns the number of accounts written so far.
func (tx *Tx) Changed() int { return len(tx.pending) }

// Bank is an asset ledger over this transaction.
func (tx *Tx) Bank() *ledger.Bank {
	return ledger.NewBank(tx, tx.logger)
}

// Env binds the transaction to the engine's environment.
func (tx *Tx) Env() bonding.Env {
	return bonding.Env{State: tx, Ledger: tx.Bank(), Now: tx.now}
}
