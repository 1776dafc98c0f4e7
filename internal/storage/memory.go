// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps accounts in a map. Values are copied on the way in and
// out so callers can never alias stored bytes.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey][]byte)}
}

func (m *MemoryStore) GetAccount(_ context.Context, id solana.PublicKey) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	data, ok := m.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryStore) Commit(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for id, data := range batch {
		m.accounts[id] = append([]byte(nil), data...)
	}
	return nil
}

func (m *MemoryStore) ForEach(ctx context.Context, fn func(id solana.PublicKey, data []byte) error) error {
	m.mu.RLock()
	snapshot := make(map[solana.PublicKey][]byte, len(m.accounts))
	for id, data := range m.accounts {
		snapshot[id] = data
	}
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	for id, data := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, append([]byte(nil), data...)); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored accounts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
