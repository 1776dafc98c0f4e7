package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	_, ok, err := store.GetAccount(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte{1, 2, 3}
	require.NoError(t, store.Commit(ctx, Batch{a: payload, b: {9}}))
	payload[0] = 42

	got, ok, err := store.GetAccount(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 42
	again, _, err := store.GetAccount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
	assert.Equal(t, 2, store.Len())

	seen := map[solana.PublicKey]int{}
	require.NoError(t, store.ForEach(ctx, func(id solana.PublicKey, data []byte) error {
		seen[id] = len(data)
		return nil
	}))
	assert.Equal(t, map[solana.PublicKey]int{a: 3, b: 1}, seen)

	stop := errors.New("stop")
	err = store.ForEach(ctx, func(solana.PublicKey, []byte) error { return stop })
	assert.ErrorIs(t, err, stop)

	require.NoError(t, store.Close())
	_, _, err = store.GetAccount(ctx, a)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Commit(ctx, Batch{}), ErrClosed)
}
