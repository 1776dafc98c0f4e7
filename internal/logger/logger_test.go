package logger

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormatMessage(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("DCy6L7FGjNZr6oYLZsojS9aC9LJ2XniiTiF7qhkEfBme")

	msg := FormatMessage("Trade executed",
		zap.String("side", "buy"),
		zap.Uint64("target_amount", 1000),
		zap.Uint64("reserve_amount", 1050))
	assert.Contains(t, msg, "BUY 1000 for 1050")

	msg = FormatMessage("Pool initialized", zap.String("pool", pool.String()))
	assert.Contains(t, msg, "DCy6...fBme")

	msg = FormatMessage("Instruction rejected", zap.String("instruction", "buy_v1"), zap.Uint32("code", 6001))
	assert.Contains(t, msg, "buy_v1 rejected (code 6001)")

	assert.Equal(t, "something else", FormatMessage("something else"))
}

func TestFieldFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(&FieldFilterCore{core: inner}).With(zap.String("instruction", "sell_v1"))

	l.Debug("hidden")
	l.Info("Instruction rejected", zap.Uint32("code", 6011))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "sell_v1 rejected (code 6011)")
	assert.Empty(t, entry.Context)
}

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "test.log")
	cfg.Development = true

	l, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	end := l.TrackPerformance("quote")
	end()
	l.WithComponent("runtime").Info("ready")
	_ = l.Sync()
}
