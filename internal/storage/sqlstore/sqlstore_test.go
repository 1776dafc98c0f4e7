package sqlstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/rovshanmuradov/curvebond/internal/metrics"
	"github.com/rovshanmuradov/curvebond/internal/storage"
	"github.com/rovshanmuradov/curvebond/internal/storage/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: dsn, Retries: 1},
		zaptest.NewLogger(t), metrics.NewCollector(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Accounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	_, ok, err := s.GetAccount(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Commit(ctx, storage.Batch{a: {1, 2}, b: {3}}))
	require.NoError(t, s.Commit(ctx, storage.Batch{a: {7, 7, 7}}))
	require.NoError(t, s.Commit(ctx, nil))

	got, ok, err := s.GetAccount(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{7, 7, 7}, got)

	seen := map[solana.PublicKey][]byte{}
	require.NoError(t, s.ForEach(ctx, func(id solana.PublicKey, data []byte) error {
		seen[id] = data
		return nil
	}))
	assert.Equal(t, map[solana.PublicKey][]byte{a: {7, 7, 7}, b: {3}}, seen)
}

func TestStore_Trades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	pool := solana.NewWallet().PublicKey().String()
	trader := solana.NewWallet().PublicKey().String()
	at := time.Unix(1_700_000_000, 0).UTC()

	for i, side := range []string{"buy", "buy", "sell"} {
		require.NoError(t, s.SaveTrade(ctx, &models.Trade{
			Pool:          pool,
			Trader:        trader,
			Side:          side,
			TargetAmount:  uint64(i+1) * 1_000,
			ReserveAmount: 1_050,
			SupplyAfter:   uint64(i),
			SpotPrice:     "1.1",
			ExecutedAt:    at.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.SaveTrade(ctx, &models.Trade{
		Pool: solana.NewWallet().PublicKey().String(), Trader: trader, Side: "buy", SpotPrice: "1", ExecutedAt: at,
	}))

	all, err := s.ListTrades(ctx, TradeFilter{Pool: pool})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1_000), all[0].TargetAmount)
	assert.Equal(t, "sell", all[2].Side)

	sells, err := s.ListTrades(ctx, TradeFilter{Pool: pool, Side: "sell"})
	require.NoError(t, err)
	assert.Len(t, sells, 1)

	limited, err := s.ListTrades(ctx, TradeFilter{Trader: trader, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(context.Background(), Config{Driver: DriverSQLite}, nil, nil)
	assert.Error(t, err)
}

func TestMigrate_RunsOnPinnedConnection(t *testing.T) {
	s := openTestStore(t)

	// sqlite allows one open connection; anything outside the pinned one would block
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.migrate(ctx))
	require.NoError(t, s.migrate(ctx))
}

func TestMigrate_ReleasesPostgresLock(t *testing.T) {
	dsn := os.Getenv("CURVEBOND_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CURVEBOND_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	cfg := Config{Driver: DriverPostgres, DSN: dsn, Retries: 1}

	first, err := Open(ctx, cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer first.Close()

	// a second pool is a different session; a leaked lock would refuse it
	second, err := Open(ctx, cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.db.Connection(func(conn *gorm.DB) error {
		var locked bool
		if err := conn.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&locked).Error; err != nil {
			return err
		}
		assert.True(t, locked)
		return conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockID).Error
	}))
}
