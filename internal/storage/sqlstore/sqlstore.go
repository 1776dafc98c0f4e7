// internal/storage/sqlstore/sqlstore.go
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curvebond/internal/metrics"
	"github.com/rovshanmuradov/curvebond/internal/storage"
	"github.com/rovshanmuradov/curvebond/internal/storage/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	migrationLockID = 4242
	forEachBatch    = 500
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Config describes the database connection.
type Config struct {
	Driver        string
	DSN           string
	Retries       int
	RetryInterval time.Duration
	// Verbose switches the gorm logger to Info.
	Verbose bool
}

// Store is a gorm-backed AccountStore plus the trade journal.
type Store struct {
	db      *gorm.DB
	driver  string
	logger  *zap.Logger
	metrics *metrics.Collector
}

var _ storage.AccountStore = (*Store)(nil)

// Open connects with retries and migrates the schema.
func Open(ctx context.Context, cfg Config, zapLogger *zap.Logger, collector *metrics.Collector) (*Store, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	zapLogger = zapLogger.Named("sqlstore")

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.Verbose {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm"), level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	tries := cfg.Retries
	if tries < 1 {
		tries = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInterval
	policy.MaxInterval = retryInterval * 10

	notify := func(err error, d time.Duration) {
		zapLogger.Warn("Повтор подключения к базе", zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, gormCfg)
		collector.RecordStorage("connect", err)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite: один писатель
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: cfg.Driver, logger: zapLogger, metrics: collector}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	zapLogger.Info("Storage opened", zap.String("driver", cfg.Driver))
	return s, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("storage dsn must be configured")
	}
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// migrate runs AutoMigrate; on postgres it holds an advisory lock so that
// concurrent hosts do not race on DDL. Lock, migration and unlock share one
// pinned connection, since session locks belong to the connection.
func (s *Store) migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if s.driver == DriverPostgres {
			var lockObtained bool
			if err := conn.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
				return fmt.Errorf("failed to acquire migration lock: %w", err)
			}
			if !lockObtained {
				return fmt.Errorf("another migration is in progress")
			}
			defer func() {
				if err := conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockID).Error; err != nil {
					s.logger.Warn("Failed to release migration lock", zap.Error(err))
				}
			}()
		}

		if err := conn.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

func (s *Store) GetAccount(ctx context.Context, id solana.PublicKey) ([]byte, bool, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Where("address = ?", id.String()).Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	s.metrics.RecordStorage("get", err)
	if err != nil {
		return nil, false, fmt.Errorf("get account %s: %w", id, err)
	}
	return acc.Data, true, nil
}

// Commit upserts the batch in one database transaction.
func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]models.Account, 0, len(batch))
	for id, data := range batch {
		rows = append(rows, models.Account{Address: id.String(), Data: data})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&rows).Error
	})
	s.metrics.RecordStorage("commit", err)
	if err != nil {
		return fmt.Errorf("commit %d accounts: %w", len(rows), err)
	}
	return nil
}

func (s *Store) ForEach(ctx context.Context, fn func(id solana.PublicKey, data []byte) error) error {
	var page []models.Account
	res := s.db.WithContext(ctx).FindInBatches(&page, forEachBatch, func(_ *gorm.DB, _ int) error {
		for _, acc := range page {
			id, err := solana.PublicKeyFromBase58(acc.Address)
			if err != nil {
				return fmt.Errorf("corrupt account address %q: %w", acc.Address, err)
			}
			if err := fn(id, acc.Data); err != nil {
				return err
			}
		}
		return nil
	})
	return res.Error
}

// TradeFilter narrows ListTrades. Zero values match everything.
type TradeFilter struct {
	Pool   string
	Trader string
	Side   string
	Limit  int
}

// SaveTrade appends a trade to the journal.
func (s *Store) SaveTrade(ctx context.Context, trade *models.Trade) error {
	err := s.db.WithContext(ctx).Create(trade).Error
	s.metrics.RecordStorage("save_trade", err)
	return err
}

// ListTrades returns journal entries in execution order.
func (s *Store) ListTrades(ctx context.Context, f TradeFilter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{})
	if f.Pool != "" {
		q = q.Where("pool = ?", f.Pool)
	}
	if f.Trader != "" {
		q = q.Where("trader = ?", f.Trader)
	}
	if f.Side != "" {
		q = q.Where("side = ?", f.Side)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var trades []models.Trade
	if err := q.Order("executed_at, id").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
