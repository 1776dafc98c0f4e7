package export

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/storage/models"
)

// TradeSink persists journal rows. *sqlstore.Store implements it.
type TradeSink interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
}

// Journal collects committed trades from the event bus and optionally
// forwards them to a sink.
type Journal struct {
	mu     sync.RWMutex
	trades []Trade
	sink   TradeSink
	logger *zap.Logger
}

func NewJournal(sink TradeSink, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{sink: sink, logger: logger.Named("journal")}
}

// Attach subscribes the journal to trade events.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.TradeExecuted, j)
}

// Handle implements events.Handler; only trade events are accepted.
func (j *Journal) Handle(ctx context.Context, event events.Event) error {
	return events.On(j.record).Handle(ctx, event)
}

func (j *Journal) record(ctx context.Context, ev *events.TradeExecutedEvent) error {
	trade := TradeFromEvent(ev)

	j.mu.Lock()
	j.trades = append(j.trades, trade)
	j.mu.Unlock()

	if j.sink != nil {
		if err := j.sink.SaveTrade(ctx, trade.Model()); err != nil {
			j.logger.Error("Failed to persist trade", zap.String("pool", trade.Pool), zap.Error(err))
			return err
		}
	}
	return nil
}

// Trades returns a copy of the collected rows.
func (j *Journal) Trades() []Trade {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Trade(nil), j.trades...)
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.trades)
}
