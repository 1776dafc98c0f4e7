// internal/runtime/runtime.go
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/bonding"
	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/metrics"
	"github.com/rovshanmuradov/curvebond/internal/storage"
)

// Publisher receives committed events. *events.Bus implements it.
type Publisher interface {
	Publish(event events.Event) error
}

// Runtime serializes instructions over one account store. Each instruction
// sees the previous one's committed state and either commits every write or
// none.
type Runtime struct {
	mu        sync.Mutex
	store     storage.AccountStore
	clock     Clock
	logger    *zap.Logger
	metrics   *metrics.Collector
	publisher Publisher
}

type Option func(*Runtime)

func WithClock(c Clock) Option { return func(r *Runtime) { r.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(r *Runtime) { r.logger = l } }

func WithMetrics(c *metrics.Collector) Option { return func(r *Runtime) { r.metrics = c } }

func WithPublisher(p Publisher) Option { return func(r *Runtime) { r.publisher = p } }

// New creates a runtime over store. Defaults: system clock, no-op logger,
// no metrics, no publisher.
func New(store storage.AccountStore, opts ...Option) *Runtime {
	r := &Runtime{store: store, clock: SystemClock{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("runtime")
	return r
}

// Clock returns the runtime clock.
func (r *Runtime) Clock() Clock { return r.clock }

// Execute runs fn inside a transaction and commits its writes if fn
// succeeds. On error nothing reaches the store.
func (r *Runtime) Execute(ctx context.Context, fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := newTx(ctx, r.store, r.clock.Now(), r.logger)
	if err := fn(tx); err != nil {
		r.logger.Debug("Transaction discarded", zap.Int("writes", tx.Changed()), zap.Error(err))
		return err
	}
	if tx.Changed() == 0 {
		return nil
	}
	if err := r.store.Commit(ctx, tx.pending); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn over a transaction that is always discarded.
func (r *Runtime) View(ctx context.Context, fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newTx(ctx, r.store, r.clock.Now(), r.logger))
}

// Submit processes one instruction. Events are published only after the
// commit succeeds; a rejected instruction publishes InstructionFailedEvent.
func (r *Runtime) Submit(ctx context.Context, engine *bonding.Engine, ix bonding.Instruction) (*bonding.Receipt, error) {
	name := bonding.InstructionName(ix.Data)
	if name == "" {
		name = "unknown"
	}

	start := time.Now()
	var receipt *bonding.Receipt
	var now int64
	err := r.Execute(ctx, func(tx *Tx) error {
		now = tx.Now()
		var err error
		receipt, err = engine.Process(ctx, tx.Env(), ix)
		return err
	})
	r.metrics.RecordInstruction(name, time.Since(start), err)

	if err != nil {
		code, _ := bonding.Code(err)
		r.publish(&events.InstructionFailedEvent{
			BaseEvent:   events.NewBase(events.InstructionFailed, now),
			Instruction: name,
			Signer:      ix.Signer,
			Code:        code,
			Error:       err,
		})
		return nil, err
	}

	if t := receipt.Trade; t != nil {
		r.metrics.RecordTrade(receipt.Pool.String(), string(t.Side), t.ReserveAmount, t.Fee, t.SupplyAfter, t.ReserveAfter)
	}
	for _, ev := range receipt.Events {
		r.publish(ev)
	}
	return receipt, nil
}

func (r *Runtime) publish(ev events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ev); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("type", string(ev.Type())), zap.Error(err))
	}
}
