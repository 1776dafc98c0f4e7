// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curvebond/internal/bonding"
	"github.com/rovshanmuradov/curvebond/internal/curve"
	"github.com/rovshanmuradov/curvebond/internal/metrics"
	"github.com/rovshanmuradov/curvebond/internal/runtime"
	"github.com/rovshanmuradov/curvebond/internal/storage"
)

const defaultNow int64 = 1_700_000_000

var (
	ErrExpectation  = errors.New("scenario expectation failed")
	ErrConservation = errors.New("reserve conservation violated")
)

// StoreFactory opens the account store for one scenario run.
type StoreFactory func(ctx context.Context, scenario string) (storage.AccountStore, error)

// Runner executes scenarios, each against its own store and runtime.
type Runner struct {
	programID solana.PublicKey
	logger    *zap.Logger
	metrics   *metrics.Collector
	publisher runtime.Publisher
	newStore  StoreFactory
	workers   int
}

type Option func(*Runner)

func WithMetrics(c *metrics.Collector) Option { return func(r *Runner) { r.metrics = c } }

func WithPublisher(p runtime.Publisher) Option { return func(r *Runner) { r.publisher = p } }

func WithStoreFactory(f StoreFactory) Option { return func(r *Runner) { r.newStore = f } }

// WithWorkers limits how many scenario files RunFiles executes at once.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

func NewRunner(programID solana.PublicKey, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		programID: programID,
		logger:    logger.Named("scenario"),
		newStore: func(context.Context, string) (storage.AccountStore, error) {
			return storage.NewMemoryStore(), nil
		},
		workers: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int
	Op       string
	Pool     string
	Wallet   string
	Receipt  *bonding.Receipt
	Err      error
	Code     uint32
	Mismatch string
}

// PoolSummary is a pool's final state in whole units.
type PoolSummary struct {
	Name      string
	Address   solana.PublicKey
	State     string
	Supply    string
	Reserve   string
	Fees      string
	Vault     string
	SpotPrice string
}

type Result struct {
	Name  string
	Steps []StepResult
	Pools []PoolSummary
}

// Mismatches returns the steps whose expectations failed.
func (r *Result) Mismatches() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Mismatch != "" {
			out = append(out, s)
		}
	}
	return out
}

// RunFiles loads and runs every file concurrently. Results keep the order of
// paths; the first failure cancels the remaining runs.
func (r *Runner) RunFiles(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			sc, err := Load(path)
			if err != nil {
				return err
			}
			res, err := r.Run(ctx, sc)
			results[i] = res
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

// Run executes one scenario. A non-nil Result is returned whenever setup
// succeeded, even if a step expectation failed.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	store, err := r.newStore(ctx, sc.Name)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	now := sc.Now
	if now == 0 {
		now = defaultNow
	}
	logger := r.logger.With(zap.String("scenario", sc.Name))
	x := &execution{
		sc:          sc,
		logger:      logger,
		clock:       runtime.NewFixedClock(now),
		engine:      bonding.NewEngine(r.programID, logger),
		wallets:     make(map[string]solana.PublicKey, len(sc.Wallets)),
		defs:        make(map[string]curve.Definition, len(sc.Curves)),
		curves:      make(map[string]solana.PublicKey, len(sc.Curves)),
		pools:       make(map[string]solana.PublicKey, len(sc.Pools)),
		decimals:    make(map[string]uint8, len(sc.Pools)),
		faucet:      keyFor(sc.Name + "/faucet"),
		reserveMint: keyFor(sc.Name + "/reserve-mint"),
	}
	x.rt = runtime.New(store,
		runtime.WithClock(x.clock),
		runtime.WithLogger(logger),
		runtime.WithMetrics(r.metrics),
		runtime.WithPublisher(r.publisher),
	)

	if err := x.setup(ctx); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	res := &Result{Name: sc.Name}
	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sr := x.step(ctx, i, st)
		res.Steps = append(res.Steps, sr)
		if sr.Err == nil && st.Pool != "" {
			if err := x.checkConservation(ctx, st.Pool); err != nil {
				return res, err
			}
		}
	}

	if res.Pools, err = x.summaries(ctx); err != nil {
		return res, err
	}

	if bad := res.Mismatches(); len(bad) > 0 {
		msgs := make([]string, 0, len(bad))
		for _, s := range bad {
			msgs = append(msgs, fmt.Sprintf("step %d (%s): %s", s.Index, s.Op, s.Mismatch))
		}
		return res, fmt.Errorf("%w: %s", ErrExpectation, strings.Join(msgs, "; "))
	}
	logger.Info("Scenario completed", zap.Int("steps", len(res.Steps)))
	return res, nil
}

type execution struct {
	sc          *Scenario
	logger      *zap.Logger
	clock       *runtime.FixedClock
	rt          *runtime.Runtime
	engine      *bonding.Engine
	wallets     map[string]solana.PublicKey
	defs        map[string]curve.Definition
	curves      map[string]solana.PublicKey
	pools       map[string]solana.PublicKey
	decimals    map[string]uint8
	faucet      solana.PublicKey
	reserveMint solana.PublicKey
}

func (x *execution) setup(ctx context.Context) error {
	for name := range x.sc.Wallets {
		x.wallets[name] = keyFor(x.sc.Name + "/wallet/" + name)
	}
	targets := make(map[string]solana.PublicKey, len(x.sc.Pools))

	err := x.rt.Execute(ctx, func(tx *runtime.Tx) error {
		bank := tx.Bank()
		if err := bank.CreateMint(x.reserveMint, x.faucet, x.sc.ReserveDecimals); err != nil {
			return err
		}
		for name, balance := range x.sc.Wallets {
			amount, err := parseAmount(balance, x.sc.ReserveDecimals)
			if err != nil {
				return fmt.Errorf("wallet %s: %w", name, err)
			}
			if amount == 0 {
				continue
			}
			if err := bank.Mint(x.reserveMint, x.wallets[name], x.faucet, amount); err != nil {
				return err
			}
		}
		for _, p := range x.sc.Pools {
			target := keyFor(x.sc.Name + "/target-mint/" + p.Name)
			addrs, err := x.engine.PoolAddresses(target, p.Index)
			if err != nil {
				return err
			}
			if err := bank.CreateMint(target, addrs.MintAuthority, p.TargetDecimals); err != nil {
				return err
			}
			targets[p.Name] = target
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, spec := range x.sc.Curves {
		def, err := buildCurve(spec)
		if err != nil {
			return fmt.Errorf("curve %s: %w", spec.Name, err)
		}
		x.defs[spec.Name] = def
	}

	for _, p := range x.sc.Pools {
		if _, ok := x.curves[p.Curve]; !ok {
			ix, err := bonding.NewCreateCurveInstruction(x.faucet, bonding.CreateCurveArgs{Definition: x.defs[p.Curve]})
			if err != nil {
				return err
			}
			receipt, err := x.rt.Submit(ctx, x.engine, ix)
			if err != nil {
				return fmt.Errorf("curve %s: %w", p.Curve, err)
			}
			x.curves[p.Curve] = receipt.Curve
		}

		args, err := x.poolArgs(p, targets[p.Name])
		if err != nil {
			return fmt.Errorf("pool %s: %w", p.Name, err)
		}
		ix, err := bonding.NewInitializePoolInstruction(x.wallets[p.Authority], args)
		if err != nil {
			return err
		}
		receipt, err := x.rt.Submit(ctx, x.engine, ix)
		if err != nil {
			return fmt.Errorf("pool %s: %w", p.Name, err)
		}
		x.pools[p.Name] = receipt.Pool
		x.decimals[p.Name] = p.TargetDecimals
	}
	return nil
}

func (x *execution) poolArgs(p PoolSpec, target solana.PublicKey) (bonding.InitializePoolArgs, error) {
	mintCap, err := parseOptionalAmount(p.MintCap, p.TargetDecimals)
	if err != nil {
		return bonding.InitializePoolArgs{}, err
	}
	purchaseCap, err := parseOptionalAmount(p.PurchaseCap, p.TargetDecimals)
	if err != nil {
		return bonding.InitializePoolArgs{}, err
	}
	return bonding.InitializePoolArgs{
		Curve:             x.curves[p.Curve],
		TargetMint:        target,
		ReserveMint:       x.reserveMint,
		Index:             p.Index,
		GeneralAuthority:  x.wallets[p.Authority],
		ReserveAuthority:  x.optionalWallet(p.ReserveAuthority),
		CurveAuthority:    x.optionalWallet(p.CurveAuthority),
		FounderRewardBps:  p.FounderRewardBps,
		MintCap:           mintCap,
		PurchaseCap:       purchaseCap,
		GoLiveUnixTime:    p.GoLive,
		FreezeBuyUnixTime: p.FreezeBuy,
	}, nil
}

func (x *execution) optionalWallet(name string) *solana.PublicKey {
	k, ok := x.wallets[name]
	if !ok {
		return nil
	}
	return &k
}

func (x *execution) step(ctx context.Context, i int, st Step) StepResult {
	sr := StepResult{Index: i, Op: st.Op, Pool: st.Pool, Wallet: st.Wallet}

	switch st.Op {
	case "advance":
		x.clock.Advance(st.Seconds)
		return sr
	case "fund":
		sr.Err = x.fund(ctx, st)
	default:
		ix, err := x.instruction(ctx, st)
		if err != nil {
			sr.Err = err
			break
		}
		sr.Receipt, sr.Err = x.rt.Submit(ctx, x.engine, ix)
	}

	if sr.Err != nil {
		sr.Code, _ = bonding.Code(sr.Err)
		x.logger.Debug("Step failed", zap.Int("step", i), zap.String("op", st.Op), zap.Error(sr.Err))
	}
	sr.Mismatch = x.verify(ctx, st, sr)
	return sr
}

func (x *execution) fund(ctx context.Context, st Step) error {
	amount, err := parseAmount(st.Amount, x.sc.ReserveDecimals)
	if err != nil {
		return err
	}
	return x.rt.Execute(ctx, func(tx *runtime.Tx) error {
		return tx.Bank().Mint(x.reserveMint, x.wallets[st.Wallet], x.faucet, amount)
	})
}

func (x *execution) instruction(ctx context.Context, st Step) (bonding.Instruction, error) {
	signer := x.wallets[st.Wallet]
	pool := x.pools[st.Pool]
	targetDec := x.decimals[st.Pool]
	reserveDec := x.sc.ReserveDecimals

	switch st.Op {
	case "buy":
		amount, err := parseAmount(st.Amount, targetDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		maxPrice := uint64(math.MaxUint64)
		if st.MaxPrice != "" {
			if maxPrice, err = parseAmount(st.MaxPrice, reserveDec); err != nil {
				return bonding.Instruction{}, err
			}
		}
		return bonding.NewBuyInstruction(signer, bonding.BuyArgs{
			Pool:         pool,
			TargetAmount: &bonding.BuyTargetAmount{TargetAmount: amount, MaximumPrice: maxPrice},
		})

	case "buy_reserve":
		amount, err := parseAmount(st.Amount, reserveDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		minOut, err := parseAmount(st.MinOut, targetDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		return bonding.NewBuyInstruction(signer, bonding.BuyArgs{
			Pool:          pool,
			ReserveAmount: &bonding.BuyReserveAmount{ReserveAmount: amount, MinimumTargetAmount: minOut},
		})

	case "sell":
		amount, err := parseAmount(st.Amount, targetDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		minPrice, err := parseAmount(st.MinPrice, reserveDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		return bonding.NewSellInstruction(signer, bonding.SellArgs{Pool: pool, TargetAmount: amount, MinimumPrice: minPrice})

	case "transfer_reserves":
		amount, err := parseAmount(st.Amount, reserveDec)
		if err != nil {
			return bonding.Instruction{}, err
		}
		return bonding.NewTransferReservesInstruction(signer, bonding.TransferReservesArgs{
			Pool:        pool,
			Amount:      amount,
			Destination: x.walletOr(st.To, signer),
		})

	case "update_reserve_authority":
		return bonding.NewUpdateReserveAuthorityInstruction(signer, bonding.UpdateReserveAuthorityArgs{
			Pool:                pool,
			NewReserveAuthority: x.optionalWallet(st.To),
		})

	case "update_curve":
		return bonding.NewUpdateCurveInstruction(signer, bonding.UpdateCurveArgs{Pool: pool, Definition: x.defs[st.Curve]})

	case "close_pool":
		return bonding.NewClosePoolInstruction(signer, bonding.ClosePoolArgs{Pool: pool, Refund: x.walletOr(st.To, signer)})

	case "update_pool":
		args, err := x.updatePoolArgs(ctx, st)
		if err != nil {
			return bonding.Instruction{}, err
		}
		return bonding.NewUpdatePoolInstruction(signer, args)
	}
	return bonding.Instruction{}, fmt.Errorf("unsupported op %q", st.Op)
}

func (x *execution) walletOr(name string, fallback solana.PublicKey) solana.PublicKey {
	if k, ok := x.wallets[name]; ok {
		return k
	}
	return fallback
}

// updatePoolArgs starts from the stored pool so that a step only names the
// fields it changes.
func (x *execution) updatePoolArgs(ctx context.Context, st Step) (bonding.UpdatePoolArgs, error) {
	var args bonding.UpdatePoolArgs
	err := x.rt.View(ctx, func(tx *runtime.Tx) error {
		p, err := x.engine.Pool(tx.Env(), x.pools[st.Pool])
		if err != nil {
			return err
		}
		args = bonding.UpdatePoolArgs{
			Pool:              x.pools[st.Pool],
			GeneralAuthority:  p.GeneralAuthority,
			CurveAuthority:    p.CurveAuthority,
			FounderRewardBps:  p.FounderRewardBps,
			BuyFrozen:         p.BuyFrozen,
			SellFrozen:        p.SellFrozen,
			MintCap:           p.MintCap,
			PurchaseCap:       p.PurchaseCap,
			GoLiveUnixTime:    p.GoLiveUnixTime,
			FreezeBuyUnixTime: p.FreezeBuyUnixTime,
		}
		return nil
	})
	if err != nil {
		return args, err
	}
	if k, ok := x.wallets[st.GeneralAuthority]; ok {
		args.GeneralAuthority = k
	}
	if st.FounderRewardBps != nil {
		args.FounderRewardBps = *st.FounderRewardBps
	}
	if st.BuyFrozen != nil {
		args.BuyFrozen = *st.BuyFrozen
	}
	if st.SellFrozen != nil {
		args.SellFrozen = *st.SellFrozen
	}
	return args, nil
}

// verify returns a description of the first unmet expectation, or "".
func (x *execution) verify(ctx context.Context, st Step, sr StepResult) string {
	exp := st.Expect
	if exp.wantsFailure() {
		if sr.Err == nil {
			return "expected failure, step succeeded"
		}
		if exp.Error != "" && !strings.Contains(sr.Err.Error(), exp.Error) {
			return fmt.Sprintf("error %q does not contain %q", sr.Err, exp.Error)
		}
		if exp.Code != 0 && exp.Code != sr.Code {
			return fmt.Sprintf("code %d, want %d", sr.Code, exp.Code)
		}
		return ""
	}
	if sr.Err != nil {
		return fmt.Sprintf("unexpected error: %v", sr.Err)
	}

	if trade := tradeOf(sr.Receipt); trade != nil {
		if msg := compareAmount("total", exp.Total, trade.Total, x.sc.ReserveDecimals); msg != "" {
			return msg
		}
		if msg := compareAmount("target", exp.Target, trade.TargetAmount, x.decimals[st.Pool]); msg != "" {
			return msg
		}
		if exp.SpotPrice != "" {
			want, err := decimal.NewFromString(exp.SpotPrice)
			if err != nil {
				return fmt.Sprintf("bad spot_price expectation: %v", err)
			}
			if !want.Equal(trade.SpotPrice.Decimal()) {
				return fmt.Sprintf("spot price %s, want %s", trade.SpotPrice, exp.SpotPrice)
			}
		}
	} else if exp.Total != "" || exp.Target != "" || exp.SpotPrice != "" {
		return "trade expectations on a step without a trade"
	}

	if exp.Supply == "" && exp.State == "" {
		return ""
	}
	var msg string
	err := x.rt.View(ctx, func(tx *runtime.Tx) error {
		p, err := x.engine.Pool(tx.Env(), x.pools[st.Pool])
		if err != nil {
			return err
		}
		if msg = compareAmount("supply", exp.Supply, p.CurrentSupply, p.TargetDecimals); msg != "" {
			return nil
		}
		if exp.State != "" && exp.State != p.State.String() {
			msg = fmt.Sprintf("state %s, want %s", p.State, exp.State)
		}
		return nil
	})
	if err != nil {
		return fmt.Sprintf("read pool: %v", err)
	}
	return msg
}

func tradeOf(r *bonding.Receipt) *bonding.Trade {
	if r == nil {
		return nil
	}
	return r.Trade
}

func compareAmount(field, want string, got uint64, decimals uint8) string {
	if want == "" {
		return ""
	}
	w, err := parseAmount(want, decimals)
	if err != nil {
		return fmt.Sprintf("bad %s expectation: %v", field, err)
	}
	if w != got {
		return fmt.Sprintf("%s %s, want %s", field, formatAmount(got, decimals), want)
	}
	return ""
}

func (x *execution) checkConservation(ctx context.Context, poolName string) error {
	return x.rt.View(ctx, func(tx *runtime.Tx) error {
		env := tx.Env()
		p, err := x.engine.Pool(env, x.pools[poolName])
		if err != nil {
			return err
		}
		vault, err := env.Ledger.Balance(p.ReserveMint, p.ReserveVault)
		if err != nil {
			return err
		}
		info, err := env.Ledger.MintInfo(p.TargetMint)
		if err != nil {
			return err
		}
		backing, err := p.VaultBacking()
		if err != nil {
			return err
		}
		if vault != backing || info.Supply != p.CurrentSupply {
			return fmt.Errorf("%w: pool %s vault %d, backing %d, mint supply %d, pool supply %d",
				ErrConservation, poolName, vault, backing, info.Supply, p.CurrentSupply)
		}
		return nil
	})
}

func (x *execution) summaries(ctx context.Context) ([]PoolSummary, error) {
	out := make([]PoolSummary, 0, len(x.sc.Pools))
	err := x.rt.View(ctx, func(tx *runtime.Tx) error {
		env := tx.Env()
		for _, spec := range x.sc.Pools {
			id := x.pools[spec.Name]
			p, err := x.engine.Pool(env, id)
			if err != nil {
				return err
			}
			vault, err := env.Ledger.Balance(p.ReserveMint, p.ReserveVault)
			if err != nil {
				return err
			}
			s := PoolSummary{
				Name:    spec.Name,
				Address: id,
				State:   p.State.String(),
				Supply:  formatAmount(p.CurrentSupply, p.TargetDecimals),
				Reserve: formatAmount(p.ReserveBalanceFromBonding, p.ReserveDecimals),
				Fees:    formatAmount(p.AccumulatedFees, p.ReserveDecimals),
				Vault:   formatAmount(vault, p.ReserveDecimals),
			}
			if p.State == bonding.PoolActive {
				if price, err := x.engine.SpotPrice(env, id); err == nil {
					s.SpotPrice = price.String()
				}
			}
			out = append(out, s)
		}
		return nil
	})
	return out, err
}
