package escrow

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"fusionswap/core/events"
	"fusionswap/core/state"
	"fusionswap/native/bank"
	"fusionswap/native/params"
	"fusionswap/native/registry"
	"fusionswap/observability/metrics"
)

// AssetLedger moves balances inside the current transaction.
type AssetLedger interface {
	Balance(addr [20]byte, asset string) (*big.Int, error)
	Debit(addr [20]byte, asset string, amount *big.Int) error
	Credit(addr [20]byte, asset string, amount *big.Int) error
}

// ResolverRegistry is the allow-list of takers.
type ResolverRegistry interface {
	IsActiveResolver(addr [20]byte) (bool, error)
}

// Engine applies order, auction and escrow transitions. Each public
// operation runs in one state transaction under the engine lock: it commits
// in full or leaves nothing behind, and its events are emitted only after
// the commit succeeds.
type Engine struct {
	mu      sync.Mutex
	state   *state.Manager
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.EscrowMetrics
	nowFn   func() int64
}

// NewEngine creates an engine over mgr with a no-op emitter and the wall
// clock.
func NewEngine(mgr *state.Manager) *Engine {
	return &Engine{
		state:   mgr,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetMetrics enables Prometheus instrumentation.
func (e *Engine) SetMetrics(m *metrics.EscrowMetrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// txn is the per-operation view handed to transition code.
type txn struct {
	st       *state.Tx
	ledger   AssetLedger
	registry ResolverRegistry
	params   *params.Store
	now      uint64
	events   []events.Event
	logAttrs []any
}

func (t *txn) emit(evt events.Event) { t.events = append(t.events, evt) }

func (t *txn) log(attrs ...any) { t.logAttrs = append(t.logAttrs, attrs...) }

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) begin() (*txn, error) {
	if e.state == nil {
		return nil, errNotInitialised
	}
	tx := e.state.Begin()
	return &txn{
		st:       tx,
		ledger:   bank.NewLedger(tx),
		registry: registry.New(tx),
		params:   params.NewStore(tx),
		now:      e.now(),
	}, nil
}

// update runs fn as one atomic transition.
func (e *Engine) update(op string, fn func(t *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := time.Now()
	t, err := e.begin()
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		t.st.Discard()
		e.metrics.ObserveTransition(op, Kind(err), time.Since(started))
		e.logger.Debug("escrow operation rejected", "op", op, "kind", Kind(err), "error", err)
		return err
	}
	if err := t.st.Commit(); err != nil {
		e.metrics.ObserveTransition(op, "internal", time.Since(started))
		e.logger.Error("escrow commit failed", "op", op, "error", err)
		return fmt.Errorf("escrow: commit %s: %w", op, err)
	}
	e.metrics.ObserveTransition(op, "ok", time.Since(started))
	e.logger.Info("escrow operation applied", append([]any{"op", op, "now", t.now}, t.logAttrs...)...)
	for _, evt := range t.events {
		e.emitter.Emit(evt)
	}
	return nil
}

// view runs fn against a discarded transaction.
func (e *Engine) view(fn func(t *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.begin()
	if err != nil {
		return err
	}
	defer t.st.Discard()
	return fn(t)
}

func (t *txn) loadParams() (params.Params, error) {
	p, err := t.params.Get()
	if errors.Is(err, params.ErrNotInitialised) {
		return params.Params{}, fmt.Errorf("escrow: protocol parameters not initialised")
	}
	return p, err
}

// debit takes amount from addr, reporting a shortfall as
// ErrInsufficientBalance.
func (t *txn) debit(addr [20]byte, asset string, amt *big.Int) error {
	if amt == nil || amt.Sign() == 0 {
		return nil
	}
	bal, err := t.ledger.Balance(addr, asset)
	if err != nil {
		return err
	}
	if bal.Cmp(amt) < 0 {
		return fmt.Errorf("escrow: %s balance %s below %s: %w", asset, bal, amt, ErrInsufficientBalance)
	}
	return t.ledger.Debit(addr, asset, amt)
}

func (t *txn) credit(addr [20]byte, asset string, amt *big.Int) error {
	if amt == nil || amt.Sign() == 0 {
		return nil
	}
	return t.ledger.Credit(addr, asset, amt)
}

func (t *txn) move(from, to [20]byte, asset string, amt *big.Int) error {
	if err := t.debit(from, asset, amt); err != nil {
		return err
	}
	return t.credit(to, asset, amt)
}

// requireResolver checks the registry and, when set, the object whitelist.
func (t *txn) requireResolver(caller [20]byte, terms *Terms) error {
	active, err := t.registry.IsActiveResolver(caller)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("escrow: caller is not an active resolver: %w", ErrInvalidResolver)
	}
	if terms != nil && !terms.IsWhitelisted(caller) {
		return fmt.Errorf("escrow: caller not in resolver whitelist: %w", ErrInvalidResolver)
	}
	return nil
}

func durationsFromParams(p params.Params) Durations {
	return Durations{
		Finality:            p.Durations.Finality,
		ExclusiveWithdrawal: p.Durations.ExclusiveWithdrawal,
		PublicWithdrawal:    p.Durations.PublicWithdrawal,
		PrivateCancellation: p.Durations.PrivateCancellation,
	}
}

func hashAlgorithm(p params.Params) (HashAlgorithm, error) {
	return ParseHashAlgorithm(p.HashAlgorithm)
}
