// Package ledger is the shared-expense engine. It records expenses as a
// transaction plus splits, derives per-contact balances from the split log
// and allocates settlement payments against outstanding debts oldest first.
//
// The engine performs every ownership check itself; the store is trusted
// only for atomicity.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Observer receives engine events. Implementations must be safe for
// concurrent use.
type Observer interface {
	TransactionRecorded(kind string, amount money.Money)
	SettlementAllocated(allocations int, unallocated money.Money)
	ConflictRetried(op string)
}

type nopObserver struct{}

func (nopObserver) TransactionRecorded(string, money.Money) {}
func (nopObserver) SettlementAllocated(int, money.Money)    {}
func (nopObserver) ConflictRetried(string)                  {}

// Ledger is the shared-expense engine.
type Ledger struct {
	store    storage.Store
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	// Conflict retry
	maxAttempts uint
	newBackOff  func() backoff.BackOff

	// Settlements for one (owner, contact) pair run one at a time.
	contactLocks *keyedMutex
}

// New creates a new Ledger instance.
func New(s storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		logger:       slog.Default(),
		observer:     nopObserver{},
		now:          func() time.Time { return time.Now().UTC() },
		maxAttempts:  5,
		newBackOff:   defaultBackOff,
		contactLocks: newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(l *Ledger) {
		l.observer = o
	}
}

// WithRetry sets how many times a write that hit a concurrent modification
// is attempted in total, and the delay policy between attempts.
func WithRetry(attempts uint, newBackOff func() backoff.BackOff) Option {
	return func(l *Ledger) {
		if attempts > 0 {
			l.maxAttempts = attempts
		}
		if newBackOff != nil {
			l.newBackOff = newBackOff
		}
	}
}

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ping checks that the store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return classify("ping", l.store.Ping(ctx))
}

// atomic runs fn in one store transaction and classifies the result.
func (l *Ledger) atomic(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	return classify(op, l.store.Atomic(ctx, fn))
}

// view runs fn against one snapshot and classifies the result.
func (l *Ledger) view(ctx context.Context, op string, fn func(r storage.Reader) error) error {
	return classify(op, l.store.View(ctx, fn))
}

// retry runs fn until it succeeds, fails with anything other than a
// conflict, or runs out of attempts.
func retry[T any](ctx context.Context, l *Ledger, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrConflict) {
			return v, backoff.Permanent(err)
		}
		l.observer.ConflictRetried(op)
		l.logger.Warn("concurrent modification",
			"op", op,
			"attempt", attempt,
			"max_attempts", l.maxAttempts,
			"error", err,
		)
		return v, err
	}, backoff.WithBackOff(l.newBackOff()), backoff.WithMaxTries(l.maxAttempts))
}
