package ledger_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/cenkalti/backoff/v5"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func m(s string) money.Money { return money.MustParse(s) }

func hours(n int) time.Time { return t0.Add(time.Duration(n) * time.Hour) }

// eachStore runs fn once per storage backend.
func eachStore(t *testing.T, fn func(t *testing.T, s storage.Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, memory.New())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
		assert.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

type env struct {
	ctx      context.Context
	l        *ledger.Ledger
	store    storage.Store
	obs      *recordingObserver
	owner    *models.UserProfile
	account  *models.Account
	contacts map[string]*models.Contact
}

// setup registers an owner with a 100.00 "Wallet" account and the named
// contacts.
func setup(t *testing.T, s storage.Store, names ...string) *env {
	t.Helper()
	ctx := context.Background()
	obs := &recordingObserver{}
	l := ledger.New(s,
		ledger.WithLogger(slog.New(slog.DiscardHandler)),
		ledger.WithObserver(obs),
		ledger.WithRetry(3, func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)

	owner := &models.UserProfile{Name: "Owner", PhoneNumber: "+15550000001"}
	assert.NoError(t, l.CreateProfile(ctx, owner))
	account, err := l.CreateAccount(ctx, ledger.AccountInput{Owner: owner.ID, Name: "Wallet", OpeningBalance: m("100.00")})
	assert.NoError(t, err)

	e := &env{ctx: ctx, l: l, store: s, obs: obs, owner: owner, account: account, contacts: map[string]*models.Contact{}}
	for _, name := range names {
		c, err := l.CreateContact(ctx, ledger.ContactInput{Owner: owner.ID, Name: name})
		assert.NoError(t, err)
		e.contacts[name] = c
	}
	return e
}

func (e *env) contact(name string) string { return e.contacts[name].ID }

// expense records a contact-paid expense with one split for contact.
func (e *env) expense(t *testing.T, contact string, at time.Time, amount string) *models.Transaction {
	t.Helper()
	tx, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
		Creator:     e.owner.ID,
		TotalAmount: m(amount).Abs(),
		Description: "dinner",
		OccurredAt:  at,
		Splits:      []ledger.SplitInput{{ContactID: e.contact(contact), Amount: m(amount)}},
	})
	assert.NoError(t, err)
	return tx
}

func (e *env) settle(t *testing.T, contact string, at time.Time, amount string) *ledger.SettlementResult {
	t.Helper()
	res, err := e.l.CreateSettlement(e.ctx, ledger.SettlementInput{
		Owner:      e.owner.ID,
		ContactID:  e.contact(contact),
		Amount:     m(amount),
		AccountID:  e.account.ID,
		OccurredAt: at,
	})
	assert.NoError(t, err)
	return res
}

func (e *env) net(t *testing.T, contact string) money.Money {
	t.Helper()
	n, err := e.l.NetBalance(e.ctx, e.owner.ID, e.contact(contact))
	assert.NoError(t, err)
	return n
}

func (e *env) balance(t *testing.T) money.Money {
	t.Helper()
	a, err := e.l.GetAccount(e.ctx, e.owner.ID, e.account.ID)
	assert.NoError(t, err)
	return a.Balance
}

// stranger registers a second user with their own contact.
func (e *env) stranger(t *testing.T) (*models.UserProfile, *models.Contact) {
	t.Helper()
	p := &models.UserProfile{Name: "Stranger", PhoneNumber: "+15550009999"}
	assert.NoError(t, e.l.CreateProfile(e.ctx, p))
	c, err := e.l.CreateContact(e.ctx, ledger.ContactInput{Owner: p.ID, Name: "Their friend"})
	assert.NoError(t, err)
	return p, c
}

type recordingObserver struct {
	mu          sync.Mutex
	recorded    map[string]int
	allocations int
	conflicts   int
}

func (o *recordingObserver) TransactionRecorded(kind string, _ money.Money) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.recorded == nil {
		o.recorded = map[string]int{}
	}
	o.recorded[kind]++
}

func (o *recordingObserver) SettlementAllocated(n int, _ money.Money) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.allocations += n
}

func (o *recordingObserver) ConflictRetried(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts++
}

var errInjected = errors.New("injected failure")

// faultyStore wraps every unit of work in a faultyTx.
type faultyStore struct {
	storage.Store

	mu sync.Mutex
	// failSplitAt makes the nth CreateSplit of a unit of work fail.
	failSplitAt int
	// failAllocation makes every CreateAllocation fail.
	failAllocation bool
	// conflicts is how many balance updates still report a conflict.
	conflicts int
}

func (s *faultyStore) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Store.Atomic(ctx, func(tx storage.Tx) error {
		return fn(&faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	storage.Tx
	s      *faultyStore
	splits int
}

func (tx *faultyTx) CreateSplit(ctx context.Context, sp *models.Split) error {
	tx.splits++
	if tx.s.failSplitAt > 0 && tx.splits == tx.s.failSplitAt {
		return errInjected
	}
	return tx.Tx.CreateSplit(ctx, sp)
}

func (tx *faultyTx) CreateAllocation(ctx context.Context, a *models.SettlementAllocation) error {
	if tx.s.failAllocation {
		return errInjected
	}
	return tx.Tx.CreateAllocation(ctx, a)
}

func (tx *faultyTx) UpdateAccountBalance(ctx context.Context, id string, expected, next money.Money) error {
	tx.s.mu.Lock()
	conflict := tx.s.conflicts > 0
	if conflict {
		tx.s.conflicts--
	}
	tx.s.mu.Unlock()
	if conflict {
		return storage.ErrConflict
	}
	return tx.Tx.UpdateAccountBalance(ctx, id, expected, next)
}

func TestRetryRecoversFromTransientConflict(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		fs := &faultyStore{Store: s}
		e := setup(t, fs, "Ann")
		fs.conflicts = 2

		tx, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
			Creator:     e.owner.ID,
			AccountID:   e.account.ID,
			TotalAmount: m("40.00"),
			OccurredAt:  t0,
			Splits:      []ledger.SplitInput{{ContactID: e.contact("Ann"), Amount: m("20.00")}},
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, len(tx.Splits))
		assert.Equal(t, 2, e.obs.conflicts)
		assert.Equal(t, m("60.00"), e.balance(t))

		txs, err := e.l.ListTransactions(e.ctx, e.owner.ID, 0)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(txs))
	})
}

func TestRetryGivesUpWithConflict(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		fs := &faultyStore{Store: s}
		e := setup(t, fs, "Ann")
		e.expense(t, "Ann", t0, "30.00")
		fs.conflicts = 100

		_, err := e.l.CreateSettlement(e.ctx, ledger.SettlementInput{
			Owner:     e.owner.ID,
			ContactID: e.contact("Ann"),
			Amount:    m("10.00"),
			AccountID: e.account.ID,
		})
		assert.IsError(t, err, ledger.ErrConflict)
		assert.True(t, ledger.IsRetryable(err))
		assert.Equal(t, 3, e.obs.conflicts)

		assert.Equal(t, m("30.00"), e.net(t, "Ann"))
		assert.Equal(t, m("100.00"), e.balance(t))
	})
}

func TestStoreFailureIsClassified(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		fs := &faultyStore{Store: s}
		e := setup(t, fs, "Ann")
		fs.failAllocation = true
		e.expense(t, "Ann", t0, "30.00")

		_, err := e.l.CreateSettlement(e.ctx, ledger.SettlementInput{
			Owner:     e.owner.ID,
			ContactID: e.contact("Ann"),
			Amount:    m("10.00"),
			AccountID: e.account.ID,
		})
		assert.IsError(t, err, ledger.ErrStore)
		assert.IsError(t, err, errInjected)
		assert.True(t, ledger.IsRetryable(err))
		assert.False(t, ledger.IsValidation(err))
		assert.Equal(t, 0, e.obs.conflicts)
	})
}

func TestCancelledContextPassesThrough(t *testing.T) {
	e := setup(t, memory.New(), "Ann")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.l.CreateTransaction(ctx, ledger.TransactionInput{
		Creator:     e.owner.ID,
		TotalAmount: m("5.00"),
		Splits:      []ledger.SplitInput{{ContactID: e.contact("Ann"), Amount: m("5.00")}},
	})
	assert.IsError(t, err, context.Canceled)
	assert.False(t, ledger.IsRetryable(err))
}

func TestPing(t *testing.T) {
	s := memory.New()
	l := ledger.New(s)
	assert.NoError(t, l.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.IsError(t, l.Ping(context.Background()), ledger.ErrStore)
}
