// Package memory provides an in-memory implementation of storage.Store.
//
// Atomic works copy-on-write: the unit of work runs against a private copy
// of the state, which replaces the shared state only when the unit returns
// nil. Writers are serialized by a single mutex.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("memory: store is closed")

type state struct {
	profiles     map[string]models.UserProfile
	groups       map[string]models.AccountGroup
	accounts     map[string]models.Account
	contacts     map[string]models.Contact
	categories   map[string]models.Category
	transactions map[string]models.Transaction
	splits       map[string]models.Split
	allocations  map[string]models.SettlementAllocation
}

func (st *state) clone() *state {
	return &state{
		profiles:     maps.Clone(st.profiles),
		groups:       maps.Clone(st.groups),
		accounts:     maps.Clone(st.accounts),
		contacts:     maps.Clone(st.contacts),
		categories:   maps.Clone(st.categories),
		transactions: maps.Clone(st.transactions),
		splits:       maps.Clone(st.splits),
		allocations:  maps.Clone(st.allocations),
	}
}

// Store is a mutex-guarded in-memory store.
type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

// New creates an empty store seeded with the system categories.
func New() *Store {
	st := &state{
		profiles:     make(map[string]models.UserProfile),
		groups:       make(map[string]models.AccountGroup),
		accounts:     make(map[string]models.Account),
		contacts:     make(map[string]models.Contact),
		categories:   make(map[string]models.Category),
		transactions: make(map[string]models.Transaction),
		splits:       make(map[string]models.Split),
		allocations:  make(map[string]models.SettlementAllocation),
	}
	for _, c := range storage.SystemCategories {
		st.categories[c.ID] = c
	}
	return &Store{st: st}
}

// View runs fn against the current state under a read lock.
func (s *Store) View(ctx context.Context, fn func(r storage.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{st: s.st})
}

// Atomic runs fn against a copy of the state and publishes the copy only
// if fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(&tx{view: view{st: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ping always succeeds unless the store was closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func read[T any](s *Store, fn func(v *view) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&view{st: s.st})
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	return read(s, func(v *view) (*models.UserProfile, error) { return v.GetProfile(ctx, id) })
}

func (s *Store) GetProfileByPhone(ctx context.Context, phone string) (*models.UserProfile, error) {
	return read(s, func(v *view) (*models.UserProfile, error) { return v.GetProfileByPhone(ctx, phone) })
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return read(s, func(v *view) (*models.Account, error) { return v.GetAccount(ctx, id) })
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	return read(s, func(v *view) ([]*models.Account, error) { return v.ListAccounts(ctx, userID) })
}

func (s *Store) GetAccountGroup(ctx context.Context, id string) (*models.AccountGroup, error) {
	return read(s, func(v *view) (*models.AccountGroup, error) { return v.GetAccountGroup(ctx, id) })
}

func (s *Store) ListAccountGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error) {
	return read(s, func(v *view) ([]*models.AccountGroup, error) { return v.ListAccountGroups(ctx, userID) })
}

func (s *Store) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	return read(s, func(v *view) (*models.Contact, error) { return v.GetContact(ctx, id) })
}

func (s *Store) ListContacts(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	return read(s, func(v *view) ([]*models.Contact, error) { return v.ListContacts(ctx, ownerID) })
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return read(s, func(v *view) (*models.Category, error) { return v.GetCategory(ctx, id) })
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	return read(s, func(v *view) ([]*models.Category, error) { return v.ListCategories(ctx, userID) })
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return read(s, func(v *view) (*models.Transaction, error) { return v.GetTransaction(ctx, id) })
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	return read(s, func(v *view) ([]*models.Transaction, error) { return v.ListTransactions(ctx, filter) })
}

func (s *Store) ListSplits(ctx context.Context, filter storage.SplitFilter) ([]*models.Split, error) {
	return read(s, func(v *view) ([]*models.Split, error) { return v.ListSplits(ctx, filter) })
}

func (s *Store) ListAllocations(ctx context.Context, filter storage.AllocationFilter) ([]*models.SettlementAllocation, error) {
	return read(s, func(v *view) ([]*models.SettlementAllocation, error) { return v.ListAllocations(ctx, filter) })
}

func (s *Store) SumAllocated(ctx context.Context, debtSplitID string) (money.Money, error) {
	return read(s, func(v *view) (money.Money, error) { return v.SumAllocated(ctx, debtSplitID) })
}
