// Package storage provides abstractions for persistent data storage.
//
// The ledger engine consumes a transactional record store: it reads through
// Reader, and performs every multi-row write inside Store.Atomic so that a
// transaction, its splits, its allocations and the account balance change
// commit or roll back together. Implementations do not enforce ownership;
// the engine does.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict is returned when a guarded write observes state that
	// changed since it was read (balance compare-and-set, allocation
	// capacity re-check).
	ErrConflict = errors.New("storage: concurrent modification")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("storage: already exists")
)

// NewID returns a new time-ordered identifier (UUIDv7). IDs generated later
// sort after IDs generated earlier, which the FIFO ordering relies on for
// tie-breaks.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SplitFilter selects splits through their parent transaction.
type SplitFilter struct {
	// OwnerID restricts to splits whose parent transaction was created by
	// this user. Required.
	OwnerID string

	ContactID     string
	TransactionID string
	Kind          models.SplitKind

	// PositiveOnly keeps only splits with amount > 0.
	PositiveOnly bool

	// IncludeArchived also returns splits of archived transactions.
	IncludeArchived bool

	// OccurredBefore, when non-zero, keeps splits whose parent occurred at
	// or before this instant.
	OccurredBefore time.Time
}

// AllocationFilter selects settlement allocations.
type AllocationFilter struct {
	// OwnerID restricts to allocations whose debt transaction was created
	// by this user. Required unless DebtSplitID or PaymentSplitID is set.
	OwnerID string

	// ContactID restricts to allocations against this contact's debts.
	ContactID string

	DebtSplitID    string
	PaymentSplitID string

	// LiveOnly drops allocations whose payment or debt transaction is archived.
	LiveOnly bool

	// OccurredBefore, when non-zero, keeps allocations whose payment
	// transaction occurred at or before this instant.
	OccurredBefore time.Time
}

// TransactionFilter selects transactions. Results are newest first.
type TransactionFilter struct {
	CreatedBy       string
	AccountID       string
	IncludeArchived bool
	Limit           int
}

// Reader is the read half of the store.
type Reader interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	GetProfileByPhone(ctx context.Context, phone string) (*models.UserProfile, error)

	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	GetAccountGroup(ctx context.Context, id string) (*models.AccountGroup, error)
	ListAccountGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error)

	GetContact(ctx context.Context, id string) (*models.Contact, error)
	ListContacts(ctx context.Context, ownerID string) ([]*models.Contact, error)

	GetCategory(ctx context.Context, id string) (*models.Category, error)
	// ListCategories returns system categories plus the user's own.
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)

	// GetTransaction returns the transaction with its splits.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// ListTransactions returns transactions with their splits, ordered by
	// occurred_at descending then id descending.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)

	// ListSplits returns matching splits ordered by parent occurred_at
	// ascending, then split id ascending.
	ListSplits(ctx context.Context, filter SplitFilter) ([]*models.Split, error)

	// ListAllocations returns matching allocations ordered by creation.
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]*models.SettlementAllocation, error)

	// SumAllocated returns the total of all allocations against a debt
	// split, whether or not their transactions are archived. This is the
	// capacity already used on the debt.
	SumAllocated(ctx context.Context, debtSplitID string) (money.Money, error)
}

// Tx is a unit of work. Writes made through a Tx become visible to other
// readers only if the function passed to Store.Atomic returns nil.
type Tx interface {
	Reader

	CreateProfile(ctx context.Context, p *models.UserProfile) error
	UpdateProfile(ctx context.Context, p *models.UserProfile) error

	CreateAccountGroup(ctx context.Context, g *models.AccountGroup) error
	CreateAccount(ctx context.Context, a *models.Account) error
	// UpdateAccount writes name, group and currency. The balance is not touched.
	UpdateAccount(ctx context.Context, a *models.Account) error
	// UpdateAccountBalance sets the balance to next only if it currently
	// equals expected. Returns ErrConflict otherwise.
	UpdateAccountBalance(ctx context.Context, accountID string, expected, next money.Money) error
	DeleteAccount(ctx context.Context, id string) error

	CreateContact(ctx context.Context, c *models.Contact) error
	// UpdateContact writes name and phone number.
	UpdateContact(ctx context.Context, c *models.Contact) error
	DeleteContact(ctx context.Context, id string) error
	// LinkContact sets linked_profile_id on one contact whose link is still
	// empty. Returns ErrConflict if it is already linked.
	LinkContact(ctx context.Context, id, profileID string) error
	// LinkContacts sets linked_profile_id on every contact with the given
	// phone number whose link is still empty, except contacts owned by
	// profileID itself. Returns the number linked.
	LinkContacts(ctx context.Context, phone, profileID string) (int, error)

	CreateCategory(ctx context.Context, c *models.Category) error

	// CreateTransaction inserts the transaction row only; splits are
	// inserted with CreateSplit.
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	CreateSplit(ctx context.Context, s *models.Split) error
	ArchiveTransaction(ctx context.Context, id string) error

	// CreateAllocation inserts an allocation after re-checking, at write
	// time, that neither the debt split nor the payment split would exceed
	// its absolute amount. Returns ErrConflict if it would.
	CreateAllocation(ctx context.Context, a *models.SettlementAllocation) error
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the engine.
type Store interface {
	Reader

	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(r Reader) error) error

	// Atomic runs fn in a single store transaction. If fn returns an error,
	// every write made through tx is discarded and the error is returned.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
