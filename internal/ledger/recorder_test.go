package ledger_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

func TestCreateTransaction(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		e := setup(t, s, "Ann", "Bob")
		food := storage.SystemCategories[0].ID

		tx, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
			Creator:     e.owner.ID,
			AccountID:   e.account.ID,
			TotalAmount: m("60.00"),
			Description: "Dinner",
			OccurredAt:  t0,
			Splits: []ledger.SplitInput{
				{ContactID: e.contact("Ann"), Amount: m("20.00"), CategoryID: food},
				{ContactID: e.contact("Bob"), Amount: m("20.00")},
			},
		})
		assert.NoError(t, err)
		assert.NotZero(t, tx.ID)
		assert.Equal(t, "USD", tx.CurrencyCode)
		assert.Equal(t, money.One, tx.ExchangeRate)
		assert.Equal(t, 2, len(tx.Splits))
		for _, sp := range tx.Splits {
			assert.Equal(t, models.SplitDebt, sp.Kind)
			assert.Equal(t, tx.ID, sp.TransactionID)
		}
		assert.Equal(t, m("40.00"), e.balance(t))

		view, err := e.l.GetTransaction(e.ctx, e.owner.ID, tx.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Wallet", view.AccountName)
		assert.Equal(t, map[string]string{e.contact("Ann"): "Ann", e.contact("Bob"): "Bob"}, view.ContactNames)
		assert.Equal(t, t0, view.OccurredAt.UTC())
		assert.Equal(t, 1, e.obs.recorded["expense"])
	})
}

func TestCreateTransactionDefaults(t *testing.T) {
	e := setup(t, memory.New(), "Ann")
	euros, err := e.l.CreateAccount(e.ctx, ledger.AccountInput{Owner: e.owner.ID, Name: "Euro card", CurrencyCode: "eur"})
	assert.NoError(t, err)
	assert.Equal(t, "EUR", euros.CurrencyCode)

	tx, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
		Creator:     e.owner.ID,
		AccountID:   euros.ID,
		TotalAmount: m("9.99"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "EUR", tx.CurrencyCode)
	assert.False(t, tx.OccurredAt.IsZero())

	paid, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
		Creator:        e.owner.ID,
		PayerContactID: e.contact("Ann"),
		TotalAmount:    m("12.00"),
		Splits:         []ledger.SplitInput{{ContactID: e.contact("Ann"), Amount: m("-6.00")}},
	})
	assert.NoError(t, err)
	assert.Equal(t, ledger.DefaultCurrency, paid.CurrencyCode)

	view, err := e.l.GetTransaction(e.ctx, e.owner.ID, paid.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Ann", view.PayerName)
	assert.Equal(t, "", view.AccountName)
	// Nothing left the owner's wallet.
	assert.Equal(t, m("100.00"), e.balance(t))
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	e := setup(t, memory.New(), "Ann")
	stranger, foreign := e.stranger(t)
	theirs, err := e.l.CreateCategory(e.ctx, stranger.ID, "Secret", "", "")
	assert.NoError(t, err)
	ann := e.contact("Ann")

	tests := []struct {
		name   string
		in     ledger.TransactionInput
		target error
	}{
		{
			name:   "negative total",
			in:     ledger.TransactionInput{TotalAmount: m("-1.00")},
			target: ledger.ErrValidation,
		},
		{
			name:   "zero split",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), Splits: []ledger.SplitInput{{ContactID: ann}}},
			target: ledger.ErrValidation,
		},
		{
			name:   "split without contact",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), Splits: []ledger.SplitInput{{Amount: m("1.00")}}},
			target: ledger.ErrValidation,
		},
		{
			name:   "account and payer contact",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), AccountID: e.account.ID, PayerContactID: ann},
			target: ledger.ErrValidation,
		},
		{
			name:   "bad currency",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), CurrencyCode: "US"},
			target: ledger.ErrValidation,
		},
		{
			name:   "negative exchange rate",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), ExchangeRate: money.RateFromMicros(-5)},
			target: ledger.ErrValidation,
		},
		{
			name:   "unknown account",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), AccountID: storage.NewID()},
			target: ledger.ErrNotFound,
		},
		{
			name:   "another owner's contact",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), Splits: []ledger.SplitInput{{ContactID: foreign.ID, Amount: m("1.00")}}},
			target: ledger.ErrNotFound,
		},
		{
			name:   "another owner's payer",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), PayerContactID: foreign.ID},
			target: ledger.ErrNotFound,
		},
		{
			name:   "unknown category",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), Splits: []ledger.SplitInput{{ContactID: ann, Amount: m("1.00"), CategoryID: storage.NewID()}}},
			target: ledger.ErrNotFound,
		},
		{
			name:   "another owner's category",
			in:     ledger.TransactionInput{TotalAmount: m("1.00"), Splits: []ledger.SplitInput{{ContactID: ann, Amount: m("1.00"), CategoryID: theirs.ID}}},
			target: ledger.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Creator = e.owner.ID
			_, err := e.l.CreateTransaction(e.ctx, tt.in)
			assert.IsError(t, err, tt.target)
		})
	}

	txs, err := e.l.ListTransactions(e.ctx, e.owner.ID, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(txs))
}

func TestCreateTransactionIsAllOrNothing(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		fs := &faultyStore{Store: s}
		e := setup(t, fs, "Ann", "Bob", "Cid")
		fs.failSplitAt = 3

		_, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
			Creator:     e.owner.ID,
			AccountID:   e.account.ID,
			TotalAmount: m("30.00"),
			Splits: []ledger.SplitInput{
				{ContactID: e.contact("Ann"), Amount: m("10.00")},
				{ContactID: e.contact("Bob"), Amount: m("10.00")},
				{ContactID: e.contact("Cid"), Amount: m("10.00")},
			},
		})
		assert.IsError(t, err, ledger.ErrStore)

		txs, err := s.ListTransactions(e.ctx, storage.TransactionFilter{CreatedBy: e.owner.ID, IncludeArchived: true})
		assert.NoError(t, err)
		assert.Equal(t, 0, len(txs))
		splits, err := s.ListSplits(e.ctx, storage.SplitFilter{OwnerID: e.owner.ID, IncludeArchived: true})
		assert.NoError(t, err)
		assert.Equal(t, 0, len(splits))
		assert.Equal(t, m("100.00"), e.balance(t))
		assert.Equal(t, money.Zero, e.net(t, "Ann"))
	})
}

func TestArchiveTransaction(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		e := setup(t, s, "Ann")
		tx, err := e.l.CreateTransaction(e.ctx, ledger.TransactionInput{
			Creator:     e.owner.ID,
			AccountID:   e.account.ID,
			TotalAmount: m("20.00"),
			OccurredAt:  t0,
			Splits:      []ledger.SplitInput{{ContactID: e.contact("Ann"), Amount: m("10.00")}},
		})
		assert.NoError(t, err)
		stranger, _ := e.stranger(t)

		_, err = e.l.ArchiveTransaction(e.ctx, stranger.ID, tx.ID)
		assert.IsError(t, err, ledger.ErrNotFound)
		_, err = e.l.ArchiveTransaction(e.ctx, e.owner.ID, storage.NewID())
		assert.IsError(t, err, ledger.ErrNotFound)

		archived, err := e.l.ArchiveTransaction(e.ctx, e.owner.ID, tx.ID)
		assert.NoError(t, err)
		assert.True(t, archived.Archived)
		again, err := e.l.ArchiveTransaction(e.ctx, e.owner.ID, tx.ID)
		assert.NoError(t, err)
		assert.True(t, again.Archived)

		assert.Equal(t, money.Zero, e.net(t, "Ann"))
		// Archiving does not refund the account.
		assert.Equal(t, m("80.00"), e.balance(t))

		txs, err := e.l.ListTransactions(e.ctx, e.owner.ID, 0)
		assert.NoError(t, err)
		assert.Equal(t, 0, len(txs))
		view, err := e.l.GetTransaction(e.ctx, e.owner.ID, tx.ID)
		assert.NoError(t, err)
		assert.True(t, view.Archived)
	})
}

func TestGetTransactionOfAnotherUser(t *testing.T) {
	e := setup(t, memory.New(), "Ann")
	tx := e.expense(t, "Ann", t0, "5.00")
	stranger, _ := e.stranger(t)

	_, err := e.l.GetTransaction(e.ctx, stranger.ID, tx.ID)
	assert.IsError(t, err, ledger.ErrNotFound)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s storage.Store) {
		e := setup(t, s, "Ann")
		mid := e.expense(t, "Ann", hours(2), "2.00")
		old := e.expense(t, "Ann", hours(1), "1.00")
		recent := e.expense(t, "Ann", hours(3), "3.00")

		txs, err := e.l.ListTransactions(e.ctx, e.owner.ID, 0)
		assert.NoError(t, err)
		ids := make([]string, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID
		}
		assert.Equal(t, []string{recent.ID, mid.ID, old.ID}, ids)

		txs, err = e.l.ListTransactions(e.ctx, e.owner.ID, 2)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(txs))
	})
}
