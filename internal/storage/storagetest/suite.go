// Package storagetest holds the behavioural tests every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Run exercises a fresh store from newStore in every subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"Profiles", testProfiles},
		{"Accounts", testAccounts},
		{"Contacts", testContacts},
		{"Categories", testCategories},
		{"AtomicRollback", testAtomicRollback},
		{"Transactions", testTransactions},
		{"SplitOrdering", testSplitOrdering},
		{"Allocations", testAllocations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var errBoom = errors.New("boom")

func atomic(t *testing.T, s storage.Store, fn func(tx storage.Tx) error) {
	t.Helper()
	assert.NoError(t, s.Atomic(context.Background(), fn))
}

// Seed inserts an owner profile, one account and the named contacts.
func Seed(t *testing.T, s storage.Store, contacts ...string) (owner *models.UserProfile, account *models.Account, out []*models.Contact) {
	t.Helper()
	ctx := context.Background()
	owner = &models.UserProfile{Name: "Owner", PhoneNumber: "+15550000001", BaseCurrency: "USD"}
	account = &models.Account{Name: "Wallet", CurrencyCode: "USD", Balance: money.MustParse("100.00")}
	atomic(t, s, func(tx storage.Tx) error {
		if err := tx.CreateProfile(ctx, owner); err != nil {
			return err
		}
		account.UserID = owner.ID
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		for _, name := range contacts {
			c := &models.Contact{OwnerID: owner.ID, Name: name}
			if err := tx.CreateContact(ctx, c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	return owner, account, out
}

// Expense records a transaction with one DEBT split per amount, all for the
// same contact.
func Expense(t *testing.T, s storage.Store, owner, contactID string, at time.Time, amounts ...string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	rec := &models.Transaction{CreatedBy: owner, CurrencyCode: "USD", OccurredAt: at, Description: "expense"}
	atomic(t, s, func(tx storage.Tx) error {
		for _, a := range amounts {
			rec.TotalAmount = rec.TotalAmount.Add(money.MustParse(a))
		}
		if err := tx.CreateTransaction(ctx, rec); err != nil {
			return err
		}
		for _, a := range amounts {
			sp := models.Split{TransactionID: rec.ID, ContactID: contactID, Amount: money.MustParse(a), Kind: models.SplitDebt}
			if err := tx.CreateSplit(ctx, &sp); err != nil {
				return err
			}
			rec.Splits = append(rec.Splits, sp)
		}
		return nil
	})
	return rec
}

// Payment records a settlement-style transaction with one PAYMENT split.
func Payment(t *testing.T, s storage.Store, owner, contactID string, at time.Time, amount string) (*models.Transaction, *models.Split) {
	t.Helper()
	ctx := context.Background()
	rec := &models.Transaction{CreatedBy: owner, CurrencyCode: "USD", OccurredAt: at, TotalAmount: money.MustParse(amount)}
	sp := &models.Split{ContactID: contactID, Amount: money.MustParse(amount).Neg(), Kind: models.SplitPayment}
	atomic(t, s, func(tx storage.Tx) error {
		if err := tx.CreateTransaction(ctx, rec); err != nil {
			return err
		}
		sp.TransactionID = rec.ID
		return tx.CreateSplit(ctx, sp)
	})
	return rec, sp
}

func testProfiles(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := &models.UserProfile{Name: "Alice", PhoneNumber: "+15551234567", BaseCurrency: "EUR", PasswordHash: "hash"}
	atomic(t, s, func(tx storage.Tx) error { return tx.CreateProfile(ctx, p) })
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProfileByPhone(ctx, "+15551234567")
	assert.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "EUR", got.BaseCurrency)
	assert.Equal(t, "hash", got.PasswordHash)

	err = s.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateProfile(ctx, &models.UserProfile{Name: "Mallory", PhoneNumber: "+15551234567"})
	})
	assert.IsError(t, err, storage.ErrDuplicate)

	p.Name = "Alice B."
	p.BaseCurrency = "USD"
	atomic(t, s, func(tx storage.Tx) error { return tx.UpdateProfile(ctx, p) })
	got, err = s.GetProfile(ctx, p.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Alice B.", got.Name)
	assert.Equal(t, "USD", got.BaseCurrency)

	_, err = s.GetProfile(ctx, "missing")
	assert.IsError(t, err, storage.ErrNotFound)
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, account, _ := Seed(t, s)

	group := &models.AccountGroup{UserID: owner.ID, Name: "Banks", Icon: "bank"}
	atomic(t, s, func(tx storage.Tx) error { return tx.CreateAccountGroup(ctx, group) })

	groups, err := s.ListAccountGroups(ctx, owner.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(groups))
	assert.Equal(t, "Banks", groups[0].Name)

	// UpdateAccount never touches the balance.
	update := *account
	update.Name = "Checking"
	update.GroupID = group.ID
	update.Balance = money.MustParse("999.00")
	atomic(t, s, func(tx storage.Tx) error { return tx.UpdateAccount(ctx, &update) })

	got, err := s.GetAccount(ctx, account.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Checking", got.Name)
	assert.Equal(t, group.ID, got.GroupID)
	assert.Equal(t, money.MustParse("100.00"), got.Balance)

	t.Run("balance compare-and-set", func(t *testing.T) {
		atomic(t, s, func(tx storage.Tx) error {
			return tx.UpdateAccountBalance(ctx, account.ID, money.MustParse("100.00"), money.MustParse("75.50"))
		})
		err := s.Atomic(ctx, func(tx storage.Tx) error {
			return tx.UpdateAccountBalance(ctx, account.ID, money.MustParse("100.00"), money.MustParse("50.00"))
		})
		assert.IsError(t, err, storage.ErrConflict)

		got, err := s.GetAccount(ctx, account.ID)
		assert.NoError(t, err)
		assert.Equal(t, money.MustParse("75.50"), got.Balance)

		err = s.Atomic(ctx, func(tx storage.Tx) error {
			return tx.UpdateAccountBalance(ctx, "missing", 0, 1)
		})
		assert.IsError(t, err, storage.ErrNotFound)
	})

	t.Run("delete keeps transactions", func(t *testing.T) {
		rec := &models.Transaction{CreatedBy: owner.ID, AccountID: account.ID, CurrencyCode: "USD", TotalAmount: money.MustParse("5.00")}
		atomic(t, s, func(tx storage.Tx) error { return tx.CreateTransaction(ctx, rec) })
		atomic(t, s, func(tx storage.Tx) error { return tx.DeleteAccount(ctx, account.ID) })

		_, err := s.GetAccount(ctx, account.ID)
		assert.IsError(t, err, storage.ErrNotFound)
		got, err := s.GetTransaction(ctx, rec.ID)
		assert.NoError(t, err)
		assert.Equal(t, "", got.AccountID)
	})
}

func testContacts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, _, contacts := Seed(t, s, "Zoe", "Bob")

	list, err := s.ListContacts(ctx, owner.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(list))
	assert.Equal(t, "Bob", list[0].Name)
	assert.Equal(t, "Zoe", list[1].Name)

	bob := contacts[1]
	bob.PhoneNumber = "+15559999999"
	bob.Name = "Bobby"
	atomic(t, s, func(tx storage.Tx) error { return tx.UpdateContact(ctx, bob) })

	t.Run("link sets only empty links", func(t *testing.T) {
		friend := &models.UserProfile{Name: "Bob", PhoneNumber: "+15559999999"}
		other := &models.UserProfile{Name: "Other", PhoneNumber: "+15558888888"}
		pre := &models.Contact{OwnerID: owner.ID, Name: "Already linked", PhoneNumber: "+15559999999"}
		var self *models.Contact
		atomic(t, s, func(tx storage.Tx) error {
			if err := tx.CreateProfile(ctx, friend); err != nil {
				return err
			}
			if err := tx.CreateProfile(ctx, other); err != nil {
				return err
			}
			self = &models.Contact{OwnerID: friend.ID, Name: "Me", PhoneNumber: friend.PhoneNumber}
			pre.LinkedProfileID = other.ID
			if err := tx.CreateContact(ctx, pre); err != nil {
				return err
			}
			return tx.CreateContact(ctx, self)
		})

		var n int
		atomic(t, s, func(tx storage.Tx) error {
			var err error
			n, err = tx.LinkContacts(ctx, "+15559999999", friend.ID)
			return err
		})
		assert.Equal(t, 1, n)

		got, err := s.GetContact(ctx, bob.ID)
		assert.NoError(t, err)
		assert.Equal(t, friend.ID, got.LinkedProfileID)
		assert.Equal(t, "Bobby", got.Name)

		got, err = s.GetContact(ctx, pre.ID)
		assert.NoError(t, err)
		assert.Equal(t, other.ID, got.LinkedProfileID)

		// A profile's own contacts never link to the profile.
		got, err = s.GetContact(ctx, self.ID)
		assert.NoError(t, err)
		assert.Equal(t, "", got.LinkedProfileID)
	})

	t.Run("link one contact", func(t *testing.T) {
		target := &models.UserProfile{Name: "Target", PhoneNumber: "+15557777777"}
		first := &models.Contact{OwnerID: owner.ID, Name: "First", PhoneNumber: target.PhoneNumber}
		second := &models.Contact{OwnerID: owner.ID, Name: "Second", PhoneNumber: target.PhoneNumber}
		atomic(t, s, func(tx storage.Tx) error {
			if err := tx.CreateProfile(ctx, target); err != nil {
				return err
			}
			if err := tx.CreateContact(ctx, first); err != nil {
				return err
			}
			return tx.CreateContact(ctx, second)
		})

		atomic(t, s, func(tx storage.Tx) error { return tx.LinkContact(ctx, first.ID, target.ID) })
		got, err := s.GetContact(ctx, first.ID)
		assert.NoError(t, err)
		assert.Equal(t, target.ID, got.LinkedProfileID)
		got, err = s.GetContact(ctx, second.ID)
		assert.NoError(t, err)
		assert.Equal(t, "", got.LinkedProfileID)

		err = s.Atomic(ctx, func(tx storage.Tx) error { return tx.LinkContact(ctx, first.ID, target.ID) })
		assert.IsError(t, err, storage.ErrConflict)
		err = s.Atomic(ctx, func(tx storage.Tx) error { return tx.LinkContact(ctx, "missing", target.ID) })
		assert.IsError(t, err, storage.ErrNotFound)
	})

	t.Run("delete refuses contacts with splits", func(t *testing.T) {
		Expense(t, s, owner.ID, bob.ID, time.Now(), "10.00")
		err := s.Atomic(ctx, func(tx storage.Tx) error { return tx.DeleteContact(ctx, bob.ID) })
		assert.IsError(t, err, storage.ErrConflict)

		zoe := contacts[0]
		atomic(t, s, func(tx storage.Tx) error { return tx.DeleteContact(ctx, zoe.ID) })
		_, err = s.GetContact(ctx, zoe.ID)
		assert.IsError(t, err, storage.ErrNotFound)
	})
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mine := &models.Category{UserID: "user-1", Name: "Pets", Icon: "paw", Color: "#000000"}
	theirs := &models.Category{UserID: "user-2", Name: "Golf"}
	atomic(t, s, func(tx storage.Tx) error {
		if err := tx.CreateCategory(ctx, mine); err != nil {
			return err
		}
		return tx.CreateCategory(ctx, theirs)
	})

	list, err := s.ListCategories(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, len(storage.SystemCategories)+1, len(list))
	for i, c := range storage.SystemCategories {
		assert.Equal(t, c.ID, list[i].ID)
		assert.True(t, list[i].IsSystem)
	}
	assert.Equal(t, "Pets", list[len(list)-1].Name)

	got, err := s.GetCategory(ctx, storage.SystemCategories[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, "Food & Dining", got.Name)
}

func testAtomicRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, account, contacts := Seed(t, s, "Ann", "Ben", "Cat")

	err := s.Atomic(ctx, func(tx storage.Tx) error {
		rec := &models.Transaction{CreatedBy: owner.ID, AccountID: account.ID, CurrencyCode: "USD", TotalAmount: money.MustParse("30.00")}
		if err := tx.CreateTransaction(ctx, rec); err != nil {
			return err
		}
		for i, c := range contacts {
			if i == 2 {
				return errBoom
			}
			if err := tx.CreateSplit(ctx, &models.Split{TransactionID: rec.ID, ContactID: c.ID, Amount: money.MustParse("10.00"), Kind: models.SplitDebt}); err != nil {
				return err
			}
		}
		return tx.UpdateAccountBalance(ctx, account.ID, account.Balance, account.Balance.Sub(rec.TotalAmount))
	})
	assert.IsError(t, err, errBoom)

	txs, err := s.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: owner.ID, IncludeArchived: true})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(txs))
	splits, err := s.ListSplits(ctx, storage.SplitFilter{OwnerID: owner.ID, IncludeArchived: true})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(splits))
	got, err := s.GetAccount(ctx, account.ID)
	assert.NoError(t, err)
	assert.Equal(t, account.Balance, got.Balance)
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, _, contacts := Seed(t, s, "Ann")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := Expense(t, s, owner.ID, contacts[0].ID, base, "1.00", "2.00")
	newer := Expense(t, s, owner.ID, contacts[0].ID, base.Add(time.Hour), "3.00")
	archived := Expense(t, s, owner.ID, contacts[0].ID, base.Add(2*time.Hour), "4.00")
	atomic(t, s, func(tx storage.Tx) error { return tx.ArchiveTransaction(ctx, archived.ID) })

	got, err := s.GetTransaction(ctx, older.ID)
	assert.NoError(t, err)
	assert.Equal(t, money.MustParse("3.00"), got.TotalAmount)
	assert.Equal(t, money.One, got.ExchangeRate)
	assert.True(t, got.OccurredAt.Equal(base))
	assert.Equal(t, 2, len(got.Splits))

	list, err := s.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: owner.ID})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(list))
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 1, len(list[0].Splits))

	list, err = s.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: owner.ID, IncludeArchived: true, Limit: 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(list))
	assert.Equal(t, archived.ID, list[0].ID)
	assert.True(t, list[0].Archived)

	other, err := s.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: "someone-else"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(other))

	err = s.Atomic(ctx, func(tx storage.Tx) error { return tx.ArchiveTransaction(ctx, "missing") })
	assert.IsError(t, err, storage.ErrNotFound)
}

func testSplitOrdering(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, _, contacts := Seed(t, s, "Ann", "Ben")
	ann, ben := contacts[0].ID, contacts[1].ID
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	d3 := Expense(t, s, owner.ID, ann, base.Add(2*time.Hour), "50.00")
	d1 := Expense(t, s, owner.ID, ann, base, "30.00")
	d2 := Expense(t, s, owner.ID, ann, base.Add(time.Hour), "20.00")
	// Same instant as d1: created later, so it sorts after d1.
	tie := Expense(t, s, owner.ID, ann, base, "5.00")
	Expense(t, s, owner.ID, ann, base, "-7.00")
	Expense(t, s, owner.ID, ben, base, "99.00")
	Payment(t, s, owner.ID, ann, base, "1.00")

	splits, err := s.ListSplits(ctx, storage.SplitFilter{
		OwnerID:      owner.ID,
		ContactID:    ann,
		Kind:         models.SplitDebt,
		PositiveOnly: true,
	})
	assert.NoError(t, err)
	var got []string
	for _, sp := range splits {
		got = append(got, sp.TransactionID)
	}
	assert.Equal(t, []string{d1.ID, tie.ID, d2.ID, d3.ID}, got)

	// OccurredBefore is inclusive.
	splits, err = s.ListSplits(ctx, storage.SplitFilter{
		OwnerID:        owner.ID,
		ContactID:      ann,
		OccurredBefore: base.Add(time.Hour),
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, len(splits))

	splits, err = s.ListSplits(ctx, storage.SplitFilter{OwnerID: owner.ID, TransactionID: d2.ID})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(splits))
	assert.Equal(t, d2.Splits[0].ID, splits[0].ID)
}

func testAllocations(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner, _, contacts := Seed(t, s, "Ann")
	ann := contacts[0].ID
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	debt := Expense(t, s, owner.ID, ann, base, "15.00").Splits[0]
	payTx, pay := Payment(t, s, owner.ID, ann, base.Add(time.Hour), "10.00")

	allocate := func(amount string) error {
		return s.Atomic(ctx, func(tx storage.Tx) error {
			return tx.CreateAllocation(ctx, &models.SettlementAllocation{
				PaymentSplitID: pay.ID,
				DebtSplitID:    debt.ID,
				Amount:         money.MustParse(amount),
			})
		})
	}

	assert.NoError(t, allocate("6.00"))
	// Payment capacity: 6 + 5 > 10.
	assert.IsError(t, allocate("5.00"), storage.ErrConflict)
	assert.NoError(t, allocate("4.00"))

	sum, err := s.SumAllocated(ctx, debt.ID)
	assert.NoError(t, err)
	assert.Equal(t, money.MustParse("10.00"), sum)

	// Debt capacity: 10 + 6 > 15.
	_, pay2 := Payment(t, s, owner.ID, ann, base.Add(2*time.Hour), "20.00")
	err = s.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateAllocation(ctx, &models.SettlementAllocation{PaymentSplitID: pay2.ID, DebtSplitID: debt.ID, Amount: money.MustParse("6.00")})
	})
	assert.IsError(t, err, storage.ErrConflict)

	allocs, err := s.ListAllocations(ctx, storage.AllocationFilter{OwnerID: owner.ID, ContactID: ann, LiveOnly: true})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(allocs))

	allocs, err = s.ListAllocations(ctx, storage.AllocationFilter{OwnerID: owner.ID, OccurredBefore: base})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(allocs))

	// Archived allocations still use the debt's capacity.
	atomic(t, s, func(tx storage.Tx) error { return tx.ArchiveTransaction(ctx, payTx.ID) })
	sum, err = s.SumAllocated(ctx, debt.ID)
	assert.NoError(t, err)
	assert.Equal(t, money.MustParse("10.00"), sum)
	err = s.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateAllocation(ctx, &models.SettlementAllocation{PaymentSplitID: pay2.ID, DebtSplitID: debt.ID, Amount: money.MustParse("5.01")})
	})
	assert.IsError(t, err, storage.ErrConflict)
	assert.NoError(t, s.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateAllocation(ctx, &models.SettlementAllocation{PaymentSplitID: pay2.ID, DebtSplitID: debt.ID, Amount: money.MustParse("5.00")})
	}))
	sum, err = s.SumAllocated(ctx, debt.ID)
	assert.NoError(t, err)
	assert.Equal(t, debt.Amount, sum)

	allocs, err = s.ListAllocations(ctx, storage.AllocationFilter{OwnerID: owner.ID, LiveOnly: true})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(allocs))
	assert.Equal(t, pay2.ID, allocs[0].PaymentSplitID)
	allocs, err = s.ListAllocations(ctx, storage.AllocationFilter{PaymentSplitID: pay.ID})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(allocs))

	err = s.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateAllocation(ctx, &models.SettlementAllocation{PaymentSplitID: pay2.ID, DebtSplitID: "missing", Amount: 1})
	})
	assert.IsError(t, err, storage.ErrNotFound)
}
