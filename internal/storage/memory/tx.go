package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// tx implements storage.Tx against the private copy made by Atomic.
type tx struct {
	view
}

func now() time.Time {
	return time.Now().UTC()
}

// stamp fills an empty id and zero creation time.
func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = storage.NewID()
	}
	if createdAt.IsZero() {
		*createdAt = now()
	}
}

func (t *tx) CreateProfile(_ context.Context, p *models.UserProfile) error {
	if p.PhoneNumber != "" {
		for _, other := range t.st.profiles {
			if other.PhoneNumber == p.PhoneNumber {
				return fmt.Errorf("profile with phone %s: %w", p.PhoneNumber, storage.ErrDuplicate)
			}
		}
	}
	stamp(&p.ID, &p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	t.st.profiles[p.ID] = *p
	return nil
}

func (t *tx) UpdateProfile(_ context.Context, p *models.UserProfile) error {
	cur, ok := t.st.profiles[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Name = p.Name
	cur.BaseCurrency = p.BaseCurrency
	cur.UpdatedAt = now()
	t.st.profiles[p.ID] = cur
	p.UpdatedAt = cur.UpdatedAt
	return nil
}

func (t *tx) CreateAccountGroup(_ context.Context, g *models.AccountGroup) error {
	stamp(&g.ID, &g.CreatedAt)
	t.st.groups[g.ID] = *g
	return nil
}

func (t *tx) CreateAccount(_ context.Context, a *models.Account) error {
	if a.GroupID != "" {
		if _, ok := t.st.groups[a.GroupID]; !ok {
			return fmt.Errorf("account group %s: %w", a.GroupID, storage.ErrNotFound)
		}
	}
	stamp(&a.ID, &a.CreatedAt)
	t.st.accounts[a.ID] = *a
	return nil
}

func (t *tx) UpdateAccount(_ context.Context, a *models.Account) error {
	cur, ok := t.st.accounts[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if a.GroupID != "" {
		if _, ok := t.st.groups[a.GroupID]; !ok {
			return fmt.Errorf("account group %s: %w", a.GroupID, storage.ErrNotFound)
		}
	}
	cur.Name = a.Name
	cur.GroupID = a.GroupID
	cur.CurrencyCode = a.CurrencyCode
	t.st.accounts[a.ID] = cur
	return nil
}

func (t *tx) UpdateAccountBalance(_ context.Context, accountID string, expected, next money.Money) error {
	cur, ok := t.st.accounts[accountID]
	if !ok {
		return storage.ErrNotFound
	}
	if cur.Balance != expected {
		return storage.ErrConflict
	}
	cur.Balance = next
	t.st.accounts[accountID] = cur
	return nil
}

func (t *tx) DeleteAccount(_ context.Context, id string) error {
	if _, ok := t.st.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.st.accounts, id)
	for txID, rec := range t.st.transactions {
		if rec.AccountID == id {
			rec.AccountID = ""
			t.st.transactions[txID] = rec
		}
	}
	return nil
}

func (t *tx) CreateContact(_ context.Context, c *models.Contact) error {
	stamp(&c.ID, &c.CreatedAt)
	t.st.contacts[c.ID] = *c
	return nil
}

func (t *tx) UpdateContact(_ context.Context, c *models.Contact) error {
	cur, ok := t.st.contacts[c.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Name = c.Name
	cur.PhoneNumber = c.PhoneNumber
	t.st.contacts[c.ID] = cur
	return nil
}

func (t *tx) DeleteContact(_ context.Context, id string) error {
	if _, ok := t.st.contacts[id]; !ok {
		return storage.ErrNotFound
	}
	for _, s := range t.st.splits {
		if s.ContactID == id {
			return fmt.Errorf("contact %s has splits: %w", id, storage.ErrConflict)
		}
	}
	delete(t.st.contacts, id)
	for txID, rec := range t.st.transactions {
		if rec.PayerContactID == id {
			rec.PayerContactID = ""
			t.st.transactions[txID] = rec
		}
	}
	return nil
}

func (t *tx) LinkContact(_ context.Context, id, profileID string) error {
	c, ok := t.st.contacts[id]
	if !ok {
		return storage.ErrNotFound
	}
	if c.LinkedProfileID != "" {
		return fmt.Errorf("contact %s already linked: %w", id, storage.ErrConflict)
	}
	c.LinkedProfileID = profileID
	t.st.contacts[id] = c
	return nil
}

func (t *tx) LinkContacts(_ context.Context, phone, profileID string) (int, error) {
	if phone == "" {
		return 0, nil
	}
	n := 0
	for id, c := range t.st.contacts {
		if c.PhoneNumber == phone && c.LinkedProfileID == "" && c.OwnerID != profileID {
			c.LinkedProfileID = profileID
			t.st.contacts[id] = c
			n++
		}
	}
	return n, nil
}

func (t *tx) CreateCategory(_ context.Context, c *models.Category) error {
	stamp(&c.ID, &c.CreatedAt)
	t.st.categories[c.ID] = *c
	return nil
}

func (t *tx) CreateTransaction(_ context.Context, rec *models.Transaction) error {
	if rec.AccountID != "" {
		if _, ok := t.st.accounts[rec.AccountID]; !ok {
			return fmt.Errorf("account %s: %w", rec.AccountID, storage.ErrNotFound)
		}
	}
	stamp(&rec.ID, &rec.CreatedAt)
	if !rec.ExchangeRate.Valid() {
		rec.ExchangeRate = money.One
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = rec.CreatedAt
	}
	row := *rec
	row.Splits = nil
	t.st.transactions[rec.ID] = row
	return nil
}

func (t *tx) CreateSplit(_ context.Context, s *models.Split) error {
	if _, ok := t.st.transactions[s.TransactionID]; !ok {
		return fmt.Errorf("transaction %s: %w", s.TransactionID, storage.ErrNotFound)
	}
	if _, ok := t.st.contacts[s.ContactID]; !ok {
		return fmt.Errorf("contact %s: %w", s.ContactID, storage.ErrNotFound)
	}
	stamp(&s.ID, &s.CreatedAt)
	t.st.splits[s.ID] = *s
	return nil
}

func (t *tx) ArchiveTransaction(_ context.Context, id string) error {
	rec, ok := t.st.transactions[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Archived = true
	t.st.transactions[id] = rec
	return nil
}

func (t *tx) CreateAllocation(_ context.Context, a *models.SettlementAllocation) error {
	debt, ok := t.st.splits[a.DebtSplitID]
	if !ok {
		return fmt.Errorf("debt split %s: %w", a.DebtSplitID, storage.ErrNotFound)
	}
	payment, ok := t.st.splits[a.PaymentSplitID]
	if !ok {
		return fmt.Errorf("payment split %s: %w", a.PaymentSplitID, storage.ErrNotFound)
	}

	debtUsed := t.sumAllocations(func(x models.SettlementAllocation) bool { return x.DebtSplitID == debt.ID })
	if debtUsed.Add(a.Amount).Cmp(debt.Amount.Abs()) > 0 {
		return storage.ErrConflict
	}
	payUsed := t.sumAllocations(func(x models.SettlementAllocation) bool { return x.PaymentSplitID == payment.ID })
	if payUsed.Add(a.Amount).Cmp(payment.Amount.Abs()) > 0 {
		return storage.ErrConflict
	}

	stamp(&a.ID, &a.CreatedAt)
	t.st.allocations[a.ID] = *a
	return nil
}
