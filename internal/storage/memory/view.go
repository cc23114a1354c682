package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// view implements storage.Reader over a state. Every method returns copies
// so callers cannot mutate the shared maps.
type view struct {
	st *state
}

func get[T any](m map[string]T, id string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (v *view) GetProfile(_ context.Context, id string) (*models.UserProfile, error) {
	return get(v.st.profiles, id)
}

func (v *view) GetProfileByPhone(_ context.Context, phone string) (*models.UserProfile, error) {
	for _, p := range v.st.profiles {
		if p.PhoneNumber == phone {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (v *view) GetAccount(_ context.Context, id string) (*models.Account, error) {
	return get(v.st.accounts, id)
}

func (v *view) ListAccounts(_ context.Context, userID string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range v.st.accounts {
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *models.Account) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (v *view) GetAccountGroup(_ context.Context, id string) (*models.AccountGroup, error) {
	return get(v.st.groups, id)
}

func (v *view) ListAccountGroups(_ context.Context, userID string) ([]*models.AccountGroup, error) {
	var out []*models.AccountGroup
	for _, g := range v.st.groups {
		if g.UserID == userID {
			out = append(out, &g)
		}
	}
	slices.SortFunc(out, func(a, b *models.AccountGroup) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (v *view) GetContact(_ context.Context, id string) (*models.Contact, error) {
	return get(v.st.contacts, id)
}

func (v *view) ListContacts(_ context.Context, ownerID string) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range v.st.contacts {
		if c.OwnerID == ownerID {
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Contact) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (v *view) GetCategory(_ context.Context, id string) (*models.Category, error) {
	return get(v.st.categories, id)
}

func (v *view) ListCategories(_ context.Context, userID string) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range v.st.categories {
		if c.VisibleTo(userID) {
			out = append(out, &c)
		}
	}
	// System categories first, then the user's own by name.
	slices.SortFunc(out, func(a, b *models.Category) int {
		if a.IsSystem != b.IsSystem {
			if a.IsSystem {
				return -1
			}
			return 1
		}
		if a.IsSystem {
			return cmp.Compare(a.ID, b.ID)
		}
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// splitsOf returns the splits of a transaction in id order.
func (v *view) splitsOf(txID string) []models.Split {
	var out []models.Split
	for _, s := range v.st.splits {
		if s.TransactionID == txID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.Split) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (v *view) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	t, err := get(v.st.transactions, id)
	if err != nil {
		return nil, err
	}
	t.Splits = v.splitsOf(id)
	return t, nil
}

func (v *view) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range v.st.transactions {
		if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.AccountID != "" && t.AccountID != filter.AccountID {
			continue
		}
		if t.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, &t)
	}
	slices.SortFunc(out, func(a, b *models.Transaction) int {
		return cmp.Or(b.OccurredAt.Compare(a.OccurredAt), cmp.Compare(b.ID, a.ID))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	for _, t := range out {
		t.Splits = v.splitsOf(t.ID)
	}
	return out, nil
}

func (v *view) ListSplits(_ context.Context, filter storage.SplitFilter) ([]*models.Split, error) {
	type row struct {
		split *models.Split
		tx    models.Transaction
	}
	var rows []row
	for _, s := range v.st.splits {
		t, ok := v.st.transactions[s.TransactionID]
		if !ok || t.CreatedBy != filter.OwnerID {
			continue
		}
		if t.Archived && !filter.IncludeArchived {
			continue
		}
		if !filter.OccurredBefore.IsZero() && t.OccurredAt.After(filter.OccurredBefore) {
			continue
		}
		if filter.ContactID != "" && s.ContactID != filter.ContactID {
			continue
		}
		if filter.TransactionID != "" && s.TransactionID != filter.TransactionID {
			continue
		}
		if filter.Kind != "" && s.Kind != filter.Kind {
			continue
		}
		if filter.PositiveOnly && !s.Amount.IsPositive() {
			continue
		}
		rows = append(rows, row{split: &s, tx: t})
	}
	slices.SortFunc(rows, func(a, b row) int {
		return cmp.Or(a.tx.OccurredAt.Compare(b.tx.OccurredAt), cmp.Compare(a.split.ID, b.split.ID))
	})
	out := make([]*models.Split, len(rows))
	for i, r := range rows {
		out[i] = r.split
	}
	return out, nil
}

// parent returns the transaction owning a split.
func (v *view) parent(splitID string) (models.Split, models.Transaction, bool) {
	s, ok := v.st.splits[splitID]
	if !ok {
		return models.Split{}, models.Transaction{}, false
	}
	t, ok := v.st.transactions[s.TransactionID]
	return s, t, ok
}

func (v *view) ListAllocations(_ context.Context, filter storage.AllocationFilter) ([]*models.SettlementAllocation, error) {
	var out []*models.SettlementAllocation
	for _, a := range v.st.allocations {
		if filter.DebtSplitID != "" && a.DebtSplitID != filter.DebtSplitID {
			continue
		}
		if filter.PaymentSplitID != "" && a.PaymentSplitID != filter.PaymentSplitID {
			continue
		}
		debt, debtTx, ok := v.parent(a.DebtSplitID)
		if !ok {
			continue
		}
		_, payTx, ok := v.parent(a.PaymentSplitID)
		if !ok {
			continue
		}
		if filter.OwnerID != "" && debtTx.CreatedBy != filter.OwnerID {
			continue
		}
		if filter.ContactID != "" && debt.ContactID != filter.ContactID {
			continue
		}
		if filter.LiveOnly && (debtTx.Archived || payTx.Archived) {
			continue
		}
		if !filter.OccurredBefore.IsZero() && payTx.OccurredAt.After(filter.OccurredBefore) {
			continue
		}
		out = append(out, &a)
	}
	slices.SortFunc(out, func(a, b *models.SettlementAllocation) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (v *view) SumAllocated(_ context.Context, debtSplitID string) (money.Money, error) {
	return v.sumAllocations(func(a models.SettlementAllocation) bool { return a.DebtSplitID == debtSplitID }), nil
}

// sumAllocations totals every allocation matching keep.
func (v *view) sumAllocations(keep func(models.SettlementAllocation) bool) money.Money {
	var total money.Money
	for _, a := range v.st.allocations {
		if keep(a) {
			total = total.Add(a.Amount)
		}
	}
	return total
}
