package ledger

import (
	"context"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// RecentTransactions is how many transactions the dashboard shows.
const RecentTransactions = 5

// ContactBalance is the balance between the owner and one contact.
// Net = Debt - Settled; positive means the contact owes the owner.
type ContactBalance struct {
	Contact *models.Contact
	Debt    money.Money
	Settled money.Money
	Net     money.Money
}

// Dashboard is the owner's overview.
type Dashboard struct {
	// TotalBalance sums every account balance as stored.
	TotalBalance money.Money

	TotalOwedToYou money.Money
	TotalYouOwe    money.Money
	// NetBalance = TotalOwedToYou - TotalYouOwe = sum of Balances[i].Net.
	NetBalance money.Money

	Balances []ContactBalance

	// PersonalSpending is the user's own share of account-funded expenses
	// in base currency.
	PersonalSpending money.Money

	RecentTransactions []*TransactionView
}

// balances computes per-contact balances from one snapshot. When at is
// non-zero, only splits and allocations of transactions that occurred at or
// before at count.
func balances(ctx context.Context, r storage.Reader, owner string, contacts []*models.Contact, at time.Time) ([]ContactBalance, error) {
	contactID := ""
	if len(contacts) == 1 {
		contactID = contacts[0].ID
	}

	debts, err := r.ListSplits(ctx, storage.SplitFilter{
		OwnerID:        owner,
		ContactID:      contactID,
		Kind:           models.SplitDebt,
		OccurredBefore: at,
	})
	if err != nil {
		return nil, err
	}
	allocations, err := r.ListAllocations(ctx, storage.AllocationFilter{
		OwnerID:        owner,
		ContactID:      contactID,
		LiveOnly:       true,
		OccurredBefore: at,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}

	// Allocations are attributed through their debt split. An allocation
	// whose debt is not in the set (it occurred after at) does not count.
	debtContact := make(map[string]string, len(debts))
	debtEntries := make([]calculator.DebtEntry, len(debts))
	for i, s := range debts {
		debtContact[s.ID] = s.ContactID
		debtEntries[i] = calculator.DebtEntry{ContactID: s.ContactID, Amount: s.Amount}
	}
	settled := make([]calculator.SettledEntry, 0, len(allocations))
	for _, a := range allocations {
		cid, ok := debtContact[a.DebtSplitID]
		if !ok {
			continue
		}
		settled = append(settled, calculator.SettledEntry{ContactID: cid, Amount: a.Amount})
	}

	agg := calculator.AggregateBalances(ids, debtEntries, settled)
	out := make([]ContactBalance, len(agg))
	for i, b := range agg {
		out[i] = ContactBalance{Contact: contacts[i], Debt: b.Debt, Settled: b.Settled, Net: b.Net}
	}
	return out, nil
}

// Balance returns the balance between owner and one contact, derived from
// the live DEBT splits and live allocations of one snapshot.
func (l *Ledger) Balance(ctx context.Context, owner, contactID string) (*ContactBalance, error) {
	return l.balanceAsOf(ctx, owner, contactID, time.Time{})
}

func (l *Ledger) balanceAsOf(ctx context.Context, owner, contactID string, at time.Time) (*ContactBalance, error) {
	var out *ContactBalance
	err := l.view(ctx, "net balance", func(r storage.Reader) error {
		c, err := ownedContact(ctx, r, owner, contactID)
		if err != nil {
			return err
		}
		bs, err := balances(ctx, r, owner, []*models.Contact{c}, at)
		if err != nil {
			return err
		}
		out = &bs[0]
		return nil
	})
	return out, err
}

// NetBalance returns what contactID owes owner (negative: what owner owes
// the contact): the live DEBT splits minus the live allocations against
// them.
func (l *Ledger) NetBalance(ctx context.Context, owner, contactID string) (money.Money, error) {
	b, err := l.Balance(ctx, owner, contactID)
	if err != nil {
		return 0, err
	}
	return b.Net, nil
}

// NetBalanceAsOf is NetBalance restricted to transactions that occurred at
// or before at.
func (l *Ledger) NetBalanceAsOf(ctx context.Context, owner, contactID string, at time.Time) (money.Money, error) {
	if at.IsZero() {
		return 0, invalid("at", "required")
	}
	b, err := l.balanceAsOf(ctx, owner, contactID, at)
	if err != nil {
		return 0, err
	}
	return b.Net, nil
}

// AllBalances returns one balance per contact of owner, zero for contacts
// without splits, ordered like ListContacts.
func (l *Ledger) AllBalances(ctx context.Context, owner string) ([]ContactBalance, error) {
	var out []ContactBalance
	err := l.view(ctx, "all balances", func(r storage.Reader) error {
		contacts, err := r.ListContacts(ctx, owner)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			return nil
		}
		out, err = balances(ctx, r, owner, contacts, time.Time{})
		return err
	})
	return out, err
}

// DashboardSummary builds the owner's overview from one snapshot. The
// contact totals are derived from the same per-contact balances AllBalances
// returns.
func (l *Ledger) DashboardSummary(ctx context.Context, owner string) (*Dashboard, error) {
	d := &Dashboard{}
	err := l.view(ctx, "dashboard", func(r storage.Reader) error {
		accounts, err := r.ListAccounts(ctx, owner)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			total, err := d.TotalBalance.CheckedAdd(a.Balance)
			if err != nil {
				return invalid("total_balance", "%v", err)
			}
			d.TotalBalance = total
		}

		contacts, err := r.ListContacts(ctx, owner)
		if err != nil {
			return err
		}
		if len(contacts) > 0 {
			if d.Balances, err = balances(ctx, r, owner, contacts, time.Time{}); err != nil {
				return err
			}
		}
		nets := make([]calculator.ContactBalance, len(d.Balances))
		for i, b := range d.Balances {
			nets[i] = calculator.ContactBalance{ContactID: b.Contact.ID, Net: b.Net}
		}
		sum := calculator.Summarize(nets)
		d.TotalOwedToYou = sum.OwedToYou
		d.TotalYouOwe = sum.YouOwe
		d.NetBalance = sum.Net

		txs, err := r.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: owner})
		if err != nil {
			return err
		}
		if d.PersonalSpending, err = personalSpending(txs); err != nil {
			return err
		}
		recent := txs[:min(len(txs), RecentTransactions)]
		d.RecentTransactions, err = resolveNames(ctx, r, owner, recent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// personalSpending sums, over live account-funded expenses, the part of the
// total not charged to contacts, converted with each transaction's rate.
func personalSpending(txs []*models.Transaction) (money.Money, error) {
	var total money.Money
	for _, t := range txs {
		if t.AccountID == "" || t.IsSettlement() {
			continue
		}
		own := *t
		for _, s := range t.Splits {
			if s.Kind == models.SplitDebt && s.Amount.IsPositive() {
				own.TotalAmount = own.TotalAmount.Sub(s.Amount)
			}
		}
		base, err := own.BaseAmount()
		if err == nil {
			total, err = total.CheckedAdd(base)
		}
		if err != nil {
			return 0, invalid("personal_spending", "transaction %s: %v", t.ID, err)
		}
	}
	return total, nil
}
