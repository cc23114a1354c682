package calculator

import (
	"github.com/mmynk/splitledger/internal/money"
)

// DebtEntry is a live DEBT split reduced to what balance math needs.
type DebtEntry struct {
	ContactID string
	Amount    money.Money // Positive = contact owes the user
}

// SettledEntry is a live allocation attributed to the contact whose debt
// it paid down.
type SettledEntry struct {
	ContactID string
	Amount    money.Money
}

// ContactBalance is the balance between the user and one contact.
type ContactBalance struct {
	ContactID string
	Debt      money.Money // Sum of live DEBT splits
	Settled   money.Money // Sum of live allocations against those debts
	Net       money.Money // Debt - Settled; positive = contact owes the user
}

// Summary totals a set of contact balances.
type Summary struct {
	OwedToYou money.Money // Sum of positive nets
	YouOwe    money.Money // Absolute sum of negative nets
	Net       money.Money // OwedToYou - YouOwe
}

// AggregateBalances computes one balance per contact in contactIDs order.
// Contacts with no entries get a zero balance; entries for contacts not in
// contactIDs are ignored.
//
// Algorithm:
// - Debt: sum of DEBT split amounts per contact
// - Settled: sum of allocated amounts against that contact's debts
// - Net: Debt - Settled
func AggregateBalances(contactIDs []string, debts []DebtEntry, settled []SettledEntry) []ContactBalance {
	balances := make(map[string]*ContactBalance, len(contactIDs))
	out := make([]ContactBalance, len(contactIDs))
	for i, id := range contactIDs {
		out[i].ContactID = id
		balances[id] = &out[i]
	}

	for _, d := range debts {
		if b, ok := balances[d.ContactID]; ok {
			b.Debt = b.Debt.Add(d.Amount)
		}
	}
	for _, s := range settled {
		if b, ok := balances[s.ContactID]; ok {
			b.Settled = b.Settled.Add(s.Amount)
		}
	}
	for i := range out {
		out[i].Net = out[i].Debt.Sub(out[i].Settled)
	}
	return out
}

// Summarize derives the dashboard totals from per-contact balances, so that
// OwedToYou - YouOwe always equals the sum of the nets.
func Summarize(balances []ContactBalance) Summary {
	var s Summary
	for _, b := range balances {
		switch {
		case b.Net.IsPositive():
			s.OwedToYou = s.OwedToYou.Add(b.Net)
		case b.Net.IsNegative():
			s.YouOwe = s.YouOwe.Add(b.Net.Abs())
		}
	}
	s.Net = s.OwedToYou.Sub(s.YouOwe)
	return s
}
