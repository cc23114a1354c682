package service

import (
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

func toProfile(p *models.UserProfile) Profile {
	return Profile{ID: p.ID, PhoneNumber: p.PhoneNumber, Name: p.Name, BaseCurrency: p.BaseCurrency}
}

func toAccountGroup(g *models.AccountGroup) AccountGroup {
	return AccountGroup{ID: g.ID, Name: g.Name, Icon: g.Icon}
}

func toAccount(a *models.Account) Account {
	return Account{
		ID:           a.ID,
		GroupID:      a.GroupID,
		Name:         a.Name,
		CurrencyCode: a.CurrencyCode,
		Balance:      a.Balance,
		CreatedAt:    a.CreatedAt,
	}
}

func toContact(c *models.Contact) Contact {
	return Contact{
		ID:              c.ID,
		Name:            c.Name,
		PhoneNumber:     c.PhoneNumber,
		LinkedProfileID: c.LinkedProfileID,
		IsShadow:        c.IsShadow(),
	}
}

func toCategory(c *models.Category) Category {
	return Category{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, IsSystem: c.IsSystem}
}

// toTransaction converts t; names may be nil.
func toTransaction(t *models.Transaction, names *ledger.TransactionView) Transaction {
	out := Transaction{
		ID:             t.ID,
		AccountID:      t.AccountID,
		PayerContactID: t.PayerContactID,
		TotalAmount:    t.TotalAmount,
		CurrencyCode:   t.CurrencyCode,
		ExchangeRate:   t.ExchangeRate,
		Description:    t.Description,
		OccurredAt:     t.OccurredAt,
		Archived:       t.Archived,
		IsSettlement:   t.IsSettlement(),
		Splits:         make([]Split, len(t.Splits)),
	}
	if names != nil {
		out.AccountName = names.AccountName
		out.PayerName = names.PayerName
	}
	for i, s := range t.Splits {
		out.Splits[i] = Split{
			ID:         s.ID,
			ContactID:  s.ContactID,
			Amount:     s.Amount,
			Kind:       string(s.Kind),
			CategoryID: s.CategoryID,
		}
		if names != nil {
			out.Splits[i].ContactName = names.ContactNames[s.ContactID]
		}
	}
	return out
}

func toTransactionView(v *ledger.TransactionView) Transaction {
	return toTransaction(v.Transaction, v)
}

func toContactBalance(b ledger.ContactBalance) ContactBalance {
	return ContactBalance{
		ContactID:   b.Contact.ID,
		ContactName: b.Contact.Name,
		Debt:        b.Debt,
		Settled:     b.Settled,
		NetBalance:  b.Net,
	}
}

func convertAll[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
