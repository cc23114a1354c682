package models

import (
	"time"

	"github.com/mmynk/splitledger/internal/money"
)

// SplitKind distinguishes expense shares from settlement payments.
type SplitKind string

const (
	// SplitDebt records that a contact owes (or is owed) part of an expense.
	SplitDebt SplitKind = "DEBT"
	// SplitPayment records a settlement payment received from a contact.
	SplitPayment SplitKind = "PAYMENT"
)

// Valid reports whether k is a known split kind.
func (k SplitKind) Valid() bool {
	return k == SplitDebt || k == SplitPayment
}

// SettlementDescription is the description stamped on settlement transactions.
const SettlementDescription = "Settlement payment"

// Transaction is one money movement recorded by a user: an expense or a
// settlement. It is immutable once created except for Archived.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUIDv7 format).
	ID string

	// CreatedBy is the user who recorded the transaction.
	CreatedBy string

	// AccountID is the user's account that funded (or received) the money.
	// Empty means a contact paid.
	AccountID string

	// PayerContactID is set when a contact paid for the expense.
	PayerContactID string

	// TotalAmount is the full amount of the expense or settlement.
	TotalAmount money.Money

	CurrencyCode string

	// ExchangeRate converts TotalAmount into the creator's base currency.
	ExchangeRate money.Rate

	Description string

	// OccurredAt orders debts for FIFO settlement.
	OccurredAt time.Time

	// Archived is the soft-delete flag. Archived transactions are ignored
	// by balances and settlement.
	Archived bool

	CreatedAt time.Time

	// Splits are loaded alongside the transaction when requested.
	Splits []Split
}

// BaseAmount returns TotalAmount converted with ExchangeRate.
func (t *Transaction) BaseAmount() (money.Money, error) {
	rate := t.ExchangeRate
	if !rate.Valid() {
		rate = money.One
	}
	return rate.Apply(t.TotalAmount)
}

// IsSettlement reports whether the transaction carries a PAYMENT split.
func (t *Transaction) IsSettlement() bool {
	for _, s := range t.Splits {
		if s.Kind == SplitPayment {
			return true
		}
	}
	return false
}

// Split is one contact's share of a transaction. Created atomically with
// its parent and never modified afterwards.
type Split struct {
	ID            string
	TransactionID string
	ContactID     string

	// Amount is signed: positive = contact owes the user,
	// negative = user owes the contact.
	Amount money.Money

	Kind SplitKind

	// CategoryID is optional.
	CategoryID string

	CreatedAt time.Time
}

// SettlementAllocation records how much of a PAYMENT split was applied to
// one DEBT split.
type SettlementAllocation struct {
	ID             string
	PaymentSplitID string
	DebtSplitID    string

	// Amount is always positive.
	Amount money.Money

	CreatedAt time.Time
}
