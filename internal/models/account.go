package models

import (
	"time"

	"github.com/mmynk/splitledger/internal/money"
)

// Account is a place the user keeps money (wallet, bank account, card).
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// UserID is the owner. Accounts are never shared.
	UserID string

	// GroupID optionally files the account under an AccountGroup.
	GroupID string

	Name string

	// CurrencyCode is an ISO 4217 code, e.g. "USD".
	CurrencyCode string

	// Balance is the cached running balance ("cash available to the user").
	// Only the ledger engine writes it.
	Balance money.Money

	CreatedAt time.Time
}

// AccountGroup is a user-defined folder of accounts (e.g. "Banks", "Cash").
type AccountGroup struct {
	ID     string
	UserID string
	Name   string
	Icon   string

	CreatedAt time.Time
}
