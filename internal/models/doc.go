// Package models defines the core domain models for the shared-expense ledger.
//
// # Ownership
//
// Every record is scoped to one user:
//   - Account and AccountGroup belong to UserID
//   - Contact belongs to OwnerID; balances are computed per (owner, contact)
//   - Transaction belongs to CreatedBy; its Splits inherit that ownership
//   - SettlementAllocation links two Splits of the same owner
//
// The store does not enforce tenant isolation. The ledger engine checks
// ownership on every operation before it reads or writes.
//
// # Amounts
//
// Amounts are money.Money (integer cents). A Split amount is signed:
// positive means the contact owes the user, negative means the user owes
// the contact. Exchange rates are money.Rate (millionths).
//
// # Relationships
//
// Relationships use ID strings instead of pointers. Contact.LinkedProfileID
// is an optional back-reference to a registered UserProfile, set at most
// once and never cleared.
package models
