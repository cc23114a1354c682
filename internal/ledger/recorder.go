package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// DefaultCurrency is used when neither the input nor the funding account
// names a currency.
const DefaultCurrency = "USD"

// SplitInput is one contact's share of a new expense.
type SplitInput struct {
	ContactID string
	// Amount is signed: positive = contact owes the user.
	Amount     money.Money
	CategoryID string
}

// TransactionInput describes a new expense.
type TransactionInput struct {
	Creator string

	// AccountID is set when one of the creator's accounts paid.
	AccountID string
	// PayerContactID is set when a contact paid.
	PayerContactID string

	TotalAmount  money.Money
	CurrencyCode string
	ExchangeRate money.Rate
	Description  string

	// OccurredAt defaults to now.
	OccurredAt time.Time

	Splits []SplitInput
}

// TransactionView is a transaction with the names its ids refer to.
type TransactionView struct {
	*models.Transaction
	AccountName  string
	PayerName    string
	ContactNames map[string]string
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validateRate defaults an unset rate to 1 and rejects negative ones.
func validateRate(r money.Rate) (money.Rate, error) {
	switch {
	case r == 0:
		return money.One, nil
	case !r.Valid():
		return 0, invalid("exchange_rate", "must be positive, got %s", r)
	}
	return r, nil
}

func (in *TransactionInput) validate() error {
	if in.Creator == "" {
		return invalid("creator", "required")
	}
	if in.TotalAmount.IsNegative() {
		return invalid("total_amount", "must not be negative, got %s", in.TotalAmount)
	}
	if in.AccountID != "" && in.PayerContactID != "" {
		return invalid("payer_contact_id", "cannot be set together with account_id")
	}
	in.CurrencyCode = normalizeCurrency(in.CurrencyCode)
	if in.CurrencyCode != "" && !validCurrency(in.CurrencyCode) {
		return invalid("currency_code", "must be a three-letter code, got %q", in.CurrencyCode)
	}
	rate, err := validateRate(in.ExchangeRate)
	if err != nil {
		return err
	}
	in.ExchangeRate = rate
	for i, s := range in.Splits {
		field := fmt.Sprintf("splits[%d]", i)
		if s.ContactID == "" {
			return invalid(field+".contact_id", "required")
		}
		if s.Amount.IsZero() {
			return invalid(field+".amount", "must not be zero")
		}
	}
	return nil
}

// ownedContact loads a contact and checks that owner created it.
func ownedContact(ctx context.Context, r storage.Reader, owner, id string) (*models.Contact, error) {
	c, err := r.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != owner {
		return nil, notFound("contact", id)
	}
	return c, nil
}

// ownedAccount loads an account and checks that owner holds it.
func ownedAccount(ctx context.Context, r storage.Reader, owner, id string) (*models.Account, error) {
	a, err := r.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != owner {
		return nil, notFound("account", id)
	}
	return a, nil
}

// CreateTransaction records an expense: the transaction, one DEBT split per
// input split and, when an account paid, the decrease of that account's
// balance. All of it commits together or not at all.
func (l *Ledger) CreateTransaction(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = l.now()
	}

	created, err := retry(ctx, l, "create transaction", func() (*models.Transaction, error) {
		var rec *models.Transaction
		err := l.atomic(ctx, "create transaction", func(tx storage.Tx) error {
			var err error
			rec, err = l.recordExpense(ctx, tx, in)
			return err
		})
		return rec, err
	})
	if err != nil {
		return nil, err
	}

	l.observer.TransactionRecorded("expense", created.TotalAmount)
	l.logger.Info("transaction recorded",
		"transaction_id", created.ID,
		"creator", created.CreatedBy,
		"total", created.TotalAmount.String(),
		"currency", created.CurrencyCode,
		"splits", len(created.Splits),
	)
	return created, nil
}

func (l *Ledger) recordExpense(ctx context.Context, tx storage.Tx, in TransactionInput) (*models.Transaction, error) {
	currency := in.CurrencyCode
	if in.AccountID != "" {
		account, err := ownedAccount(ctx, tx, in.Creator, in.AccountID)
		if err != nil {
			return nil, err
		}
		if currency == "" {
			currency = account.CurrencyCode
		}
	}
	if in.PayerContactID != "" {
		if _, err := ownedContact(ctx, tx, in.Creator, in.PayerContactID); err != nil {
			return nil, err
		}
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	for _, s := range in.Splits {
		if _, err := ownedContact(ctx, tx, in.Creator, s.ContactID); err != nil {
			return nil, err
		}
		if s.CategoryID != "" {
			cat, err := tx.GetCategory(ctx, s.CategoryID)
			if err != nil {
				return nil, err
			}
			if !cat.VisibleTo(in.Creator) {
				return nil, notFound("category", s.CategoryID)
			}
		}
	}

	rec := &models.Transaction{
		CreatedBy:      in.Creator,
		AccountID:      in.AccountID,
		PayerContactID: in.PayerContactID,
		TotalAmount:    in.TotalAmount,
		CurrencyCode:   currency,
		ExchangeRate:   in.ExchangeRate,
		Description:    in.Description,
		OccurredAt:     in.OccurredAt,
	}
	if err := tx.CreateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	rec.Splits = make([]models.Split, 0, len(in.Splits))
	for _, s := range in.Splits {
		split := models.Split{
			TransactionID: rec.ID,
			ContactID:     s.ContactID,
			Amount:        s.Amount,
			Kind:          models.SplitDebt,
			CategoryID:    s.CategoryID,
		}
		if err := tx.CreateSplit(ctx, &split); err != nil {
			return nil, err
		}
		rec.Splits = append(rec.Splits, split)
	}

	if in.AccountID != "" {
		if _, err := adjustAccountBalance(ctx, tx, in.Creator, in.AccountID, in.TotalAmount.Neg()); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// ArchiveTransaction soft-deletes a transaction. Only its creator may
// archive it. Archiving twice is a no-op. A settlement whose payment has
// been allocated to debts cannot be archived.
func (l *Ledger) ArchiveTransaction(ctx context.Context, requester, txID string) (*models.Transaction, error) {
	var rec *models.Transaction
	err := l.atomic(ctx, "archive transaction", func(tx storage.Tx) error {
		var err error
		rec, err = tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if rec.CreatedBy != requester {
			return notFound("transaction", txID)
		}
		if rec.Archived {
			return nil
		}
		for _, s := range rec.Splits {
			if s.Kind != models.SplitPayment {
				continue
			}
			allocations, err := tx.ListAllocations(ctx, storage.AllocationFilter{PaymentSplitID: s.ID})
			if err != nil {
				return err
			}
			if len(allocations) > 0 {
				return invalid("transaction_id", "settlement %s has %d allocations and cannot be archived", txID, len(allocations))
			}
		}
		if err := tx.ArchiveTransaction(ctx, txID); err != nil {
			return err
		}
		rec.Archived = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("transaction archived", "transaction_id", txID, "requester", requester)
	return rec, nil
}

// GetTransaction returns one of the requester's transactions with names
// resolved.
func (l *Ledger) GetTransaction(ctx context.Context, requester, txID string) (*TransactionView, error) {
	var out *TransactionView
	err := l.view(ctx, "get transaction", func(r storage.Reader) error {
		rec, err := r.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if rec.CreatedBy != requester {
			return notFound("transaction", txID)
		}
		views, err := resolveNames(ctx, r, requester, []*models.Transaction{rec})
		if err != nil {
			return err
		}
		out = views[0]
		return nil
	})
	return out, err
}

// ListTransactions returns the owner's live transactions, newest first.
// A limit of zero or less returns all of them.
func (l *Ledger) ListTransactions(ctx context.Context, owner string, limit int) ([]*TransactionView, error) {
	var out []*TransactionView
	err := l.view(ctx, "list transactions", func(r storage.Reader) error {
		txs, err := r.ListTransactions(ctx, storage.TransactionFilter{CreatedBy: owner, Limit: limit})
		if err != nil {
			return err
		}
		out, err = resolveNames(ctx, r, owner, txs)
		return err
	})
	return out, err
}

func resolveNames(ctx context.Context, r storage.Reader, owner string, txs []*models.Transaction) ([]*TransactionView, error) {
	accounts, err := r.ListAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	contacts, err := r.ListContacts(ctx, owner)
	if err != nil {
		return nil, err
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	contactNames := make(map[string]string, len(contacts))
	for _, c := range contacts {
		contactNames[c.ID] = c.Name
	}

	out := make([]*TransactionView, len(txs))
	for i, t := range txs {
		v := &TransactionView{
			Transaction:  t,
			AccountName:  accountNames[t.AccountID],
			PayerName:    contactNames[t.PayerContactID],
			ContactNames: make(map[string]string, len(t.Splits)),
		}
		for _, s := range t.Splits {
			v.ContactNames[s.ContactID] = contactNames[s.ContactID]
		}
		out[i] = v
	}
	return out, nil
}
