package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	transactionColumns = `t.id, t.created_by, t.account_id, t.payer_contact_id, t.total_amount,
		t.currency_code, t.exchange_rate, t.description, t.occurred_at, t.archived, t.created_at`
	splitColumns = `s.id, s.transaction_id, s.contact_id, s.amount, s.split_kind, s.category_id, s.created_at`
)

func scanTransaction(row scanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var accountID, payerID sql.NullString
	var total, rate, occurredAt, createdAt int64
	if err := row.Scan(&t.ID, &t.CreatedBy, &accountID, &payerID, &total,
		&t.CurrencyCode, &rate, &t.Description, &occurredAt, &t.Archived, &createdAt); err != nil {
		return nil, err
	}
	t.AccountID = accountID.String
	t.PayerContactID = payerID.String
	t.TotalAmount = money.FromCents(total)
	t.ExchangeRate = money.RateFromMicros(rate)
	t.OccurredAt = fromNanos(occurredAt)
	t.CreatedAt = fromNanos(createdAt)
	return t, nil
}

func scanSplit(row scanner) (*models.Split, error) {
	s := &models.Split{}
	var categoryID sql.NullString
	var amount, createdAt int64
	var kind string
	if err := row.Scan(&s.ID, &s.TransactionID, &s.ContactID, &amount, &kind, &categoryID, &createdAt); err != nil {
		return nil, err
	}
	s.Amount = money.FromCents(amount)
	s.Kind = models.SplitKind(kind)
	s.CategoryID = categoryID.String
	s.CreatedAt = fromNanos(createdAt)
	return s, nil
}

func (s *queries) loadSplits(ctx context.Context, t *models.Transaction) error {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+splitColumns+` FROM splits s WHERE s.transaction_id = ? ORDER BY s.id`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	splits, err := collect(rows, "split", scanSplit)
	if err != nil {
		return err
	}
	t.Splits = make([]models.Split, len(splits))
	for i, sp := range splits {
		t.Splits[i] = *sp
	}
	return nil
}

// GetTransaction retrieves a transaction with its splits.
func (s *queries) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	t, err := scanTransaction(s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	if err := s.loadSplits(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions retrieves transactions with their splits, newest first.
func (s *queries) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	var w where
	if filter.CreatedBy != "" {
		w.add("t.created_by = ?", filter.CreatedBy)
	}
	if filter.AccountID != "" {
		w.add("t.account_id = ?", filter.AccountID)
	}
	if !filter.IncludeArchived {
		w.add("t.archived = 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions t` + w.String() +
		` ORDER BY t.occurred_at DESC, t.id DESC`
	args := w.args
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs, err := collect(rows, "transaction", scanTransaction)
	if err != nil {
		return nil, err
	}

	// Splits are loaded after the cursor is closed; the pool holds one
	// connection.
	for _, t := range txs {
		if err := s.loadSplits(ctx, t); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

// ListSplits retrieves splits through their parent transaction, oldest
// parent first.
func (s *queries) ListSplits(ctx context.Context, filter storage.SplitFilter) ([]*models.Split, error) {
	var w where
	w.add("t.created_by = ?", filter.OwnerID)
	if !filter.IncludeArchived {
		w.add("t.archived = 0")
	}
	if !filter.OccurredBefore.IsZero() {
		w.add("t.occurred_at <= ?", toNanos(filter.OccurredBefore))
	}
	if filter.ContactID != "" {
		w.add("s.contact_id = ?", filter.ContactID)
	}
	if filter.TransactionID != "" {
		w.add("s.transaction_id = ?", filter.TransactionID)
	}
	if filter.Kind != "" {
		w.add("s.split_kind = ?", string(filter.Kind))
	}
	if filter.PositiveOnly {
		w.add("s.amount > 0")
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+splitColumns+` FROM splits s
		 JOIN transactions t ON t.id = s.transaction_id`+w.String()+`
		 ORDER BY t.occurred_at ASC, s.id ASC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	return collect(rows, "split", scanSplit)
}

// CreateTransaction inserts the transaction row.
func (s *txQueries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.AccountID != "" {
		if _, err := s.GetAccount(ctx, t.AccountID); err != nil {
			return err
		}
	}
	stamp(&t.ID, &t.CreatedAt)
	if !t.ExchangeRate.Valid() {
		t.ExchangeRate = money.One
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = t.CreatedAt
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (`+strings.ReplaceAll(transactionColumns, "t.", "")+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CreatedBy, nullString(t.AccountID), nullString(t.PayerContactID), t.TotalAmount.Cents(),
		t.CurrencyCode, t.ExchangeRate.Micros(), t.Description, toNanos(t.OccurredAt), t.Archived, toNanos(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// CreateSplit inserts one split of an existing transaction.
func (s *txQueries) CreateSplit(ctx context.Context, sp *models.Split) error {
	if _, err := s.GetContact(ctx, sp.ContactID); err != nil {
		return err
	}
	stamp(&sp.ID, &sp.CreatedAt)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO splits (`+strings.ReplaceAll(splitColumns, "s.", "")+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.TransactionID, sp.ContactID, sp.Amount.Cents(), string(sp.Kind),
		nullString(sp.CategoryID), toNanos(sp.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}
	return nil
}

// ArchiveTransaction sets the archived flag.
func (s *txQueries) ArchiveTransaction(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE transactions SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to archive transaction: %w", err)
	}
	return requireRow(res, "transaction", id)
}
