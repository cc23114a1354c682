package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	accountColumns = `id, user_id, group_id, name, currency_code, balance, created_at`
	groupColumns   = `id, user_id, name, icon, created_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	var groupID sql.NullString
	var balance, createdAt int64
	if err := row.Scan(&a.ID, &a.UserID, &groupID, &a.Name, &a.CurrencyCode, &balance, &createdAt); err != nil {
		return nil, err
	}
	a.GroupID = groupID.String
	a.Balance = money.FromCents(balance)
	a.CreatedAt = fromNanos(createdAt)
	return a, nil
}

func scanGroup(row scanner) (*models.AccountGroup, error) {
	g := &models.AccountGroup{}
	var createdAt int64
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Icon, &createdAt); err != nil {
		return nil, err
	}
	g.CreatedAt = fromNanos(createdAt)
	return g, nil
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, what string, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return out, nil
}

// GetAccount retrieves an account by ID.
func (s *queries) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	a, err := scanAccount(s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

// ListAccounts retrieves all accounts owned by a user.
func (s *queries) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return collect(rows, "account", scanAccount)
}

// GetAccountGroup retrieves an account group by ID.
func (s *queries) GetAccountGroup(ctx context.Context, id string) (*models.AccountGroup, error) {
	g, err := scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM account_groups WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "account group", id)
	}
	return g, nil
}

// ListAccountGroups retrieves all account groups owned by a user.
func (s *queries) ListAccountGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM account_groups WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account groups: %w", err)
	}
	return collect(rows, "account group", scanGroup)
}

// CreateAccountGroup inserts a new account group.
func (s *txQueries) CreateAccountGroup(ctx context.Context, g *models.AccountGroup) error {
	stamp(&g.ID, &g.CreatedAt)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO account_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Icon, toNanos(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create account group: %w", err)
	}
	return nil
}

// CreateAccount inserts a new account with its opening balance.
func (s *txQueries) CreateAccount(ctx context.Context, a *models.Account) error {
	if a.GroupID != "" {
		if _, err := s.GetAccountGroup(ctx, a.GroupID); err != nil {
			return err
		}
	}
	stamp(&a.ID, &a.CreatedAt)
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, nullString(a.GroupID), a.Name, a.CurrencyCode, a.Balance.Cents(), toNanos(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// UpdateAccount writes name, group and currency.
func (s *txQueries) UpdateAccount(ctx context.Context, a *models.Account) error {
	if a.GroupID != "" {
		if _, err := s.GetAccountGroup(ctx, a.GroupID); err != nil {
			return err
		}
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, group_id = ?, currency_code = ? WHERE id = ?`,
		a.Name, nullString(a.GroupID), a.CurrencyCode, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, "account", a.ID)
}

// UpdateAccountBalance is a compare-and-set on the balance column.
func (s *txQueries) UpdateAccountBalance(ctx context.Context, accountID string, expected, next money.Money) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ? AND balance = ?`,
		next.Cents(), accountID, expected.Cents(),
	)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if _, err := s.GetAccount(ctx, accountID); err != nil {
			return err
		}
		return storage.ErrConflict
	}
	return nil
}

// DeleteAccount removes an account. Transactions that referenced it keep
// existing with a null account.
func (s *txQueries) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRow(res, "account", id)
}
