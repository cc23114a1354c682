package ledger

import (
	"context"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// adjustAccountBalance adds delta to an account's running balance inside
// the caller's unit of work. The write is a compare-and-set against the
// balance just read, so a concurrent writer surfaces as a conflict instead
// of a lost update.
func adjustAccountBalance(ctx context.Context, tx storage.Tx, owner, accountID string, delta money.Money) (*models.Account, error) {
	account, err := ownedAccount(ctx, tx, owner, accountID)
	if err != nil {
		return nil, err
	}
	next, err := account.Balance.CheckedAdd(delta)
	if err != nil {
		return nil, invalid("amount", "account %s balance: %v", accountID, err)
	}
	if err := tx.UpdateAccountBalance(ctx, accountID, account.Balance, next); err != nil {
		return nil, err
	}
	account.Balance = next
	return account, nil
}

// AccountInput describes a new account.
type AccountInput struct {
	Owner          string
	Name           string
	GroupID        string
	CurrencyCode   string
	OpeningBalance money.Money
}

// AccountUpdate carries the client-editable fields of an account. The
// balance is not one of them.
type AccountUpdate struct {
	ID           string
	Name         string
	GroupID      string
	CurrencyCode string
}

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(field, "required")
	}
	return name, nil
}

func accountCurrency(code string) (string, error) {
	code = normalizeCurrency(code)
	if code == "" {
		return DefaultCurrency, nil
	}
	if !validCurrency(code) {
		return "", invalid("currency_code", "must be a three-letter code, got %q", code)
	}
	return code, nil
}

func ownedGroup(ctx context.Context, r storage.Reader, owner, id string) error {
	g, err := r.GetAccountGroup(ctx, id)
	if err != nil {
		return err
	}
	if g.UserID != owner {
		return notFound("account group", id)
	}
	return nil
}

// CreateAccountGroup creates a folder for accounts.
func (l *Ledger) CreateAccountGroup(ctx context.Context, owner, name, icon string) (*models.AccountGroup, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	g := &models.AccountGroup{UserID: owner, Name: name, Icon: icon}
	if err := l.atomic(ctx, "create account group", func(tx storage.Tx) error {
		return tx.CreateAccountGroup(ctx, g)
	}); err != nil {
		return nil, err
	}
	return g, nil
}

// ListAccountGroups returns the owner's account groups.
func (l *Ledger) ListAccountGroups(ctx context.Context, owner string) ([]*models.AccountGroup, error) {
	groups, err := l.store.ListAccountGroups(ctx, owner)
	return groups, classify("list account groups", err)
}

// CreateAccount creates an account with an opening balance.
func (l *Ledger) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}
	currency, err := accountCurrency(in.CurrencyCode)
	if err != nil {
		return nil, err
	}

	a := &models.Account{
		UserID:       in.Owner,
		GroupID:      in.GroupID,
		Name:         name,
		CurrencyCode: currency,
		Balance:      in.OpeningBalance,
	}
	err = l.atomic(ctx, "create account", func(tx storage.Tx) error {
		if a.GroupID != "" {
			if err := ownedGroup(ctx, tx, in.Owner, a.GroupID); err != nil {
				return err
			}
		}
		return tx.CreateAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("account created", "account_id", a.ID, "owner", a.UserID, "balance", a.Balance.String())
	return a, nil
}

// GetAccount returns one of the owner's accounts.
func (l *Ledger) GetAccount(ctx context.Context, owner, id string) (*models.Account, error) {
	a, err := ownedAccount(ctx, l.store, owner, id)
	return a, classify("get account", err)
}

// ListAccounts returns the owner's accounts.
func (l *Ledger) ListAccounts(ctx context.Context, owner string) ([]*models.Account, error) {
	accounts, err := l.store.ListAccounts(ctx, owner)
	return accounts, classify("list accounts", err)
}

// UpdateAccount renames, regroups or changes the currency of an account.
func (l *Ledger) UpdateAccount(ctx context.Context, owner string, in AccountUpdate) (*models.Account, error) {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}
	currency, err := accountCurrency(in.CurrencyCode)
	if err != nil {
		return nil, err
	}

	var out *models.Account
	err = l.atomic(ctx, "update account", func(tx storage.Tx) error {
		a, err := ownedAccount(ctx, tx, owner, in.ID)
		if err != nil {
			return err
		}
		if in.GroupID != "" {
			if err := ownedGroup(ctx, tx, owner, in.GroupID); err != nil {
				return err
			}
		}
		a.Name = name
		a.GroupID = in.GroupID
		a.CurrencyCode = currency
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// DeleteAccount removes an account that no live transaction references.
func (l *Ledger) DeleteAccount(ctx context.Context, owner, id string) error {
	err := l.atomic(ctx, "delete account", func(tx storage.Tx) error {
		if _, err := ownedAccount(ctx, tx, owner, id); err != nil {
			return err
		}
		used, err := tx.ListTransactions(ctx, storage.TransactionFilter{AccountID: id, Limit: 1})
		if err != nil {
			return err
		}
		if len(used) > 0 {
			return invalid("account_id", "account %s still has transactions", id)
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	l.logger.Info("account deleted", "account_id", id, "owner", owner)
	return nil
}
