package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const allocationColumns = `a.id, a.payment_split_id, a.debt_split_id, a.amount, a.created_at`

// allocatedOn sums every allocation recorded on one split column. Archived
// transactions keep their allocations, so their capacity stays used.
const allocatedOn = `
	SELECT COALESCE(SUM(a.amount), 0)
	FROM settlement_allocations a
	WHERE a.%s = ?`

func scanAllocation(row scanner) (*models.SettlementAllocation, error) {
	a := &models.SettlementAllocation{}
	var amount, createdAt int64
	if err := row.Scan(&a.ID, &a.PaymentSplitID, &a.DebtSplitID, &amount, &createdAt); err != nil {
		return nil, err
	}
	a.Amount = money.FromCents(amount)
	a.CreatedAt = fromNanos(createdAt)
	return a, nil
}

// ListAllocations retrieves allocations matching the filter.
func (s *queries) ListAllocations(ctx context.Context, filter storage.AllocationFilter) ([]*models.SettlementAllocation, error) {
	var w where
	if filter.OwnerID != "" {
		w.add("dt.created_by = ?", filter.OwnerID)
	}
	if filter.ContactID != "" {
		w.add("ds.contact_id = ?", filter.ContactID)
	}
	if filter.DebtSplitID != "" {
		w.add("a.debt_split_id = ?", filter.DebtSplitID)
	}
	if filter.PaymentSplitID != "" {
		w.add("a.payment_split_id = ?", filter.PaymentSplitID)
	}
	if filter.LiveOnly {
		w.add("dt.archived = 0 AND pt.archived = 0")
	}
	if !filter.OccurredBefore.IsZero() {
		w.add("pt.occurred_at <= ?", toNanos(filter.OccurredBefore))
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+allocationColumns+`
		 FROM settlement_allocations a
		 JOIN splits ds ON ds.id = a.debt_split_id
		 JOIN transactions dt ON dt.id = ds.transaction_id
		 JOIN splits ps ON ps.id = a.payment_split_id
		 JOIN transactions pt ON pt.id = ps.transaction_id`+w.String()+`
		 ORDER BY a.id`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return collect(rows, "allocation", scanAllocation)
}

// SumAllocated totals every allocation against a debt split.
func (s *queries) SumAllocated(ctx context.Context, debtSplitID string) (money.Money, error) {
	var total int64
	if err := s.q.QueryRowContext(ctx,
		fmt.Sprintf(allocatedOn, "debt_split_id"), debtSplitID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum allocations: %w", err)
	}
	return money.FromCents(total), nil
}

// CreateAllocation inserts an allocation only if both the debt split and
// the payment split still have room for it. The capacity check and the
// insert are one statement.
func (s *txQueries) CreateAllocation(ctx context.Context, a *models.SettlementAllocation) error {
	for _, id := range []string{a.DebtSplitID, a.PaymentSplitID} {
		var exists int
		if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM splits WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check split: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("split %s: %w", id, storage.ErrNotFound)
		}
	}

	stamp(&a.ID, &a.CreatedAt)
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO settlement_allocations (id, payment_split_id, debt_split_id, amount, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (`+fmt.Sprintf(allocatedOn, "debt_split_id")+`) + ? <= (SELECT ABS(amount) FROM splits WHERE id = ?)
		   AND (`+fmt.Sprintf(allocatedOn, "payment_split_id")+`) + ? <= (SELECT ABS(amount) FROM splits WHERE id = ?)`,
		a.ID, a.PaymentSplitID, a.DebtSplitID, a.Amount.Cents(), toNanos(a.CreatedAt),
		a.DebtSplitID, a.Amount.Cents(), a.DebtSplitID,
		a.PaymentSplitID, a.Amount.Cents(), a.PaymentSplitID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}
	return nil
}
