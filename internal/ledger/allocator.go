package ledger

import (
	"context"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// SettlementInput describes money received from a contact.
type SettlementInput struct {
	Owner     string
	ContactID string

	// Amount is what the contact paid. Must be positive.
	Amount money.Money

	// AccountID is the owner's account that received the money.
	AccountID string

	CurrencyCode string
	ExchangeRate money.Rate

	// OccurredAt defaults to now.
	OccurredAt time.Time
}

// SettlementResult is what CreateSettlement recorded.
type SettlementResult struct {
	Transaction  *models.Transaction
	PaymentSplit models.Split
	// Allocations are in the order the debts were paid down.
	Allocations []models.SettlementAllocation
	// Unallocated is the part of the payment no open debt absorbed.
	Unallocated money.Money
}

func (in *SettlementInput) validate() error {
	if in.Owner == "" {
		return invalid("owner", "required")
	}
	if in.ContactID == "" {
		return invalid("contact_id", "required")
	}
	if in.AccountID == "" {
		return invalid("account_id", "required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be positive, got %s", in.Amount)
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
	return nil
}

// CreateSettlement records a payment from a contact and applies it to the
// contact's open debts oldest first (by the debt's transaction occurred_at,
// then split id). A surplus beyond all open debts stays unallocated. The
// receiving account is credited with the full amount.
//
// Settlements for the same owner and contact are serialized, and every
// allocation is re-checked against the debt's current capacity when it is
// written; a failed re-check restarts the whole settlement.
func (l *Ledger) CreateSettlement(ctx context.Context, in SettlementInput) (*SettlementResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = l.now()
	}

	unlock := l.contactLocks.Lock(in.Owner + "/" + in.ContactID)
	defer unlock()

	res, err := retry(ctx, l, "create settlement", func() (*SettlementResult, error) {
		var res *SettlementResult
		err := l.atomic(ctx, "create settlement", func(tx storage.Tx) error {
			var err error
			res, err = l.settle(ctx, tx, in)
			return err
		})
		return res, err
	})
	if err != nil {
		return nil, err
	}

	l.observer.TransactionRecorded("settlement", in.Amount)
	l.observer.SettlementAllocated(len(res.Allocations), res.Unallocated)
	l.logger.Info("settlement recorded",
		"transaction_id", res.Transaction.ID,
		"owner", in.Owner,
		"contact_id", in.ContactID,
		"amount", in.Amount.String(),
		"allocations", len(res.Allocations),
		"unallocated", res.Unallocated.String(),
	)
	return res, nil
}

func (l *Ledger) settle(ctx context.Context, tx storage.Tx, in SettlementInput) (*SettlementResult, error) {
	account, err := ownedAccount(ctx, tx, in.Owner, in.AccountID)
	if err != nil {
		return nil, err
	}
	if _, err := ownedContact(ctx, tx, in.Owner, in.ContactID); err != nil {
		return nil, err
	}
	currency := in.CurrencyCode
	if currency == "" {
		currency = account.CurrencyCode
	}

	rec := &models.Transaction{
		CreatedBy:    in.Owner,
		AccountID:    in.AccountID,
		TotalAmount:  in.Amount,
		CurrencyCode: currency,
		ExchangeRate: in.ExchangeRate,
		Description:  models.SettlementDescription,
		OccurredAt:   in.OccurredAt,
	}
	if err := tx.CreateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	payment := models.Split{
		TransactionID: rec.ID,
		ContactID:     in.ContactID,
		Amount:        in.Amount.Neg(),
		Kind:          models.SplitPayment,
	}
	if err := tx.CreateSplit(ctx, &payment); err != nil {
		return nil, err
	}
	rec.Splits = []models.Split{payment}

	open, err := openDebts(ctx, tx, in.Owner, in.ContactID, in.Amount)
	if err != nil {
		return nil, err
	}
	plan, unallocated := calculator.PlanAllocations(in.Amount, open)

	allocations := make([]models.SettlementAllocation, 0, len(plan))
	for _, p := range plan {
		a := models.SettlementAllocation{
			PaymentSplitID: payment.ID,
			DebtSplitID:    p.DebtSplitID,
			Amount:         p.Amount,
		}
		if err := tx.CreateAllocation(ctx, &a); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}

	if _, err := adjustAccountBalance(ctx, tx, in.Owner, in.AccountID, in.Amount); err != nil {
		return nil, err
	}

	return &SettlementResult{
		Transaction:  rec,
		PaymentSplit: payment,
		Allocations:  allocations,
		Unallocated:  unallocated,
	}, nil
}

// openDebts returns the contact's positive DEBT splits in FIFO order with
// their current allocated totals, stopping once the remaining capacity
// covers payment.
func openDebts(ctx context.Context, r storage.Reader, owner, contactID string, payment money.Money) ([]calculator.OpenDebt, error) {
	debts, err := r.ListSplits(ctx, storage.SplitFilter{
		OwnerID:      owner,
		ContactID:    contactID,
		Kind:         models.SplitDebt,
		PositiveOnly: true,
	})
	if err != nil {
		return nil, err
	}

	var open []calculator.OpenDebt
	var capacity money.Money
	for _, d := range debts {
		if capacity.Cmp(payment) >= 0 {
			break
		}
		allocated, err := r.SumAllocated(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		od := calculator.OpenDebt{SplitID: d.ID, Amount: d.Amount, Allocated: allocated}
		if left := od.Remaining(); left.IsPositive() {
			capacity = capacity.Add(left)
		}
		open = append(open, od)
	}
	return open, nil
}
