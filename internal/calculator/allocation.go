package calculator

import (
	"github.com/mmynk/splitledger/internal/money"
)

// OpenDebt is a candidate DEBT split for settlement, already in FIFO order.
type OpenDebt struct {
	SplitID   string
	Amount    money.Money // Positive debt amount
	Allocated money.Money // Sum of live allocations already against it
}

// Remaining returns what is still owed on the debt.
func (d OpenDebt) Remaining() money.Money {
	return d.Amount.Sub(d.Allocated)
}

// PlannedAllocation is one allocation the allocator should record.
type PlannedAllocation struct {
	DebtSplitID string
	Amount      money.Money
}

// PlanAllocations walks debts in the order given and applies payment to
// each until the payment is exhausted. Fully settled debts are skipped
// without consuming any of the payment. Whatever is left after the last
// debt is returned as unallocated.
func PlanAllocations(payment money.Money, debts []OpenDebt) ([]PlannedAllocation, money.Money) {
	remaining := payment
	var plan []PlannedAllocation
	for _, d := range debts {
		if !remaining.IsPositive() {
			break
		}
		left := d.Remaining()
		if !left.IsPositive() {
			continue
		}
		amount := remaining.Min(left)
		plan = append(plan, PlannedAllocation{DebtSplitID: d.SplitID, Amount: amount})
		remaining = remaining.Sub(amount)
	}
	return plan, remaining
}
