package calculator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mmynk/splitledger/internal/money"
)

// Self is the participant id standing for the recording user. The user's
// own share is never turned into a split.
const Self = "self"

// Share is one participant's part of an amount.
type Share struct {
	ParticipantID string
	Amount        money.Money
}

// Item represents a single line on a receipt.
type Item struct {
	Description string
	Amount      money.Money
	AssignedTo  []string
}

// ErrNoParticipants is returned when there is nobody to split between.
var ErrNoParticipants = errors.New("must have at least one participant")

// Distribute splits total across weights so that the parts sum exactly to
// total. Each part is the floor of its proportional share; leftover cents go
// to the largest fractional remainders, earlier weights first on ties.
func Distribute(total money.Money, weights []int64) ([]money.Money, error) {
	if len(weights) == 0 {
		return nil, ErrNoParticipants
	}
	var sum int64
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight cannot be negative: %d", w)
		}
		sum += w
	}
	if sum == 0 {
		return nil, errors.New("weights cannot all be zero")
	}

	sign := int64(1)
	cents := total.Cents()
	if cents < 0 {
		sign, cents = -1, -cents
	}

	parts := make([]int64, len(weights))
	rems := make([]int64, len(weights))
	var assigned int64
	for i, w := range weights {
		parts[i] = cents * w / sum
		rems[i] = cents * w % sum
		assigned += parts[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case rems[a] > rems[b]:
			return -1
		case rems[a] < rems[b]:
			return 1
		}
		return 0
	})
	for k := int64(0); k < cents-assigned; k++ {
		parts[order[k]]++
	}

	out := make([]money.Money, len(parts))
	for i, p := range parts {
		out[i] = money.FromCents(sign * p)
	}
	return out, nil
}

// EqualSplits divides total evenly between the contacts and, when
// includeSelf is set, the user. Remainder cents go to the first contacts.
// The user's own share is returned separately.
func EqualSplits(total money.Money, contactIDs []string, includeSelf bool) ([]Share, money.Money, error) {
	participants := slices.Clone(contactIDs)
	if includeSelf {
		participants = append(participants, Self)
	}
	parts, err := EqualSplitsOf(total, len(participants))
	if err != nil {
		return nil, 0, err
	}
	shares, self := toShares(participants, parts)
	return shares, self, nil
}

// ItemizedSplits computes how much each participant owes including
// proportional tax:
// person_total = person_subtotal × (1 + (total_tax / bill_subtotal)).
// Each item is divided evenly among its assignees and the tax (total minus
// subtotal) is distributed in proportion to the resulting subtotals, so the
// shares always sum to total. Participants with no items get nothing.
func ItemizedSplits(items []Item, total money.Money, participants []string) ([]Share, money.Money, error) {
	if len(participants) == 0 {
		return nil, 0, ErrNoParticipants
	}

	index := make(map[string]int, len(participants))
	for i, p := range participants {
		if _, dup := index[p]; dup {
			return nil, 0, fmt.Errorf("duplicate participant: %s", p)
		}
		index[p] = i
	}

	subtotals := make([]money.Money, len(participants))
	var subtotal money.Money
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		if item.Amount.IsNegative() {
			return nil, 0, fmt.Errorf("item %q: amount cannot be negative", item.Description)
		}
		parts, err := EqualSplitsOf(item.Amount, len(item.AssignedTo))
		if err != nil {
			return nil, 0, err
		}
		for k, person := range item.AssignedTo {
			i, ok := index[person]
			if !ok {
				return nil, 0, fmt.Errorf("item %q: unknown participant %s", item.Description, person)
			}
			subtotals[i] = subtotals[i].Add(parts[k])
		}
		subtotal = subtotal.Add(item.Amount)
	}
	if subtotal.IsZero() {
		return nil, 0, errors.New("subtotal cannot be zero")
	}

	weights := make([]int64, len(subtotals))
	for i, s := range subtotals {
		weights[i] = s.Cents()
	}
	tax, err := Distribute(total.Sub(subtotal), weights)
	if err != nil {
		return nil, 0, err
	}

	totals := make([]money.Money, len(subtotals))
	for i := range subtotals {
		totals[i] = subtotals[i].Add(tax[i])
	}
	shares, self := toShares(participants, totals)
	return shares, self, nil
}

// EqualSplitsOf divides amount into n parts that sum to amount.
func EqualSplitsOf(amount money.Money, n int) ([]money.Money, error) {
	weights := make([]int64, n)
	for i := range weights {
		weights[i] = 1
	}
	return Distribute(amount, weights)
}

// toShares drops zero shares and separates the user's own share.
func toShares(participants []string, amounts []money.Money) ([]Share, money.Money) {
	var shares []Share
	var self money.Money
	for i, p := range participants {
		if p == Self {
			self = amounts[i]
			continue
		}
		if amounts[i].IsZero() {
			continue
		}
		shares = append(shares, Share{ParticipantID: p, Amount: amounts[i]})
	}
	return shares, self
}
