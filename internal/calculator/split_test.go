package calculator

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/money"
)

func m(s string) money.Money { return money.MustParse(s) }

func sharesOf(shares []Share) map[string]money.Money {
	out := make(map[string]money.Money, len(shares))
	for _, s := range shares {
		out[s.ParticipantID] = s.Amount
	}
	return out
}

func TestItemizedSplits(t *testing.T) {
	tests := []struct {
		name         string
		items        []Item
		total        money.Money
		participants []string
		wantErr      bool
		want         map[string]money.Money
		wantSelf     money.Money
	}{
		{
			name: "simple two-person split with tax",
			items: []Item{
				{Description: "Pizza", Amount: m("20.00"), AssignedTo: []string{"alice", "bob"}},
				{Description: "Salad", Amount: m("10.00"), AssignedTo: []string{"alice"}},
			},
			// Alice: subtotal 20, tax 2. Bob: subtotal 10, tax 1.
			total:        m("33.00"),
			participants: []string{"alice", "bob"},
			want:         map[string]money.Money{"alice": m("22.00"), "bob": m("11.00")},
		},
		{
			name: "user's own share is kept apart",
			items: []Item{
				{Description: "Pizza", Amount: m("20.00"), AssignedTo: []string{Self, "bob"}},
			},
			total:        m("22.00"),
			participants: []string{"bob", Self},
			want:         map[string]money.Money{"bob": m("11.00")},
			wantSelf:     m("11.00"),
		},
		{
			name: "item cents go to the first assignees",
			items: []Item{
				{Description: "Cake", Amount: m("10.00"), AssignedTo: []string{"a", "b", "c"}},
			},
			total:        m("10.00"),
			participants: []string{"a", "b", "c"},
			want:         map[string]money.Money{"a": m("3.34"), "b": m("3.33"), "c": m("3.33")},
		},
		{
			name: "tax cents sum exactly to the total",
			items: []Item{
				{Description: "A", Amount: m("1.00"), AssignedTo: []string{"a"}},
				{Description: "B", Amount: m("1.00"), AssignedTo: []string{"b"}},
				{Description: "C", Amount: m("1.00"), AssignedTo: []string{"c"}},
			},
			total:        m("4.00"),
			participants: []string{"a", "b", "c"},
			want:         map[string]money.Money{"a": m("1.34"), "b": m("1.33"), "c": m("1.33")},
		},
		{
			name: "participant without items owes nothing",
			items: []Item{
				{Description: "Beer", Amount: m("8.00"), AssignedTo: []string{"a"}},
			},
			total:        m("8.00"),
			participants: []string{"a", "b"},
			want:         map[string]money.Money{"a": m("8.00")},
		},
		{
			name:         "zero subtotal should error",
			items:        []Item{{Description: "Item", Amount: m("0.00"), AssignedTo: []string{"a"}}},
			total:        m("10.00"),
			participants: []string{"a"},
			wantErr:      true,
		},
		{
			name:         "no participants should error",
			items:        []Item{{Description: "Item", Amount: m("10.00"), AssignedTo: []string{"a"}}},
			total:        m("10.00"),
			participants: []string{},
			wantErr:      true,
		},
		{
			name:         "unknown assignee should error",
			items:        []Item{{Description: "Item", Amount: m("10.00"), AssignedTo: []string{"zed"}}},
			total:        m("10.00"),
			participants: []string{"a"},
			wantErr:      true,
		},
		{
			name:         "negative item should error",
			items:        []Item{{Description: "Refund", Amount: m("-1.00"), AssignedTo: []string{"a"}}},
			total:        m("10.00"),
			participants: []string{"a"},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, self, err := ItemizedSplits(tt.items, tt.total, tt.participants)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, sharesOf(shares))
			assert.Equal(t, tt.wantSelf, self)

			sum := self
			for _, s := range shares {
				sum = sum.Add(s.Amount)
			}
			assert.Equal(t, tt.total, sum)
		})
	}
}

func TestEqualSplits(t *testing.T) {
	tests := []struct {
		name        string
		total       money.Money
		contacts    []string
		includeSelf bool
		want        []Share
		wantSelf    money.Money
		wantErr     bool
	}{
		{
			name:     "remainder goes to the first contacts",
			total:    m("10.00"),
			contacts: []string{"a", "b", "c"},
			want:     []Share{{"a", m("3.34")}, {"b", m("3.33")}, {"c", m("3.33")}},
		},
		{
			name:        "including the user",
			total:       m("10.00"),
			contacts:    []string{"a", "b"},
			includeSelf: true,
			want:        []Share{{"a", m("3.34")}, {"b", m("3.33")}},
			wantSelf:    m("3.33"),
		},
		{
			name:     "negative totals split symmetrically",
			total:    m("-10.00"),
			contacts: []string{"a", "b", "c"},
			want:     []Share{{"a", m("-3.34")}, {"b", m("-3.33")}, {"c", m("-3.33")}},
		},
		{
			name:     "even split",
			total:    m("90.00"),
			contacts: []string{"a", "b", "c"},
			want:     []Share{{"a", m("30.00")}, {"b", m("30.00")}, {"c", m("30.00")}},
		},
		{
			name:    "nobody to split with",
			total:   m("10.00"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, self, err := EqualSplits(tt.total, tt.contacts, tt.includeSelf)
			if tt.wantErr {
				assert.IsError(t, err, ErrNoParticipants)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, shares)
			assert.Equal(t, tt.wantSelf, self)
		})
	}
}

func TestDistribute(t *testing.T) {
	parts, err := Distribute(m("1.00"), []int64{0, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, []money.Money{0, m("0.50"), m("0.50")}, parts)

	parts, err = Distribute(m("0.05"), []int64{1, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, []money.Money{m("0.02"), m("0.02"), m("0.01")}, parts)

	_, err = Distribute(m("1.00"), []int64{0, 0})
	assert.Error(t, err)

	_, err = Distribute(m("1.00"), []int64{1, -1})
	assert.Error(t, err)
}
