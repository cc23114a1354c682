package calculator

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestAggregateBalances(t *testing.T) {
	debts := []DebtEntry{
		{ContactID: "a", Amount: m("30.00")},
		{ContactID: "a", Amount: m("20.00")},
		{ContactID: "b", Amount: m("-15.00")},
		{ContactID: "stranger", Amount: m("99.00")},
	}
	settled := []SettledEntry{
		{ContactID: "a", Amount: m("35.00")},
	}

	got := AggregateBalances([]string{"a", "b", "c"}, debts, settled)
	assert.Equal(t, []ContactBalance{
		{ContactID: "a", Debt: m("50.00"), Settled: m("35.00"), Net: m("15.00")},
		{ContactID: "b", Debt: m("-15.00"), Net: m("-15.00")},
		{ContactID: "c"},
	}, got)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		balances []ContactBalance
		want     Summary
	}{
		{
			name: "no contacts",
			want: Summary{},
		},
		{
			name: "mixed",
			balances: []ContactBalance{
				{ContactID: "a", Net: m("15.00")},
				{ContactID: "b", Net: m("-40.25")},
				{ContactID: "c", Net: m("5.00")},
				{ContactID: "d"},
			},
			want: Summary{OwedToYou: m("20.00"), YouOwe: m("40.25"), Net: m("-20.25")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.balances)
			assert.Equal(t, tt.want, got)

			sum := m("0.00")
			for _, b := range tt.balances {
				sum = sum.Add(b.Net)
			}
			assert.Equal(t, sum, got.OwedToYou.Sub(got.YouOwe))
		})
	}
}
