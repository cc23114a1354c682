package metrics

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/money"
)

// value returns the counter value of the named family whose labels include
// every pair in labels.
func value(t *testing.T, m *Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	assert.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range f.GetMetric() {
			got := map[string]string{}
			for _, l := range metric.GetLabel() {
				got[l.GetName()] = l.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestObserverCounters(t *testing.T) {
	m := New()

	m.TransactionRecorded("expense", money.MustParse("12.50"))
	m.TransactionRecorded("expense", money.MustParse("7.50"))
	m.TransactionRecorded("settlement", money.MustParse("5.00"))
	m.SettlementAllocated(2, money.MustParse("1.25"))
	m.SettlementAllocated(0, money.Zero)
	m.ConflictRetried("create settlement")

	assert.Equal(t, 2.0, value(t, m, "splitledger_transactions_recorded_total", "kind", "expense"))
	assert.Equal(t, 1.0, value(t, m, "splitledger_transactions_recorded_total", "kind", "settlement"))
	assert.Equal(t, 20.0, value(t, m, "splitledger_transaction_amount_total", "kind", "expense"))
	assert.Equal(t, 2.0, value(t, m, "splitledger_settlement_allocations_total"))
	assert.Equal(t, 1.25, value(t, m, "splitledger_settlement_unallocated_amount_total"))
	assert.Equal(t, 1.0, value(t, m, "splitledger_conflict_retries_total", "op", "create settlement"))
}

func TestRegistryIncludesRuntimeCollectors(t *testing.T) {
	m := New()
	families, err := m.Registry().Gather()
	assert.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}
