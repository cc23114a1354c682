// Package metrics exposes ledger and RPC counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/splitledger/internal/money"
)

const namespace = "splitledger"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	transactions   *prometheus.CounterVec
	amounts        *prometheus.CounterVec
	allocations    prometheus.Counter
	unallocated    prometheus.Counter
	conflicts      *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_recorded_total",
			Help:      "Transactions committed, by kind (expense, settlement).",
		}, []string{"kind"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_amount_total",
			Help:      "Sum of committed transaction totals in major units, by kind.",
		}, []string{"kind"}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_allocations_total",
			Help:      "Allocations created by settlements.",
		}),
		unallocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_unallocated_amount_total",
			Help:      "Settlement money no open debt absorbed, in major units.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Writes that hit a concurrent modification, by operation.",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPCs handled, by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency, by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactions,
		m.amounts,
		m.allocations,
		m.unallocated,
		m.conflicts,
		m.requests,
		m.requestLatency,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func major(a money.Money) float64 {
	f, _ := a.Decimal().Float64()
	return f
}

// TransactionRecorded implements ledger.Observer.
func (m *Metrics) TransactionRecorded(kind string, amount money.Money) {
	m.transactions.WithLabelValues(kind).Inc()
	m.amounts.WithLabelValues(kind).Add(major(amount.Abs()))
}

// SettlementAllocated implements ledger.Observer.
func (m *Metrics) SettlementAllocated(allocations int, unallocated money.Money) {
	m.allocations.Add(float64(allocations))
	if unallocated.IsPositive() {
		m.unallocated.Add(major(unallocated))
	}
}

// ConflictRetried implements ledger.Observer.
func (m *Metrics) ConflictRetried(op string) {
	m.conflicts.WithLabelValues(op).Inc()
}

// Interceptor counts every unary RPC and observes its latency.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
			}
			m.requests.WithLabelValues(procedure, code).Inc()
			m.requestLatency.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}
