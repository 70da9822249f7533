package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ContractMetrics counts contract operation outcomes.
type ContractMetrics struct {
	operations *prometheus.CounterVec
	denials    *prometheus.CounterVec
	matches    *prometheus.CounterVec
}

var (
	contractOnce     sync.Once
	contractRegistry *ContractMetrics
)

// Contract returns the process-wide contract metrics, registering them on
// first use.
func Contract() *ContractMetrics {
	contractOnce.Do(func() {
		contractRegistry = &ContractMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "traffic_contract_operations_total",
				Help: "Count of contract invocations by operation and outcome.",
			}, []string{"operation", "outcome"}),
			denials: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "traffic_contract_denials_total",
				Help: "Count of authorization denials by operation.",
			}, []string{"operation"}),
			matches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "traffic_contract_matches_total",
				Help: "Count of matching-engine results by kind and outcome.",
			}, []string{"kind", "outcome"}),
		}
		prometheus.MustRegister(
			contractRegistry.operations,
			contractRegistry.denials,
			contractRegistry.matches,
		)
	})
	return contractRegistry
}

// ObserveOperation records one finished invocation.
func (m *ContractMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveDenial records an authorization denial.
func (m *ContractMetrics) ObserveDenial(operation string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(operation).Inc()
}

// ObserveMatch records a matching-engine result. kind is "violation" or
// "insurance"; outcome is "match" or "no_match".
func (m *ContractMetrics) ObserveMatch(kind, outcome string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(kind, outcome).Inc()
}
