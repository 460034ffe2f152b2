package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus metrics for the service on a private
// registry, so tests can construct isolated collectors without global
// registration conflicts.
type Collector struct {
	registry *prometheus.Registry

	// EvaluationsTotal counts rule-check requests that reached the engine.
	EvaluationsTotal prometheus.Counter

	// ChecksTotal counts completed evaluations by overall verdict.
	ChecksTotal *prometheus.CounterVec

	// RuleResults counts per-rule outcomes.
	RuleResults *prometheus.CounterVec
}

// NewCollector creates a collector with the given metric namespace. If
// registry is nil a fresh one is used.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "ordercheck"
	}

	c := &Collector{
		registry: registry,
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Number of rule evaluation requests processed.",
		}),
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Number of completed checks by overall verdict.",
		}, []string{"verdict"}),
		RuleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_results_total",
			Help:      "Number of individual rule outcomes.",
		}, []string{"rule", "outcome"}),
	}

	registry.MustRegister(c.EvaluationsTotal, c.ChecksTotal, c.RuleResults)
	return c
}

// ObserveCheck records one completed evaluation.
func (c *Collector) ObserveCheck(passed bool, details map[string]bool) {
	c.EvaluationsTotal.Inc()
	c.ChecksTotal.WithLabelValues(verdict(passed)).Inc()
	for rule, ok := range details {
		c.RuleResults.WithLabelValues(rule, verdict(ok)).Inc()
	}
}

func verdict(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}

// Handler returns the Prometheus exposition handler for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
