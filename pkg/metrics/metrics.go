// Package metrics exposes analysis results as Prometheus metrics.
//
// Metrics:
//   - <ns>_current_cost_usd: cost of the latest analysis
//   - <ns>_potential_savings_usd: potential savings of the latest analysis
//   - <ns>_optimization_score: optimization score of the latest analysis
//   - <ns>_model_cost_usd: per-model cost of the latest analysis
//   - <ns>_checks_total: analyses run, by result
//   - <ns>_recommendations_total: recommendations emitted, by strategy
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pario-ai/tokopt/pkg/models"
)

// Check results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector records analysis metrics into its own registry.
type Collector struct {
	registry *prometheus.Registry

	currentCost      prometheus.Gauge
	potentialSavings prometheus.Gauge
	score            prometheus.Gauge
	modelCost        *prometheus.GaugeVec
	checks           *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
}

// NewCollector creates and registers the analysis metrics. A nil registry
// gets a fresh one.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "tokopt"
	}

	c := &Collector{
		registry: registry,
		currentCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_cost_usd",
			Help:      "Estimated cost in USD of the latest analyzed usage",
		}),
		potentialSavings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "potential_savings_usd",
			Help:      "Potential savings in USD of the latest analyzed usage",
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "optimization_score",
			Help:      "Optimization score (0-100) of the latest analyzed usage",
		}),
		modelCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_cost_usd",
			Help:      "Estimated cost in USD by model for the latest analyzed usage",
		}, []string{"model"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Usage analyses run, by result",
		}, []string{"result"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations emitted, by strategy",
		}, []string{"strategy"}),
	}

	registry.MustRegister(
		c.currentCost,
		c.potentialSavings,
		c.score,
		c.modelCost,
		c.checks,
		c.recommendations,
	)
	return c
}

// ObserveAnalysis records the result of a successful analysis.
// Per-model gauges are reset so models absent from the latest usage disappear.
func (c *Collector) ObserveAnalysis(a models.Analysis) {
	c.checks.WithLabelValues(ResultOK).Inc()
	c.currentCost.Set(a.Cost.CurrentCost)
	c.potentialSavings.Set(a.PotentialSavings)
	c.score.Set(a.OptimizationScore)

	c.modelCost.Reset()
	for _, m := range a.Cost.Models {
		c.modelCost.WithLabelValues(m.Model).Set(m.Cost)
	}
	for _, r := range a.Recommendations {
		c.recommendations.WithLabelValues(string(r.Strategy)).Inc()
	}
}

// ObserveFailure counts a failed analysis.
func (c *Collector) ObserveFailure() {
	c.checks.WithLabelValues(ResultError).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
