// Package metrics exposes workflow measurements to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "navihire"

// Collector implements workflow.Recorder. A nil *Collector records nothing.
type Collector struct {
	runs                 *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	nodeOutcomes         *prometheus.CounterVec
	classificationFailed prometheus.Counter
	responseFallbacks    prometheus.Counter
}

// New registers the workflow metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_runs_total",
				Help:      "Workflow runs by the route they took",
			},
			[]string{"route"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_duration_seconds",
				Help:      "Wall time of a workflow run",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"route"},
		),
		nodeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_node_outcomes_total",
				Help:      "Task node results by recorded status",
			},
			[]string{"node", "status"},
		),
		classificationFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_failures_total",
			Help:      "Runs answered directly because intent classification failed",
		}),
		responseFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_fallbacks_total",
			Help:      "Runs that ended with the fallback reply",
		}),
	}
}

func (c *Collector) ObserveRun(route string, seconds float64) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(route).Inc()
	c.runDuration.WithLabelValues(route).Observe(seconds)
}

func (c *Collector) NodeOutcome(node, status string) {
	if c == nil {
		return
	}
	c.nodeOutcomes.WithLabelValues(node, status).Inc()
}

func (c *Collector) ClassificationFailed() {
	if c == nil {
		return
	}
	c.classificationFailed.Inc()
}

func (c *Collector) ResponseFallback() {
	if c == nil {
		return
	}
	c.responseFallbacks.Inc()
}
