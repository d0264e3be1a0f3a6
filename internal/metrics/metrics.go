package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// Metrics holds the Prometheus instruments for the control loop.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	CollectionErrors prometheus.Counter

	DecisionsTotal *prometheus.CounterVec
	ApplyFailures  prometheus.Counter
	RunnersReaped  prometheus.Counter

	QueuedJobs       prometheus.Gauge
	OnlineRunners    prometheus.Gauge
	IdleRunners      prometheus.Gauge
	CurrentInstances prometheus.Gauge
	TargetInstances  prometheus.Gauge
	BreakerState     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles executed.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autoscaler",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full poll cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		CollectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "collection_errors_total",
			Help:      "Total number of failed snapshot collections.",
		}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "decisions_total",
			Help:      "Scaling decisions by action.",
		}, []string{"action"}),
		ApplyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "apply_failures_total",
			Help:      "Total number of failed scale applications.",
		}),
		RunnersReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "runners_reaped_total",
			Help:      "Total number of dead runner registrations removed.",
		}),
		QueuedJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "queued_jobs",
			Help:      "Queued jobs observed in the last snapshot.",
		}),
		OnlineRunners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "online_runners",
			Help:      "Online runners observed in the last snapshot.",
		}),
		IdleRunners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "idle_runners",
			Help:      "Idle runners observed in the last snapshot.",
		}),
		CurrentInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "current_instances",
			Help:      "Instance count observed in the last snapshot.",
		}),
		TargetInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "target_instances",
			Help:      "Instance count targeted by the last decision.",
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "collector_breaker_state",
			Help:      "Collector circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}
}

// ObserveSnapshot records the fleet gauges from a collected snapshot.
func (m *Metrics) ObserveSnapshot(snap models.Snapshot) {
	m.QueuedJobs.Set(float64(snap.QueuedJobs))
	m.OnlineRunners.Set(float64(snap.OnlineRunners))
	m.IdleRunners.Set(float64(snap.IdleRunners))
	m.CurrentInstances.Set(float64(snap.CurrentInstances))
}

// ObserveDecision records the decision counter and target gauge.
func (m *Metrics) ObserveDecision(decision models.Decision) {
	m.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	m.TargetInstances.Set(float64(decision.TargetInstances))
}
