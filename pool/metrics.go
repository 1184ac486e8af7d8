package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes pool state and lifecycle events as prometheus
// collectors. Attaching one is optional; a nil collector disables all
// recording.
type Metrics struct {
	processes prometheus.Gauge
	active    prometheus.Gauge
	inactive  prometheus.Gauge
	waiting   prometheus.Gauge

	spawns           prometheus.Counter
	evictions        prometheus.Counter
	restarts         prometheus.Counter
	reaped           prometheus.Counter
	quotaRetirements prometheus.Counter
}

// NewMetrics registers the pool collectors with the supplied registerer;
// a nil registerer falls back to the default prometheus registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		processes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apool_processes",
			Help: "Total worker processes in the pool.",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apool_active_processes",
			Help: "Worker processes currently serving sessions.",
		}),
		inactive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apool_inactive_processes",
			Help: "Worker processes waiting on the free list.",
		}),
		waiting: factory.NewGauge(prometheus.GaugeOpts{
			Name: "apool_global_queue_waiters",
			Help: "Get calls blocked on the global queue.",
		}),
		spawns: factory.NewCounter(prometheus.CounterOpts{
			Name: "apool_spawns_total",
			Help: "Worker processes spawned.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "apool_evictions_total",
			Help: "Idle workers evicted to make room for another application.",
		}),
		restarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "apool_restarts_total",
			Help: "Application group restarts triggered by restart files.",
		}),
		reaped: factory.NewCounter(prometheus.CounterOpts{
			Name: "apool_reaped_total",
			Help: "Workers retired by the idle reaper.",
		}),
		quotaRetirements: factory.NewCounter(prometheus.CounterOpts{
			Name: "apool_quota_retirements_total",
			Help: "Workers retired after reaching their request quota.",
		}),
	}
}

// updateGaugesLocked refreshes the state gauges from the counters the
// mutex guards.
func (p *Pool) updateGaugesLocked() {
	if p.metrics == nil {
		return
	}
	p.metrics.processes.Set(float64(p.count))
	p.metrics.active.Set(float64(p.active))
	p.metrics.inactive.Set(float64(p.count - p.active))
	p.metrics.waiting.Set(float64(p.waitingOnGlobalQueue))
}
