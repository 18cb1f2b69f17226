package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bnema/keepster-cli/internal/ports"
)

const namespace = "keepster"

// Metrics implements ports.Metrics on a private registry so several engines
// (and tests) never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	decisions        *prometheus.CounterVec
	pageFetches      *prometheus.CounterVec
	pageDuration     prometheus.Histogram
	itemsAppended    prometheus.Counter
	membershipBuilds *prometheus.CounterVec
	membershipSize   prometheus.Gauge
	commits          prometheus.Counter
	flushes          *prometheus.CounterVec
	flushDuration    prometheus.Histogram
	flushedItems     prometheus.Counter
	queueLength      prometheus.Gauge
}

var _ ports.Metrics = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Review decisions by kind.",
		}, []string{"decision"}),
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Item page fetches by outcome.",
		}, []string{"status"}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Item page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		itemsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_items_appended_total",
			Help:      "Items appended to the review queue after filtering.",
		}),
		membershipBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_builds_total",
			Help:      "Membership index builds by outcome.",
		}, []string{"status"}),
		membershipSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "membership_index_size",
			Help:      "Items known to belong to a collection.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_commits_total",
			Help:      "Deletes that passed their grace period.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_flushes_total",
			Help:      "Batched delete calls by outcome.",
		}, []string{"status"}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delete_flush_duration_seconds",
			Help:      "Batched delete latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		flushedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_items_total",
			Help:      "Items removed by successful batched deletes.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Items waiting in the review queue.",
		}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.pageFetches,
		m.pageDuration,
		m.itemsAppended,
		m.membershipBuilds,
		m.membershipSize,
		m.commits,
		m.flushes,
		m.flushDuration,
		m.flushedItems,
		m.queueLength,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveDecision(decision ports.Decision) {
	m.decisions.WithLabelValues(string(decision)).Inc()
}

func (m *Metrics) ObservePageFetch(fetched, appended int, elapsed time.Duration, err error) {
	m.pageFetches.WithLabelValues(status(err)).Inc()
	m.pageDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.itemsAppended.Add(float64(appended))
	}
}

func (m *Metrics) ObserveMembershipBuild(size int, elapsed time.Duration, err error) {
	m.membershipBuilds.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.membershipSize.Set(float64(size))
	}
}

func (m *Metrics) ObserveCommit() {
	m.commits.Inc()
}

func (m *Metrics) ObserveFlush(size int, elapsed time.Duration, err error) {
	m.flushes.WithLabelValues(status(err)).Inc()
	m.flushDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.flushedItems.Add(float64(size))
	}
}

func (m *Metrics) SetQueueLength(n int) {
	m.queueLength.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
