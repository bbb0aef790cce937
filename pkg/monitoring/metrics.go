package monitoring

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "storekit"

// Transaction outcome label values.
const (
	OutcomeCommit = "commit"
	OutcomeAbort  = "abort"
)

// StorageMetrics collects counters for the buffer pool and lock manager.
// All methods are safe on a nil receiver so components can run without
// metrics.
type StorageMetrics struct {
	registry *prometheus.Registry

	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	evictions    prometheus.Counter
	steals       prometheus.Counter
	flushes      prometheus.Counter
	cachedPages  prometheus.Gauge
	transactions *prometheus.CounterVec
	lockWaits    prometheus.Counter
	deadlocks    prometheus.Counter

	mu sync.Mutex
}

// Snapshot is a point-in-time copy of the collected values.
type Snapshot struct {
	CacheHits   uint64
	CacheMisses uint64
	Evictions   uint64
	Steals      uint64
	Flushes     uint64
	CachedPages int64
	Commits     uint64
	Aborts      uint64
	LockWaits   uint64
	Deadlocks   uint64
}

// NewStorageMetrics creates the collectors and registers them on reg.
// A nil reg gets a private registry.
func NewStorageMetrics(reg *prometheus.Registry) (*StorageMetrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &StorageMetrics{
		registry: reg,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "hits_total",
			Help: "Page requests served from the buffer pool.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "misses_total",
			Help: "Page requests that had to read from disk.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "evictions_total",
			Help: "Pages evicted to make room.",
		}),
		steals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "steals_total",
			Help: "Dirty pages of the requesting transaction written out before commit.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "flushes_total",
			Help: "Pages written to disk.",
		}),
		cachedPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "buffer_pool", Name: "pages",
			Help: "Pages currently cached.",
		}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transactions_total",
			Help: "Completed transactions by outcome.",
		}, []string{"outcome"}),
		lockWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "waits_total",
			Help: "Lock requests that had to block.",
		}),
		deadlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "deadlocks_total",
			Help: "Lock requests refused because they closed a wait-for cycle.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheHits, m.cacheMisses, m.evictions, m.steals, m.flushes,
		m.cachedPages, m.transactions, m.lockWaits, m.deadlocks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering storage metrics")
		}
	}

	return m, nil
}

func (m *StorageMetrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *StorageMetrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *StorageMetrics) Eviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *StorageMetrics) Steal() {
	if m != nil {
		m.steals.Inc()
	}
}

func (m *StorageMetrics) Flush() {
	if m != nil {
		m.flushes.Inc()
	}
}

// SetCachedPages records the current buffer pool occupancy.
func (m *StorageMetrics) SetCachedPages(n int) {
	if m != nil {
		m.cachedPages.Set(float64(n))
	}
}

// TransactionDone counts a finished transaction under its outcome.
func (m *StorageMetrics) TransactionDone(commit bool) {
	if m == nil {
		return
	}
	outcome := OutcomeAbort
	if commit {
		outcome = OutcomeCommit
	}
	m.transactions.WithLabelValues(outcome).Inc()
}

func (m *StorageMetrics) LockWait() {
	if m != nil {
		m.lockWaits.Inc()
	}
}

func (m *StorageMetrics) Deadlock() {
	if m != nil {
		m.deadlocks.Inc()
	}
}

// Snapshot reads the current values of every collector.
func (m *StorageMetrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		CacheHits:   counterValue(m.cacheHits),
		CacheMisses: counterValue(m.cacheMisses),
		Evictions:   counterValue(m.evictions),
		Steals:      counterValue(m.steals),
		Flushes:     counterValue(m.flushes),
		CachedPages: int64(gaugeValue(m.cachedPages)),
		Commits:     counterValue(m.transactions.WithLabelValues(OutcomeCommit)),
		Aborts:      counterValue(m.transactions.WithLabelValues(OutcomeAbort)),
		LockWaits:   counterValue(m.lockWaits),
		Deadlocks:   counterValue(m.deadlocks),
	}
}

// Export writes every metric of the registry in the Prometheus text
// exposition format.
func (m *StorageMetrics) Export(w io.Writer) error {
	if m == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "writing metric family %s", mf.GetName())
		}
	}
	return nil
}

func counterValue(c prometheus.Counter) uint64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return uint64(metric.GetCounter().GetValue())
}

func gaugeValue(g prometheus.Gauge) float64 {
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		return 0
	}
	return metric.GetGauge().GetValue()
}
