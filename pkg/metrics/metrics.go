// Package metrics provides performance tracking and observability for
// Tributary connectors using Prometheus metrics. It offers collectors for
// throughput, latency, API request accounting and sync health.
//
// # Basic Usage
//
//	// Record read records
//	metrics.RecordsRead.WithLabelValues("snapchat-marketing", "ads", "success").Inc()
//
//	// Track request latency
//	timer := metrics.NewTimer("fetch_page")
//	fetchPage()
//	duration := timer.Stop()
//	metrics.RequestDuration.WithLabelValues("snapchat-marketing", "ads").Observe(duration.Seconds())
//
// Counter: monotonically increasing values (e.g., total records read)
// Gauge: values that can go up or down (e.g., active streams)
// Histogram: distribution of values (e.g., latency percentiles)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsRead tracks the total number of records emitted by source streams.
	// Labels: connector, stream, status (success/failure)
	RecordsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_records_read_total",
			Help: "Total number of records read from source streams",
		},
		[]string{"connector", "stream", "status"},
	)

	// APIRequests tracks outbound API requests.
	// Labels: connector, endpoint, status (HTTP status class or "error")
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_api_requests_total",
			Help: "Total number of API requests issued",
		},
		[]string{"connector", "endpoint", "status"},
	)

	// PagesFetched tracks pagination progress per stream.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_pages_fetched_total",
			Help: "Total number of result pages fetched",
		},
		[]string{"connector", "stream"},
	)

	// SlicesResolved tracks parent slice resolution, split by cache outcome.
	// Labels: connector, stream, cache (hit/miss)
	SlicesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_slices_resolved_total",
			Help: "Total number of parent slices resolved for child streams",
		},
		[]string{"connector", "stream", "cache"},
	)

	// StateUpdates tracks incremental state persistence per stream.
	StateUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_state_updates_total",
			Help: "Total number of stream state updates persisted",
		},
		[]string{"connector", "stream"},
	)

	// RequestDuration tracks the distribution of API request latencies.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tributary_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "stream"},
	)

	// ActiveStreams tracks streams currently being read.
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tributary_active_streams",
			Help: "Number of streams currently being read",
		},
		[]string{"connector"},
	)
)

// Collector provides a centralized metrics collection interface for
// connectors. It multiplexes named counters, gauges and histograms onto
// shared Prometheus vectors labeled by component. Each connector should
// create its own collector.
type Collector struct {
	name      string
	startTime time.Time
	mu        sync.RWMutex
	counters  map[string]float64
}

var (
	collectorCounters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tributary_component_events_total",
			Help: "Named counter events per component",
		},
		[]string{"component", "name"},
	)

	collectorGauges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tributary_component_value",
			Help: "Named gauge values per component",
		},
		[]string{"component", "name"},
	)

	collectorHistograms = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tributary_component_duration_seconds",
			Help:    "Named duration observations per component",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component", "name"},
	)
)

// NewCollector creates a new metrics collector for a component.
// The name parameter identifies the component in metrics labels.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		counters:  make(map[string]float64),
	}
}

// GetAll returns all current metric values
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := map[string]interface{}{
		"component":  c.name,
		"start_time": c.startTime,
		"uptime":     time.Since(c.startTime).Seconds(),
	}
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// RecordCounter increments a named counter metric
func (c *Collector) RecordCounter(name string, value float64) {
	c.mu.Lock()
	c.counters[name] += value
	c.mu.Unlock()

	collectorCounters.WithLabelValues(c.name, name).Add(value)
}

// RecordGauge records a named gauge metric
func (c *Collector) RecordGauge(name string, value float64) {
	collectorGauges.WithLabelValues(c.name, name).Set(value)
}

// RecordDuration observes a named duration metric
func (c *Collector) RecordDuration(name string, d time.Duration) {
	collectorHistograms.WithLabelValues(c.name, name).Observe(d.Seconds())
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks records per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	connector string
	stream    string
}

// NewThroughputTracker creates a new throughput tracker for a stream.
func NewThroughputTracker(connector, stream string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		connector: connector,
		stream:    stream,
	}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (records/second),
// resets the counter and returns the calculated throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	return throughput
}
