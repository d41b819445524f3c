package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the download engine's Prometheus collectors. All methods are
// safe on a nil receiver so callers never need to check whether metrics are on.
type Metrics struct {
	registry         *prometheus.Registry
	bytesTotal       prometheus.Counter
	requestsTotal    *prometheus.CounterVec
	retriesTotal     prometheus.Counter
	downloadsTotal   *prometheus.CounterVec
	downloadDuration *prometheus.HistogramVec
	chunksTotal      *prometheus.CounterVec
	activeChunks     prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	bytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediafetch_bytes_downloaded_total",
		Help: "Bytes written to disk by the download engine",
	})
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediafetch_http_requests_total",
		Help: "HTTP requests sent, including retries",
	}, []string{"method"})
	retriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediafetch_http_retries_total",
		Help: "Transport attempts beyond the first",
	})
	downloadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediafetch_downloads_total",
		Help: "Finished downloads by strategy and result",
	}, []string{"strategy", "result"})
	downloadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediafetch_download_duration_seconds",
		Help:    "Wall time of finished downloads",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"strategy"})
	chunksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediafetch_chunks_total",
		Help: "Chunk tasks by result",
	}, []string{"result"})
	activeChunks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mediafetch_active_chunks",
		Help: "Chunk tasks currently fetching",
	})

	registry.MustRegister(
		bytesTotal,
		requestsTotal,
		retriesTotal,
		downloadsTotal,
		downloadDuration,
		chunksTotal,
		activeChunks,
	)

	return &Metrics{
		registry:         registry,
		bytesTotal:       bytesTotal,
		requestsTotal:    requestsTotal,
		retriesTotal:     retriesTotal,
		downloadsTotal:   downloadsTotal,
		downloadDuration: downloadDuration,
		chunksTotal:      chunksTotal,
		activeChunks:     activeChunks,
	}
}

func (m *Metrics) AddBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTotal.Add(float64(n))
}

func (m *Metrics) IncRequests(method string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// ObserveDownload records a finished download; result is "success" or "error".
func (m *Metrics) ObserveDownload(strategy, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(strategy, result).Inc()
	m.downloadDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func (m *Metrics) ChunkStarted() {
	if m == nil {
		return
	}
	m.activeChunks.Inc()
}

func (m *Metrics) ChunkFinished(err error) {
	if m == nil {
		return
	}
	m.activeChunks.Dec()
	if err != nil {
		m.chunksTotal.WithLabelValues("error").Inc()
		return
	}
	m.chunksTotal.WithLabelValues("success").Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
