// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec

	// Resolution metrics
	MetadataFetches   *prometheus.CounterVec
	NftsResolved      prometheus.Counter
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram

	// Persistence metrics
	PersistRequests *prometheus.CounterVec
	StoreAppendTime *prometheus.HistogramVec
	StoreErrors     *prometheus.CounterVec

	// Session metrics
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nft_picker"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		MetadataFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "fetches_total",
			Help:      "Off-chain metadata fetches by result",
		}, []string{"result"}),
		NftsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "nfts_resolved_total",
			Help:      "Total number of NFTs that passed metadata validation",
		}),
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of resolution passes by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Resolution pass duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		PersistRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "requests_total",
			Help:      "Persist endpoint requests by status code",
		}, []string{"code"}),
		StoreAppendTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "append_duration_seconds",
			Help:      "Document store append duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Document store errors by backend",
		}, []string{"backend"}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of open WebSocket sessions",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordMetadataFetch records the outcome of one off-chain metadata fetch.
// Results: ok | unavailable | bad_status | bad_body | bad_json | invalid.
func RecordMetadataFetch(result string) {
	DefaultMetrics.MetadataFetches.WithLabelValues(result).Inc()
	if result == "ok" {
		DefaultMetrics.NftsResolved.Inc()
	}
}

// RecordPipelineRun records a resolution pass.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
}

// RecordPersistRequest records a persist endpoint response code.
func RecordPersistRequest(code int) {
	DefaultMetrics.PersistRequests.WithLabelValues(statusLabel(code)).Inc()
}

// RecordStoreAppend records a store append.
func RecordStoreAppend(backend string, seconds float64, err error) {
	DefaultMetrics.StoreAppendTime.WithLabelValues(backend).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreErrors.WithLabelValues(backend).Inc()
	}
}

// SessionOpened increments the active session gauge.
func SessionOpened() {
	DefaultMetrics.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func SessionClosed() {
	DefaultMetrics.ActiveSessions.Dec()
}

func statusLabel(code int) string {
	switch code {
	case http.StatusOK:
		return "200"
	case http.StatusBadRequest:
		return "400"
	case http.StatusMethodNotAllowed:
		return "405"
	case http.StatusInternalServerError:
		return "500"
	default:
		return "other"
	}
}
