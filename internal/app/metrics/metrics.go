package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bridge-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "salvi_bridge",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salvi_bridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salvi_bridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	relayRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salvi_bridge",
			Subsystem: "relay",
			Name:      "records_total",
			Help:      "Total witness records processed, by disposition.",
		},
		[]string{"channel", "outcome"},
	)

	relayBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salvi_bridge",
			Subsystem: "relay",
			Name:      "batch_duration_seconds",
			Help:      "Duration of relay batch processing.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"channel"},
	)

	relayCheckpoint = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "salvi_bridge",
			Subsystem: "relay",
			Name:      "checkpoint_sequence",
			Help:      "Last successfully relayed sequence number per channel.",
		},
		[]string{"channel"},
	)

	paymentSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salvi_bridge",
			Subsystem: "payments",
			Name:      "submissions_total",
			Help:      "Total settlement submissions, by raw ledger result.",
		},
		[]string{"result", "success"},
	)

	paymentLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salvi_bridge",
			Subsystem: "payments",
			Name:      "status_lookups_total",
			Help:      "Payment status lookups, by answering source.",
		},
		[]string{"source"},
	)

	paymentCachePruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salvi_bridge",
			Subsystem: "payments",
			Name:      "cache_pruned_total",
			Help:      "Cached payment entries removed by the retention sweeper.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		relayRecords,
		relayBatchDuration,
		relayCheckpoint,
		paymentSubmissions,
		paymentLookups,
		paymentCachePruned,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRelayOutcome counts one processed witness record.
func RecordRelayOutcome(channel, outcome string) {
	if channel == "" {
		channel = "unknown"
	}
	relayRecords.WithLabelValues(channel, outcome).Inc()
}

// ObserveRelayBatch records the duration of one relay batch.
func ObserveRelayBatch(channel string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	relayBatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// SetRelayCheckpoint publishes the channel's current checkpoint.
func SetRelayCheckpoint(channel string, sequence uint64) {
	relayCheckpoint.WithLabelValues(channel).Set(float64(sequence))
}

// RecordPaymentSubmission counts one settlement submission.
func RecordPaymentSubmission(result string, success bool) {
	if result == "" {
		result = "unknown"
	}
	paymentSubmissions.WithLabelValues(result, strconv.FormatBool(success)).Inc()
}

// RecordPaymentLookup counts one status lookup by the source that answered
// it: "cache", "ledger" or "not_found".
func RecordPaymentLookup(source string) {
	paymentLookups.WithLabelValues(source).Inc()
}

// RecordPaymentsPruned counts cache entries removed by the sweeper.
func RecordPaymentsPruned(count int) {
	if count <= 0 {
		return
	}
	paymentCachePruned.Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) < 2 {
		return "/v1"
	}
	switch parts[1] {
	case "payments":
		if len(parts) == 2 {
			return "/v1/payments"
		}
		if len(parts) >= 4 && parts[3] == "verify" {
			return "/v1/payments/:hash/verify"
		}
		return "/v1/payments/:hash"
	case "relay":
		if len(parts) >= 4 {
			return "/v1/relay/channels/:channel"
		}
		return "/v1/relay/channels"
	default:
		return "/v1/" + parts[1]
	}
}
