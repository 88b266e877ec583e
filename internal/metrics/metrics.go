package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AnswersScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answers_scored_total",
			Help: "Answers evaluated, by question type and outcome",
		},
		[]string{"type", "outcome"},
	)

	JudgeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judge_request_duration_seconds",
			Help:    "Latency of external judge calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	JudgeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_failures_total",
			Help: "External judge calls that errored or timed out",
		},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "submission_batch_size",
			Help:    "Number of answers per submission batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		AnswersScored,
		JudgeLatency,
		JudgeFailures,
		BatchSize,
	)
}

// Handler exposes the default registry for a /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency per endpoint.
func Middleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
