package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder owns the bqvault collectors on a private registry so tests and
// multiple App instances never collide on the global one.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	members    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	lastRun    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bqvault_operations_total",
				Help: "Backup, restore, delete and prune runs by outcome",
			},
			[]string{"operation", "outcome"},
		),
		members: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bqvault_members_total",
				Help: "Tables snapshotted, cloned or containers deleted by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bqvault_operation_duration_seconds",
				Help:    "Wall time of a run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"operation"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bqvault_last_success_timestamp_seconds",
				Help: "Unix time of the last fully successful run",
			},
			[]string{"operation"},
		),
	}

	r.registry.MustRegister(
		r.operations,
		r.members,
		r.duration,
		r.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun records one finished run together with its per-member counts.
func (r *Recorder) ObserveRun(operation string, success bool, elapsed time.Duration, ok, failed int) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if ok > 0 {
		r.members.WithLabelValues(operation, OutcomeSuccess).Add(float64(ok))
	}
	if failed > 0 {
		r.members.WithLabelValues(operation, OutcomeFailure).Add(float64(failed))
	}
	if success {
		r.lastRun.WithLabelValues(operation).SetToCurrentTime()
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// NewServer creates an HTTP server serving /metrics and /healthz.
func NewServer(addr string, r *Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
