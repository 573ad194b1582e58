package metrics

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Connectivity targets.
const (
	TargetSequin = "sequin"
	TargetKafka  = "kafka"
)

var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlm_upstream_requests_total",
			Help: "Total number of upstream API requests by operation and status code",
		},
		[]string{"operation", "code"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etlm_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	Reachable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "etlm_reachable",
			Help: "Result of the last connectivity check (1 reachable, 0 unreachable)",
		},
		[]string{"target"},
	)

	TopicsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etlm_kafka_topics_created_total",
			Help: "Total number of Kafka topics created for sinks",
		},
	)
)

// ObserveUpstream records one upstream call. code is the HTTP status or "error".
func ObserveUpstream(operation, code string, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(operation, code).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// InitUpstream exports a zero duration series for each operation before its first call.
func InitUpstream(operations ...string) {
	for _, op := range operations {
		UpstreamRequestDuration.WithLabelValues(op)
	}
}

func SetReachable(target string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	Reachable.WithLabelValues(target).Set(v)
}

type PromServerOpts struct {
	Logger            *zap.Logger
	Addr              string
	Path              string        // Path for metrics endpoint, defaults to "/metrics"
	ShutdownTimeout   time.Duration // Timeout for server shutdown, defaults to 5 seconds
	ReadHeaderTimeout time.Duration // Timeout for reading request headers, defaults to 3 seconds
}

func defaultPrometheusServerOptions() PromServerOpts {
	return PromServerOpts{
		Addr:              ":9100",
		Path:              "/metrics",
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// StartPrometheusServer starts a Prometheus metrics server with the given options
// The server gracefully shutdown when the provided context is canceled
func StartPrometheusServer(ctx context.Context, wg *sync.WaitGroup, opts *PromServerOpts) {
	effectiveOpts := defaultPrometheusServerOptions()
	if opts != nil {
		effectiveOpts.Addr = cmp.Or(opts.Addr, effectiveOpts.Addr)
		effectiveOpts.Path = cmp.Or(opts.Path, effectiveOpts.Path)
		effectiveOpts.ShutdownTimeout = cmp.Or(opts.ShutdownTimeout, effectiveOpts.ShutdownTimeout)
		effectiveOpts.ReadHeaderTimeout = cmp.Or(opts.ReadHeaderTimeout, effectiveOpts.ReadHeaderTimeout)
		effectiveOpts.Logger = opts.Logger
	}
	logger := effectiveOpts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle(effectiveOpts.Path, promhttp.Handler())
	server := &http.Server{
		Addr:              effectiveOpts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: effectiveOpts.ReadHeaderTimeout,
	}

	serverClosed := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting metrics server", zap.String("addr", effectiveOpts.Addr), zap.String("path", effectiveOpts.Path))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
		close(serverClosed)
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), effectiveOpts.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", zap.Error(err))
		}

		select {
		case <-serverClosed:
			logger.Info("metrics server shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("metrics server shutdown timed out")
		}
	}()
}
