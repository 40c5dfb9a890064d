package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domscout_probes_total",
			Help: "Total number of availability probes by outcome",
		},
		[]string{"status"},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "domscout_probe_duration_seconds",
			Help:    "Duration of availability probes in seconds",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 60, 120},
		},
		[]string{"status"},
	)

	CheckpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domscout_checkpoints_total",
			Help: "Total number of result checkpoints by outcome",
		},
		[]string{"outcome"},
	)

	RunProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "domscout_run_progress",
			Help: "Candidates processed and total candidates in the current run",
		},
		[]string{"kind"},
	)
)

// RecordProbe updates the probe metrics for one result.
func RecordProbe(res storage.ProbeResult) {
	status := res.Status.String()
	ProbesTotal.WithLabelValues(status).Inc()
	ProbeDuration.WithLabelValues(status).Observe(res.Duration.Seconds())
}

// RecordCheckpoint counts a checkpoint attempt.
func RecordCheckpoint(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	CheckpointsTotal.WithLabelValues(outcome).Inc()
}

// SetProgress publishes how far the run has come.
func SetProgress(done, total int) {
	RunProgress.WithLabelValues("done").Set(float64(done))
	RunProgress.WithLabelValues("total").Set(float64(total))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start begins listening on addr and exposes /metrics. The listener is bound
// before Start returns so address errors surface immediately.
func Start(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	logger.Info("metrics server listening", "addr", ln.Addr().String())
	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
