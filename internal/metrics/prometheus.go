package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/serkac1000/apk-needfix/internal/constants"
)

const namespace = "apkfix"

// Prometheus records metrics on its own registry, never the global default.
type Prometheus struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	queueWait         *prometheus.HistogramVec
	toolRuns          *prometheus.CounterVec
	slotsInUse        prometheus.Gauge
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them, along with the
// Go runtime and process collectors, on a private registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	p := &Prometheus{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Lifecycle operations by outcome",
			},
			[]string{"operation", "outcome", "simulated"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Lifecycle operation duration in seconds, including retries",
				Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
		queueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "queue_wait_seconds",
				Help:      "Time spent waiting for a global invocation slot",
				Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"operation", "outcome"},
		),
		toolRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_runs_total",
				Help:      "Toolchain and simulation runs by exit code",
			},
			[]string{"operation", "simulated", "exit_code"},
		),
		slotsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slots_in_use",
				Help:      "Global invocation slots currently held",
			},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// QueueWaited implements Recorder.
func (p *Prometheus) QueueWaited(kind constants.OperationKind, wait time.Duration, outcome string) {
	p.queueWait.WithLabelValues(string(kind), outcome).Observe(wait.Seconds())
}

// SlotsInUse implements Recorder.
func (p *Prometheus) SlotsInUse(n int) {
	p.slotsInUse.Set(float64(n))
}

// ToolRan implements Recorder.
func (p *Prometheus) ToolRan(kind constants.OperationKind, simulated bool, exitCode int) {
	p.toolRuns.WithLabelValues(string(kind), strconv.FormatBool(simulated), strconv.Itoa(exitCode)).Inc()
}

// OperationCompleted implements Recorder.
func (p *Prometheus) OperationCompleted(kind constants.OperationKind, duration time.Duration, outcome string, simulated bool) {
	p.operations.WithLabelValues(string(kind), outcome, strconv.FormatBool(simulated)).Inc()
	p.operationDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; serving errors are logged.
func (p *Prometheus) Serve(ctx context.Context, addr string) (net.Addr, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "metrics").Logger()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error().Err(serveErr).Msg("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return ln.Addr(), nil
}
