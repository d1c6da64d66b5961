package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seqx/internal/logging"
)

var (
	transformTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seqx",
		Name:      "transform_total",
		Help:      "Catalog operations applied, by operation and outcome.",
	}, []string{"op", "status"})

	transformDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seqx",
		Name:      "transform_duration_seconds",
		Help:      "Time spent applying a catalog operation.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"op"})

	pipelineFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seqx",
		Name:      "pipeline_frames_total",
		Help:      "Frames leaving a pipeline stage, by stage and outcome.",
	}, []string{"stage", "outcome"})
)

func init() {
	prometheus.MustRegister(transformTotal, transformDuration, pipelineFrames)
}

// Outcome labels for pipeline frames.
const (
	OutcomeForwarded = "forwarded"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// ObserveTransform records one catalog call that started at start.
func ObserveTransform(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	transformTotal.WithLabelValues(op, status).Inc()
	transformDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CountFrames adds n frames to the stage/outcome counter.
func CountFrames(stage, outcome string, n int) {
	pipelineFrames.WithLabelValues(stage, outcome).Add(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

// Expose serves /metrics on port in the background. A port <= 0 disables it.
func Expose(port int) *http.Server {
	if port <= 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics: serve failed", "port", port, "err", err)
		}
	}()
	return srv
}
