package engine

import (
	"context"
	"fmt"

	"seqx/internal/config"
	"seqx/internal/logging"
	"seqx/internal/pipeline"
	"seqx/internal/telemetry"
	"seqx/internal/transport"
)

func Bootstrap(ctx context.Context, cfg config.Engine) (*Engine, error) {
	// 1. transport server
	srv, err := transport.StartServer(cfg.GRPCPort)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 2. pipeline runner
	var r runner
	if cfg.PipelineYml != "" {
		pr, err := pipeline.Compile(cfg.PipelineYml)
		if err != nil {
			srv.Stop()
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		r = pr
	}

	// 3. metrics
	metrics := telemetry.Expose(cfg.MetricsPort)

	logging.Component("engine").Info("bootstrapped",
		"grpc", srv.Addr().String(),
		"metrics_port", cfg.MetricsPort,
		"pipeline", cfg.PipelineYml)

	return &Engine{
		transport: srv,
		runner:    r,
		metrics:   metrics,
	}, nil
}
