package engine

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"seqx/internal/logging"
	"seqx/internal/transport"
)

// runner is the part of *pipeline.Runner the engine drives.
type runner interface {
	Run(ctx context.Context) error
	Close() error
}

type Engine struct {
	transport *transport.Server
	runner    runner
	metrics   *http.Server
}

// Run serves the transform service and drives the pipeline (if any) until
// ctx ends or one of them fails. A pipeline whose source runs dry does not
// stop the transform service. The pipeline is closed only after its Run has
// returned, so no frame is pushed into a closed sink.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(e.transport.Serve)

	if e.runner != nil {
		g.Go(func() error {
			err := e.runner.Run(ctx)
			if err == nil {
				logging.Component("engine").Info("pipeline source drained")
			}
			if cerr := e.runner.Close(); cerr != nil {
				logging.Component("engine").Warn("pipeline close", "err", cerr)
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		e.transport.Stop()
		if e.metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.metrics.Shutdown(sctx)
		}
		return nil
	})

	return g.Wait()
}
