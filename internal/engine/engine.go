package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"metricshape/internal/logging"
	"metricshape/internal/pipeline"
	"metricshape/internal/transport"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	GRPCPort    int
	MetricsPort int    // 0 disables /metrics
	PipelineYml string // optional; empty serves the transformer only
	Prefix      string // passed to Initialize on the served engine
}

type Engine struct {
	transport *transport.Server
	runner    *pipeline.Runner
	metrics   *http.Server
}

// Run blocks until ctx is cancelled, the gRPC server stops, or the pipeline
// source ends, then shuts everything down.
func (e *Engine) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- e.transport.Serve() }()

	var runnerDone <-chan error
	if e.runner != nil {
		runnerDone = e.runner.Done()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	case err = <-runnerDone:
		if err == nil {
			logging.Component("engine").Info("pipeline source finished")
		}
	}
	return errors.Join(err, e.shutdown())
}

func (e *Engine) shutdown() error {
	e.transport.Stop()
	var errs []error
	if e.runner != nil {
		errs = append(errs, e.runner.Close())
	}
	if e.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, e.metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
