package engine

import (
	"context"
	"fmt"

	"metricshape/internal/logging"
	"metricshape/internal/pipeline"
	"metricshape/internal/telemetry"
	"metricshape/internal/transform"
	"metricshape/internal/transport"
)

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	log := logging.Component("engine")

	// 1. transport server
	eng := transform.NewEngine(nil)
	if cfg.Prefix != "" {
		eng.Initialize(cfg.Prefix)
	}
	srv, err := transport.StartServer(cfg.GRPCPort, eng)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	log.Info("transformer listening", "addr", srv.Addr().String())

	// 2. pipeline runner
	var runner *pipeline.Runner
	if cfg.PipelineYml != "" {
		runner, err = pipeline.Compile(cfg.PipelineYml)
		if err != nil {
			srv.Stop()
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if err := runner.Start(ctx); err != nil {
			srv.Stop()
			_ = runner.Close()
			return nil, err
		}
		log.Info("pipeline started", "file", cfg.PipelineYml)
	}

	// 3. metrics
	e := &Engine{transport: srv, runner: runner}
	if cfg.MetricsPort > 0 {
		e.metrics = telemetry.Expose(cfg.MetricsPort)
	}
	return e, nil
}
