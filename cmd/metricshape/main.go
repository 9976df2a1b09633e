package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"metricshape/internal/engine"
	"metricshape/internal/logging"
	"metricshape/source/kafka"

	_ "metricshape/sink/kafka"
	_ "metricshape/sink/stdout"
)

func main() {
	var cfg engine.Config
	flag.IntVar(&cfg.GRPCPort, "grpc-port", 7070, "port of the gRPC transformer service")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 9100, "port of /metrics (0 disables)")
	flag.StringVar(&cfg.PipelineYml, "pipeline", "pipeline.yml", "pipeline definition; empty serves the transformer only")
	flag.StringVar(&cfg.Prefix, "prefix", "", "initialization info for the served transformer")
	flag.Parse()

	logging.InitFromEnv()
	log := logging.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	kafka.Register("sarama", func() kafka.Adapter { return &kafka.SaramaDriver{} })

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		log.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}

	if err := e.Run(ctx); err != nil {
		log.Error("engine stopped", "err", err)
		os.Exit(1)
	}
}
