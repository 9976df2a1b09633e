package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"metricshape/internal/config"
	"metricshape/internal/logging"
	"metricshape/internal/telemetry"
	"metricshape/internal/transform"
	"metricshape/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "", "optional plugin YAML (env METRICSHAPE_PLUGIN__* overrides)")
	flag.Parse()

	logging.InitFromEnv()
	log := logging.Component("plugin")

	cfg, err := config.LoadPlugin(*cfgPath)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	eng := transform.NewEngine(nil)
	if cfg.Prefix != "" {
		eng.Initialize(cfg.Prefix)
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Error("failed to listen", "addr", cfg.Listen, "err", err)
		os.Exit(1)
	}
	srv := transport.NewServer(eng)
	if cfg.MetricsPort > 0 {
		defer telemetry.Expose(cfg.MetricsPort).Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	log.Info("transformer plugin listening", "addr", lis.Addr().String())
	if err := srv.ServeListener(lis); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
