package pipeline

import (
	"context"
	"fmt"
	"time"

	"metricshape/internal/config"
	"metricshape/internal/logging"
	"metricshape/internal/spec"
	"metricshape/internal/transform"
	"metricshape/sink"
	kafkasink "metricshape/sink/kafka"
	"metricshape/sink/stdout"
	"metricshape/source/kafka"
)

const healthTimeout = 2 * time.Second

func Compile(path string) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, r); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, r *Runner) error {
	cfg, confPath, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	if cfg.Source.Kind != "kafka" {
		return fmt.Errorf("unsupported source %q", cfg.Source.Kind)
	}
	kc, err := config.LoadKafkaConfig(confPath)
	if err != nil {
		return err
	}
	src, err := kafka.NewAdapter(cfg.Source.Driver)
	if err != nil {
		return err
	}
	if err = src.Configure(kc); err != nil {
		return err
	}
	r.SetSource(cfg.Source.Kind, src)

	for _, t := range cfg.Transformers {
		cli, err := newClient(t)
		if err != nil {
			return err
		}
		to := time.Duration(t.TimeoutMS) * time.Millisecond
		backoff := time.Duration(t.RetryPolicy.BackoffMS) * time.Millisecond
		r.AddTransformer(t.Name, cli, to, t.RetryPolicy.Attempts, backoff)
	}

	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}
		if err := sDrv.Configure(sinkConfig(name, cfg)); err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(sDrv)
	}

	var dl sink.Adapter
	if cfg.OnError.Policy == config.PolicyDeadLetter {
		if dl, err = sink.NewAdapter("kafka"); err != nil {
			return err
		}
		if err := dl.Configure(kafkaSinkConfig(cfg.OnError.DeadLetter)); err != nil {
			return fmt.Errorf("dead-letter sink: %w", err)
		}
	}
	return r.SetErrorPolicy(cfg.OnError.Policy, dl)
}

func newClient(t spec.TransformerSpec) (transform.Client, error) {
	switch t.Type {
	case "inproc":
		eng := transform.NewEngine(nil)
		eng.Initialize(t.Init)
		return transform.NewInProcessClient(eng), nil
	case "grpc":
		cli, err := transform.NewGRPCClient(t.Address)
		if err != nil {
			return nil, fmt.Errorf("transform %s: dial %s: %w", t.Name, t.Address, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		if err := cli.Health(ctx); err != nil {
			logging.Component("compiler").Warn("transformer plugin not healthy yet", "name", t.Name, "address", t.Address, "err", err)
		}
		return cli, nil
	default:
		return nil, fmt.Errorf("unsupported transformer type %q for %s", t.Type, t.Name)
	}
}

func sinkConfig(name string, cfg spec.File) any {
	switch name {
	case "stdout":
		return stdout.Config{
			DelayMS:       cfg.Debug.PerFrameDelayMS,
			PrintCounter:  cfg.Debug.PrintCounter,
			BatchSize:     cfg.Debug.AckBatchSize,
			FlushMS:       cfg.Debug.AckFlushMS,
			PrintValue:    cfg.Debug.PrintValue,
			ValueMaxBytes: cfg.Debug.ValueMaxBytes,
		}
	case "kafka":
		return kafkaSinkConfig(cfg.SinkConfigs.Kafka)
	default:
		return nil
	}
}

func kafkaSinkConfig(s spec.KafkaSinkSpec) kafkasink.Config {
	return kafkasink.Config{Brokers: s.Brokers, Topic: s.Topic, Acks: s.RequiredAcks, Version: s.Version}
}
