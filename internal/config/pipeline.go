package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"metricshape/internal/spec"
)

const SupportedSchema = "v1"

// Error policies accepted in on_error.policy.
const (
	PolicyDrop       = "drop"
	PolicyDeadLetter = "deadletter"
	PolicyAbort      = "abort"
)

// LoadPipelineSpec parses a pipeline YAML, validates it, and returns the
// parsed spec and an absolute path to the source config (if set).
func LoadPipelineSpec(path string) (spec.File, string, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if cfg.OnError.Policy == "" {
		cfg.OnError.Policy = PolicyDrop
	}
	if err := validate(cfg); err != nil {
		return cfg, "", err
	}
	confPath := cfg.Source.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		confPath = filepath.Join(filepath.Dir(path), confPath)
	}
	return cfg, confPath, nil
}

func validate(cfg spec.File) error {
	seen := make(map[string]bool, len(cfg.Transformers))
	for i, t := range cfg.Transformers {
		if t.Name == "" {
			return fmt.Errorf("transformer #%d: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("transformer %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		switch t.Type {
		case "inproc":
		case "grpc":
			if t.Address == "" {
				return fmt.Errorf("transformer %q: grpc requires address", t.Name)
			}
		default:
			return fmt.Errorf("transformer %q: unsupported type %q", t.Name, t.Type)
		}
		if t.RetryPolicy.Attempts < 0 || t.TimeoutMS < 0 {
			return fmt.Errorf("transformer %q: negative timeout or retry attempts", t.Name)
		}
	}
	switch cfg.OnError.Policy {
	case PolicyDrop, PolicyAbort:
	case PolicyDeadLetter:
		if cfg.OnError.DeadLetter.Topic == "" || len(cfg.OnError.DeadLetter.Brokers) == 0 {
			return fmt.Errorf("on_error: deadletter requires dead_letter.brokers and dead_letter.topic")
		}
	default:
		return fmt.Errorf("on_error: unsupported policy %q", cfg.OnError.Policy)
	}
	return nil
}
