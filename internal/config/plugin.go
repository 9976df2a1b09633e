package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const PluginEnvPrefix = "METRICSHAPE_PLUGIN__"

// Plugin configures the standalone transformer plugin.
type Plugin struct {
	Listen      string `koanf:"listen"`
	MetricsPort int    `koanf:"metrics_port"` // 0 disables /metrics
	Prefix      string `koanf:"prefix"`       // passed to Initialize
}

// LoadPlugin merges an optional YAML file with METRICSHAPE_PLUGIN__* env-vars.
func LoadPlugin(path string) (Plugin, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Plugin{}, err
		}
	}
	envKey := func(s string) string { return strings.ToLower(strings.TrimPrefix(s, PluginEnvPrefix)) }
	if err := k.Load(env.Provider(PluginEnvPrefix, "__", envKey), nil); err != nil {
		return Plugin{}, err
	}
	var cfg Plugin
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Listen == "" {
		cfg.Listen = ":50051"
	}
	return cfg, nil
}
