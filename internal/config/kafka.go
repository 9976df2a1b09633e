package config

import (
	"fmt"

	kcfg "metricshape/source/kafka"
)

// LoadKafkaConfig loads the Kafka source config referenced by a pipeline's
// source.config, with METRICSHAPE_KAFKA__* env-vars applied on top.
func LoadKafkaConfig(path string) (kcfg.Config, error) {
	c, err := kcfg.LoadConfig(path)
	if err != nil {
		return c, fmt.Errorf("kafka config %s: %w", path, err)
	}
	return c, nil
}
