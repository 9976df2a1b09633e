package kafka

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kafka.yml")
	yml := []byte(`schema_version: v1
brokers: [localhost:9092]
topics: [data-ingest]
group_id: from-file
commit_mode: e2e
checkpoint:
  commit_interval: 2s
`)
	if err := os.WriteFile(path, yml, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvPrefix+"GROUP_ID", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GroupID != "from-env" {
		t.Fatalf("want env override, got %q", cfg.GroupID)
	}
	if cfg.CommitMode != CommitE2E || cfg.Checkpoint.CommitInt != 2*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.BackPressure.Capacity != 30_000 || cfg.StartFrom != "newest" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_RejectsSchemaAndMissingFields(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("schema_version: v2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatal("want schema_version error")
	}

	empty := filepath.Join(dir, "empty.yml")
	if err := os.WriteFile(empty, []byte("schema_version: v1\nbrokers: [b:9092]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(empty); err == nil {
		t.Fatal("want error for missing topics/group_id")
	}
}

func TestRegistry_UnknownDriverListsRegistered(t *testing.T) {
	Register("sarama-test", func() Adapter { return &SaramaDriver{} })
	if a, err := NewAdapter("sarama-test"); err != nil || a == nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	_, err := NewAdapter("confluent")
	if err == nil || !strings.Contains(err.Error(), "sarama-test") {
		t.Fatalf("want error naming registered drivers, got %v", err)
	}
}
