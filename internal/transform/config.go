package transform

import "sync/atomic"

// Config holds the engine's startup configuration. Initialize is expected to
// run before the first Transform; reads and writes are atomic either way.
type Config struct {
	prefix atomic.Pointer[string]
}

func NewConfig() *Config { return &Config{} }

// Initialize stores info as the active prefix when it is non-empty and keeps
// the previous prefix otherwise. It always reports success.
func (c *Config) Initialize(info string) bool {
	if info != "" {
		c.prefix.Store(&info)
	}
	return true
}

// Prefix returns the active prefix, or "" if none was set. The reshape does
// not read it.
func (c *Config) Prefix() string {
	if p := c.prefix.Load(); p != nil {
		return *p
	}
	return ""
}
