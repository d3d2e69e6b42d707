// ABOUTME: Configuration for the Charm KV backend connection
// ABOUTME: Server host, auto-sync preference, and staleness threshold

package charm

import (
	"time"

	"github.com/charmbracelet/charm/kv"
)

// DefaultCharmHost is the self-hosted 2389 research server.
const DefaultCharmHost = "charm.2389.dev"

// Config holds charm connection settings. It is stored as the "charm"
// section of the clientbook config file.
type Config struct {
	// Host is the charm server hostname (default: charm.2389.dev)
	Host string `json:"host,omitempty"`

	// AutoSync enables automatic sync after every write operation
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold is the duration before data is considered stale and needs a sync
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultCharmHost
	}
	if c.StaleThreshold == 0 {
		c.StaleThreshold = kv.DefaultStaleThreshold
	}
	return c
}
