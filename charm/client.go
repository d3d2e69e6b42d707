// ABOUTME: Charm KV client wrapper backing the local persistence mode
// ABOUTME: Byte-level Get/Set over badger with optional sync to a Charm server after writes
package charm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
)

// AppName names the Charm KV database.
const AppName = "clientbook"

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("key not found")

// store is the subset of charm/kv.KV the client uses.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	Close() error
}

// Client wraps charm KV with config and sync helpers.
type Client struct {
	kv       store
	config   Config
	logger   *log.Logger
	mu       sync.RWMutex
	lastSync time.Time
	remote   bool
}

// Open opens the clientbook KV database. When AutoSync is on, it pulls
// remote changes once before returning; a failed pull is logged, not fatal.
func Open(cfg Config, logger *log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	// charm reads its server from the environment
	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
		logger: logger.WithPrefix("charm"),
		remote: true,
	}

	if cfg.AutoSync {
		if err := c.Sync(); err != nil {
			c.logger.Warn("initial sync failed, continuing with local data", "host", cfg.Host, "err", err)
		}
	}
	return c, nil
}

// Config returns the client's config.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "", fmt.Errorf("no charm server for this client")
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// LastSync reports when the last successful sync finished.
func (c *Client) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Stale reports whether the last sync is older than the configured threshold.
func (c *Client) Stale(now time.Time) bool {
	cfg := c.Config()
	last := c.LastSync()
	return last.IsZero() || now.Sub(last) > cfg.StaleThreshold
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked()
}

func (c *Client) syncLocked() error {
	if err := c.kv.Sync(); err != nil {
		return err
	}
	c.lastSync = time.Now()
	return nil
}

// Get retrieves a value by key, returning ErrNotFound when absent.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.kv.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, err
}

// Set stores a value and syncs if enabled. A failed sync does not fail the
// write: the value is durable locally and goes up with the next sync.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}

	// Sync while still holding lock to avoid race condition
	if c.config.AutoSync {
		if err := c.syncLocked(); err != nil {
			c.logger.Warn("sync after write failed", "key", string(key), "err", err)
		}
	}
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}

	if c.config.AutoSync {
		if err := c.syncLocked(); err != nil {
			c.logger.Warn("sync after delete failed", "key", string(key), "err", err)
		}
	}
	return nil
}

// Keys returns all keys.
func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// KeysWithPrefix returns all keys starting with the given prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// Close closes the underlying database.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Close()
}
