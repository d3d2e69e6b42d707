// ABOUTME: Application configuration stored at XDG paths with environment variable overrides
// ABOUTME: Selects the persistence backend once at startup and carries charm, remote, and auth settings
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/clientbook/charm"
)

// AppName names the XDG directories.
const AppName = "clientbook"

// Backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Remote drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrInvalid marks a config that cannot be used.
var ErrInvalid = errors.New("invalid config")

// RemoteConfig selects the document database of the remote backend.
type RemoteConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn,omitempty"`
	MaxConns int32  `json:"max_conns,omitempty"`
}

type Config struct {
	Backend   string       `json:"backend"`
	Remote    RemoteConfig `json:"remote"`
	Charm     charm.Config `json:"charm"`
	JWTSecret string       `json:"jwt_secret,omitempty"`
	LogLevel  string       `json:"log_level,omitempty"`
	DeviceID  string       `json:"device_id,omitempty"`
}

// Dir returns the XDG config directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// DataDir holds the SQLite document database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// SessionPath holds the saved session token.
func SessionPath() string {
	return filepath.Join(xdg.StateHome, AppName, "session")
}

// Default returns the config used when no file exists.
func Default() *Config {
	return &Config{
		Backend: BackendLocal,
		Remote: RemoteConfig{
			Driver: DriverSQLite,
			DSN:    filepath.Join(DataDir(), "documents.db"),
		},
		Charm:    charm.DefaultConfig(),
		LogLevel: "warn",
	}
}

// Load reads path, falling back to defaults when the file is missing.
// A .env file in the working directory is loaded first. Environment
// variables override file values:
// - CLIENTBOOK_BACKEND
// - CLIENTBOOK_REMOTE_DRIVER
// - CLIENTBOOK_REMOTE_DSN
// - CLIENTBOOK_JWT_SECRET
// - CLIENTBOOK_LOG_LEVEL
// - CLIENTBOOK_CHARM_HOST
// - CLIENTBOOK_CHARM_AUTO_SYNC.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer func() { _ = f.Close() }()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLIENTBOOK_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CLIENTBOOK_REMOTE_DRIVER"); v != "" {
		cfg.Remote.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("CLIENTBOOK_REMOTE_DSN"); v != "" {
		cfg.Remote.DSN = v
	}
	if v := os.Getenv("CLIENTBOOK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("CLIENTBOOK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLIENTBOOK_CHARM_HOST"); v != "" {
		cfg.Charm.Host = v
	}
	if v := os.Getenv("CLIENTBOOK_CHARM_AUTO_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Charm.AutoSync = b
		}
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Remote.Driver == "" {
		c.Remote.Driver = d.Remote.Driver
	}
	if c.Remote.DSN == "" && c.Remote.Driver == DriverSQLite {
		c.Remote.DSN = d.Remote.DSN
	}
	if c.Charm.Host == "" {
		c.Charm.Host = d.Charm.Host
	}
	if c.Charm.StaleThreshold == 0 {
		c.Charm.StaleThreshold = d.Charm.StaleThreshold
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the backend selection.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRemote:
		switch c.Remote.Driver {
		case DriverSQLite, DriverPostgres:
		default:
			return fmt.Errorf("%w: unknown remote driver %q (valid: sqlite, postgres)", ErrInvalid, c.Remote.Driver)
		}
		if c.Remote.DSN == "" {
			return fmt.Errorf("%w: remote backend needs a dsn", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q (valid: local, remote)", ErrInvalid, c.Backend)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Save writes the config with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// EnsureSecrets fills a missing JWT secret and device id. It reports
// whether anything changed so the caller can save.
func (c *Config) EnsureSecrets() (bool, error) {
	changed := false
	if c.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return false, fmt.Errorf("generate jwt secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(b)
		changed = true
	}
	if c.DeviceID == "" {
		c.DeviceID = GenerateDeviceID()
		changed = true
	}
	return changed, nil
}

// GenerateDeviceID returns a new ULID identifying this install.
func GenerateDeviceID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// NewLogger builds the root logger at the configured level, writing to stderr.
func (c *Config) NewLogger() *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          AppName,
	})
}
