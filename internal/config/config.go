// Package config manages the router daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete copernica router configuration.
type Config struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Router  RouterConfig  `koanf:"router"`
	TxRx    TxRxConfig    `koanf:"txrx"`
	Links   []LinkConfig  `koanf:"links"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// RouterConfig holds the node-wide forwarding parameters.
type RouterConfig struct {
	// ContentStoreCapacity bounds the number of cached Responses kept in
	// the LRU content store.
	ContentStoreCapacity int `koanf:"content_store_capacity"`

	// DeepSixLink names the sentinel link id the Bayesian classifier
	// trains on every incoming request, used to detect traffic that
	// resembles nothing any real link has ever answered.
	DeepSixLink uint32 `koanf:"deep_six_link"`

	// IdentitySeedHex is the 32-byte hex-encoded seed this node derives
	// its signing and exchange keypairs from.
	IdentitySeedHex string `koanf:"identity_seed_hex"`
}

// TxRxConfig holds the default sliding-window request parameters protocols
// inherit unless they override them per call.
type TxRxConfig struct {
	// Reliability is the default reliability mode: "unreliable_sequenced",
	// "reliable_sequenced", or "reliable_ordered".
	Reliability string `koanf:"reliability"`

	// WindowTimeout bounds how long a congestion window waits for its
	// in-flight frames to be answered before it is judged lost.
	WindowTimeout time.Duration `koanf:"window_timeout"`

	// Retries caps how many times a window may be resent before the
	// request gives up.
	Retries uint32 `koanf:"retries"`
}

// LinkConfig describes one configured face a router can receive from or
// forward through. Each entry creates a link on daemon startup.
type LinkConfig struct {
	// Name identifies the link for logging and metrics labels.
	Name string `koanf:"name"`

	// Transport names the reply-to encoding this link speaks: "udp4",
	// "udp6", "mac48", "mac64", "rf", or "mailbox" (loopback/in-process).
	Transport string `koanf:"transport"`

	// Addr is the local bind address for network transports (e.g.,
	// "0.0.0.0:9090" for udp4).
	Addr string `koanf:"addr"`
}

// LinkKey returns a unique identifier for the link, used by Validate to
// reject duplicate link entries.
func (lc LinkConfig) LinkKey() string {
	return lc.Name
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Router: RouterConfig{
			ContentStoreCapacity: 4096,
			DeepSixLink:          0,
		},
		TxRx: TxRxConfig{
			Reliability:   "reliable_ordered",
			WindowTimeout: 2 * time.Second,
			Retries:       5,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for copernica configuration.
// Variables are named COPERNICA_<section>_<key>, e.g., COPERNICA_LOG_LEVEL.
const envPrefix = "COPERNICA_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (COPERNICA_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	COPERNICA_METRICS_ADDR          -> metrics.addr
//	COPERNICA_METRICS_PATH          -> metrics.path
//	COPERNICA_LOG_LEVEL             -> log.level
//	COPERNICA_LOG_FORMAT            -> log.format
//	COPERNICA_ROUTER_DEEP_SIX_LINK  -> router.deep_six_link
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms COPERNICA_ROUTER_DEEP_SIX_LINK -> router.deep_six_link.
// Strips the COPERNICA_ prefix, lowercases, and replaces the first _ (the
// section separator) with ., keeping underscores inside the key name.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"metrics.addr":                  defaults.Metrics.Addr,
		"metrics.path":                  defaults.Metrics.Path,
		"log.level":                     defaults.Log.Level,
		"log.format":                    defaults.Log.Format,
		"router.content_store_capacity": defaults.Router.ContentStoreCapacity,
		"router.deep_six_link":          defaults.Router.DeepSixLink,
		"txrx.reliability":              defaults.TxRx.Reliability,
		"txrx.window_timeout":           defaults.TxRx.WindowTimeout.String(),
		"txrx.retries":                  defaults.TxRx.Retries,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidContentStoreCapacity indicates the content store capacity is non-positive.
	ErrInvalidContentStoreCapacity = errors.New("router.content_store_capacity must be > 0")

	// ErrInvalidWindowTimeout indicates the txrx window timeout is non-positive.
	ErrInvalidWindowTimeout = errors.New("txrx.window_timeout must be > 0")

	// ErrInvalidRetries indicates the txrx retry count is zero.
	ErrInvalidRetries = errors.New("txrx.retries must be >= 1")

	// ErrInvalidReliability indicates an unrecognized txrx reliability mode.
	ErrInvalidReliability = errors.New("txrx.reliability must be unreliable_sequenced, reliable_sequenced, or reliable_ordered")

	// ErrEmptyLinkName indicates a link entry has no name.
	ErrEmptyLinkName = errors.New("link name must not be empty")

	// ErrInvalidLinkTransport indicates an unrecognized link transport.
	ErrInvalidLinkTransport = errors.New("link transport must be udp4, udp6, mac48, mac64, rf, or mailbox")

	// ErrDuplicateLinkKey indicates two links share the same name.
	ErrDuplicateLinkKey = errors.New("duplicate link name")
)

// ValidReliabilityModes lists the recognized txrx.reliability strings.
var ValidReliabilityModes = map[string]bool{
	"unreliable_sequenced": true,
	"reliable_sequenced":   true,
	"reliable_ordered":     true,
}

// ValidLinkTransports lists the recognized link transport strings.
var ValidLinkTransports = map[string]bool{
	"udp4":    true,
	"udp6":    true,
	"mac48":   true,
	"mac64":   true,
	"rf":      true,
	"mailbox": true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Router.ContentStoreCapacity <= 0 {
		return ErrInvalidContentStoreCapacity
	}

	if cfg.TxRx.WindowTimeout <= 0 {
		return ErrInvalidWindowTimeout
	}

	if cfg.TxRx.Retries < 1 {
		return ErrInvalidRetries
	}

	if cfg.TxRx.Reliability != "" && !ValidReliabilityModes[cfg.TxRx.Reliability] {
		return ErrInvalidReliability
	}

	if err := validateLinks(cfg.Links); err != nil {
		return err
	}

	return nil
}

// validateLinks checks each declarative link entry for correctness.
func validateLinks(links []LinkConfig) error {
	seen := make(map[string]struct{}, len(links))

	for i, lc := range links {
		if lc.Name == "" {
			return fmt.Errorf("links[%d]: %w", i, ErrEmptyLinkName)
		}

		if lc.Transport != "" && !ValidLinkTransports[lc.Transport] {
			return fmt.Errorf("links[%d] transport %q: %w", i, lc.Transport, ErrInvalidLinkTransport)
		}

		key := lc.LinkKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("links[%d] name %q: %w", i, key, ErrDuplicateLinkKey)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
