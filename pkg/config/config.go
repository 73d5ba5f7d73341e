package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file read from the working directory
const DefaultFile = "faultgraph.toml"

// EnvPrefix prefixes environment overrides, e.g. FAULTGRAPH_PORT=9090
const EnvPrefix = "FAULTGRAPH_"

// ErrInvalid is returned when a loaded configuration fails validation
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	Graph              string  `koanf:"graph"` // Knowledge base YAML, empty for the built-in graph
	DeviationThreshold float64 `koanf:"deviation-threshold"`
	MaxPathDepth       int     `koanf:"max-path-depth"`
	MaxPaths           int     `koanf:"max-paths"`
	PathCacheSize      int     `koanf:"path-cache-size"`
	Port               int     `koanf:"port"`
	JSON               bool    `koanf:"json"`
	Verbosity          string  `koanf:"verbosity"`
	VerboseCnt         int     `koanf:"verbose"`
	LogJSON            bool    `koanf:"log-json"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"graph":               "",
		"deviation-threshold": 0.15,
		"max-path-depth":      10,
		"max-paths":           1000,
		"path-cache-size":     256,
		"port":                8080,
		"json":                false,
		"verbosity":           "",
		"verbose":             0,
		"log-json":            false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// path names the config file; a missing file is ignored and a malformed one
// is an error.
func Load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.DeviationThreshold < 0:
		return fmt.Errorf("%w: deviation-threshold must be >= 0, got %g", ErrInvalid, c.DeviationThreshold)
	case c.MaxPathDepth < 1:
		return fmt.Errorf("%w: max-path-depth must be >= 1, got %d", ErrInvalid, c.MaxPathDepth)
	case c.MaxPaths < 1:
		return fmt.Errorf("%w: max-paths must be >= 1, got %d", ErrInvalid, c.MaxPaths)
	case c.PathCacheSize < 0:
		return fmt.Errorf("%w: path-cache-size must be >= 0, got %d", ErrInvalid, c.PathCacheSize)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port out of range: %d", ErrInvalid, c.Port)
	}
	return nil
}

// RegisterFlags adds the flags that override configuration keys
func RegisterFlags(f *pflag.FlagSet) {
	f.String("graph", "", "Knowledge base YAML file (default: built-in power/thermal graph)")
	f.Float64P("deviation-threshold", "t", 0.15, "Fractional deviation above which a series is anomalous")
	f.Int("max-path-depth", 10, "Maximum number of nodes on a causal path")
	f.Int("max-paths", 1000, "Maximum number of paths enumerated per observable")
	f.Int("path-cache-size", 256, "Number of memoised path queries (0 disables the cache)")
	f.Int("port", 8080, "Port for the HTTP server")
	f.Bool("json", false, "Print results as JSON")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Write logs as JSON")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
