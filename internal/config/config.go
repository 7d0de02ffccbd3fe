// Package config loads service configuration from an optional YAML file
// and STACKMETER_-prefixed environment variables, with built-in defaults
// for the per-resource-type mapping tables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/stackmeter/stackmeter/internal/collector"
)

const envPrefix = "STACKMETER_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Storage StorageConfig `koanf:"storage"`
	Collect CollectConfig `koanf:"collect"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// StoreConfig locates the remote metric/resource store.
type StoreConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	AuthToken string        `koanf:"auth_token"`
	Timeout   time.Duration `koanf:"timeout"`
}

// StorageConfig configures local persistence of collected records. An
// empty path disables persistence.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// CollectConfig overrides the built-in mapping tables per resource type.
// Unset tables fall back to the defaults.
type CollectConfig struct {
	Types   map[string]string       `koanf:"types"`
	Metrics map[string][]MetricSpec `koanf:"metrics"`
	Units   map[string]UnitsEntry   `koanf:"units"`
}

type MetricSpec struct {
	Name        string `koanf:"name"`
	Aggregation string `koanf:"aggregation"`
}

type UnitsEntry struct {
	QtyField string `koanf:"qty_field"`
	Qty      int64  `koanf:"qty"`
	Unit     string `koanf:"unit"`
}

// Load reads configuration from path (skipped when the file does not
// exist) and the environment. STACKMETER_STORE__ENDPOINT maps to
// store.endpoint.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("store.endpoint") {
		k.Set("store.endpoint", "http://localhost:8041")
	}
	if !k.Exists("store.timeout") {
		k.Set("store.timeout", "30s")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Mappings merges the configured overrides over the built-in tables and
// returns the result in the collector's form.
func (c *CollectConfig) Mappings() collector.Mappings {
	m := collector.DefaultMappings()

	for name, internal := range c.Types {
		m.Types[name] = internal
	}
	for name, specs := range c.Metrics {
		converted := make([]collector.MetricSpec, 0, len(specs))
		for _, s := range specs {
			agg := s.Aggregation
			if agg == "" {
				agg = "max"
			}
			converted = append(converted, collector.MetricSpec{Name: s.Name, Aggregation: agg})
		}
		m.Metrics[name] = converted
	}
	for name, u := range c.Units {
		m.Units[name] = collector.UnitsEntry{QtyField: u.QtyField, Qty: u.Qty, Unit: u.Unit}
	}
	return m
}
