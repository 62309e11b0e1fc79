package types

import (
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that accepts the "1h30m" string form in both
// YAML and JSON config blocks, plus plain integer nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return WrapError(err, "invalid duration")
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if unquoted, err := strconv.Unquote(string(data)); err == nil {
		parsed, err := time.ParseDuration(unquoted)
		if err != nil {
			return WrapError(err, "invalid duration")
		}
		*d = Duration(parsed)
		return nil
	}

	nanos, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return WrapError(err, "invalid duration")
	}
	*d = Duration(nanos)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
}

type ServiceConfig struct {
	Name    string         `yaml:"name" json:"name" validate:"required"`
	Version string         `yaml:"version" json:"version" validate:"required"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger"`
	Cache   *CacheConfig   `yaml:"cache" json:"cache"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Backend string `yaml:"backend" json:"backend" validate:"required_if=Enabled true"`

	// Namespace prefixes every key the backend touches, including stats
	// aggregates and lock keys.
	Namespace string `yaml:"namespace" json:"namespace"`

	// SampleRate gates stats collection, 0.0-1.0. Kept below 1.0 in
	// production so counting never dominates the cost of a hit.
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate" validate:"min=0,max=1"`

	// StatsWindow bounds the lifetime of the stats aggregate keys.
	StatsWindow Duration `yaml:"stats_window" json:"stats_window" validate:"min=0"`

	// TTLOverrides replaces the built-in default TTL of a temporal
	// content type, keyed by its name.
	TTLOverrides map[string]Duration `yaml:"ttl_overrides" json:"ttl_overrides"`

	// CompressionThreshold is the minimum encoded size, in bytes, before
	// a value is compressed. Zero selects the codec default.
	CompressionThreshold int `yaml:"compression_threshold" json:"compression_threshold" validate:"min=0"`

	// CleanupInterval drives the janitor sweep of the memory backend.
	CleanupInterval string `yaml:"cleanup_interval" json:"cleanup_interval"`

	// Config carries the backend-specific block (host, pool sizes...).
	Config interface{} `yaml:"config" json:"config"`
}

type MetricsConfig struct {
	Enabled bool        `yaml:"enabled" json:"enabled"`
	Type    string      `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config  interface{} `yaml:"config" json:"config"`
}

type VersionInfo struct {
	Version   string `json:"version"`
	BuildInfo string `json:"build_info"`
}
