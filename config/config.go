// Package config loads silkpdf settings from YAML, a .env file and
// environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wudi/silkpdf/observability"
	"github.com/wudi/silkpdf/ops"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SILKPDF_"

type Config struct {
	Brand       string            `yaml:"brand"`
	Creator     string            `yaml:"creator"`
	Limits      LimitsConfig      `yaml:"limits"`
	Compression CompressionConfig `yaml:"compression"`
	Export      ExportConfig      `yaml:"export"`
	Preview     PreviewConfig     `yaml:"preview"`
	Log         LogConfig         `yaml:"log"`
}

type LimitsConfig struct {
	MaxFiles     int   `yaml:"max_files"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	MaxPixels    int64 `yaml:"max_pixels"`
}

type RasterConfig struct {
	Scale   float64 `yaml:"scale"`
	Quality int     `yaml:"quality"`
}

type CompressionConfig struct {
	Strong  RasterConfig `yaml:"strong"`
	Extreme RasterConfig `yaml:"extreme"`
}

type ExportConfig struct {
	Quality int `yaml:"quality"`
}

type PreviewConfig struct {
	Scale    float64 `yaml:"scale"`
	MaxWidth int     `yaml:"max_width"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json or console
	Service string `yaml:"service"`
}

// DefaultConfig mirrors ops.DefaultConfig with console logging at info.
func DefaultConfig() *Config {
	d := ops.DefaultConfig()
	return &Config{
		Brand:   d.Brand,
		Creator: d.Creator,
		Limits: LimitsConfig{
			MaxFiles:     d.Limits.MaxFiles,
			MaxFileBytes: d.Limits.MaxFileBytes,
			MaxPixels:    d.Limits.MaxPixels,
		},
		Compression: CompressionConfig{
			Strong:  RasterConfig{Scale: d.Strong.Scale, Quality: d.Strong.Quality},
			Extreme: RasterConfig{Scale: d.Extreme.Scale, Quality: d.Extreme.Quality},
		},
		Export:  ExportConfig{Quality: d.ExportQuality},
		Preview: PreviewConfig{Scale: d.PreviewScale, MaxWidth: d.PreviewMaxWidth},
		Log:     LogConfig{Level: "info", Format: "console", Service: "silkpdf"},
	}
}

// Load reads the YAML file at path when path is non-empty, then applies
// environment overrides, including those from a .env file in the working
// directory.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("BRAND", &cfg.Brand)
	str("CREATOR", &cfg.Creator)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_FILES", &cfg.Limits.MaxFiles},
		{"EXPORT_QUALITY", &cfg.Export.Quality},
		{"PREVIEW_MAX_WIDTH", &cfg.Preview.MaxWidth},
		{"STRONG_QUALITY", &cfg.Compression.Strong.Quality},
		{"EXTREME_QUALITY", &cfg.Compression.Extreme.Quality},
	}
	for _, o := range ints {
		if v := os.Getenv(EnvPrefix + o.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, o.name, err)
			}
			*o.dst = n
		}
	}

	int64s := []struct {
		name string
		dst  *int64
	}{
		{"MAX_FILE_BYTES", &cfg.Limits.MaxFileBytes},
		{"MAX_PIXELS", &cfg.Limits.MaxPixels},
	}
	for _, o := range int64s {
		if v := os.Getenv(EnvPrefix + o.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, o.name, err)
			}
			*o.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"PREVIEW_SCALE", &cfg.Preview.Scale},
		{"STRONG_SCALE", &cfg.Compression.Strong.Scale},
		{"EXTREME_SCALE", &cfg.Compression.Extreme.Scale},
	}
	for _, o := range floats {
		if v := os.Getenv(EnvPrefix + o.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, o.name, err)
			}
			*o.dst = f
		}
	}
	return nil
}

// Validate checks the engine settings and the log format.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.Log.Format)
	}
	return c.Engine().Validate()
}

// Engine returns the operation engine's view of the configuration.
func (c *Config) Engine() ops.Config {
	return ops.Config{
		Brand: c.Brand,
		Limits: ops.Limits{
			MaxFiles:     c.Limits.MaxFiles,
			MaxFileBytes: c.Limits.MaxFileBytes,
			MaxPixels:    c.Limits.MaxPixels,
		},
		Strong:          ops.RasterProfile{Scale: c.Compression.Strong.Scale, Quality: c.Compression.Strong.Quality},
		Extreme:         ops.RasterProfile{Scale: c.Compression.Extreme.Scale, Quality: c.Compression.Extreme.Quality},
		ExportQuality:   c.Export.Quality,
		PreviewScale:    c.Preview.Scale,
		PreviewMaxWidth: c.Preview.MaxWidth,
		Creator:         c.Creator,
	}
}

// Logger returns the logger settings.
func (c *Config) Logger() observability.ZerologConfig {
	return observability.ZerologConfig{Level: c.Log.Level, Format: c.Log.Format, Service: c.Log.Service}
}
