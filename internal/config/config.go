// Package config provides configuration loading for the converter.
// Supports YAML files, .env files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/pdfconv/internal/basic"
	"github.com/spherical/pdfconv/internal/cache"
	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/llm"
	"github.com/spherical/pdfconv/internal/pdf"
)

// Config holds all configuration for the converter.
type Config struct {
	Conversion    domain.ConversionConfig `yaml:"conversion"`
	Provider      ProviderConfig          `yaml:"provider"`
	Basic         basic.Options           `yaml:"basic"`
	Extraction    ExtractionConfig        `yaml:"extraction"`
	Cache         CacheConfig             `yaml:"cache"`
	Output        OutputConfig            `yaml:"output"`
	Observability ObservabilityConfig     `yaml:"observability"`
}

// ProviderConfig selects and tunes the LLM provider.
type ProviderConfig struct {
	Default string            `yaml:"default"`
	Timeout time.Duration     `yaml:"timeout"`
	Models  map[string]string `yaml:"models"` // provider id -> model name
}

// ExtractionConfig holds text extraction settings.
type ExtractionConfig struct {
	TextBackend string `yaml:"text_backend"` // native or mupdf
}

// CacheConfig holds chunk cache settings.
type CacheConfig struct {
	Driver     string            `yaml:"driver"` // none, memory or redis
	TTL        time.Duration     `yaml:"ttl"`
	MaxEntries int               `yaml:"max_entries"`
	Redis      cache.RedisConfig `yaml:"redis"`
}

// OutputConfig holds output sink settings.
type OutputConfig struct {
	S3Region string `yaml:"s3_region"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsFile string `yaml:"metrics_file"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return domain.ConfigError("load "+p, err)
		}
	}
	return nil
}

// DefaultConfig returns a configuration with the canonical defaults.
func DefaultConfig() *Config {
	return &Config{
		Conversion: domain.DefaultConversionConfig(),
		Provider: ProviderConfig{
			Default: string(llm.DefaultProvider),
			Timeout: llm.DefaultTimeout,
			Models:  map[string]string{},
		},
		Basic: basic.DefaultOptions(),
		Extraction: ExtractionConfig{
			TextBackend: pdf.BackendNative,
		},
		Cache: CacheConfig{
			Driver:     cache.DriverNone,
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: cache.RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "pdfconv:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Conversion.Validate(); err != nil {
		return err
	}

	if _, err := llm.ParseProvider(c.Provider.Default); err != nil {
		return err
	}

	for id := range c.Provider.Models {
		if _, err := llm.ParseProvider(id); err != nil {
			return fmt.Errorf("model override: %w", err)
		}
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", c.Provider.Timeout)
	}

	switch c.Extraction.TextBackend {
	case pdf.BackendNative, pdf.BackendMuPDF:
	default:
		return fmt.Errorf("invalid text backend: %s", c.Extraction.TextBackend)
	}

	switch c.Cache.Driver {
	case cache.DriverNone, cache.DriverMemory, cache.DriverRedis:
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.Observability.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}

	return nil
}

// ModelOverrides returns the per-provider model names keyed by provider.
func (c *Config) ModelOverrides() map[llm.Provider]string {
	out := make(map[llm.Provider]string, len(c.Provider.Models))
	for id, model := range c.Provider.Models {
		if p, err := llm.ParseProvider(id); err == nil {
			out[p] = model
		}
	}
	return out
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := getenv("PDF_CONVERTER_LLM_PROVIDER"); v != "" {
		cfg.Provider.Default = strings.ToLower(strings.TrimSpace(v))
	}

	if v := getenv("PDF_CONVERTER_CHUNK_PAGES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("PDF_CONVERTER_CHUNK_PAGES must be an integer, got %q", v), err)
		}
		cfg.Conversion.MaxPagesPerChunk = n
	}

	if v := getenv("PDF_CONVERTER_TEXT_BACKEND"); v != "" {
		cfg.Extraction.TextBackend = v
	}

	if v := getenv("PDF_CONVERTER_CACHE"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = cache.DriverRedis
		cfg.Cache.Redis.URL = v
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := getenv("PDF_CONVERTER_METRICS_FILE"); v != "" {
		cfg.Observability.MetricsFile = v
	}

	if v := getenv("AWS_REGION"); v != "" && cfg.Output.S3Region == "" {
		cfg.Output.S3Region = v
	}

	return nil
}
