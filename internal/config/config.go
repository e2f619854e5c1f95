// Package config handles configuration loading for genflow.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for genflow.
type Config struct {
	Models   ModelsConfig   `mapstructure:"models"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Cache    CacheConfig    `mapstructure:"cache"`
	WarmPool WarmPoolConfig `mapstructure:"warm_pool"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

// ModelsConfig maps task complexity to model identifiers.
type ModelsConfig struct {
	// Simple is the cheapest/fastest model for trivial requests.
	Simple string `mapstructure:"simple"`
	// Standard is the balanced default.
	Standard string `mapstructure:"standard"`
	// Complex is the highest-quality model for heavy work.
	Complex string `mapstructure:"complex"`
}

// TimeoutsConfig holds the per-phase renderer deadlines.
type TimeoutsConfig struct {
	Generation time.Duration `mapstructure:"generation"`
	Title      time.Duration `mapstructure:"title"`
	Summarize  time.Duration `mapstructure:"summarize"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	Capacity      int           `mapstructure:"capacity"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// WarmPoolConfig holds warm pool settings.
type WarmPoolConfig struct {
	// WarmWindow is how long a session counts as warm after a warm-up.
	WarmWindow time.Duration `mapstructure:"warm_window"`
	// StaleAfter is when inactive session records are purged.
	StaleAfter time.Duration `mapstructure:"stale_after"`
	// GlobalInterval is the period between global warm-up pings.
	// Zero disables the ticker.
	GlobalInterval time.Duration `mapstructure:"global_interval"`
}

// RendererConfig selects and configures the renderer backend.
type RendererConfig struct {
	// Backend is "subprocess" or "api".
	Backend string `mapstructure:"backend"`
	// Binary is the renderer executable name for the subprocess backend.
	Binary string `mapstructure:"binary"`
	// APIKey is the Anthropic API key for the api backend.
	APIKey string `mapstructure:"api_key"`
}

// OutputConfig holds filesystem settings for generated files.
type OutputConfig struct {
	// Root is the directory the renderer writes generated files into.
	Root string `mapstructure:"root"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// PricingConfig points at an optional price override file.
type PricingConfig struct {
	OverridePath string `mapstructure:"override_path"`
}

// Load loads configuration with the following precedence, highest first:
// environment variables (GENFLOW_*, ANTHROPIC_API_KEY), project config
// (.genflow.yaml in the working directory), user config
// (~/.config/genflow/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		pv := viper.New()
		pv.SetConfigFile(project)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("GENFLOW")
	v.AutomaticEnv()
	v.BindEnv("renderer.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// setDefaults configures the built-in defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("models.simple", "claude-3-5-haiku-20241022")
	v.SetDefault("models.standard", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.complex", "claude-opus-4-5-20251101")

	v.SetDefault("timeouts.generation", 10*time.Minute)
	v.SetDefault("timeouts.title", 30*time.Second)
	v.SetDefault("timeouts.summarize", 90*time.Second)

	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)

	v.SetDefault("warm_pool.warm_window", 30*time.Minute)
	v.SetDefault("warm_pool.stale_after", time.Hour)
	v.SetDefault("warm_pool.global_interval", 0)

	v.SetDefault("renderer.backend", "subprocess")
	v.SetDefault("renderer.binary", "claude")

	v.SetDefault("output.root", "generated_files")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("pricing.override_path", "")
}

// userConfigDir returns the XDG config directory for genflow.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "genflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "genflow")
}

// findProjectConfig looks for .genflow.yaml in the working directory.
func findProjectConfig() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	path := filepath.Join(wd, ".genflow.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
