// Package config loads node/ledger configuration from a YAML file plus
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a ledger process: which
// storage/naming backends to wire up, the default branch, and the
// fuel and signing policy applied to every staged transaction.
type Config struct {
	Ledger struct {
		Alias  string `mapstructure:"alias" json:"alias"`
		Branch string `mapstructure:"branch" json:"branch"`
	} `mapstructure:"ledger" json:"ledger"`

	Storage struct {
		// Scheme selects the blob-store backend: "memory", "file" or
		// "ipfs".
		Scheme  string        `mapstructure:"scheme" json:"scheme"`
		Path    string        `mapstructure:"path" json:"path"`
		Gateway string        `mapstructure:"gateway" json:"gateway"`
		Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	} `mapstructure:"storage" json:"storage"`

	Fuel struct {
		Budget int64 `mapstructure:"budget" json:"budget"`
	} `mapstructure:"fuel" json:"fuel"`

	Signing struct {
		RequireSignature bool   `mapstructure:"require_signature" json:"require_signature"`
		KeyPath          string `mapstructure:"key_path" json:"key_path"`
	} `mapstructure:"signing" json:"signing"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads cmd/config/default.yaml, merges cmd/config/<env>.yaml over
// it when env is non-empty, then lets FLUREE_-prefixed environment
// variables (nested keys joined with "_", e.g. FLUREE_STORAGE_SCHEME)
// override both, storing the result in AppConfig.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: load default config: %w", err)
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: merge %s config: %w", env, err)
		}
	}

	viper.SetEnvPrefix("fluree")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("config: unmarshal config: %w", err)
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FLUREE_ENV environment
// variable to select the overlay file, defaulting to the base config
// alone when unset.
func LoadFromEnv() (*Config, error) {
	return Load(envOrDefault("FLUREE_ENV", ""))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
