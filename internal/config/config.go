package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	Bridge   BridgeConfig
	Match    MatchConfig
	Batch    BatchConfig
	Accounts AccountsConfig
}

// DatabaseConfig holds sqlite settings for the run ledger.
type DatabaseConfig struct {
	Path string
}

// SourceConfig holds source-store settings.
type SourceConfig struct {
	RootFolder string `mapstructure:"root_folder"`
	TokenEnv   string `mapstructure:"token_env"`
	Token      string
}

// BridgeConfig holds the browser-bridge endpoint.
type BridgeConfig struct {
	URL         string
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// MatchConfig holds the matcher's policy constants. They are heuristics, not
// invariants, so they live here rather than in the code.
type MatchConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	TokenDistance float64 `mapstructure:"token_distance"`
}

// BatchConfig holds batch defaults and apply-phase limits.
type BatchConfig struct {
	Size          int
	StartFrom     int           `mapstructure:"start_from"`
	UploadRetries int           `mapstructure:"upload_retries"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// AccountsConfig holds account list inputs.
type AccountsConfig struct {
	IgnoreFile string `mapstructure:"ignore_file"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// CRMSYNC_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "crmsync", "crmsync.db"))
	v.SetDefault("source.root_folder", "/Customers")
	v.SetDefault("source.token_env", "DROPBOX_TOKEN")
	v.SetDefault("source.token", "")
	v.SetDefault("bridge.url", "http://127.0.0.1:8765")
	v.SetDefault("bridge.call_timeout", "90s")
	v.SetDefault("match.min_confidence", 0.5)
	v.SetDefault("match.token_distance", 0.25)
	v.SetDefault("batch.size", 0)
	v.SetDefault("batch.start_from", 0)
	v.SetDefault("batch.upload_retries", 2)
	v.SetDefault("batch.upload_timeout", "5m")
	v.SetDefault("accounts.ignore_file", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CRMSYNC_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "crmsync"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CRMSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
