package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the pipeline needs before it starts. Missing
// credentials are a configuration error surfaced before any network
// call.
type Config struct {
	GitHubToken string `mapstructure:"github_token"`
	APIKey      string `mapstructure:"api_key"`
	APIBase     string `mapstructure:"api_base"`
	Model       string `mapstructure:"model"`

	MaxDiffBytes   int `mapstructure:"max_diff_bytes"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	RequestTimeout int `mapstructure:"request_timeout"` // seconds
	Concurrency    int `mapstructure:"concurrency"`
}

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultMaxDiffBytes   = 8000
	DefaultMaxAttempts    = 3
	DefaultRequestTimeout = 60
	DefaultConcurrency    = 4

	DefaultConfigName = "config"
	DefaultConfigDir  = "prlens"
	EnvPrefix         = "PRLENS"
)

// InitConfig loads configuration from file, environment and .env, in
// that order of increasing precedence for env values.
func InitConfig(cfgFile string) error {
	// Credentials may live in a .env next to the working directory.
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return fmt.Errorf("cannot locate config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		viper.AddConfigPath(filepath.Join(configDir, DefaultConfigDir))
		viper.SetConfigName(DefaultConfigName)
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("max_diff_bytes", DefaultMaxDiffBytes)
	viper.SetDefault("max_attempts", DefaultMaxAttempts)
	viper.SetDefault("request_timeout", DefaultRequestTimeout)
	viper.SetDefault("concurrency", DefaultConcurrency)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Common unprefixed names work too.
	_ = viper.BindEnv("github_token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENAI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// GetConfig returns the effective configuration.
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks that every credential the pipeline needs is present.
func (c *Config) Validate() error {
	var missing []string
	if c.GitHubToken == "" {
		missing = append(missing, "github_token")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Timeout returns the per-call generation timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// SaveConfig persists the current configuration, creating the default
// config file on first use.
func SaveConfig() error {
	if err := viper.WriteConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		configDir, derr := os.UserConfigDir()
		if derr != nil {
			return derr
		}
		dir := filepath.Join(configDir, DefaultConfigDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return viper.WriteConfigAs(filepath.Join(dir, DefaultConfigName+".yaml"))
	}
	return nil
}
