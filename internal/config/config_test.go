package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWith(t *testing.T, yaml string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	require.NoError(t, InitConfig(path))

	cfg, err := GetConfig()
	require.NoError(t, err)
	return cfg
}

func TestInitConfig_Defaults(t *testing.T) {
	cfg := initWith(t, "")

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMaxDiffBytes, cfg.MaxDiffBytes)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Empty(t, cfg.GitHubToken)
	assert.Empty(t, cfg.APIKey)
}

func TestInitConfig_FileValues(t *testing.T) {
	cfg := initWith(t, "model: gpt-4o\nmax_diff_bytes: 12000\napi_base: https://llm.internal/v1\n")

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 12000, cfg.MaxDiffBytes)
	assert.Equal(t, "https://llm.internal/v1", cfg.APIBase)
}

func TestInitConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("PRLENS_MODEL", "gpt-4o-mini")
	cfg := initWith(t, "model: gpt-4o\n")

	assert.Equal(t, "gpt-4o-mini", cfg.Model)
}

func TestInitConfig_UnprefixedCredentialFallbacks(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_token")
	t.Setenv("OPENAI_API_KEY", "sk-key")
	cfg := initWith(t, "")

	assert.Equal(t, "ghp_token", cfg.GitHubToken)
	assert.Equal(t, "sk-key", cfg.APIKey)
}

func TestInitConfig_PrefixedWinsOverUnprefixed(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "fallback")
	t.Setenv("PRLENS_GITHUB_TOKEN", "primary")
	cfg := initWith(t, "")

	assert.Equal(t, "primary", cfg.GitHubToken)
}

func TestInitConfig_MalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml ["), 0o644))
	assert.Error(t, InitConfig(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "complete",
			cfg:  Config{GitHubToken: "t", APIKey: "k", Model: "m"},
		},
		{
			name:    "missing token",
			cfg:     Config{APIKey: "k", Model: "m"},
			wantErr: "github_token",
		},
		{
			name:    "missing everything",
			cfg:     Config{},
			wantErr: "github_token, api_key, model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTimeout(t *testing.T) {
	cfg := Config{RequestTimeout: 90}
	assert.Equal(t, 90*time.Second, cfg.Timeout())
}
