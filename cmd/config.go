package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prlens/prlens/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage prlens configuration",
		Long:  `Manage prlens configuration: credentials, model and pipeline limits.`,
	}

	configSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Set a configuration value",
	}

	configSetModelCmd = &cobra.Command{
		Use:   "model [model-name]",
		Short: "Set the generation model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue("model", args[0])
		},
	}

	configSetAPIKeyCmd = &cobra.Command{
		Use:   "apikey [api-key]",
		Short: "Set the generation-service API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue("api_key", args[0])
		},
	}

	configSetAPIBaseCmd = &cobra.Command{
		Use:   "apibase [base-url]",
		Short: "Set the generation-service endpoint",
		Long:  `Set a custom endpoint for OpenAI-compatible services or proxies. Leave empty for the default.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue("api_base", args[0])
		},
	}

	configSetTokenCmd = &cobra.Command{
		Use:   "token [github-token]",
		Short: "Set the GitHub access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue("github_token", args[0])
		},
	}

	configViewCmd = &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(outWriter(), "model: %s\n", cfg.Model)
			fmt.Fprintf(outWriter(), "api_base: %s\n", cfg.APIBase)
			fmt.Fprintf(outWriter(), "api_key: %s\n", mask(cfg.APIKey))
			fmt.Fprintf(outWriter(), "github_token: %s\n", mask(cfg.GitHubToken))
			fmt.Fprintf(outWriter(), "max_diff_bytes: %d\n", cfg.MaxDiffBytes)
			fmt.Fprintf(outWriter(), "max_attempts: %d\n", cfg.MaxAttempts)
			fmt.Fprintf(outWriter(), "request_timeout: %ds\n", cfg.RequestTimeout)
			fmt.Fprintf(outWriter(), "concurrency: %d\n", cfg.Concurrency)
			return nil
		},
	}
)

func init() {
	configSetCmd.AddCommand(configSetModelCmd)
	configSetCmd.AddCommand(configSetAPIKeyCmd)
	configSetCmd.AddCommand(configSetAPIBaseCmd)
	configSetCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}

func setConfigValue(key, value string) error {
	viper.Set(key, value)
	if err := config.SaveConfig(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(outWriter(), "Set %s\n", key)
	return nil
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
