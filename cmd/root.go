package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prlens/prlens/internal/config"
)

var (
	cfgFile   string
	configErr error
	rootCtx   = context.Background()

	rootCmd = &cobra.Command{
		Use:   "prlens",
		Short: "prlens - Pull Request Quality Lens",
		Long: `prlens inspects the pull requests one author merged into a repository ` +
			`over a date range and produces an AI-assessed quality report: overall ` +
			`score, issues, good practices, design patterns and anti-patterns.`,
		Version:       fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// SetContext installs the signal-aware context commands run under.
func SetContext(ctx context.Context) {
	rootCtx = ctx
}

// RootCmd exposes the root command for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

func Execute() error {
	return rootCmd.ExecuteContext(rootCtx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Configuration file path (default is $XDG_CONFIG_HOME/prlens/config.yaml)")
}

func initConfig() {
	configErr = config.InitConfig(cfgFile)
}
