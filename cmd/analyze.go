package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prlens/prlens/internal/analyzer"
	"github.com/prlens/prlens/internal/collector"
	"github.com/prlens/prlens/internal/config"
	"github.com/prlens/prlens/internal/extractor"
	"github.com/prlens/prlens/internal/llm"
	"github.com/prlens/prlens/internal/pipeline"
	"github.com/prlens/prlens/internal/report"
	"github.com/prlens/prlens/internal/source"
	"github.com/prlens/prlens/internal/ui"
)

var (
	repoFlag        string
	authorFlag      string
	sinceFlag       string
	untilFlag       string
	outputFlag      string
	markdownFlag    bool
	concurrencyFlag int

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an author's pull requests and report their quality",
		Long: `Analyze collects the pull requests one author created in a repository
inside an inclusive date window, assesses each one with a language model,
and aggregates the results into a single report.

Examples:
  prlens analyze --repo acme/widgets --author grace --since 2025-01-01 --until 2025-01-31
  prlens analyze --repo acme/widgets --author grace --since 2025-01-01 --until 2025-01-31 --output report.json
  prlens analyze --repo acme/widgets --author grace --since 2025-01-01 --until 2025-01-31 --markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			return runAnalyze(cmd)
		},
	}
)

func init() {
	analyzeCmd.Flags().StringVar(&repoFlag, "repo", "", "Repository as owner/name (required)")
	analyzeCmd.Flags().StringVar(&authorFlag, "author", "", "Author login to analyze (required)")
	analyzeCmd.Flags().StringVar(&sinceFlag, "since", "", "Inclusive start date, YYYY-MM-DD (required)")
	analyzeCmd.Flags().StringVar(&untilFlag, "until", "", "Inclusive end date, YYYY-MM-DD (required)")
	analyzeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the JSON report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&markdownFlag, "markdown", false, "Render the report as markdown instead of JSON")
	analyzeCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Parallel analyses (default from config)")

	_ = analyzeCmd.MarkFlagRequired("repo")
	_ = analyzeCmd.MarkFlagRequired("author")
	_ = analyzeCmd.MarkFlagRequired("since")
	_ = analyzeCmd.MarkFlagRequired("until")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	repo, err := source.ParseRepo(repoFlag)
	if err != nil {
		return err
	}
	start, end, err := parseWindow(sinceFlag, untilFlag)
	if err != nil {
		return err
	}

	chat, err := llm.NewClient(cfg.APIKey, cfg.APIBase, cfg.Model, cfg.Timeout())
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	client := source.NewClient(cfg.GitHubToken)
	p := pipeline.New(
		collector.New(client),
		extractor.New(client, cfg.MaxDiffBytes),
		analyzer.New(chat, cfg.MaxAttempts),
	)

	concurrency := concurrencyFlag
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}

	sp := ui.NewSpinner("analyzing pull requests...")
	sp.Start()
	rep, err := p.Run(cmd.Context(), pipeline.Options{
		Repo:        repo,
		Author:      authorFlag,
		Start:       start,
		End:         end,
		Concurrency: concurrency,
		OnEvent:     sp.OnEvent(),
	})
	sp.Stop()
	if err != nil {
		// An aborted run may still carry the completed assessments.
		if rep != nil && rep.Analyzed > 0 {
			fmt.Fprintf(errWriter(), "Run aborted, writing partial report covering %d merge requests\n", rep.Analyzed)
			if werr := writeReport(rep); werr != nil {
				return werr
			}
		}
		return err
	}

	return writeReport(rep)
}

func parseWindow(since, until string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", since)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --since date %q: use YYYY-MM-DD", since)
	}
	end, err := time.Parse("2006-01-02", until)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --until date %q: use YYYY-MM-DD", until)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since %s is after --until %s", since, until)
	}
	return start, end, nil
}

func writeReport(rep *report.Report) error {
	if markdownFlag {
		fmt.Fprint(outWriter(), report.RenderMarkdown(rep))
		return nil
	}

	if outputFlag != "" {
		f, err := os.Create(outputFlag)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f, rep); err != nil {
			return err
		}
		fmt.Fprintf(errWriter(), "Report saved to %s\n", outputFlag)
		return nil
	}

	return report.WriteJSON(outWriter(), rep)
}
