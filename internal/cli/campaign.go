package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline/internal/audit"
	"github.com/faultline/faultline/internal/inject"
	"github.com/faultline/faultline/internal/scenario"
)

var (
	campaignScenario string
	campaignAudit    string
	campaignFormat   string
)

func init() {
	rootCmd.AddCommand(campaignCmd)
	campaignCmd.Flags().StringVar(&campaignScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	campaignCmd.Flags().StringVar(&campaignAudit, "audit", "", "Path to append-only audit log (optional)")
	campaignCmd.Flags().StringVarP(&campaignFormat, "format", "f", "text", "Output format (text|json)")
	campaignCmd.MarkFlagRequired("scenario")
}

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run fault injection scenarios against the engine",
	Long: "Loads scenario YAML files matching a glob pattern, runs each case\n" +
		"through the injection engine as an ordered campaign, and compares\n" +
		"observed outcomes against expectations.\n\n" +
		"Exit code 0 if all cases match, 1 if any diverge.\n" +
		"Use in CI to gate releases on fault tolerance.",
	RunE: runCampaign,
}

func runCampaign(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(campaignScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", campaignScenario)
	}

	var opts []inject.Option
	if campaignAudit != "" {
		log, err := audit.Open(campaignAudit)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer log.Close()
		opts = append(opts, inject.WithAudit(log))
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		inj := inject.New(opts...)
		if err := inj.Initialize(); err != nil {
			return err
		}
		r, err := scenario.LoadAndRun(path, inj)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	switch campaignFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	// Exit 1 if any scenario has failures
	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}

	return nil
}
