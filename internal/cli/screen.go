package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline/internal/safety"
)

func init() {
	rootCmd.AddCommand(screenCmd)
}

var screenCmd = &cobra.Command{
	Use:   "screen <scenario-file>",
	Short: "Screen a scenario description for dangerous content",
	Long: "Reads a scenario description file and flags dangerous keywords\n" +
		"(emergency stops, critical faults, patient disconnects, power failures)\n" +
		"so operators review them before a campaign touches real hardware.\n\n" +
		"Exit code 0 if safe, 1 if flagged or unreadable.",
	Args: cobra.ExactArgs(1),
	RunE: runScreen,
}

func runScreen(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	mon := safety.NewMonitor()
	severity := mon.CheckScenario(string(data))
	fmt.Printf("%s: %s\n", args[0], severity)

	if severity > safety.Safe {
		os.Exit(1)
	}
	return nil
}
