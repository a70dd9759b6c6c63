package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faultline",
	Short: "Safety-gated fault injection and continuous safety monitoring",
	Long:  "Injects controlled faults into device controllers under test — timing, data corruption, communication, hardware, resource, power — with every injection screened by a safety gate, while a monitor watches safety constraints and trips an emergency stop on critical violations.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
