package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/faultline/faultline/internal/fault"
	"github.com/faultline/faultline/internal/gate"
)

var checkFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <config.yaml>",
	Short: "Dry-run an injection config through the safety gate",
	Long: "Loads a single injection config YAML, validates it, and evaluates\n" +
		"it against the safety gate without injecting anything.\n\n" +
		"Exit code 0 if the gate would allow the injection, 1 if it would block.",
	Args: cobra.ExactArgs(1),
	RunE: runGateCheck,
}

func runGateCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fault.InjectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := fault.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	decision := gate.Evaluate(cfg, nil)

	switch checkFormat {
	case "json":
		out, _ := json.MarshalIndent(map[string]any{
			"allowed": decision.Allowed,
			"reason":  decision.Reason,
		}, "", "  ")
		fmt.Println(string(out))
	default:
		if decision.Allowed {
			fmt.Printf("ALLOW: %s\n", decision.Reason)
		} else {
			fmt.Printf("BLOCK: %s\n", decision.Reason)
		}
	}

	if !decision.Allowed {
		os.Exit(1)
	}
	return nil
}
