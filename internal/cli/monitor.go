package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline/internal/audit"
	"github.com/faultline/faultline/internal/config"
	"github.com/faultline/faultline/internal/safety"
)

var (
	monitorConfig   string
	monitorDuration time.Duration
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorConfig, "config", "c", "", "Path to verifier config YAML (defaults used if empty)")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "Stop after this long (0 = run until interrupted)")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the continuous safety monitor",
	Long: "Starts the safety monitor with the built-in constraint set, watches\n" +
		"the config file for changes, and prints a safety report on shutdown.\n\n" +
		"Runs until interrupted (SIGINT/SIGTERM) or until --duration elapses.\n" +
		"Exit code 1 if an emergency stop fired during the run.",
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(monitorConfig)
	if err != nil {
		return err
	}

	var opts []safety.Option
	if cfg.AuditLogPath != "" {
		log, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer log.Close()
		opts = append(opts, safety.WithAudit(log))
	}

	mon := safety.NewMonitor(opts...)
	if err := mon.Initialize(cfg); err != nil {
		return err
	}
	for _, c := range safety.DefaultConstraints() {
		if err := mon.RegisterConstraint(c); err != nil {
			return err
		}
	}

	if err := mon.StartMonitoring(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Re-arm constraint intervals when the config file changes on disk.
	if monitorConfig != "" {
		reloader, err := config.NewReloader(monitorConfig, func(next config.VerifierConfig) {
			for _, c := range safety.DefaultConstraints() {
				mon.UpdateConstraintInterval(c.Name, next.CheckInterval.Std())
			}
		})
		if err == nil {
			go reloader.Run(ctx)
		}
	}

	if monitorDuration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(monitorDuration):
		}
	} else {
		<-ctx.Done()
	}

	if err := mon.StopMonitoring(); err != nil {
		return err
	}

	fmt.Print(mon.GenerateSafetyReport())

	if mon.EmergencyActive() {
		os.Exit(1)
	}
	return nil
}
