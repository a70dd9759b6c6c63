// Package config loads the verifier configuration consumed by the
// injection engine and the safety monitor.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/faultline/faultline/internal/fault"
)

// VerifierConfig holds the device-under-test parameters supplied once at
// initialization.
type VerifierConfig struct {
	DeviceName string `yaml:"device_name"`

	EnableFaultInjection    bool `yaml:"enable_fault_injection"`
	EnableTimingAnalysis    bool `yaml:"enable_timing_analysis"`
	EnableRegressionTesting bool `yaml:"enable_regression_testing"`

	Timeout fault.Duration `yaml:"timeout"`

	// Safety-critical parameters.
	EnforceSafetyConstraints bool     `yaml:"enforce_safety_constraints"`
	MaxInjectionRate         float64  `yaml:"max_injection_rate"`
	CriticalFunctions        []string `yaml:"critical_functions"`

	// Monitor pacing; each tick scans every registered constraint.
	CheckInterval fault.Duration `yaml:"check_interval"`

	// Optional append-only audit trail. Empty disables it.
	AuditLogPath string `yaml:"audit_log_path"`
}

// DefaultConfig returns the built-in verifier defaults.
func DefaultConfig() VerifierConfig {
	return VerifierConfig{
		DeviceName:               "unnamed-device",
		EnableFaultInjection:     true,
		EnableTimingAnalysis:     true,
		EnableRegressionTesting:  true,
		Timeout:                  fault.Duration(30 * time.Second),
		EnforceSafetyConstraints: true,
		MaxInjectionRate:         0.1,
		CheckInterval:            fault.Duration(100 * time.Millisecond),
	}
}

// Load reads a verifier config from a YAML file. An empty path or a
// missing file falls back to defaults.
func Load(path string) (VerifierConfig, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configs the engine and monitor cannot run with.
func (c VerifierConfig) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name is empty")
	}
	if c.MaxInjectionRate < 0 || c.MaxInjectionRate > 1 {
		return fmt.Errorf("max_injection_rate %.2f outside [0,1]", c.MaxInjectionRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CheckInterval.Std() < time.Millisecond {
		return fmt.Errorf("check_interval must be at least 1ms")
	}
	return nil
}
