package safety

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckScenarioEmptyIsSystemFailure(t *testing.T) {
	m := NewMonitor(WithLogger(slog.New(slog.DiscardHandler)))
	assert.Equal(t, SystemFailure, m.CheckScenario(""))
}

func TestCheckScenarioDangerousKeywords(t *testing.T) {
	m := NewMonitor(WithLogger(slog.New(slog.DiscardHandler)))

	for _, content := range []string{
		"step 3: trigger emergency_stop and observe recovery",
		"inject critical_fault into the pump controller",
		"simulate patient_disconnect mid-infusion",
		"cut power: power_failure on main supply",
	} {
		assert.Equal(t, Warning, m.CheckScenario(content), content)
	}
}

func TestCheckScenarioSafeContent(t *testing.T) {
	m := NewMonitor(WithLogger(slog.New(slog.DiscardHandler)))
	assert.Equal(t, Safe, m.CheckScenario("ramp motor speed from 0 to 50% and verify telemetry"))
}

func TestGenerateSafetyReport(t *testing.T) {
	m := NewMonitor(WithLogger(slog.New(slog.DiscardHandler)))

	report := m.GenerateSafetyReport()
	assert.Contains(t, report, "=== Safety Monitoring Report ===")
	assert.Contains(t, report, "Total Violations: 0")
}

func TestDefaultConstraintsRegister(t *testing.T) {
	m := NewMonitor(WithLogger(slog.New(slog.DiscardHandler)))

	for _, c := range DefaultConstraints() {
		assert.NoError(t, m.RegisterConstraint(c))
	}

	// Placeholder checks report Safe until the integrator wires real ones.
	assert.Equal(t, Safe, m.CheckSystemSafety())
}
