package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/fault"
)

func allowedConfig() fault.InjectionConfig {
	return fault.DefaultConfig(fault.Timing, fault.Target{
		Component: "motor_controller",
		Function:  "set_speed",
	})
}

func TestAllowWhenNothingMatches(t *testing.T) {
	d := Evaluate(allowedConfig(), nil)

	assert.True(t, d.Allowed)
	assert.Equal(t, "all safety checks passed", d.Reason)
}

func TestExcludedFunctionBlocks(t *testing.T) {
	cfg := allowedConfig()
	cfg.Target.Function = "emergency_shutdown"
	cfg.Safety.ExcludedCriticalFunctions = []string{"emergency_shutdown", "watchdog_kick"}

	d := Evaluate(cfg, nil)

	require.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)
	assert.Contains(t, d.Reason, "emergency_shutdown")
}

func TestImpactAboveCeilingBlocks(t *testing.T) {
	cfg := allowedConfig()
	cfg.Safety.MaxSystemImpact = 0.6

	d := Evaluate(cfg, nil)

	require.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "0.60")
}

func TestImpactAtCeilingAllowed(t *testing.T) {
	cfg := allowedConfig()
	cfg.Safety.MaxSystemImpact = MaxAllowedImpact

	d := Evaluate(cfg, nil)

	assert.True(t, d.Allowed)
}

func TestOptOutSkipsPolicyChecksButNotCallbacks(t *testing.T) {
	cfg := allowedConfig()
	cfg.Target.Function = "emergency_shutdown"
	cfg.Safety.ExcludedCriticalFunctions = []string{"emergency_shutdown"}
	cfg.Safety.MaxSystemImpact = 0.9
	cfg.Safety.RespectSafetyConstraints = false

	d := Evaluate(cfg, nil)
	require.True(t, d.Allowed, "policy checks must be skipped on opt-out")

	called := false
	d = Evaluate(cfg, []SafetyCheck{func(fault.InjectionConfig) bool {
		called = true
		return false
	}})
	assert.True(t, called, "callbacks run even on opt-out")
	assert.False(t, d.Allowed)
}

func TestCallbackFalseBlocks(t *testing.T) {
	checks := []SafetyCheck{
		func(fault.InjectionConfig) bool { return true },
		func(fault.InjectionConfig) bool { return false },
	}

	d := Evaluate(allowedConfig(), checks)

	require.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "callback 1")
}

func TestCallbackPanicBlocks(t *testing.T) {
	checks := []SafetyCheck{
		func(fault.InjectionConfig) bool { panic("check exploded") },
	}

	d := Evaluate(allowedConfig(), checks)

	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)
}

func TestBlockedErrorMessage(t *testing.T) {
	err := &BlockedError{Reason: "too risky"}
	assert.Contains(t, err.Error(), "too risky")
}
