package inject

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/fault"
)

func newTestEngine(t *testing.T) Injector {
	t.Helper()
	inj := New(WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, inj.Initialize())
	return inj
}

func pumpTarget() fault.Target {
	return fault.Target{Component: "infusion_pump", Function: "set_rate"}
}

func TestInjectBeforeInitializeFails(t *testing.T) {
	inj := New(WithLogger(slog.New(slog.DiscardHandler)))

	res := inj.InjectTimingFault(fault.DefaultConfig(fault.Timing, pumpTarget()))

	assert.Equal(t, fault.StatusFailed, res.Status)
	assert.Empty(t, inj.Statistics(), "pre-init attempts are not history")
}

func TestConfigureTargetBeforeInitializeFails(t *testing.T) {
	inj := New(WithLogger(slog.New(slog.DiscardHandler)))
	assert.ErrorIs(t, inj.ConfigureTarget("pump", pumpTarget()), ErrNotInitialized)
}

func TestTimingFaultDelayObserved(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	cfg := fault.DefaultConfig(fault.Timing, pumpTarget())
	cfg.TimingFault.DelayInjection = fault.Duration(5 * time.Millisecond)

	start := time.Now()
	res := inj.InjectTimingFault(cfg)

	require.Equal(t, fault.StatusSuccess, res.Status)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	require.Len(t, res.ObservedEffects, 1)
	assert.Contains(t, res.ObservedEffects[0], "timing delay")
	assert.Contains(t, res.ObservedEffects[0], "infusion_pump")
	assert.InDelta(t, 0.2, res.SystemImpact, 1e-9)
	assert.False(t, res.RecoveredAt.Before(res.InjectedAt))
}

func TestTimingFaultForcedTimeout(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	cfg := fault.DefaultConfig(fault.Timing, pumpTarget())
	cfg.TimingFault.CauseTimeout = true

	res := inj.InjectTimingFault(cfg)

	assert.Equal(t, fault.StatusTimeout, res.Status)
	assert.Contains(t, res.ObservedEffects, "deadline timeout forced")
}

func TestUnknownTargetReported(t *testing.T) {
	inj := newTestEngine(t)

	res := inj.InjectDataCorruption(fault.DefaultConfig(fault.DataCorruption, pumpTarget()))

	assert.Equal(t, fault.StatusTargetNotFound, res.Status)
	assert.Contains(t, res.Description, "infusion_pump")
}

func TestExcludedFunctionBlockedAndRecorded(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	cfg := fault.DefaultConfig(fault.Timing, pumpTarget())
	cfg.Safety.ExcludedCriticalFunctions = []string{"set_rate"}

	res := inj.InjectTimingFault(cfg)

	require.Equal(t, fault.StatusBlockedBySafety, res.Status)
	assert.NotEmpty(t, res.Description)

	stats := inj.Statistics()
	require.Len(t, stats, 1)
	assert.Equal(t, fault.StatusBlockedBySafety, stats[0].Status)
}

func TestRegisteredSafetyCheckVetoes(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))
	inj.RegisterSafetyCheck(func(cfg fault.InjectionConfig) bool {
		return cfg.Type != fault.HardwareFailure
	})

	res := inj.InjectHardwareFailure(fault.DefaultConfig(fault.HardwareFailure, pumpTarget()))
	assert.Equal(t, fault.StatusBlockedBySafety, res.Status)

	res = inj.InjectTimingFault(fault.DefaultConfig(fault.Timing, pumpTarget()))
	assert.Equal(t, fault.StatusSuccess, res.Status)
}

func TestCriticalPathTargetIsNotBlocked(t *testing.T) {
	inj := newTestEngine(t)
	critical := fault.Target{Component: "defibrillator", IsCriticalPath: true}
	require.NoError(t, inj.ConfigureTarget("defibrillator", critical))

	res := inj.InjectHardwareFailure(fault.DefaultConfig(fault.HardwareFailure, critical))

	require.Equal(t, fault.StatusSuccess, res.Status)
	assert.Contains(t, res.SafetyViolations, "critical hardware component failure")
	// base 0.1 + 1 effect + 1 violation
	assert.InDelta(t, 0.5, res.SystemImpact, 1e-9)
}

// Power failures have no direct entry point; they run inside campaigns
// with the configured type preserved.
func TestPowerFailureAnnotations(t *testing.T) {
	inj := newTestEngine(t)
	critical := fault.Target{Component: "main_supply", IsCriticalPath: true}
	require.NoError(t, inj.ConfigureTarget("main_supply", critical))

	cfg := fault.DefaultConfig(fault.PowerFailure, critical)
	cfg.InjectionPeriod = 0
	require.NoError(t, inj.StartCampaign([]fault.InjectionConfig{cfg}))
	require.NoError(t, inj.StopCampaign())

	stats := inj.Statistics()
	require.Len(t, stats, 1)
	got := stats[0]
	require.Equal(t, fault.StatusSuccess, got.Status)
	assert.Contains(t, got.SafetyViolations, "power supply interruption")
	assert.Contains(t, got.SafetyViolations, "critical path power failure")
	assert.Contains(t, got.AffectedComponents, "main_supply")
}

func TestEmergencyStopBlocksFurtherInjections(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	require.True(t, inj.EmergencyStop())
	require.True(t, inj.EmergencyStopped())

	res := inj.InjectTimingFault(fault.DefaultConfig(fault.Timing, pumpTarget()))
	assert.Equal(t, fault.StatusBlockedBySafety, res.Status)
	assert.Contains(t, res.Description, "emergency stop")

	stats := inj.Statistics()
	require.Len(t, stats, 1, "blocked attempt during emergency is history")
}

func TestEmergencyStopIdempotent(t *testing.T) {
	inj := newTestEngine(t)

	assert.True(t, inj.EmergencyStop())
	assert.True(t, inj.EmergencyStop())
	assert.True(t, inj.EmergencyStopped())
}

func TestResetEmergency(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	assert.Error(t, inj.ResetEmergency(), "reset without an active emergency fails")

	require.True(t, inj.EmergencyStop())
	require.NoError(t, inj.ResetEmergency())
	assert.False(t, inj.EmergencyStopped())

	res := inj.InjectTimingFault(fault.DefaultConfig(fault.Timing, pumpTarget()))
	assert.Equal(t, fault.StatusSuccess, res.Status)
}

func TestStatisticsReturnsCopy(t *testing.T) {
	inj := newTestEngine(t)
	require.NoError(t, inj.ConfigureTarget("infusion_pump", pumpTarget()))

	inj.InjectTimingFault(fault.DefaultConfig(fault.Timing, pumpTarget()))

	first := inj.Statistics()
	require.Len(t, first, 1)
	first[0].Status = fault.StatusFailed

	second := inj.Statistics()
	assert.Equal(t, fault.StatusSuccess, second[0].Status)
}
