package scenario

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/fault"
	"github.com/faultline/faultline/internal/inject"
)

func newRunnerEngine(t *testing.T) inject.Injector {
	t.Helper()
	inj := inject.New(inject.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, inj.Initialize())
	return inj
}

func testScenario() *Scenario {
	pass := fault.DefaultConfig(fault.Timing, fault.Target{Component: "infusion_pump"})
	pass.InjectionPeriod = 0

	blocked := fault.DefaultConfig(fault.Timing, fault.Target{
		Component: "infusion_pump",
		Function:  "emergency_shutdown",
	})
	blocked.InjectionPeriod = 0
	blocked.Safety.ExcludedCriticalFunctions = []string{"emergency_shutdown"}

	missing := fault.DefaultConfig(fault.DataCorruption, fault.Target{Component: "ghost"})
	missing.InjectionPeriod = 0

	return &Scenario{
		Name:    "pump verification",
		Timeout: fault.Duration(10 * time.Second),
		Targets: map[string]fault.Target{
			"infusion_pump": {Component: "infusion_pump"},
		},
		Cases: []Case{
			{Name: "baseline timing", Inject: pass, Expect: "success"},
			{Name: "gate holds", Inject: blocked, Expect: "blocked_by_safety"},
			{Name: "unknown target", Inject: missing, Expect: "target_not_found"},
		},
	}
}

func TestRunMatchesExpectations(t *testing.T) {
	inj := newRunnerEngine(t)

	result, err := Run(testScenario(), inj)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
	assert.Zero(t, result.Failed)

	require.Len(t, result.Cases, 3)
	assert.Equal(t, "success", result.Cases[0].Actual)
	assert.Equal(t, "blocked_by_safety", result.Cases[1].Actual)
	assert.Equal(t, "target_not_found", result.Cases[2].Actual)
}

func TestRunReportsMismatch(t *testing.T) {
	inj := newRunnerEngine(t)

	s := testScenario()
	s.Cases[0].Expect = "timeout"

	result, err := Run(s, inj)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Passed)
	assert.False(t, result.Cases[0].Passed)
	assert.Equal(t, "timeout", result.Cases[0].Expected)
	assert.Equal(t, "success", result.Cases[0].Actual)
}

func TestRunRejectsEmptyScenario(t *testing.T) {
	inj := newRunnerEngine(t)
	_, err := Run(&Scenario{Name: "empty"}, inj)
	assert.Error(t, err)
}

func TestRunExpectationsAreCaseInsensitive(t *testing.T) {
	inj := newRunnerEngine(t)

	s := testScenario()
	s.Cases = s.Cases[:1]
	s.Cases[0].Expect = "SUCCESS"

	result, err := Run(s, inj)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
}

func TestLoadAndRunFromYAML(t *testing.T) {
	content := `
name: yaml smoke
timeout: 10s
targets:
  infusion_pump:
    component: infusion_pump
cases:
  - name: timing ok
    expect: success
    inject:
      fault_type: timing
      target:
        component: infusion_pump
      timing: immediate
      max_injections: 1
      safety:
        respect_safety_constraints: true
        max_system_impact: 0.1
  - name: impact too high
    expect: blocked_by_safety
    inject:
      fault_type: hardware_failure
      target:
        component: infusion_pump
      timing: immediate
      max_injections: 1
      safety:
        respect_safety_constraints: true
        max_system_impact: 0.9
`
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	inj := newRunnerEngine(t)
	result, err := LoadAndRun(path, inj)
	require.NoError(t, err)

	assert.Equal(t, path, result.File)
	assert.Equal(t, 2, result.Passed)
	assert.Zero(t, result.Failed)
}

func TestTargetNameFillsComponent(t *testing.T) {
	inj := newRunnerEngine(t)

	cfg := fault.DefaultConfig(fault.Timing, fault.Target{Component: "pump"})
	cfg.InjectionPeriod = 0

	s := &Scenario{
		Name:    "implicit component",
		Timeout: fault.Duration(10 * time.Second),
		Targets: map[string]fault.Target{"pump": {}},
		Cases:   []Case{{Name: "ok", Inject: cfg, Expect: "success"}},
	}

	result, err := Run(s, inj)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFormatText(t *testing.T) {
	results := []*RunResult{
		{
			Name: "good", Total: 2, Passed: 2,
			Cases: []CaseResult{{Index: 1, Passed: true}, {Index: 2, Passed: true}},
		},
		{
			Name: "bad", Total: 1, Failed: 1,
			Cases: []CaseResult{{
				Index: 1, FaultType: "timing", Component: "pump",
				Expected: "success", Actual: "blocked_by_safety",
			}},
		},
	}

	out := FormatText(results)
	assert.Contains(t, out, "PASS  good (2/2)")
	assert.Contains(t, out, "FAIL  bad (0/1)")
	assert.Contains(t, out, "expected success, got blocked_by_safety")
	assert.Contains(t, out, "2 of 3 cases passed.")
	assert.Contains(t, out, "1 of 2 scenarios failed.")
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON([]*RunResult{{Name: "s", Total: 1, Passed: 1}})
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "s"`)
}
