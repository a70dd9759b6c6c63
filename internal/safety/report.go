package safety

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// GenerateSafetyReport renders a human-readable monitoring summary.
func (m *Monitor) GenerateSafetyReport() string {
	status := m.SafetyStatus()

	var b strings.Builder
	b.WriteString("=== Safety Monitoring Report ===\n")
	fmt.Fprintf(&b, "Monitoring Active: %v\n", status.MonitoringActive)
	fmt.Fprintf(&b, "Active Constraints: %d\n", status.ActiveConstraints)
	fmt.Fprintf(&b, "Total Violations: %d\n", status.TotalViolations)
	fmt.Fprintf(&b, "Critical Violations: %d\n", status.CriticalViolations)
	fmt.Fprintf(&b, "Average Check Duration: %s\n", status.AvgCheckDuration)
	fmt.Fprintf(&b, "Max Check Duration: %s\n", status.MaxCheckDuration)

	if len(status.RecentViolations) > 0 {
		b.WriteString("\nRecent Violations:\n")
		for _, v := range status.RecentViolations {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", v.Severity, v.ConstraintName, v.Description)
		}
	}

	return b.String()
}

// DefaultConstraints returns a baseline constraint set for a controller
// under verification: process resource bounds plus placeholder
// patient-safety checks the integrator is expected to replace.
func DefaultConstraints() []Constraint {
	return []Constraint{
		{
			Name:             "goroutine_ceiling",
			Type:             ResourceConstraint,
			Description:      "runtime goroutine count stays under control",
			CheckInterval:    100 * time.Millisecond,
			ViolationTimeout: time.Second,
			Check: func() Severity {
				if runtime.NumGoroutine() > 10000 {
					return Violation
				}
				return Safe
			},
		},
		{
			Name:             "real_time_response",
			Type:             TimingConstraint,
			Description:      "real-time response constraint for controller commands",
			IsCritical:       true,
			CheckInterval:    10 * time.Millisecond,
			ViolationTimeout: 100 * time.Millisecond,
		},
		{
			Name:             "signal_amplitude_limit",
			Type:             PatientSafety,
			Description:      "signal amplitude within safe limits",
			IsCritical:       true,
			CheckInterval:    50 * time.Millisecond,
			ViolationTimeout: 200 * time.Millisecond,
		},
	}
}
