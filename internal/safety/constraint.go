// Package safety continuously evaluates registered safety constraints and
// surfaces violations with bounded response time.
package safety

import (
	"errors"
	"time"
)

// Severity is the totally ordered outcome of one constraint check.
type Severity int

const (
	Safe Severity = iota
	Warning
	Violation
	CriticalViolation
	SystemFailure
)

// String returns the canonical severity label.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "safe"
	case Warning:
		return "warning"
	case Violation:
		return "violation"
	case CriticalViolation:
		return "critical_violation"
	case SystemFailure:
		return "system_failure"
	default:
		return "unknown"
	}
}

// ConstraintType classifies what a safety constraint watches over.
type ConstraintType string

const (
	TimingConstraint        ConstraintType = "timing"
	ResourceConstraint      ConstraintType = "resource"
	SignalConstraint        ConstraintType = "signal"
	CommunicationConstraint ConstraintType = "communication"
	PatientSafety           ConstraintType = "patient_safety"
	SystemIntegrity         ConstraintType = "system_integrity"
)

// CheckFunc evaluates one constraint and reports its severity.
type CheckFunc func() Severity

// ViolationHandler is an optional per-constraint hook invoked with the
// severity that tripped it.
type ViolationHandler func(severity Severity)

// Constraint is a named, periodically evaluated safety predicate.
// Constraints are keyed by name; re-registration overwrites.
type Constraint struct {
	Name             string
	Type             ConstraintType
	Description      string
	IsCritical       bool
	CheckInterval    time.Duration
	ViolationTimeout time.Duration
	Check            CheckFunc
	OnViolation      ViolationHandler

	// Enabled is managed through the monitor; registration enables it.
	Enabled bool
}

// ValidateConstraint reports why a constraint definition is unusable.
func ValidateConstraint(c Constraint) error {
	if c.Name == "" {
		return errors.New("constraint name is empty")
	}
	if c.Description == "" {
		return errors.New("constraint description is empty")
	}
	if c.CheckInterval < time.Millisecond {
		return errors.New("check interval must be at least 1ms")
	}
	if c.ViolationTimeout < time.Millisecond {
		return errors.New("violation timeout must be at least 1ms")
	}
	return nil
}

// ConstraintPriority ranks a constraint for reporting: critical
// constraints first, then by how directly the type touches the patient.
func ConstraintPriority(c Constraint) int {
	priority := 0
	if c.IsCritical {
		priority += 100
	}
	switch c.Type {
	case PatientSafety:
		priority += 50
	case TimingConstraint:
		priority += 30
	case SystemIntegrity:
		priority += 20
	default:
		priority += 10
	}
	return priority
}
