package safety

import (
	"time"

	"github.com/google/uuid"
)

// ViolationRecord is a recorded instance of a constraint failing its check.
type ViolationRecord struct {
	ID                    string         `json:"id"`
	Timestamp             time.Time      `json:"timestamp"`
	ConstraintName        string         `json:"constraint_name"`
	ConstraintType        ConstraintType `json:"constraint_type"`
	Severity              Severity       `json:"severity"`
	Description           string         `json:"description"`
	Context               string         `json:"context,omitempty"`
	IsCritical            bool           `json:"is_critical"`
	RequiresEmergencyStop bool           `json:"requires_emergency_stop"`
	AffectedComponents    []string       `json:"affected_components,omitempty"`
	MitigationAction      string         `json:"mitigation_action,omitempty"`
}

// newViolation builds a violation record for a failed constraint check.
func newViolation(c Constraint, severity Severity) ViolationRecord {
	return ViolationRecord{
		ID:                    uuid.NewString(),
		Timestamp:             time.Now(),
		ConstraintName:        c.Name,
		ConstraintType:        c.Type,
		Severity:              severity,
		Description:           "constraint violation detected: " + c.Description,
		IsCritical:            c.IsCritical,
		RequiresEmergencyStop: severity == CriticalViolation,
	}
}

// violationRing is a bounded FIFO history; inserting past capacity
// evicts the oldest entry.
type violationRing struct {
	entries  []ViolationRecord
	capacity int
}

func newViolationRing(capacity int) *violationRing {
	return &violationRing{capacity: capacity}
}

func (r *violationRing) add(v ViolationRecord) {
	if len(r.entries) >= r.capacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, v)
}

// recent returns up to n of the newest entries, oldest first.
func (r *violationRing) recent(n int) []ViolationRecord {
	if n > len(r.entries) {
		n = len(r.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]ViolationRecord, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

func (r *violationRing) len() int {
	return len(r.entries)
}

func (r *violationRing) clear() {
	r.entries = nil
}

// countCritical counts entries flagged critical.
func (r *violationRing) countCritical() int {
	count := 0
	for _, v := range r.entries {
		if v.IsCritical {
			count++
		}
	}
	return count
}
