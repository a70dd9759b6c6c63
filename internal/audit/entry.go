package audit

// Kind classifies what an audit entry records.
type Kind string

const (
	KindInjection     Kind = "injection"
	KindViolation     Kind = "violation"
	KindEmergencyStop Kind = "emergency_stop"
)

// Entry is one line in the hash-chained JSONL audit trail. All fields
// are flat (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing.
type Entry struct {
	Timestamp   string  `json:"ts"`
	Kind        Kind    `json:"kind"`
	Status      string  `json:"status,omitempty"`
	Constraint  string  `json:"constraint,omitempty"`
	Severity    string  `json:"severity,omitempty"`
	Description string  `json:"description,omitempty"`
	Impact      float64 `json:"impact,omitempty"`
	PrevHash    string  `json:"prev_hash"`
}
