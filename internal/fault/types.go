package fault

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that marshals to and from human-readable
// strings ("50ms", "1s") in YAML and JSON.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Type classifies what kind of fault an injection models.
type Type string

const (
	Timing             Type = "timing"
	DataCorruption     Type = "data_corruption"
	Communication      Type = "communication"
	HardwareFailure    Type = "hardware_failure"
	ResourceExhaustion Type = "resource_exhaustion"
	PowerFailure       Type = "power_failure"
)

// InjectionTiming controls when a configured fault fires.
type InjectionTiming string

const (
	Immediate   InjectionTiming = "immediate"
	Delayed     InjectionTiming = "delayed"
	Periodic    InjectionTiming = "periodic"
	Conditional InjectionTiming = "conditional"
)

// Target identifies a component that fault injection may affect.
// IsCriticalPath is advisory: it feeds impact scoring and result
// annotations, it does not by itself block an injection.
type Target struct {
	Component      string   `yaml:"component" json:"component"`
	Function       string   `yaml:"function,omitempty" json:"function,omitempty"`
	Parameters     []string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	AddressStart   uint32   `yaml:"address_start,omitempty" json:"address_start,omitempty"`
	AddressEnd     uint32   `yaml:"address_end,omitempty" json:"address_end,omitempty"`
	IsCriticalPath bool     `yaml:"critical_path,omitempty" json:"critical_path,omitempty"`
}

// CorruptionType selects the data corruption sub-mode.
type CorruptionType string

const (
	BitFlip           CorruptionType = "bit_flip"
	ValueRange        CorruptionType = "value_range"
	PatternCorruption CorruptionType = "pattern_corruption"
	ChecksumViolation CorruptionType = "checksum_violation"
)

// CommFaultType selects the communication fault sub-mode.
type CommFaultType string

const (
	PacketLoss       CommFaultType = "packet_loss"
	PacketDelay      CommFaultType = "packet_delay"
	PacketCorruption CommFaultType = "packet_corruption"
	DuplicatePackets CommFaultType = "duplicate_packets"
	ReorderPackets   CommFaultType = "reorder_packets"
)

// TimingFaultConfig shapes a timing fault: extra delay plus bounded jitter.
type TimingFaultConfig struct {
	DelayInjection          Duration `yaml:"delay_injection,omitempty" json:"delay_injection,omitempty"`
	JitterAmplitude         Duration `yaml:"jitter_amplitude,omitempty" json:"jitter_amplitude,omitempty"`
	DeadlineViolationFactor float64  `yaml:"deadline_violation_factor,omitempty" json:"deadline_violation_factor,omitempty"`
	CauseTimeout            bool     `yaml:"cause_timeout,omitempty" json:"cause_timeout,omitempty"`
}

// DataCorruptionConfig shapes a data corruption fault.
type DataCorruptionConfig struct {
	Type                  CorruptionType `yaml:"type" json:"type"`
	BitPositions          []uint8        `yaml:"bit_positions,omitempty" json:"bit_positions,omitempty"`
	CorruptionProbability float64        `yaml:"corruption_probability" json:"corruption_probability"`
	CorruptionPattern     []byte         `yaml:"corruption_pattern,omitempty" json:"corruption_pattern,omitempty"`
}

// CommFaultConfig shapes a communication fault.
type CommFaultConfig struct {
	Type             CommFaultType `yaml:"type" json:"type"`
	FaultProbability float64       `yaml:"fault_probability" json:"fault_probability"`
	DelayRange       Duration      `yaml:"delay_range,omitempty" json:"delay_range,omitempty"`
	MaxPacketSize    uint32        `yaml:"max_packet_size" json:"max_packet_size"`
}

// SafetyPolicy is the per-injection safety envelope consumed by the gate.
// RespectSafetyConstraints=false disables the exclusion-list and impact
// checks; it is never itself a reason to block.
type SafetyPolicy struct {
	RespectSafetyConstraints  bool     `yaml:"respect_safety_constraints" json:"respect_safety_constraints"`
	ExcludedCriticalFunctions []string `yaml:"excluded_critical_functions,omitempty" json:"excluded_critical_functions,omitempty"`
	MaxSystemImpact           float64  `yaml:"max_system_impact" json:"max_system_impact"`
}

// InjectionConfig is one unit of injectable work.
type InjectionConfig struct {
	Type            Type            `yaml:"fault_type" json:"fault_type"`
	Target          Target          `yaml:"target" json:"target"`
	Timing          InjectionTiming `yaml:"timing" json:"timing"`
	InjectionDelay  Duration        `yaml:"injection_delay,omitempty" json:"injection_delay,omitempty"`
	InjectionPeriod Duration        `yaml:"injection_period,omitempty" json:"injection_period,omitempty"`
	MaxInjections   uint32          `yaml:"max_injections" json:"max_injections"`
	AutoRecovery    bool            `yaml:"auto_recovery" json:"auto_recovery"`
	RecoveryTimeout Duration        `yaml:"recovery_timeout,omitempty" json:"recovery_timeout,omitempty"`

	// Only the sub-config matching Type is meaningful.
	TimingFault    TimingFaultConfig    `yaml:"timing_fault,omitempty" json:"timing_fault,omitempty"`
	DataCorruption DataCorruptionConfig `yaml:"data_corruption,omitempty" json:"data_corruption,omitempty"`
	CommFault      CommFaultConfig      `yaml:"comm_fault,omitempty" json:"comm_fault,omitempty"`

	Safety SafetyPolicy `yaml:"safety" json:"safety"`
}

// DefaultConfig returns an InjectionConfig with the same defaults the
// safety policy assumes: immediate timing, one injection, auto recovery,
// constraints respected, 10% impact ceiling.
func DefaultConfig(t Type, target Target) InjectionConfig {
	return InjectionConfig{
		Type:            t,
		Target:          target,
		Timing:          Immediate,
		InjectionPeriod: Duration(time.Second),
		MaxInjections:   1,
		AutoRecovery:    true,
		RecoveryTimeout: Duration(5 * time.Second),
		Safety: SafetyPolicy{
			RespectSafetyConstraints: true,
			MaxSystemImpact:          0.1,
		},
	}
}

// Status is the outcome class of one injection.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusFailed          Status = "failed"
	StatusBlockedBySafety Status = "blocked_by_safety"
	StatusTargetNotFound  Status = "target_not_found"
	StatusTimeout         Status = "timeout"
)

// Result is the immutable outcome of one injection. Results are appended
// to the engine's history and copied out, never handed out by reference.
type Result struct {
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	InjectedAt  time.Time `json:"injected_at"`
	RecoveredAt time.Time `json:"recovered_at"`

	ObservedEffects  []string `json:"observed_effects,omitempty"`
	SafetyViolations []string `json:"safety_violations,omitempty"`

	AffectedComponents []string `json:"affected_components,omitempty"`
	PropagationPath    []string `json:"propagation_path,omitempty"`
	SystemImpact       float64  `json:"system_impact"`
}
