package safety

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faultline/faultline/internal/audit"
	"github.com/faultline/faultline/internal/config"
)

// State is the monitoring loop lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

var (
	// ErrAlreadyMonitoring is returned by Initialize and StartMonitoring
	// while the loop is active.
	ErrAlreadyMonitoring = errors.New("monitoring is active")
	// ErrNotMonitoring is returned by StopMonitoring when idle.
	ErrNotMonitoring = errors.New("monitoring is not active")
	// ErrNoConstraints is returned when starting with nothing registered.
	ErrNoConstraints = errors.New("no safety constraints registered")
	// ErrNoEmergency is returned by ResetAfterEmergency outside an emergency.
	ErrNoEmergency = errors.New("no emergency stop active")
)

// maxRecentViolations bounds the violation history ring.
const maxRecentViolations = 100

// ViolationCallback observes every recorded violation.
type ViolationCallback func(v ViolationRecord)

// EmergencyStopCallback is invoked when a critical violation demands an
// emergency stop. Monitoring is level-triggered: a constraint that keeps
// failing re-fires the callback every tick, so callbacks must be
// idempotent.
type EmergencyStopCallback func() bool

// Status is a consistent snapshot of the safety system.
type Status struct {
	MonitoringActive   bool              `json:"monitoring_active"`
	State              State             `json:"state"`
	LastCheckTime      time.Time         `json:"last_check_time"`
	ActiveConstraints  int               `json:"active_constraints"`
	TotalViolations    uint64            `json:"total_violations"`
	CriticalViolations int               `json:"critical_violations"`
	RecentViolations   []ViolationRecord `json:"recent_violations,omitempty"`
	MaxCheckDuration   time.Duration     `json:"max_check_duration"`
	AvgCheckDuration   time.Duration     `json:"avg_check_duration"`
}

// monitorRun is the control state of one monitoring goroutine.
type monitorRun struct {
	stop chan struct{}
	done chan struct{}
}

// Monitor owns the constraint table and violation history and runs the
// periodic check loop on its own goroutine.
type Monitor struct {
	logger   *slog.Logger
	auditLog *audit.Log

	cfg      config.VerifierConfig
	interval time.Duration

	monitoring atomic.Bool
	emergency  atomic.Bool
	state      atomic.Int32

	totalViolations atomic.Uint64

	constraintsMu sync.Mutex
	constraints   map[string]*Constraint
	order         []string

	violationsMu sync.Mutex
	violations   *violationRing
	acks         map[string]string

	callbacksMu  sync.Mutex
	violationCBs []ViolationCallback
	estopCBs     []EmergencyStopCallback

	runMu sync.Mutex
	run   *monitorRun

	statsMu       sync.Mutex
	lastCheck     time.Time
	totalChecks   uint64
	totalCheckDur time.Duration
	maxCheckDur   time.Duration
}

// Option configures the monitor at construction time.
type Option func(*Monitor)

// WithLogger overrides the monitor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithAudit attaches an audit trail; every violation is appended.
func WithAudit(log *audit.Log) Option {
	return func(m *Monitor) {
		m.auditLog = log
	}
}

// NewMonitor creates a safety monitor with default configuration.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		logger:      slog.Default(),
		cfg:         config.DefaultConfig(),
		interval:    config.DefaultConfig().CheckInterval.Std(),
		constraints: make(map[string]*Constraint),
		violations:  newViolationRing(maxRecentViolations),
		acks:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize applies the verifier config and resets violation bookkeeping.
// Rejected while monitoring is active.
func (m *Monitor) Initialize(cfg config.VerifierConfig) error {
	if m.monitoring.Load() {
		return ErrAlreadyMonitoring
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.cfg = cfg
	m.interval = cfg.CheckInterval.Std()

	m.totalViolations.Store(0)
	m.violationsMu.Lock()
	m.violations.clear()
	m.acks = make(map[string]string)
	m.violationsMu.Unlock()

	m.logger.Info("safety monitor initialized", "device", cfg.DeviceName)
	return nil
}

// RegisterConstraint validates and stores a constraint. Re-registration
// under the same name overwrites in place, keeping its original position
// in the scan order.
func (m *Monitor) RegisterConstraint(c Constraint) error {
	if err := ValidateConstraint(c); err != nil {
		m.logger.Error("invalid safety constraint", "name", c.Name, "error", err)
		return err
	}
	c.Enabled = true

	m.constraintsMu.Lock()
	if _, exists := m.constraints[c.Name]; !exists {
		m.order = append(m.order, c.Name)
	}
	m.constraints[c.Name] = &c
	m.constraintsMu.Unlock()

	m.logger.Info("registered safety constraint", "name", c.Name, "type", c.Type, "critical", c.IsCritical)
	return nil
}

// StartMonitoring resets emergency state and spawns the monitoring loop.
func (m *Monitor) StartMonitoring() error {
	if m.monitoring.Load() {
		return ErrAlreadyMonitoring
	}

	m.constraintsMu.Lock()
	registered := len(m.constraints)
	m.constraintsMu.Unlock()
	if registered == 0 {
		return ErrNoConstraints
	}

	m.totalViolations.Store(0)
	m.emergency.Store(false)

	run := &monitorRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	m.runMu.Lock()
	m.run = run
	m.runMu.Unlock()

	m.monitoring.Store(true)
	m.state.Store(int32(StateRunning))
	go m.monitorLoop(run)

	m.logger.Info("safety monitoring started", "constraints", registered, "interval", m.interval)
	return nil
}

// StopMonitoring signals the loop and joins it before returning.
func (m *Monitor) StopMonitoring() error {
	if !m.monitoring.Load() {
		return ErrNotMonitoring
	}

	m.state.Store(int32(StateStopping))

	m.runMu.Lock()
	run := m.run
	m.run = nil
	m.runMu.Unlock()

	if run != nil {
		close(run.stop)
		<-run.done
	}

	m.monitoring.Store(false)
	m.state.Store(int32(StateStopped))
	m.logger.Info("safety monitoring stopped", "total_violations", m.totalViolations.Load())
	return nil
}

// MonitoringActive reports whether the loop is running.
func (m *Monitor) MonitoringActive() bool {
	return m.monitoring.Load()
}

// LoopState returns the monitoring loop lifecycle state.
func (m *Monitor) LoopState() State {
	return State(m.state.Load())
}

// monitorLoop is the periodic check loop. Tick pacing is wall-clock
// based: the sleep is the check interval minus check latency, so latency
// does not accumulate as drift.
func (m *Monitor) monitorLoop(run *monitorRun) {
	defer close(run.done)
	m.logger.Info("safety monitoring loop started")

	for {
		select {
		case <-run.stop:
			m.logger.Info("safety monitoring loop ended")
			return
		default:
		}

		start := time.Now()
		m.scanOnce()
		elapsed := time.Since(start)
		m.recordCheckStats(elapsed)

		sleep := m.interval - elapsed
		if sleep > 0 {
			select {
			case <-run.stop:
				m.logger.Info("safety monitoring loop ended")
				return
			case <-time.After(sleep):
			}
		}
	}
}

// scanOnce evaluates every enabled constraint in registration order and
// records violations. Level-triggered: a still-failing constraint is
// re-recorded every scan.
func (m *Monitor) scanOnce() {
	for _, c := range m.snapshotConstraints() {
		severity := m.runCheck(c)
		if severity < Violation {
			continue
		}

		v := newViolation(c, severity)
		m.recordViolation(c, v)

		if severity == CriticalViolation {
			m.emergency.Store(true)
			m.fireEmergencyStop()
		}
	}
}

// CheckSystemSafety performs one synchronous scan across all constraints
// and reports the worst severity seen. The scan short-circuits on the
// first critical violation so worst-case latency stays bounded no matter
// how many constraints are registered.
func (m *Monitor) CheckSystemSafety() Severity {
	start := time.Now()
	worst := Safe

	for _, c := range m.snapshotConstraints() {
		severity := m.runCheck(c)
		if severity > worst {
			worst = severity
		}
		if severity == CriticalViolation {
			break
		}
	}

	m.recordCheckStats(time.Since(start))
	return worst
}

// CheckConstraint evaluates one constraint by name. Unknown names report
// SystemFailure.
func (m *Monitor) CheckConstraint(name string) Severity {
	m.constraintsMu.Lock()
	c, ok := m.constraints[name]
	var snapshot Constraint
	if ok {
		snapshot = *c
	}
	m.constraintsMu.Unlock()

	if !ok {
		m.logger.Error("unknown safety constraint", "name", name)
		return SystemFailure
	}
	return m.runCheck(snapshot)
}

// IsSystemSafe reports whether a full scan stays at or below Warning.
func (m *Monitor) IsSystemSafe() bool {
	return m.CheckSystemSafety() <= Warning
}

// RegisterViolationCallback appends a violation observer. Failures in the
// callback are caught and logged, never rethrown.
func (m *Monitor) RegisterViolationCallback(cb ViolationCallback) {
	if cb == nil {
		return
	}
	m.callbacksMu.Lock()
	m.violationCBs = append(m.violationCBs, cb)
	m.callbacksMu.Unlock()
}

// RegisterEmergencyStop appends an emergency stop subscriber. Callbacks
// must be idempotent: critical violations re-fire every tick for as long
// as the constraint keeps failing.
func (m *Monitor) RegisterEmergencyStop(cb EmergencyStopCallback) {
	if cb == nil {
		return
	}
	m.callbacksMu.Lock()
	m.estopCBs = append(m.estopCBs, cb)
	m.callbacksMu.Unlock()
}

// EmergencyStop sets the emergency flag and invokes the registered
// emergency stop callbacks. Idempotent, never panics; reports false only
// if a callback refused.
func (m *Monitor) EmergencyStop() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	m.emergency.Store(true)
	if m.logger != nil {
		m.logger.Error("emergency stop activated")
	}
	if m.auditLog != nil {
		m.auditLog.Record(audit.Entry{
			Timestamp:   time.Now().UTC().Format(audit.TimestampFormat),
			Kind:        audit.KindEmergencyStop,
			Description: "emergency stop activated",
		})
	}

	return m.fireEmergencyStop()
}

// EmergencyActive reports whether the emergency flag is set. Once set it
// is cleared only by ResetAfterEmergency.
func (m *Monitor) EmergencyActive() bool {
	return m.emergency.Load()
}

// ResetAfterEmergency clears the emergency flag. Fails when no emergency
// stop is active.
func (m *Monitor) ResetAfterEmergency() error {
	if !m.emergency.Swap(false) {
		return ErrNoEmergency
	}
	m.logger.Warn("emergency stop reset, monitoring re-armed")
	return nil
}

// AcknowledgeViolation records an audit note against a violation. The
// violation stays in history.
func (m *Monitor) AcknowledgeViolation(id, reason string) error {
	m.violationsMu.Lock()
	defer m.violationsMu.Unlock()

	for _, v := range m.violations.entries {
		if v.ID == id {
			m.acks[id] = reason
			m.logger.Info("violation acknowledged", "id", id, "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("unknown violation id %q", id)
}

// Acknowledgment returns the audit note recorded for a violation, if any.
func (m *Monitor) Acknowledgment(id string) (string, bool) {
	m.violationsMu.Lock()
	defer m.violationsMu.Unlock()
	reason, ok := m.acks[id]
	return reason, ok
}

// RecentViolations returns up to n of the newest violations, oldest
// first. The history is copied out, never handed out by reference.
func (m *Monitor) RecentViolations(n int) []ViolationRecord {
	m.violationsMu.Lock()
	defer m.violationsMu.Unlock()
	return m.violations.recent(n)
}

// TotalViolations returns the monotonically increasing violation count.
func (m *Monitor) TotalViolations() uint64 {
	return m.totalViolations.Load()
}

// SafetyStatus returns a consistent snapshot; the constraint table and
// violation history are locked together to avoid torn reads.
func (m *Monitor) SafetyStatus() Status {
	m.constraintsMu.Lock()
	defer m.constraintsMu.Unlock()
	m.violationsMu.Lock()
	defer m.violationsMu.Unlock()

	status := Status{
		MonitoringActive:   m.monitoring.Load(),
		State:              State(m.state.Load()),
		ActiveConstraints:  len(m.constraints),
		TotalViolations:    m.totalViolations.Load(),
		CriticalViolations: m.violations.countCritical(),
		RecentViolations:   m.violations.recent(10),
	}

	m.statsMu.Lock()
	status.LastCheckTime = m.lastCheck
	status.MaxCheckDuration = m.maxCheckDur
	if m.totalChecks > 0 {
		status.AvgCheckDuration = m.totalCheckDur / time.Duration(m.totalChecks)
	}
	m.statsMu.Unlock()

	return status
}

// SetConstraintEnabled includes or excludes a constraint from scans
// without unregistering it.
func (m *Monitor) SetConstraintEnabled(name string, enabled bool) error {
	m.constraintsMu.Lock()
	defer m.constraintsMu.Unlock()

	c, ok := m.constraints[name]
	if !ok {
		return fmt.Errorf("unknown constraint %q", name)
	}
	c.Enabled = enabled
	m.logger.Info("constraint toggled", "name", name, "enabled", enabled)
	return nil
}

// UpdateConstraintInterval changes a constraint's check interval within
// the accepted 10ms–10s range.
func (m *Monitor) UpdateConstraintInterval(name string, interval time.Duration) error {
	if interval < 10*time.Millisecond || interval > 10*time.Second {
		return fmt.Errorf("interval %s outside accepted range [10ms, 10s]", interval)
	}

	m.constraintsMu.Lock()
	defer m.constraintsMu.Unlock()

	c, ok := m.constraints[name]
	if !ok {
		return fmt.Errorf("unknown constraint %q", name)
	}
	c.CheckInterval = interval
	m.logger.Info("constraint interval updated", "name", name, "interval", interval)
	return nil
}

// snapshotConstraints copies the enabled constraints in registration
// order so checks run without holding the table lock.
func (m *Monitor) snapshotConstraints() []Constraint {
	m.constraintsMu.Lock()
	defer m.constraintsMu.Unlock()

	out := make([]Constraint, 0, len(m.order))
	for _, name := range m.order {
		c, ok := m.constraints[name]
		if !ok || !c.Enabled {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// runCheck evaluates one constraint, converting a panicking or missing
// check function into SystemFailure.
func (m *Monitor) runCheck(c Constraint) (severity Severity) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("constraint check panicked", "name", c.Name, "panic", r)
			severity = SystemFailure
		}
	}()

	if c.Check == nil {
		return Safe
	}
	return c.Check()
}

// recordViolation appends to the bounded history and notifies observers.
// The violation is recorded before any callback runs; nothing here may
// drop a violation.
func (m *Monitor) recordViolation(c Constraint, v ViolationRecord) {
	m.violationsMu.Lock()
	m.violations.add(v)
	m.violationsMu.Unlock()
	m.totalViolations.Add(1)

	m.logger.Warn("safety violation",
		"constraint", v.ConstraintName, "severity", v.Severity.String(),
		"critical", v.IsCritical, "id", v.ID)

	if m.auditLog != nil {
		if err := m.auditLog.Record(audit.Entry{
			Timestamp:   time.Now().UTC().Format(audit.TimestampFormat),
			Kind:        audit.KindViolation,
			Constraint:  v.ConstraintName,
			Severity:    v.Severity.String(),
			Description: v.Description,
		}); err != nil {
			m.logger.Error("audit record failed", "error", err)
		}
	}

	if c.OnViolation != nil {
		m.invokeHandler(c, v.Severity)
	}

	m.callbacksMu.Lock()
	callbacks := make([]ViolationCallback, len(m.violationCBs))
	copy(callbacks, m.violationCBs)
	m.callbacksMu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("violation callback panicked", "panic", r)
				}
			}()
			cb(v)
		}()
	}
}

func (m *Monitor) invokeHandler(c Constraint, severity Severity) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("violation handler panicked", "constraint", c.Name, "panic", r)
		}
	}()
	c.OnViolation(severity)
}

// fireEmergencyStop invokes all emergency stop subscribers synchronously.
func (m *Monitor) fireEmergencyStop() bool {
	m.callbacksMu.Lock()
	callbacks := make([]EmergencyStopCallback, len(m.estopCBs))
	copy(callbacks, m.estopCBs)
	m.callbacksMu.Unlock()

	ok := true
	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("emergency stop callback panicked", "panic", r)
					ok = false
				}
			}()
			if !cb() {
				ok = false
			}
		}()
	}
	return ok
}

func (m *Monitor) recordCheckStats(elapsed time.Duration) {
	m.statsMu.Lock()
	m.lastCheck = time.Now()
	m.totalChecks++
	m.totalCheckDur += elapsed
	if elapsed > m.maxCheckDur {
		m.maxCheckDur = elapsed
	}
	m.statsMu.Unlock()
}
