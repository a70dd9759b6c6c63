// Package inject executes individual fault injections and unattended
// multi-fault campaigns under safety-gate control.
package inject

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faultline/faultline/internal/audit"
	"github.com/faultline/faultline/internal/fault"
	"github.com/faultline/faultline/internal/gate"
	"github.com/faultline/faultline/internal/target"
)

// EmergencyStopBudget bounds how long EmergencyStop waits for an active
// campaign to reach its next safe checkpoint.
const EmergencyStopBudget = 50 * time.Millisecond

var (
	// ErrNotInitialized is returned by operations that need Initialize first.
	ErrNotInitialized = errors.New("injector not initialized")
	// ErrEmptyCampaign is returned when a campaign has no configs.
	ErrEmptyCampaign = errors.New("campaign configuration list is empty")
)

// PropagationCallback observes every campaign injection result.
type PropagationCallback func(result fault.Result)

// Injector is the fault injection engine surface. Implementations are
// obtained through New and are safe for concurrent use.
type Injector interface {
	Initialize() error
	ConfigureTarget(name string, t fault.Target) error

	InjectTimingFault(cfg fault.InjectionConfig) fault.Result
	InjectDataCorruption(cfg fault.InjectionConfig) fault.Result
	InjectCommunicationFault(cfg fault.InjectionConfig) fault.Result
	InjectHardwareFailure(cfg fault.InjectionConfig) fault.Result

	StartCampaign(configs []fault.InjectionConfig) error
	StopCampaign() error
	CampaignActive() bool

	RegisterPropagationCallback(cb PropagationCallback)
	RegisterSafetyCheck(check gate.SafetyCheck)

	Statistics() []fault.Result

	EmergencyStop() bool
	EmergencyStopped() bool
	ResetEmergency() error
}

// Option configures the engine at construction time.
type Option func(*engine)

// WithLogger overrides the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAudit attaches an audit trail; every recorded result is appended.
func WithAudit(log *audit.Log) Option {
	return func(e *engine) {
		e.auditLog = log
	}
}

// engine is the concrete Injector. It is only constructible through New;
// the embedded mutexes make it non-copyable.
type engine struct {
	logger   *slog.Logger
	auditLog *audit.Log

	initialized      atomic.Bool
	campaignActive   atomic.Bool
	emergencyStopped atomic.Bool

	targets *target.Registry

	resultsMu sync.Mutex
	results   []fault.Result

	callbacksMu  sync.Mutex
	propagation  []PropagationCallback
	safetyChecks []gate.SafetyCheck

	campaignMu sync.Mutex
	campaign   *campaignRun
}

// New creates a fault injection engine.
func New(opts ...Option) Injector {
	e := &engine{
		logger:  slog.Default(),
		targets: target.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize readies the engine for operation. Idempotent.
func (e *engine) Initialize() error {
	if e.initialized.Swap(true) {
		return nil
	}
	e.logger.Info("fault injection engine initialized")
	return nil
}

// ConfigureTarget stores or overwrites a fault target descriptor.
func (e *engine) ConfigureTarget(name string, t fault.Target) error {
	if !e.initialized.Load() {
		return ErrNotInitialized
	}
	if err := e.targets.Register(name, t); err != nil {
		e.logger.Error("target registration rejected", "name", name, "error", err)
		return err
	}
	e.logger.Info("configured fault target", "name", name, "component", t.Component, "critical_path", t.IsCriticalPath)
	return nil
}

func (e *engine) InjectTimingFault(cfg fault.InjectionConfig) fault.Result {
	return e.inject(fault.Timing, cfg)
}

func (e *engine) InjectDataCorruption(cfg fault.InjectionConfig) fault.Result {
	return e.inject(fault.DataCorruption, cfg)
}

func (e *engine) InjectCommunicationFault(cfg fault.InjectionConfig) fault.Result {
	return e.inject(fault.Communication, cfg)
}

func (e *engine) InjectHardwareFailure(cfg fault.InjectionConfig) fault.Result {
	return e.inject(fault.HardwareFailure, cfg)
}

// inject is the single execution path shared by all entry points; only
// the fault-type tag differs.
func (e *engine) inject(t fault.Type, cfg fault.InjectionConfig) fault.Result {
	cfg.Type = t

	if !e.initialized.Load() {
		return errorResult(fault.StatusFailed, "injector not initialized")
	}

	if e.emergencyStopped.Load() {
		res := errorResult(fault.StatusBlockedBySafety, "emergency stop active")
		e.record(res)
		return res
	}

	decision := gate.Evaluate(cfg, e.snapshotSafetyChecks())
	if !decision.Allowed {
		e.logger.Warn("injection blocked by safety gate",
			"fault_type", cfg.Type, "component", cfg.Target.Component, "reason", decision.Reason)
		res := errorResult(fault.StatusBlockedBySafety, decision.Reason)
		e.record(res)
		return res
	}

	res := e.execute(cfg)
	e.record(res)
	return res
}

// execute resolves the target, applies the injection delay, and
// dispatches to the fault-type executor.
func (e *engine) execute(cfg fault.InjectionConfig) fault.Result {
	res := fault.Result{
		Status:      fault.StatusSuccess,
		Description: "fault injection executed",
		InjectedAt:  time.Now(),
	}

	if _, ok := e.targets.Lookup(cfg.Target.Component); !ok {
		res.Status = fault.StatusTargetNotFound
		res.Description = "target component not found: " + cfg.Target.Component
		res.RecoveredAt = res.InjectedAt
		return res
	}

	if cfg.InjectionDelay > 0 {
		time.Sleep(cfg.InjectionDelay.Std())
	}

	switch cfg.Type {
	case fault.Timing:
		e.executeTiming(cfg, &res)
	case fault.DataCorruption:
		e.executeDataCorruption(cfg, &res)
	case fault.Communication:
		e.executeCommunication(cfg, &res)
	case fault.HardwareFailure:
		e.executeHardwareFailure(cfg, &res)
	case fault.ResourceExhaustion:
		e.executeResourceExhaustion(cfg, &res)
	case fault.PowerFailure:
		e.executePowerFailure(cfg, &res)
	default:
		res.Status = fault.StatusFailed
		res.Description = "unsupported fault type: " + string(cfg.Type)
	}

	res.RecoveredAt = time.Now()
	res.SystemImpact = fault.ImpactScore(res)

	e.logger.Info("fault injection completed",
		"fault_type", cfg.Type, "component", cfg.Target.Component,
		"status", res.Status, "impact", res.SystemImpact)

	return res
}

// RegisterPropagationCallback appends a propagation observer. Callbacks
// are invoked synchronously from the campaign goroutine; panics are
// recovered and logged, never propagated.
func (e *engine) RegisterPropagationCallback(cb PropagationCallback) {
	if cb == nil {
		return
	}
	e.callbacksMu.Lock()
	e.propagation = append(e.propagation, cb)
	e.callbacksMu.Unlock()
}

// RegisterSafetyCheck appends an external veto consulted by the gate on
// every injection request, in registration order.
func (e *engine) RegisterSafetyCheck(check gate.SafetyCheck) {
	if check == nil {
		return
	}
	e.callbacksMu.Lock()
	e.safetyChecks = append(e.safetyChecks, check)
	e.callbacksMu.Unlock()
}

// Statistics returns a snapshot copy of the full result history.
func (e *engine) Statistics() []fault.Result {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	results := make([]fault.Result, len(e.results))
	copy(results, e.results)
	return results
}

// EmergencyStopped reports whether the emergency flag is set.
func (e *engine) EmergencyStopped() bool {
	return e.emergencyStopped.Load()
}

// ResetEmergency clears the emergency flag so injections may resume.
// Fails if no emergency stop is active.
func (e *engine) ResetEmergency() error {
	if !e.emergencyStopped.Swap(false) {
		return errors.New("no emergency stop active")
	}
	e.logger.Warn("emergency stop reset, injector re-armed")
	return nil
}

func (e *engine) snapshotSafetyChecks() []gate.SafetyCheck {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	checks := make([]gate.SafetyCheck, len(e.safetyChecks))
	copy(checks, e.safetyChecks)
	return checks
}

// record appends a result to the history and mirrors it to the audit
// trail if one is attached.
func (e *engine) record(res fault.Result) {
	e.resultsMu.Lock()
	e.results = append(e.results, res)
	e.resultsMu.Unlock()

	if e.auditLog != nil {
		if err := e.auditLog.Record(audit.Entry{
			Timestamp:   time.Now().UTC().Format(audit.TimestampFormat),
			Kind:        audit.KindInjection,
			Status:      string(res.Status),
			Description: res.Description,
			Impact:      res.SystemImpact,
		}); err != nil {
			e.logger.Error("audit record failed", "error", err)
		}
	}
}

func errorResult(status fault.Status, description string) fault.Result {
	now := time.Now()
	return fault.Result{
		Status:      status,
		Description: description,
		InjectedAt:  now,
		RecoveredAt: now,
	}
}
