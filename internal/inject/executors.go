package inject

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/faultline/faultline/internal/fault"
)

// The executors model fault effects instead of perturbing real hardware:
// timing faults actually sleep, everything else records descriptive
// observed effects against the target.

func (e *engine) executeTiming(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "timing fault executed"

	if d := cfg.TimingFault.DelayInjection; d > 0 {
		time.Sleep(d.Std())
		res.ObservedEffects = append(res.ObservedEffects,
			fmt.Sprintf("timing delay of %s injected into %s", d, cfg.Target.Component))
	}

	if amp := cfg.TimingFault.JitterAmplitude; amp > 0 {
		jitter := time.Duration(rand.Int64N(int64(2*amp)+1)) - amp.Std()
		if jitter > 0 {
			time.Sleep(jitter)
		}
		res.ObservedEffects = append(res.ObservedEffects, "timing jitter applied")
	}

	if cfg.TimingFault.CauseTimeout {
		res.Status = fault.StatusTimeout
		res.ObservedEffects = append(res.ObservedEffects, "deadline timeout forced")
	}
}

func (e *engine) executeDataCorruption(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "data corruption fault executed"

	switch cfg.DataCorruption.Type {
	case fault.ValueRange:
		res.ObservedEffects = append(res.ObservedEffects,
			"value range violation in "+cfg.Target.Component)
	case fault.PatternCorruption:
		res.ObservedEffects = append(res.ObservedEffects,
			"pattern corruption in "+cfg.Target.Component)
	case fault.ChecksumViolation:
		res.ObservedEffects = append(res.ObservedEffects,
			"checksum violation in "+cfg.Target.Component)
	default: // bit flip
		res.ObservedEffects = append(res.ObservedEffects,
			"bit flip simulation in "+cfg.Target.Component)
	}
}

func (e *engine) executeCommunication(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "communication fault executed"

	switch cfg.CommFault.Type {
	case fault.PacketDelay:
		if cfg.CommFault.DelayRange > 0 {
			time.Sleep(cfg.CommFault.DelayRange.Std())
		}
		res.ObservedEffects = append(res.ObservedEffects, "packet delay simulation")
	case fault.PacketCorruption:
		res.ObservedEffects = append(res.ObservedEffects, "packet corruption simulation")
	case fault.DuplicatePackets:
		res.ObservedEffects = append(res.ObservedEffects, "duplicate packet simulation")
	case fault.ReorderPackets:
		res.ObservedEffects = append(res.ObservedEffects, "packet reordering simulation")
	default: // packet loss
		res.ObservedEffects = append(res.ObservedEffects, "packet loss simulation")
	}
}

func (e *engine) executeHardwareFailure(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "hardware failure simulation executed"
	res.ObservedEffects = append(res.ObservedEffects,
		"hardware failure simulation in "+cfg.Target.Component)

	// Critical-path targets are annotated, not blocked.
	if cfg.Target.IsCriticalPath {
		res.SafetyViolations = append(res.SafetyViolations,
			"critical hardware component failure")
	}
}

func (e *engine) executeResourceExhaustion(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "resource exhaustion simulation executed"
	res.ObservedEffects = append(res.ObservedEffects,
		"resource exhaustion simulation in "+cfg.Target.Component)
}

func (e *engine) executePowerFailure(cfg fault.InjectionConfig, res *fault.Result) {
	res.Description = "power failure simulation executed"
	res.ObservedEffects = append(res.ObservedEffects, "power failure simulation")
	res.SafetyViolations = append(res.SafetyViolations, "power supply interruption")

	if cfg.Target.IsCriticalPath {
		res.SafetyViolations = append(res.SafetyViolations,
			"critical path power failure")
	}

	if cfg.Target.Component != "" {
		res.AffectedComponents = append(res.AffectedComponents, cfg.Target.Component)
	}
}
