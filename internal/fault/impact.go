package fault

import "errors"

// ValidateConfig reports why an injection config is unusable, or nil.
func ValidateConfig(cfg InjectionConfig) error {
	if cfg.Target.Component == "" {
		return errors.New("target component name is empty")
	}
	if cfg.MaxInjections == 0 {
		return errors.New("max_injections must be at least 1")
	}
	if cfg.Safety.MaxSystemImpact < 0 || cfg.Safety.MaxSystemImpact > 1 {
		return errors.New("max_system_impact must be within [0,1]")
	}
	return nil
}

// Impact score weights. The base weight depends on how the injection
// ended; each observed effect and safety violation adds on top.
const (
	impactSuccess   = 0.1
	impactFailed    = 0.3
	impactTimeout   = 0.5
	impactOther     = 0.2
	impactPerEffect = 0.1
	impactPerViol   = 0.3
)

// ImpactScore computes the system impact of a completed injection,
// clamped to [0,1].
func ImpactScore(r Result) float64 {
	var score float64
	switch r.Status {
	case StatusSuccess:
		score = impactSuccess
	case StatusFailed:
		score = impactFailed
	case StatusTimeout:
		score = impactTimeout
	default:
		score = impactOther
	}

	score += float64(len(r.ObservedEffects)) * impactPerEffect
	score += float64(len(r.SafetyViolations)) * impactPerViol

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
