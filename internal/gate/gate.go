// Package gate decides whether a fault injection request may execute.
//
// Evaluation order (must not be changed):
//  1. Excluded critical functions — hard block
//  2. Maximum system impact ceiling — hard block above 0.5
//  3. Registered safety check callbacks, in registration order —
//     a single false return or panic blocks
//
// Steps 1 and 2 are skipped when the config opts out of safety
// constraints; callbacks always run. Every block carries a reason.
package gate

import (
	"fmt"

	"github.com/faultline/faultline/internal/fault"
)

// MaxAllowedImpact is the hard ceiling on a request's declared system
// impact. Requests asking for more are blocked regardless of other fields.
const MaxAllowedImpact = 0.5

// SafetyCheck is an externally registered veto over an injection request.
// Returning false denies the request. A panicking check also denies.
type SafetyCheck func(cfg fault.InjectionConfig) bool

// Decision is the gate's verdict on one injection request.
type Decision struct {
	Allowed bool
	Reason  string
}

// BlockedError adapts a blocking decision into an error for callers that
// want error plumbing instead of a status value.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("injection blocked by safety gate: %s", e.Reason)
}

// Evaluate runs the gate checks against one injection request.
func Evaluate(cfg fault.InjectionConfig, checks []SafetyCheck) Decision {
	if cfg.Safety.RespectSafetyConstraints {
		for _, excluded := range cfg.Safety.ExcludedCriticalFunctions {
			if cfg.Target.Function == excluded {
				return Decision{
					Reason: fmt.Sprintf("target function %q is on the excluded critical function list", excluded),
				}
			}
		}

		if cfg.Safety.MaxSystemImpact > MaxAllowedImpact {
			return Decision{
				Reason: fmt.Sprintf("requested system impact %.2f exceeds ceiling %.2f",
					cfg.Safety.MaxSystemImpact, MaxAllowedImpact),
			}
		}
	}

	for i, check := range checks {
		if !runCheck(check, cfg) {
			return Decision{
				Reason: fmt.Sprintf("denied by safety check callback %d", i),
			}
		}
	}

	return Decision{Allowed: true, Reason: "all safety checks passed"}
}

// runCheck invokes one callback, converting a panic into a denial.
func runCheck(check SafetyCheck, cfg fault.InjectionConfig) (allowed bool) {
	defer func() {
		if recover() != nil {
			allowed = false
		}
	}()
	return check(cfg)
}
