package safety

import "strings"

// dangerousKeywords flag scenario operations that demand operator review
// before a campaign runs them against a live rig.
var dangerousKeywords = []string{
	"emergency_stop",
	"critical_fault",
	"patient_disconnect",
	"power_failure",
}

// CheckScenario performs a deny-list scan over opaque scenario text.
// Empty text is a SystemFailure; a dangerous keyword downgrades the
// scenario to Warning; anything else is Safe.
func (m *Monitor) CheckScenario(content string) Severity {
	if content == "" {
		return SystemFailure
	}

	for _, keyword := range dangerousKeywords {
		if strings.Contains(content, keyword) {
			m.logger.Warn("scenario contains dangerous operation", "keyword", keyword)
			return Warning
		}
	}

	return Safe
}
