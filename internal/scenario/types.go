// Package scenario loads YAML-described fault campaigns and checks the
// observed injection outcomes against per-case expectations.
package scenario

import (
	"github.com/faultline/faultline/internal/fault"
)

// Case is one expected injection within a scenario campaign.
type Case struct {
	Name   string                `yaml:"name"`
	Inject fault.InjectionConfig `yaml:"inject"`
	Expect string                `yaml:"expect"`
}

// Scenario is a named, ordered fault campaign with expectations.
// Targets are registered before the campaign starts.
type Scenario struct {
	Name    string                  `yaml:"name"`
	Targets map[string]fault.Target `yaml:"targets,omitempty"`
	Timeout fault.Duration          `yaml:"timeout,omitempty"`
	Cases   []Case                  `yaml:"cases"`
}

// CaseResult is the outcome of one scenario case.
type CaseResult struct {
	Index       int    `json:"index"`
	Passed      bool   `json:"passed"`
	Name        string `json:"name"`
	FaultType   string `json:"fault_type"`
	Component   string `json:"component"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	Description string `json:"description"`
}

// RunResult is the outcome of running one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
