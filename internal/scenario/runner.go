package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/faultline/faultline/internal/fault"
	"github.com/faultline/faultline/internal/inject"
)

// defaultTimeout bounds how long Run waits for the campaign to report
// all case results.
const defaultTimeout = 30 * time.Second

// Run registers the scenario's targets, executes the cases as one
// campaign in list order, and compares each observed status to the
// case's expectation. The injector must already be initialized.
func Run(s *Scenario, inj inject.Injector) (*RunResult, error) {
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("scenario %q has no cases", s.Name)
	}

	for name, t := range s.Targets {
		if t.Component == "" {
			t.Component = name
		}
		if err := inj.ConfigureTarget(name, t); err != nil {
			return nil, fmt.Errorf("configure target %q: %w", name, err)
		}
	}

	configs := make([]fault.InjectionConfig, len(s.Cases))
	for i, c := range s.Cases {
		configs[i] = c.Inject
	}

	// Campaign order is strict, so observed results line up with cases.
	observed := make(chan fault.Result, len(configs))
	inj.RegisterPropagationCallback(func(r fault.Result) {
		select {
		case observed <- r:
		default:
		}
	})

	if err := inj.StartCampaign(configs); err != nil {
		return nil, fmt.Errorf("start campaign: %w", err)
	}
	defer inj.StopCampaign()

	timeout := s.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	deadline := time.After(timeout)

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		var r fault.Result
		select {
		case r = <-observed:
		case <-deadline:
			return nil, fmt.Errorf("scenario %q timed out after %s at case %d", s.Name, timeout, i+1)
		}

		expected := strings.ToLower(c.Expect)
		actual := string(r.Status)

		cr := CaseResult{
			Index:       i + 1,
			Name:        c.Name,
			FaultType:   string(c.Inject.Type),
			Component:   c.Inject.Target.Component,
			Expected:    expected,
			Actual:      actual,
			Description: r.Description,
		}

		if actual == expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result, nil
}

// LoadAndRun loads a scenario YAML file and runs it on a fresh engine.
func LoadAndRun(path string, inj inject.Injector) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	result, err := Run(s, inj)
	if err != nil {
		return nil, err
	}
	result.File = path

	return result, nil
}

// Load parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	return &s, nil
}
