package target

import (
	"errors"
	"sort"
	"sync"

	"github.com/faultline/faultline/internal/fault"
)

// ErrEmptyName is returned when registering a target without a name.
var ErrEmptyName = errors.New("target name is empty")

// Registry maps logical component names to fault target descriptors.
// Registration is last-write-wins; targets are never removed during a run.
type Registry struct {
	mu      sync.Mutex
	targets map[string]fault.Target
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]fault.Target)}
}

// Register stores a target under the given name, overwriting any previous
// descriptor. Rejects empty names.
func (r *Registry) Register(name string, t fault.Target) error {
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	r.targets[name] = t
	r.mu.Unlock()
	return nil
}

// Lookup returns the target registered under name.
func (r *Registry) Lookup(name string) (fault.Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	return t, ok
}

// Names returns the registered target names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}
