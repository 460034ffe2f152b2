package rules

import (
	"fmt"
	"sync"
)

// Registry maps rule names to implementations. It is populated during a
// single-threaded startup phase and read-only afterwards; the RWMutex makes
// concurrent reads safe if that discipline is ever relaxed.
type Registry struct {
	rules map[string]Rule
	order []string // registration order, for stable listing
	mu    sync.RWMutex
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Register adds a rule under its own name. A nil rule or an empty name is a
// contract violation and fails immediately; a name collision fails with
// *DuplicateRuleError rather than silently overwriting.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("cannot register a nil rule")
	}
	name := rule.Name()
	if name == "" {
		return fmt.Errorf("cannot register a rule with an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[name]; exists {
		return &DuplicateRuleError{Name: name}
	}

	r.rules[name] = rule
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the rule registered under name, or *RuleNotFoundError.
func (r *Registry) Lookup(name string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[name]
	if !exists {
		return nil, &RuleNotFoundError{
			Names:     []string{name},
			Available: r.namesLocked(),
		}
	}
	return rule, nil
}

// Has reports whether a rule is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rules[name]
	return exists
}

// List returns name and description for every registered rule, in
// registration order. The order is stable across calls.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		rule := r.rules[name]
		infos = append(infos, Info{
			Name:        rule.Name(),
			Description: rule.Description(),
		})
	}
	return infos
}

// Names returns all registered rule names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
