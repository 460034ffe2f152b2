package rules

import (
	"github.com/ordercheck/ordercheck/orders"
)

// Engine evaluates a requested set of rules against an order and aggregates
// the verdict. It is stateless per call; all state lives in the registry.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine backed by the given registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Evaluate runs the named rules against the order, in request order.
//
// The full name list is validated against the registry before any rule runs,
// so an invalid request never produces a partial evaluation. Every resolved
// rule is evaluated even after a failure — Details always carries one entry
// per distinct requested name. Duplicate names collapse to their first
// occurrence. Passed is the AND of all recorded outcomes.
func (e *Engine) Evaluate(order *orders.Order, ruleNames []string) (*Result, error) {
	if len(ruleNames) == 0 {
		return nil, ErrNoRules
	}

	// Resolve everything up front; report all unknown names at once.
	resolved := make([]Rule, 0, len(ruleNames))
	seen := make(map[string]bool, len(ruleNames))
	var unknown []string
	for _, name := range ruleNames {
		if seen[name] {
			continue
		}
		seen[name] = true

		rule, err := e.registry.Lookup(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		resolved = append(resolved, rule)
	}
	if len(unknown) > 0 {
		return nil, &RuleNotFoundError{
			Names:     unknown,
			Available: e.registry.Names(),
		}
	}

	passed := true
	details := make(Details, 0, len(resolved))
	for _, rule := range resolved {
		ok := rule.Evaluate(order)
		details = append(details, Outcome{Name: rule.Name(), Passed: ok})
		if !ok {
			passed = false
		}
	}

	return &Result{Passed: passed, Details: details}, nil
}
