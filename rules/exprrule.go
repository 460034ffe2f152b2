package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/ordercheck/ordercheck/orders"
)

// exprRule is a rule defined by a CEL expression over an Order variable.
// Expressions are declared in configuration and compiled once at startup;
// a compilation failure surfaces at registration time like any other
// contract violation.
type exprRule struct {
	name        string
	description string
	expression  string
	program     cel.Program
}

// NewExprRule compiles expression against an Order environment and returns
// a rule evaluating it. The expression sees Order.Total (double) and
// Order.ItemsCount (int) and must produce a boolean; any evaluation error
// or non-boolean result is treated as a failed check.
func NewExprRule(name, description, expression string) (Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("expression rule requires a name")
	}

	env, err := cel.NewEnv(
		cel.Variable("Order", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule %s: compile error: %w", name, issues.Err())
	}

	// Cost limit guards against runaway expressions from configuration.
	prog, err := env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, fmt.Errorf("rule %s: program creation error: %w", name, err)
	}

	return &exprRule{
		name:        name,
		description: description,
		expression:  expression,
		program:     prog,
	}, nil
}

func (r *exprRule) Name() string { return r.name }

func (r *exprRule) Description() string { return r.description }

func (r *exprRule) Evaluate(order *orders.Order) bool {
	facts := map[string]any{
		"Order": map[string]any{
			"Total":      order.Total.InexactFloat64(),
			"ItemsCount": int64(order.ItemsCount),
		},
	}

	out, _, err := r.program.Eval(facts)
	if err != nil {
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}
