package rules

import (
	"github.com/shopspring/decimal"

	"github.com/ordercheck/ordercheck/orders"
)

// Built-in order validation rules. All monetary comparisons use exact
// decimal arithmetic; binary floating point would accumulate representation
// error on amounts like 75.50.

type minTotalRule struct {
	threshold decimal.Decimal
}

func (r minTotalRule) Name() string { return "min_total_100" }

func (r minTotalRule) Description() string {
	return "Validates that order total is greater than 100"
}

func (r minTotalRule) Evaluate(order *orders.Order) bool {
	return order.Total.GreaterThan(r.threshold)
}

type minItemsRule struct {
	threshold int
}

func (r minItemsRule) Name() string { return "min_items_2" }

func (r minItemsRule) Description() string {
	return "Validates that order has at least 2 items"
}

func (r minItemsRule) Evaluate(order *orders.Order) bool {
	return order.ItemsCount >= r.threshold
}

type divisibleByRule struct {
	divisor decimal.Decimal
}

func (r divisibleByRule) Name() string { return "divisible_by_5" }

func (r divisibleByRule) Description() string {
	return "Validates that order total is divisible by 5"
}

func (r divisibleByRule) Evaluate(order *orders.Order) bool {
	return order.Total.Mod(r.divisor).IsZero()
}

// RegisterBuiltins registers the built-in rules. Called once during startup,
// before the engine serves any request; a failure here is fatal.
func RegisterBuiltins(reg *Registry) error {
	builtins := []Rule{
		minTotalRule{threshold: decimal.NewFromInt(100)},
		minItemsRule{threshold: 2},
		divisibleByRule{divisor: decimal.NewFromInt(5)},
	}

	for _, rule := range builtins {
		if err := reg.Register(rule); err != nil {
			return err
		}
	}
	return nil
}
