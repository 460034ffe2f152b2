package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRules is returned when an evaluation request names no rules.
var ErrNoRules = errors.New("at least one rule name is required")

// RuleNotFoundError reports requested rule names that have no registered
// implementation. The message lists the full set of available rules so
// callers can correct the request.
type RuleNotFoundError struct {
	Names     []string
	Available []string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("invalid rule(s): %s. Available rules: %s",
		strings.Join(e.Names, ", "), strings.Join(e.Available, ", "))
}

// DuplicateRuleError reports an attempt to register a second rule under an
// already-registered name.
type DuplicateRuleError struct {
	Name string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.Name)
}
