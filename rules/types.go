package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ordercheck/ordercheck/orders"
)

// Rule is a named, stateless predicate over an order. Implementations must
// be pure: no I/O, no mutation of the order, no instance state across calls.
type Rule interface {
	// Name returns the unique identifier used in API requests and as the
	// registry key. Must be non-empty.
	Name() string

	// Description returns a human-readable summary of what the rule checks.
	Description() string

	// Evaluate reports whether the order passes the rule.
	Evaluate(order *orders.Order) bool
}

// Info describes a registered rule for discovery and listing.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Outcome is the evaluation result of a single rule.
type Outcome struct {
	Name   string
	Passed bool
}

// Details holds per-rule outcomes in request order. It marshals to a JSON
// object with one entry per rule, preserving first-occurrence request order
// (a plain map would reorder keys).
type Details []Outcome

// MarshalJSON implements json.Marshaler.
func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, o := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(o.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if o.Passed {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Entry order follows the JSON
// document order.
func (d *Details) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	var out Details
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("details: expected string key, got %T", tok)
		}

		var passed bool
		if err := dec.Decode(&passed); err != nil {
			return err
		}
		out = append(out, Outcome{Name: name, Passed: passed})
	}

	*d = out
	return nil
}

// Get returns the outcome recorded for name, and whether an entry exists.
func (d Details) Get(name string) (passed, ok bool) {
	for _, o := range d {
		if o.Name == name {
			return o.Passed, true
		}
	}
	return false, false
}

// Result is the aggregated verdict for one evaluation request.
// Passed is true iff every entry in Details is true.
type Result struct {
	Passed  bool    `json:"passed"`
	Details Details `json:"details"`
}
