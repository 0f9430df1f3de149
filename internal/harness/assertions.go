package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/patchbay/internal/graph"
)

// AssertionError is returned when an assertion fails. It includes the
// expected and actual outcomes to make the failure readable on its own.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final state and
// returns one message per failure. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, assertion := range assertions {
		if err := evaluateAssertion(result, assertion); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCount:
		table, err := graph.ParseTable(a.Table)
		if err != nil {
			return err
		}
		if got := result.Doc.Count(table); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d entities in %s", a.Count, a.Table),
				Actual:   fmt.Sprintf("%d entities (ids: %v)", got, result.Doc.IDs(table)),
			}
		}

	case AssertExists:
		table, err := graph.ParseTable(a.Table)
		if err != nil {
			return err
		}
		if !result.Doc.Has(table, a.ID) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s/%s present", a.Table, a.ID),
				Actual:   fmt.Sprintf("absent (ids: %v)", result.Doc.IDs(table)),
			}
		}

	case AssertAbsent:
		table, err := graph.ParseTable(a.Table)
		if err != nil {
			return err
		}
		if result.Doc.Has(table, a.ID) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s/%s absent", a.Table, a.ID),
				Actual:   "present",
			}
		}

	case AssertTimeRoot:
		if got := result.Doc.TimeRoot(); got != a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("time root %q", a.Value),
				Actual:   fmt.Sprintf("%q", got),
			}
		}

	case AssertTimelineHint:
		if got := result.Doc.TimelineHint(); got != a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("timeline hint %q", a.Value),
				Actual:   fmt.Sprintf("%q", got),
			}
		}

	case AssertCurrentRevision:
		if got := result.History.CurrentRevisionID(); got != a.Revision {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("current revision %d", a.Revision),
				Actual:   fmt.Sprintf("revision %d", got),
			}
		}

	case AssertCanUndo:
		if got := result.History.CanUndo(); got != *a.Enabled {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("can_undo = %t", *a.Enabled),
				Actual:   fmt.Sprintf("can_undo = %t", got),
			}
		}

	case AssertCanRedo:
		if got := result.History.CanRedo(); got != *a.Enabled {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("can_redo = %t", *a.Enabled),
				Actual:   fmt.Sprintf("can_redo = %t", got),
			}
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
