// Package harness runs YAML edit scripts against a fresh document and
// history store, asserts on the final state, and compares deterministic
// snapshots against golden files.
//
// Scenarios are conformance tests for the engine's observable behavior:
// each one is a sequence of transactions, undos, and redos, followed by
// assertions on table contents and history position.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one edit-script conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Steps is the edit script, executed in order against a fresh document.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document and history state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one action in the script. Exactly one field may be set.
type Step struct {
	Transaction *TransactionStep `yaml:"transaction,omitempty"`
	Undo        bool             `yaml:"undo,omitempty"`
	Redo        bool             `yaml:"redo,omitempty"`
	Reset       bool             `yaml:"reset,omitempty"`
}

// TransactionStep builds and commits one transaction.
type TransactionStep struct {
	Label  string `yaml:"label"`
	Origin string `yaml:"origin,omitempty"`

	// Edits are applied through the transaction builder in order.
	Edits []Edit `yaml:"edits"`

	// Group wraps the edits in a single grouped op, so the transaction
	// undoes and redoes as one cascade.
	Group bool `yaml:"group,omitempty"`

	// ExpectError, when set, requires the transaction to fail with the
	// given error code (DUPLICATE_ID, NOT_FOUND, ID_MISMATCH,
	// MALFORMED_OP). The failed transaction records no revision and
	// leaves the document untouched.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Edit is one builder call.
type Edit struct {
	// Action selects the builder operation:
	// add | remove | replace | move | set_time_root | set_timeline_hint
	Action string `yaml:"action"`

	// Table and ID address the target for add/remove/replace/move.
	Table string `yaml:"table,omitempty"`
	ID    string `yaml:"id,omitempty"`

	// Entity is the payload for add/replace, in the entity's JSON shape.
	Entity map[string]any `yaml:"entity,omitempty"`

	// X, Y are the target position for move.
	X float64 `yaml:"x,omitempty"`
	Y float64 `yaml:"y,omitempty"`

	// Value is the new slot value for set_time_root/set_timeline_hint.
	Value string `yaml:"value,omitempty"`
}

// Edit action constants.
const (
	ActionAdd             = "add"
	ActionRemove          = "remove"
	ActionReplace         = "replace"
	ActionMove            = "move"
	ActionSetTimeRoot     = "set_time_root"
	ActionSetTimelineHint = "set_timeline_hint"
)

// Assertion validates one facet of the final state.
type Assertion struct {
	// Type specifies the assertion:
	// - "count": Table holds exactly Count entities
	// - "exists": Table contains ID
	// - "absent": Table does not contain ID
	// - "time_root": the timing-root slot equals Value
	// - "timeline_hint": the hint slot equals Value
	// - "current_revision": the history position equals Revision
	// - "can_undo" / "can_redo": the predicate equals Enabled
	Type string `yaml:"type"`

	Table    string `yaml:"table,omitempty"`
	ID       string `yaml:"id,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Value    string `yaml:"value,omitempty"`
	Revision int64  `yaml:"revision,omitempty"`
	Enabled  *bool  `yaml:"enabled,omitempty"`
}

// Assertion type constants.
const (
	AssertCount           = "count"
	AssertExists          = "exists"
	AssertAbsent          = "absent"
	AssertTimeRoot        = "time_root"
	AssertTimelineHint    = "timeline_hint"
	AssertCurrentRevision = "current_revision"
	AssertCanUndo         = "can_undo"
	AssertCanRedo         = "can_redo"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails structural validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Transaction != nil {
			set++
		}
		if step.Undo {
			set++
		}
		if step.Redo {
			set++
		}
		if step.Reset {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of transaction/undo/redo/reset is required", i)
		}

		if step.Transaction != nil {
			if step.Transaction.Label == "" {
				return fmt.Errorf("steps[%d]: transaction label is required", i)
			}
			if len(step.Transaction.Edits) == 0 {
				return fmt.Errorf("steps[%d]: transaction %q has no edits", i, step.Transaction.Label)
			}
			for j, edit := range step.Transaction.Edits {
				if err := validateEdit(&edit); err != nil {
					return fmt.Errorf("steps[%d].edits[%d]: %w", i, j, err)
				}
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(&assertion); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

// validateEdit checks an edit's required fields per action. Entity payload
// contents are not checked here; the builder and codec reject bad payloads
// with proper error codes at run time.
func validateEdit(e *Edit) error {
	switch e.Action {
	case ActionAdd:
		if e.Table == "" {
			return fmt.Errorf("table is required for add")
		}
		if len(e.Entity) == 0 {
			return fmt.Errorf("entity is required for add")
		}
	case ActionRemove:
		if e.Table == "" || e.ID == "" {
			return fmt.Errorf("table and id are required for remove")
		}
	case ActionReplace:
		if e.Table == "" || e.ID == "" {
			return fmt.Errorf("table and id are required for replace")
		}
		if len(e.Entity) == 0 {
			return fmt.Errorf("entity is required for replace")
		}
	case ActionMove:
		if e.ID == "" {
			return fmt.Errorf("id is required for move")
		}
	case ActionSetTimeRoot, ActionSetTimelineHint:
		// Value may legitimately be "" (clearing the slot).
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

// validateAssertion checks an assertion's required fields per type.
func validateAssertion(a *Assertion) error {
	switch a.Type {
	case AssertCount:
		if a.Table == "" {
			return fmt.Errorf("table is required for count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertExists, AssertAbsent:
		if a.Table == "" || a.ID == "" {
			return fmt.Errorf("table and id are required for %s", a.Type)
		}
	case AssertTimeRoot, AssertTimelineHint:
		// Value may legitimately be "".
	case AssertCurrentRevision:
		if a.Revision < 0 {
			return fmt.Errorf("revision must be non-negative")
		}
	case AssertCanUndo, AssertCanRedo:
		if a.Enabled == nil {
			return fmt.Errorf("enabled is required for %s", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
