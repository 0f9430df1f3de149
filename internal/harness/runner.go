package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/history"
	"github.com/roach88/patchbay/internal/txn"
)

// scenarioEpoch pins revision timestamps so scenario runs are reproducible.
func scenarioEpoch() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

// Result is the final state after executing a scenario.
type Result struct {
	Scenario *Scenario
	Doc      *graph.Document
	History  *history.Store
}

// Run executes a scenario against a fresh document and history store.
//
// Script errors abort the run: an undo at the root, a redo with no
// children, an unknown edit action, or a transaction that fails without a
// matching expect_error. Assertion evaluation is separate - see
// EvaluateAssertions.
func Run(scenario *Scenario) (*Result, error) {
	doc := graph.NewDocument()
	hist := history.NewStore(doc, history.WithNow(scenarioEpoch))

	for i, step := range scenario.Steps {
		switch {
		case step.Transaction != nil:
			if err := runTransaction(doc, hist, step.Transaction); err != nil {
				return nil, fmt.Errorf("step %d (%q): %w", i, step.Transaction.Label, err)
			}
		case step.Undo:
			if !hist.Undo() {
				return nil, fmt.Errorf("step %d: undo at the root", i)
			}
		case step.Redo:
			if !hist.Redo() {
				return nil, fmt.Errorf("step %d: redo with no children", i)
			}
		case step.Reset:
			// Rewind to the empty document before discarding the tree;
			// Reset alone only forgets history, it does not touch state.
			for hist.CanUndo() {
				hist.Undo()
			}
			hist.Reset()
		}
	}

	slog.Debug("scenario executed",
		"name", scenario.Name,
		"steps", len(scenario.Steps),
		"revisions", hist.Len(),
	)

	return &Result{Scenario: scenario, Doc: doc, History: hist}, nil
}

func runTransaction(doc *graph.Document, hist *history.Store, ts *TransactionStep) error {
	origin, err := parseOrigin(ts.Origin)
	if err != nil {
		return err
	}

	res, err := txn.Run(doc, txn.Spec{Label: ts.Label, Origin: origin}, func(b *txn.Builder) error {
		applyEdits := func() error {
			for i, edit := range ts.Edits {
				if err := applyEdit(b, edit); err != nil {
					return fmt.Errorf("edit %d (%s): %w", i, edit.Action, err)
				}
			}
			return nil
		}
		if ts.Group {
			return b.Many(applyEdits)
		}
		return applyEdits()
	})

	if ts.ExpectError != "" {
		if err == nil {
			return fmt.Errorf("expected error %s, but transaction committed", ts.ExpectError)
		}
		if !matchErrorCode(err, ts.ExpectError) {
			return fmt.Errorf("expected error %s, got: %w", ts.ExpectError, err)
		}
		// Failed as scripted: no revision, document untouched.
		return nil
	}
	if err != nil {
		return err
	}

	hist.AddRevision(res.Ops, res.InverseOps, ts.Label)
	return nil
}

func parseOrigin(s string) (txn.Origin, error) {
	switch s {
	case "":
		return txn.OriginUI, nil
	case string(txn.OriginUI), string(txn.OriginImport), string(txn.OriginMigration),
		string(txn.OriginSystem), string(txn.OriginRemote):
		return txn.Origin(s), nil
	default:
		return "", fmt.Errorf("unknown origin %q", s)
	}
}

func applyEdit(b *txn.Builder, edit Edit) error {
	switch edit.Action {
	case ActionAdd, ActionReplace:
		table, err := graph.ParseTable(edit.Table)
		if err != nil {
			return err
		}
		entity, err := decodeEditEntity(table, edit.Entity)
		if err != nil {
			return err
		}
		if edit.Action == ActionAdd {
			return b.Add(table, entity)
		}
		return b.Replace(table, edit.ID, entity)

	case ActionRemove:
		table, err := graph.ParseTable(edit.Table)
		if err != nil {
			return err
		}
		return b.Remove(table, edit.ID)

	case ActionMove:
		return b.SetBlockPosition(edit.ID, graph.Position{X: edit.X, Y: edit.Y})

	case ActionSetTimeRoot:
		b.SetTimeRoot(edit.Value)
		return nil

	case ActionSetTimelineHint:
		b.SetTimelineHint(edit.Value)
		return nil

	default:
		return fmt.Errorf("unknown edit action %q", edit.Action)
	}
}

// decodeEditEntity converts the YAML entity map into the concrete type its
// table stores, going through the same JSON shapes the op codec uses, so
// scenarios and persisted ops describe entities identically.
func decodeEditEntity(table graph.Table, fields map[string]any) (graph.Entity, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode entity fields: %w", err)
	}
	return graph.DecodeEntity(table, raw)
}

// matchErrorCode maps a scripted expect_error code onto the engine's error
// classifiers.
func matchErrorCode(err error, code string) bool {
	switch code {
	case "DUPLICATE_ID":
		return txn.IsDuplicateID(err)
	case "NOT_FOUND":
		return txn.IsNotFound(err)
	case "ID_MISMATCH":
		return txn.IsIDMismatch(err)
	case "MALFORMED_OP":
		return graph.IsMalformedOp(err)
	default:
		return false
	}
}
