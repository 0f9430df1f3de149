// Package txn is the only sanctioned way to produce ops against current
// document state and turn them into an applied, invertible transaction.
//
// Commit protocol: run the build callback (append-only, no mutation),
// validate every op, compute every inverse, then apply the whole list
// through the graph apply engine. Any failure before the apply step leaves
// the document byte-for-byte unchanged; no rollback mechanism exists
// because none is needed.
package txn

import (
	"fmt"
	"log/slog"

	"github.com/roach88/patchbay/internal/graph"
)

// Origin tags where a transaction came from. Opaque to the engine; callers
// use it for audit trails and UI affordances.
type Origin string

const (
	OriginUI        Origin = "ui"
	OriginImport    Origin = "import"
	OriginMigration Origin = "migration"
	OriginSystem    Origin = "system"
	OriginRemote    Origin = "remote"
)

// Spec describes a transaction for humans and audit logs.
type Spec struct {
	// Label is a human-readable description ("delete block", "paste").
	Label string

	// Origin tags the source of the edit.
	Origin Origin
}

// Result is a committed transaction: the forward ops that were applied and
// the inverse ops that undo them, plus the optional per-table diff summary.
// Callers forward Ops/InverseOps to the history store.
type Result struct {
	Ops        []graph.Op
	InverseOps []graph.Op
	Summary    graph.ChangeSummary
}

// Run executes build against a fresh builder, validates the accumulated
// ops, and commits them atomically to doc.
//
// An error from build, or a validation failure, aborts the transaction with
// zero side effects - the build phase only appended in-memory op
// descriptions. Inverses are computed before application; ops carry their
// own pre-mutation snapshots, which is what makes that possible.
//
// A build that appends zero ops still commits successfully and returns an
// empty Result; whether that earns a history slot is the caller's call.
func Run(doc *graph.Document, spec Spec, build func(*Builder) error) (*Result, error) {
	b := newBuilder(doc)

	if err := build(b); err != nil {
		return nil, fmt.Errorf("build transaction %q: %w", spec.Label, err)
	}

	if err := graph.ValidateAll(b.ops); err != nil {
		return nil, fmt.Errorf("validate transaction %q: %w", spec.Label, err)
	}

	// Inverses before mutation. Pure: every op carries its snapshots.
	inverse := graph.InvertAll(b.ops)

	graph.ApplyAll(doc, b.ops)

	summary := graph.Summarize(b.ops)
	slog.Debug("transaction committed",
		"label", spec.Label,
		"origin", string(spec.Origin),
		"ops", len(b.ops),
		"changes", summary.Total(),
	)

	return &Result{Ops: b.ops, InverseOps: inverse, Summary: summary}, nil
}
