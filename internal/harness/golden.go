package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// snapshotMap renders a result for golden comparison: the full document
// snapshot, the revision tree shape, and the current position. Op payloads
// are summarized as counts; the codec has its own round-trip tests.
func snapshotMap(r *Result) map[string]any {
	tree := r.History.Export()

	revisions := make([]any, len(tree.Revisions))
	for i, rev := range tree.Revisions {
		revisions[i] = map[string]any{
			"id":        rev.ID,
			"label":     rev.Label,
			"op_count":  len(rev.Ops),
			"parent_id": rev.ParentID,
		}
	}

	return map[string]any{
		"current_revision": tree.CurrentID,
		"document":         r.Doc.Snapshot(),
		"revisions":        revisions,
	}
}

// RunWithGolden executes a scenario, evaluates its assertions, and compares
// the canonical final snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error only if execution or serialization fails; assertion and
// golden mismatches are reported through t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	for _, failure := range EvaluateAssertions(result, scenario.Assertions) {
		t.Error(failure)
	}

	data, err := MarshalCanonical(snapshotMap(result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
