package txn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/graph"
)

func block(id string) *graph.Block {
	return &graph.Block{ID: id, Kind: "osc", Position: graph.Position{X: 1, Y: 2}}
}

func conn(id, from, to string) *graph.Connection {
	return &graph.Connection{
		ID:   id,
		From: graph.PortRef{BlockID: from, Port: "out"},
		To:   graph.PortRef{BlockID: to, Port: "in"},
	}
}

// seed commits a setup transaction and fails the test on error.
func seed(t *testing.T, doc *graph.Document, build func(*Builder) error) *Result {
	t.Helper()
	res, err := Run(doc, Spec{Label: "seed", Origin: OriginSystem}, build)
	require.NoError(t, err)
	return res
}

func TestBuilder_Add_DuplicateInSameBuild(t *testing.T) {
	doc := graph.NewDocument()

	_, err := Run(doc, Spec{Label: "dup"}, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		return b.Add(graph.TableBlocks, block("b1"))
	})

	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))
	assert.Equal(t, 0, doc.Count(graph.TableBlocks), "failed transaction must leave the document unchanged")
}

func TestBuilder_Add_DuplicateAgainstCommittedState(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error { return b.Add(graph.TableBlocks, block("b1")) })

	_, err := Run(doc, Spec{Label: "dup"}, func(b *Builder) error {
		return b.Add(graph.TableBlocks, block("b1"))
	})
	assert.True(t, IsDuplicateID(err))
}

func TestBuilder_Remove_Missing(t *testing.T) {
	doc := graph.NewDocument()

	_, err := Run(doc, Spec{Label: "rm"}, func(b *Builder) error {
		return b.Remove(graph.TableBlocks, "missing")
	})
	assert.True(t, IsNotFound(err))
}

func TestBuilder_Remove_CapturesSnapshot(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error { return b.Add(graph.TableBlocks, block("b1")) })

	res, err := Run(doc, Spec{Label: "rm"}, func(b *Builder) error {
		return b.Remove(graph.TableBlocks, "b1")
	})
	require.NoError(t, err)

	rem := res.Ops[0].(graph.RemoveOp)
	assert.Equal(t, block("b1"), rem.Removed, "remove op should carry the pre-removal snapshot")
	assert.False(t, doc.Has(graph.TableBlocks, "b1"))
}

func TestBuilder_Replace(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error { return b.Add(graph.TableBlocks, block("b1")) })

	_, err := Run(doc, Spec{Label: "bad"}, func(b *Builder) error {
		return b.Replace(graph.TableBlocks, "missing", block("missing"))
	})
	assert.True(t, IsNotFound(err))

	_, err = Run(doc, Spec{Label: "bad"}, func(b *Builder) error {
		return b.Replace(graph.TableBlocks, "b1", block("b2"))
	})
	assert.True(t, IsIDMismatch(err))

	next := block("b1")
	next.Label = "renamed"
	res, err := Run(doc, Spec{Label: "rename"}, func(b *Builder) error {
		return b.Replace(graph.TableBlocks, "b1", next)
	})
	require.NoError(t, err)

	up := res.Ops[0].(graph.UpdateOp)
	assert.Equal(t, block("b1"), up.Prev, "prev snapshot is the looked-up value")
	assert.Equal(t, next, up.Next)

	got, _ := doc.Lookup(graph.TableBlocks, "b1")
	assert.Equal(t, "renamed", got.(*graph.Block).Label)
}

func TestBuilder_OverlayReads(t *testing.T) {
	doc := graph.NewDocument()

	res, err := Run(doc, Spec{Label: "overlay"}, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		// The add is visible to builder reads before commit.
		got, ok := b.Lookup(graph.TableBlocks, "b1")
		require.True(t, ok)
		assert.Equal(t, "osc", got.(*graph.Block).Kind)

		// Remove the entity added in this same build; afterwards it reads
		// as absent and a fresh add of the same id is legal again.
		if err := b.Remove(graph.TableBlocks, "b1"); err != nil {
			return err
		}
		_, ok = b.Lookup(graph.TableBlocks, "b1")
		assert.False(t, ok, "tombstoned id should read as absent")

		return b.Add(graph.TableBlocks, block("b1"))
	})
	require.NoError(t, err)

	assert.Len(t, res.Ops, 3)
	assert.Equal(t, 1, doc.Count(graph.TableBlocks))
}

func TestBuilder_SetBlockPosition(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error { return b.Add(graph.TableBlocks, block("b1")) })

	_, err := Run(doc, Spec{Label: "move"}, func(b *Builder) error {
		return b.SetBlockPosition("missing", graph.Position{})
	})
	assert.True(t, IsNotFound(err))

	res, err := Run(doc, Spec{Label: "move"}, func(b *Builder) error {
		if err := b.SetBlockPosition("b1", graph.Position{X: 5, Y: 5}); err != nil {
			return err
		}
		// Second move in the same build: prev must be the first move's
		// target, not the committed position.
		return b.SetBlockPosition("b1", graph.Position{X: 9, Y: 9})
	})
	require.NoError(t, err)

	first := res.Ops[0].(graph.SetBlockPositionOp)
	second := res.Ops[1].(graph.SetBlockPositionOp)
	assert.Equal(t, graph.Position{X: 1, Y: 2}, first.Prev)
	assert.Equal(t, graph.Position{X: 5, Y: 5}, second.Prev)

	got, _ := doc.Lookup(graph.TableBlocks, "b1")
	assert.Equal(t, graph.Position{X: 9, Y: 9}, got.(*graph.Block).Position)
}

func TestBuilder_SetTimeRootAndHint(t *testing.T) {
	doc := graph.NewDocument()

	res := seed(t, doc, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		b.SetTimeRoot("b1")
		b.SetTimeRoot("") // clearing in the same build reads prev from the overlay
		b.SetTimelineHint("swing=0.2")
		return nil
	})

	root1 := res.Ops[1].(graph.SetTimeRootOp)
	root2 := res.Ops[2].(graph.SetTimeRootOp)
	assert.Equal(t, graph.SetTimeRootOp{Prev: "", Next: "b1"}, root1)
	assert.Equal(t, graph.SetTimeRootOp{Prev: "b1", Next: ""}, root2)

	assert.Equal(t, "", doc.TimeRoot())
	assert.Equal(t, "swing=0.2", doc.TimelineHint())
}

func TestBuilder_Many_GroupsIntoSingleOp(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		if err := b.Add(graph.TableBlocks, block("b2")); err != nil {
			return err
		}
		return b.Add(graph.TableConnections, conn("c1", "b1", "b2"))
	})

	// "Delete block" cascade: the block and its incident connection go
	// together, as one undoable unit.
	res, err := Run(doc, Spec{Label: "delete block", Origin: OriginUI}, func(b *Builder) error {
		return b.Many(func() error {
			if err := b.Remove(graph.TableConnections, "c1"); err != nil {
				return err
			}
			return b.Remove(graph.TableBlocks, "b1")
		})
	})
	require.NoError(t, err)

	require.Len(t, res.Ops, 1, "group members leave the flat list")
	many := res.Ops[0].(graph.ManyOp)
	assert.Len(t, many.Ops, 2)
	assert.Equal(t, 0, doc.Count(graph.TableConnections))
	assert.Equal(t, 1, doc.Count(graph.TableBlocks))
}

func TestBuilder_Many_Nested(t *testing.T) {
	doc := graph.NewDocument()

	res := seed(t, doc, func(b *Builder) error {
		return b.Many(func() error {
			if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
				return err
			}
			return b.Many(func() error {
				return b.Add(graph.TableBlocks, block("b2"))
			})
		})
	})

	require.Len(t, res.Ops, 1)
	outer := res.Ops[0].(graph.ManyOp)
	require.Len(t, outer.Ops, 2)
	_, isAdd := outer.Ops[0].(graph.AddOp)
	_, isMany := outer.Ops[1].(graph.ManyOp)
	assert.True(t, isAdd)
	assert.True(t, isMany)
}

func TestRun_BuildError_NoSideEffects(t *testing.T) {
	doc := graph.NewDocument()
	boom := errors.New("caller precondition failed")

	_, err := Run(doc, Spec{Label: "fails"}, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, doc.Count(graph.TableBlocks))
}

func TestRun_EmptyTransaction(t *testing.T) {
	doc := graph.NewDocument()

	res, err := Run(doc, Spec{Label: "noop"}, func(b *Builder) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, res.Ops)
	assert.Empty(t, res.InverseOps)
	assert.Equal(t, 0, res.Summary.Total())
}

func TestRun_InverseOpsUndoTheTransaction(t *testing.T) {
	doc := graph.NewDocument()
	seed(t, doc, func(b *Builder) error { return b.Add(graph.TableBlocks, block("b1")) })
	before := doc.Snapshot()

	res, err := Run(doc, Spec{Label: "edit"}, func(b *Builder) error {
		next := block("b1")
		next.Kind = "gain"
		if err := b.Replace(graph.TableBlocks, "b1", next); err != nil {
			return err
		}
		if err := b.Add(graph.TableBlocks, block("b2")); err != nil {
			return err
		}
		b.SetTimeRoot("b2")
		return nil
	})
	require.NoError(t, err)
	require.NotEqual(t, before, doc.Snapshot())

	graph.ApplyAll(doc, res.InverseOps)
	assert.Equal(t, before, doc.Snapshot())
}

func TestRun_Summary(t *testing.T) {
	doc := graph.NewDocument()

	res := seed(t, doc, func(b *Builder) error {
		if err := b.Add(graph.TableBlocks, block("b1")); err != nil {
			return err
		}
		return b.Add(graph.TableBuses, &graph.Bus{ID: "bus1", Name: "mod"})
	})

	assert.Equal(t, 1, res.Summary.Added[graph.TableBlocks])
	assert.Equal(t, 1, res.Summary.Added[graph.TableBuses])
	assert.Equal(t, 2, res.Summary.Total())
}
