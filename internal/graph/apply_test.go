package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_AddRemove(t *testing.T) {
	d := NewDocument()

	Apply(d, AddOp{Table: TableBlocks, Entity: testBlock("b1")})
	assert.True(t, d.Has(TableBlocks, "b1"))
	assert.Equal(t, 1, d.Count(TableBlocks))

	got, ok := d.Lookup(TableBlocks, "b1")
	require.True(t, ok)
	assert.Equal(t, testBlock("b1"), got)

	Apply(d, RemoveOp{Table: TableBlocks, ID: "b1", Removed: testBlock("b1")})
	assert.False(t, d.Has(TableBlocks, "b1"))
	assert.Equal(t, 0, d.Count(TableBlocks))
}

func TestApply_Update_OverwritesInPlace(t *testing.T) {
	d := NewDocument()
	Apply(d, AddOp{Table: TableBlocks, Entity: testBlock("b1")})

	next := testBlock("b1")
	next.Label = "renamed"
	next.Params["freq"] = "880"
	Apply(d, UpdateOp{Table: TableBlocks, ID: "b1", Prev: testBlock("b1"), Next: next})

	got, ok := d.Lookup(TableBlocks, "b1")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.(*Block).Label)
	assert.Equal(t, "880", got.(*Block).Params["freq"])
	assert.Equal(t, 1, d.Count(TableBlocks), "update must not change table membership")
}

func TestApply_SetOps(t *testing.T) {
	d := NewDocument()
	Apply(d, AddOp{Table: TableBlocks, Entity: testBlock("b1")})

	Apply(d, SetBlockPositionOp{BlockID: "b1", Prev: Position{X: 10, Y: 20}, Next: Position{X: 5, Y: 6}})
	got, _ := d.Lookup(TableBlocks, "b1")
	assert.Equal(t, Position{X: 5, Y: 6}, got.(*Block).Position)

	Apply(d, SetTimeRootOp{Prev: "", Next: "b1"})
	assert.Equal(t, "b1", d.TimeRoot())

	Apply(d, SetTimelineHintOp{Prev: "", Next: "hint"})
	assert.Equal(t, "hint", d.TimelineHint())
}

func TestApply_Many_AppliesInOrder(t *testing.T) {
	d := NewDocument()

	Apply(d, ManyOp{Ops: []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		AddOp{Table: TableBlocks, Entity: testBlock("b2")},
		AddOp{Table: TableConnections, Entity: testConnection("c1", "b1", "b2")},
		SetTimeRootOp{Prev: "", Next: "b1"},
	}})

	assert.Equal(t, 2, d.Count(TableBlocks))
	assert.Equal(t, 1, d.Count(TableConnections))
	assert.Equal(t, "b1", d.TimeRoot())
}

func TestApply_RoundTrip_RestoresState(t *testing.T) {
	d := NewDocument()
	ApplyAll(d, []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		AddOp{Table: TableBuses, Entity: &Bus{ID: "bus1", Name: "lfo", Combine: "sum"}},
		SetTimelineHintOp{Prev: "", Next: "base"},
	})
	before := d.Snapshot()

	forward := []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b2")},
		UpdateOp{Table: TableBuses, ID: "bus1",
			Prev: &Bus{ID: "bus1", Name: "lfo", Combine: "sum"},
			Next: &Bus{ID: "bus1", Name: "lfo", Combine: "max"}},
		RemoveOp{Table: TableBlocks, ID: "b1", Removed: testBlock("b1")},
		SetBlockPositionOp{BlockID: "b2", Prev: Position{X: 10, Y: 20}, Next: Position{X: 0, Y: 0}},
		SetTimeRootOp{Prev: "", Next: "b2"},
		SetTimelineHintOp{Prev: "base", Next: "fast"},
		ManyOp{Ops: []Op{
			AddOp{Table: TableBlocks, Entity: testBlock("b3")},
			AddOp{Table: TableConnections, Entity: testConnection("c1", "b2", "b3")},
		}},
	}

	ApplyAll(d, forward)
	assert.NotEqual(t, before, d.Snapshot())

	ApplyAll(d, InvertAll(forward))
	assert.Equal(t, before, d.Snapshot(), "applying the inverse list must restore state field-for-field")
}

func TestApply_Update_MissingTarget_Panics(t *testing.T) {
	d := NewDocument()
	assert.Panics(t, func() {
		Apply(d, UpdateOp{Table: TableBlocks, ID: "nope", Prev: testBlock("nope"), Next: testBlock("nope")})
	})
}

func TestSummarize(t *testing.T) {
	ops := []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		SetTimeRootOp{Next: "b1"},
		ManyOp{Ops: []Op{
			AddOp{Table: TableConnections, Entity: testConnection("c1", "b1", "b2")},
			RemoveOp{Table: TableBlocks, ID: "b0", Removed: testBlock("b0")},
			UpdateOp{Table: TableBuses, ID: "bus1", Prev: &Bus{ID: "bus1"}, Next: &Bus{ID: "bus1"}},
		}},
	}

	s := Summarize(ops)
	assert.Equal(t, 1, s.Added[TableBlocks])
	assert.Equal(t, 1, s.Added[TableConnections])
	assert.Equal(t, 1, s.Removed[TableBlocks])
	assert.Equal(t, 1, s.Updated[TableBuses])
	assert.Equal(t, 4, s.Total(), "set ops do not count toward the diff")
}

func TestDocument_Lookup_ReturnsClone(t *testing.T) {
	d := NewDocument()
	Apply(d, AddOp{Table: TableBlocks, Entity: testBlock("b1")})

	got, _ := d.Lookup(TableBlocks, "b1")
	got.(*Block).Params["freq"] = "999"

	again, _ := d.Lookup(TableBlocks, "b1")
	assert.Equal(t, "440", again.(*Block).Params["freq"], "mutating a lookup result must not touch the document")
}

func TestDocument_IDs_Sorted(t *testing.T) {
	d := NewDocument()
	ApplyAll(d, []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b3")},
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		AddOp{Table: TableBlocks, Entity: testBlock("b2")},
	})
	assert.Equal(t, []string{"b1", "b2", "b3"}, d.IDs(TableBlocks))
}
