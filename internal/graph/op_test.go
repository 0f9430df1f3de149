package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlock(id string) *Block {
	return &Block{
		ID:       id,
		Kind:     "osc",
		Label:    "oscillator",
		Position: Position{X: 10, Y: 20},
		Params:   map[string]string{"freq": "440"},
	}
}

func testConnection(id, from, to string) *Connection {
	return &Connection{
		ID:   id,
		From: PortRef{BlockID: from, Port: "out"},
		To:   PortRef{BlockID: to, Port: "in"},
	}
}

func TestOp_Invert_Add(t *testing.T) {
	op := AddOp{Table: TableBlocks, Entity: testBlock("b1")}

	inv := op.Invert()
	rem, ok := inv.(RemoveOp)
	require.True(t, ok, "inverse of add should be remove")
	assert.Equal(t, TableBlocks, rem.Table)
	assert.Equal(t, "b1", rem.ID)
	assert.Equal(t, op.Entity, rem.Removed, "removal snapshot should be the added entity")
}

func TestOp_Invert_Remove(t *testing.T) {
	snap := testBlock("b1")
	op := RemoveOp{Table: TableBlocks, ID: "b1", Removed: snap}

	inv := op.Invert()
	add, ok := inv.(AddOp)
	require.True(t, ok, "inverse of remove should be add")
	assert.Equal(t, snap, add.Entity, "add should restore the carried snapshot")
}

func TestOp_Invert_Update_SwapsPrevNext(t *testing.T) {
	prev := testBlock("b1")
	next := testBlock("b1")
	next.Label = "renamed"

	op := UpdateOp{Table: TableBlocks, ID: "b1", Prev: prev, Next: next}
	inv := op.Invert().(UpdateOp)

	assert.Equal(t, next, inv.Prev)
	assert.Equal(t, prev, inv.Next)
}

func TestOp_Invert_Involution_AllVariants(t *testing.T) {
	ops := []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		RemoveOp{Table: TableBlocks, ID: "b1", Removed: testBlock("b1")},
		UpdateOp{Table: TableBuses, ID: "bus1", Prev: &Bus{ID: "bus1", Name: "a"}, Next: &Bus{ID: "bus1", Name: "b"}},
		SetBlockPositionOp{BlockID: "b1", Prev: Position{X: 1, Y: 2}, Next: Position{X: 3, Y: 4}},
		SetTimeRootOp{Prev: "", Next: "b1"},
		SetTimelineHintOp{Prev: "old", Next: "new"},
		ManyOp{Ops: []Op{
			AddOp{Table: TableBlocks, Entity: testBlock("b2")},
			SetTimeRootOp{Prev: "", Next: "b2"},
		}},
	}

	for _, op := range ops {
		assert.Equal(t, op, op.Invert().Invert(), "invert(invert(%s)) should be identity", KindOf(op))
	}
}

func TestOp_Invert_Many_ReversesOrder(t *testing.T) {
	a := AddOp{Table: TableBlocks, Entity: testBlock("b1")}
	b := AddOp{Table: TableConnections, Entity: testConnection("c1", "b1", "b0")}

	inv := ManyOp{Ops: []Op{a, b}}.Invert().(ManyOp)

	require.Len(t, inv.Ops, 2)
	// b depends on a's effects, so its inverse must run first.
	assert.Equal(t, b.Invert(), inv.Ops[0])
	assert.Equal(t, a.Invert(), inv.Ops[1])
}

func TestInvertAll_ReversesOrder(t *testing.T) {
	a := SetTimeRootOp{Prev: "", Next: "b1"}
	b := SetTimeRootOp{Prev: "b1", Next: "b2"}

	inv := InvertAll([]Op{a, b})

	require.Len(t, inv, 2)
	assert.Equal(t, b.Invert(), inv[0])
	assert.Equal(t, a.Invert(), inv[1])
	assert.Empty(t, InvertAll(nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "add", KindOf(AddOp{}))
	assert.Equal(t, "remove", KindOf(RemoveOp{}))
	assert.Equal(t, "update", KindOf(UpdateOp{}))
	assert.Equal(t, "set_block_position", KindOf(SetBlockPositionOp{}))
	assert.Equal(t, "set_time_root", KindOf(SetTimeRootOp{}))
	assert.Equal(t, "set_timeline_hint", KindOf(SetTimelineHintOp{}))
	assert.Equal(t, "many", KindOf(ManyOp{}))
}
