package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip_MixedOps(t *testing.T) {
	ops := []Op{
		AddOp{Table: TableBlocks, Entity: testBlock("b1")},
		RemoveOp{Table: TableBuses, ID: "bus1", Removed: &Bus{ID: "bus1", Name: "lfo"}},
		UpdateOp{Table: TableListeners, ID: "l1",
			Prev: &Listener{ID: "l1", BusID: "bus1", Target: PortRef{BlockID: "b1", Port: "in"}},
			Next: &Listener{ID: "l1", BusID: "bus2", Target: PortRef{BlockID: "b1", Port: "in"}}},
		SetBlockPositionOp{BlockID: "b1", Prev: Position{X: 1.5, Y: -2}, Next: Position{}},
		SetTimeRootOp{Prev: "", Next: "b1"},
		SetTimelineHintOp{Prev: "old", Next: ""},
		ManyOp{Ops: []Op{
			AddOp{Table: TableComposites, Entity: &Composite{ID: "g1", Name: "voice", BlockIDs: []string{"b1"}}},
			AddOp{Table: TableDefaultSources, Entity: &DefaultSource{ID: "d1", Target: PortRef{BlockID: "b1", Port: "gain"}, Value: "0.5"}},
			AddOp{Table: TablePublishers, Entity: &Publisher{ID: "p1", BusID: "bus1", Source: PortRef{BlockID: "b1", Port: "out"}}},
		}},
	}

	data, err := MarshalOps(ops)
	require.NoError(t, err)

	decoded, err := UnmarshalOps(data)
	require.NoError(t, err)
	assert.Equal(t, ops, decoded)
}

func TestCodec_RoundTrip_PreservesEmptySlotValues(t *testing.T) {
	// "" is a meaningful value for the slot ops (it means absent); the
	// envelope must not drop it.
	ops := []Op{
		SetTimeRootOp{Prev: "b1", Next: ""},
		SetTimelineHintOp{Prev: "", Next: ""},
	}

	data, err := MarshalOps(ops)
	require.NoError(t, err)

	decoded, err := UnmarshalOps(data)
	require.NoError(t, err)
	assert.Equal(t, ops, decoded)
}

func TestCodec_UnknownKind(t *testing.T) {
	_, err := UnmarshalOps([]byte(`[{"kind":"teleport"}]`))
	assert.ErrorContains(t, err, "unknown op kind")
}

func TestCodec_UnknownTable(t *testing.T) {
	_, err := UnmarshalOps([]byte(`[{"kind":"add","table":"gadgets","entity":{"id":"x"}}]`))
	assert.ErrorContains(t, err, "unknown table")
}

func TestCodec_MissingEntityPayload(t *testing.T) {
	_, err := UnmarshalOps([]byte(`[{"kind":"add","table":"blocks"}]`))
	assert.ErrorContains(t, err, "missing entity payload")
}

func TestParseTable_RoundTrip(t *testing.T) {
	for _, table := range Tables {
		parsed, err := ParseTable(table.String())
		require.NoError(t, err)
		assert.Equal(t, table, parsed)
	}

	_, err := ParseTable("gadgets")
	assert.Error(t, err)
}
