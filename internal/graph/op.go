package graph

import "fmt"

// Op is the sealed union of primitive mutations. Exactly seven variants
// implement it: AddOp, RemoveOp, UpdateOp, SetBlockPositionOp,
// SetTimeRootOp, SetTimelineHintOp, ManyOp.
//
// Invert is total and pure. Variants that carry a prev and a next invert by
// swapping the two; Add and Remove convert into each other using the
// carried snapshot; Many inverts by reversing op order and inverting each
// member. Invert(Invert(op)) == op for every variant.
type Op interface {
	Invert() Op

	op() // sealed
}

// AddOp inserts a new entity into a table.
type AddOp struct {
	Table  Table
	Entity Entity
}

func (o AddOp) op() {}

// Invert converts the insert into a removal carrying the inserted entity
// as its snapshot.
func (o AddOp) Invert() Op {
	return RemoveOp{Table: o.Table, ID: o.Entity.EntityID(), Removed: o.Entity}
}

// RemoveOp deletes an entity by id. Removed is a snapshot of the entity as
// it existed at op construction time, making the op self-contained: its
// inverse needs no access to any document.
type RemoveOp struct {
	Table   Table
	ID      string
	Removed Entity
}

func (o RemoveOp) op() {}

func (o RemoveOp) Invert() Op {
	return AddOp{Table: o.Table, Entity: o.Removed}
}

// UpdateOp replaces an entity's full value in place. Prev and Next carry
// the same id as ID.
type UpdateOp struct {
	Table Table
	ID    string
	Prev  Entity
	Next  Entity
}

func (o UpdateOp) op() {}

func (o UpdateOp) Invert() Op {
	return UpdateOp{Table: o.Table, ID: o.ID, Prev: o.Next, Next: o.Prev}
}

// SetBlockPositionOp moves a block on the canvas. Placement changes are
// issued constantly during dragging, so they get a dedicated narrow op
// instead of a full UpdateOp.
type SetBlockPositionOp struct {
	BlockID string
	Prev    Position
	Next    Position
}

func (o SetBlockPositionOp) op() {}

func (o SetBlockPositionOp) Invert() Op {
	return SetBlockPositionOp{BlockID: o.BlockID, Prev: o.Next, Next: o.Prev}
}

// SetTimeRootOp designates which block (if any) is the timing root.
// "" means no root.
type SetTimeRootOp struct {
	Prev string
	Next string
}

func (o SetTimeRootOp) op() {}

func (o SetTimeRootOp) Invert() Op {
	return SetTimeRootOp{Prev: o.Next, Next: o.Prev}
}

// SetTimelineHintOp writes the opaque scheduling hint slot.
type SetTimelineHintOp struct {
	Prev string
	Next string
}

func (o SetTimelineHintOp) op() {}

func (o SetTimelineHintOp) Invert() Op {
	return SetTimelineHintOp{Prev: o.Next, Next: o.Prev}
}

// ManyOp groups ops that apply and undo as one unit, e.g. deleting a block
// together with its incident connections. Order matters: op N may depend on
// the side effects of op N-1, so the inverse runs the inverted members in
// reverse order.
type ManyOp struct {
	Ops []Op
}

func (o ManyOp) op() {}

func (o ManyOp) Invert() Op {
	inverted := make([]Op, len(o.Ops))
	for i, member := range o.Ops {
		inverted[len(o.Ops)-1-i] = member.Invert()
	}
	return ManyOp{Ops: inverted}
}

// InvertAll inverts an op list for whole-transaction undo: each op is
// inverted and the list order is reversed, for the same dependency reason
// as ManyOp.Invert.
func InvertAll(ops []Op) []Op {
	inverted := make([]Op, len(ops))
	for i, op := range ops {
		inverted[len(ops)-1-i] = op.Invert()
	}
	return inverted
}

// KindOf returns the stable wire name of an op's variant.
func KindOf(op Op) string {
	switch op.(type) {
	case AddOp:
		return "add"
	case RemoveOp:
		return "remove"
	case UpdateOp:
		return "update"
	case SetBlockPositionOp:
		return "set_block_position"
	case SetTimeRootOp:
		return "set_time_root"
	case SetTimelineHintOp:
		return "set_timeline_hint"
	case ManyOp:
		return "many"
	default:
		panic(fmt.Sprintf("graph: unreachable op kind %T", op))
	}
}
