package txn

import (
	"github.com/roach88/patchbay/internal/graph"
)

// Builder accumulates ops during one build callback. It is ephemeral and
// single-use: Run creates it, hands it to the callback, and discards it.
//
// The builder never mutates the document. Reads go through a pending-op
// overlay on top of the document, so later calls in the same build see the
// effects of earlier ones: Add makes the id visible, Remove tombstones it,
// Replace and SetBlockPosition update the visible value. A caller holding a
// snapshot from before an earlier call sees stale data - re-query through
// Lookup.
type Builder struct {
	doc *graph.Document
	ops []graph.Op

	// pending overlays the document with this build's uncommitted effects.
	// A nil entity is a tombstone (removed during this build).
	pending map[graph.Table]map[string]graph.Entity

	timeRoot     *string
	timelineHint *string
}

func newBuilder(doc *graph.Document) *Builder {
	return &Builder{
		doc:     doc,
		pending: make(map[graph.Table]map[string]graph.Entity),
	}
}

// Lookup returns the entity as it would exist if the ops built so far were
// committed. The result is a clone.
func (b *Builder) Lookup(t graph.Table, id string) (graph.Entity, bool) {
	if entries, ok := b.pending[t]; ok {
		if e, ok := entries[id]; ok {
			if e == nil {
				return nil, false // tombstone
			}
			return e.Clone(), true
		}
	}
	return b.doc.Lookup(t, id)
}

// TimeRoot returns the timing-root id as it would exist post-commit.
func (b *Builder) TimeRoot() string {
	if b.timeRoot != nil {
		return *b.timeRoot
	}
	return b.doc.TimeRoot()
}

// TimelineHint returns the hint slot as it would exist post-commit.
func (b *Builder) TimelineHint() string {
	if b.timelineHint != nil {
		return *b.timelineHint
	}
	return b.doc.TimelineHint()
}

func (b *Builder) setPending(t graph.Table, id string, e graph.Entity) {
	entries, ok := b.pending[t]
	if !ok {
		entries = make(map[string]graph.Entity)
		b.pending[t] = entries
	}
	entries[id] = e
}

// Add appends an insert op. Fails with DUPLICATE_ID if the id is already
// present in the table (in the document or earlier in this build).
func (b *Builder) Add(t graph.Table, e graph.Entity) error {
	if e == nil || e.EntityID() == "" {
		return &TxError{Code: ErrCodeIDMismatch, Table: t.String(), Message: "entity is nil or has empty id"}
	}
	id := e.EntityID()
	if _, ok := b.Lookup(t, id); ok {
		return &TxError{Code: ErrCodeDuplicateID, Table: t.String(), ID: id}
	}
	snapshot := e.Clone()
	b.ops = append(b.ops, graph.AddOp{Table: t, Entity: snapshot})
	b.setPending(t, id, snapshot)
	return nil
}

// Remove appends a delete op carrying the current entity snapshot. Fails
// with NOT_FOUND if the id is absent.
func (b *Builder) Remove(t graph.Table, id string) error {
	cur, ok := b.Lookup(t, id)
	if !ok {
		return &TxError{Code: ErrCodeNotFound, Table: t.String(), ID: id}
	}
	b.ops = append(b.ops, graph.RemoveOp{Table: t, ID: id, Removed: cur})
	b.setPending(t, id, nil)
	return nil
}

// Replace appends an update op replacing the entity's full value. Fails
// with NOT_FOUND if the id is absent, and with ID_MISMATCH if next carries
// a different id.
func (b *Builder) Replace(t graph.Table, id string, next graph.Entity) error {
	cur, ok := b.Lookup(t, id)
	if !ok {
		return &TxError{Code: ErrCodeNotFound, Table: t.String(), ID: id}
	}
	if next == nil || next.EntityID() != id {
		return &TxError{Code: ErrCodeIDMismatch, Table: t.String(), ID: id, Message: "replacement entity id differs from target"}
	}
	snapshot := next.Clone()
	b.ops = append(b.ops, graph.UpdateOp{Table: t, ID: id, Prev: cur, Next: snapshot})
	b.setPending(t, id, snapshot)
	return nil
}

// SetBlockPosition appends a placement op for a block. Fails with NOT_FOUND
// if the block is absent.
func (b *Builder) SetBlockPosition(blockID string, next graph.Position) error {
	cur, ok := b.Lookup(graph.TableBlocks, blockID)
	if !ok {
		return &TxError{Code: ErrCodeNotFound, Table: graph.TableBlocks.String(), ID: blockID}
	}
	block := cur.(*graph.Block)
	b.ops = append(b.ops, graph.SetBlockPositionOp{BlockID: blockID, Prev: block.Position, Next: next})
	block.Position = next
	b.setPending(graph.TableBlocks, blockID, block)
	return nil
}

// SetTimeRoot appends a timing-root op. The previous value is read from
// live build state; "" means no root. The engine does not verify the id
// names an existing block - referential integrity is the caller's job.
func (b *Builder) SetTimeRoot(next string) {
	prev := b.TimeRoot()
	b.ops = append(b.ops, graph.SetTimeRootOp{Prev: prev, Next: next})
	b.timeRoot = &next
}

// SetTimelineHint appends a hint op. The value is opaque to the engine.
func (b *Builder) SetTimelineHint(next string) {
	prev := b.TimelineHint()
	b.ops = append(b.ops, graph.SetTimelineHintOp{Prev: prev, Next: next})
	b.timelineHint = &next
}

// Many runs fn and collects every op it appends into a single ManyOp, so a
// cascade (delete a block plus its incident connections) undoes as one
// step. Groups nest. If fn fails, the error propagates and aborts the whole
// transaction - nothing has been applied, so there is nothing to unwind.
func (b *Builder) Many(fn func() error) error {
	mark := len(b.ops)
	if err := fn(); err != nil {
		return err
	}
	group := make([]graph.Op, len(b.ops)-mark)
	copy(group, b.ops[mark:])
	b.ops = append(b.ops[:mark], graph.ManyOp{Ops: group})
	return nil
}

// Ops returns the ops accumulated so far. Exposed for introspection; the
// slice is the builder's own.
func (b *Builder) Ops() []graph.Op {
	return b.ops
}
