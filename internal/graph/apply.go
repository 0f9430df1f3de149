package graph

import "fmt"

// Apply executes one pre-validated op against the document. It is the
// single shared interpreter for op lists: forward commits, undo (inverse
// ops), and redo (forward ops of a child revision) all funnel through here.
//
// Apply performs no validation and computes no inverses - purely mechanical
// application. Callers are responsible for having validated the ops against
// live state; violations surface as panics, not errors, because they mean
// the single-writer discipline was broken.
func Apply(d *Document, op Op) {
	switch o := op.(type) {
	case AddOp:
		d.insert(o.Table, o.Entity)
	case RemoveOp:
		d.remove(o.Table, o.ID)
	case UpdateOp:
		d.overwrite(o.Table, o.ID, o.Next)
	case SetBlockPositionOp:
		d.setBlockPosition(o.BlockID, o.Next)
	case SetTimeRootOp:
		d.timeRoot = o.Next
	case SetTimelineHintOp:
		d.timelineHint = o.Next
	case ManyOp:
		for _, member := range o.Ops {
			Apply(d, member)
		}
	default:
		panic(fmt.Sprintf("graph: unreachable op kind %T", op))
	}
}

// ApplyAll executes ops in order. The engine is single-threaded and
// synchronous, so the whole list is one atomic batch from the caller's
// perspective: nothing else can observe the document mid-list.
func ApplyAll(d *Document, ops []Op) {
	for _, op := range ops {
		Apply(d, op)
	}
}

// ChangeSummary counts entities added, removed, and updated per table for
// one applied op list. It is a post-commit convenience for change
// notification, not part of the engine's invariants.
type ChangeSummary struct {
	Added   map[Table]int
	Removed map[Table]int
	Updated map[Table]int
}

// Total returns the number of entity-level changes across all tables.
func (s ChangeSummary) Total() int {
	n := 0
	for _, c := range s.Added {
		n += c
	}
	for _, c := range s.Removed {
		n += c
	}
	for _, c := range s.Updated {
		n += c
	}
	return n
}

// Summarize computes the per-table diff of an op list. Set ops contribute
// nothing: they touch document slots, not tables.
func Summarize(ops []Op) ChangeSummary {
	s := ChangeSummary{
		Added:   make(map[Table]int),
		Removed: make(map[Table]int),
		Updated: make(map[Table]int),
	}
	var walk func(ops []Op)
	walk = func(ops []Op) {
		for _, op := range ops {
			switch o := op.(type) {
			case AddOp:
				s.Added[o.Table]++
			case RemoveOp:
				s.Removed[o.Table]++
			case UpdateOp:
				s.Updated[o.Table]++
			case SetBlockPositionOp, SetTimeRootOp, SetTimelineHintOp:
				// slot writes, not table membership changes
			case ManyOp:
				walk(o.Ops)
			default:
				panic(fmt.Sprintf("graph: unreachable op kind %T", op))
			}
		}
	}
	walk(ops)
	return s
}
