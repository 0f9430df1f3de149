// Package history owns the branching revision tree for a patch document.
//
// Every committed transaction becomes a node; undo walks to the parent by
// applying the node's inverse ops, redo walks to a child by replaying its
// forward ops. Editing after an undo creates a sibling branch - the
// abandoned future is never deleted, merely unselected. The tree is
// append-only: nodes are never mutated after creation except for
// preferred-child bookkeeping, and never removed short of Reset.
package history

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/patchbay/internal/graph"
)

// RootID is the implicit root revision: the state before any transaction
// has ever run. It has no stored node and is not itself reachable via undo.
const RootID int64 = 0

// Revision is one committed transaction recorded in the tree.
type Revision struct {
	ID         int64
	ParentID   int64
	Ops        []graph.Op
	InverseOps []graph.Op
	Label      string
	Timestamp  time.Time

	// PreferredChildID records which child redo should follow, set when
	// undoing away from that child. 0 means no preference.
	PreferredChildID int64
}

// Store is the revision tree plus the current position in it. It holds the
// document it governs; undo/redo mutate that document exclusively through
// the graph apply engine.
//
// Single-threaded like the rest of the engine: callers serialize access.
type Store struct {
	doc      *graph.Document
	nodes    map[int64]*Revision
	children map[int64][]int64 // parent id -> child ids, ascending
	current  int64
	nextID   int64

	// rootPreferred plays the PreferredChildID role for the implicit root,
	// which has no node to store it on.
	rootPreferred int64

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNow injects the timestamp source. Tests use a fixed clock for
// deterministic revision timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty history for doc, positioned at the root.
func NewStore(doc *graph.Document, opts ...Option) *Store {
	s := &Store{
		doc:      doc,
		nodes:    make(map[int64]*Revision),
		children: make(map[int64][]int64),
		current:  RootID,
		nextID:   1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the document this history governs.
func (s *Store) Document() *graph.Document { return s.doc }

// CurrentRevisionID returns the id of the current revision, RootID if no
// transaction has been committed (or everything has been undone).
func (s *Store) CurrentRevisionID() int64 { return s.current }

// Len returns the number of recorded revisions.
func (s *Store) Len() int { return len(s.nodes) }

// AddRevision records an already-applied transaction as a new leaf under
// the current revision and moves current to it. Always succeeds and always
// produces a new node, including for a transaction with zero ops.
//
// The ops must already have been applied to the document (txn.Run does
// this); AddRevision only records them.
func (s *Store) AddRevision(ops, inverseOps []graph.Op, label string) int64 {
	rev := &Revision{
		ID:         s.nextID,
		ParentID:   s.current,
		Ops:        ops,
		InverseOps: inverseOps,
		Label:      label,
		Timestamp:  s.now(),
	}
	s.nextID++
	s.nodes[rev.ID] = rev
	// Ids grow monotonically, so appending keeps the list ascending.
	s.children[rev.ParentID] = append(s.children[rev.ParentID], rev.ID)
	s.current = rev.ID

	slog.Debug("revision recorded",
		"id", rev.ID,
		"parent", rev.ParentID,
		"label", label,
		"ops", len(ops),
	)
	return rev.ID
}

// CanUndo reports whether the current position has a parent to return to.
func (s *Store) CanUndo() bool { return s.current != RootID }

// CanRedo reports whether the current position has at least one child.
func (s *Store) CanRedo() bool { return len(s.children[s.current]) > 0 }

// Undo applies the current revision's inverse ops and moves to its parent.
// Returns false (no state change) at the root. The departed revision is
// recorded as the parent's preferred child so a subsequent redo retraces
// the same path.
func (s *Store) Undo() bool {
	if s.current == RootID {
		return false
	}
	node := s.nodes[s.current]
	graph.ApplyAll(s.doc, node.InverseOps)

	if node.ParentID == RootID {
		s.rootPreferred = node.ID
	} else {
		s.nodes[node.ParentID].PreferredChildID = node.ID
	}
	s.current = node.ParentID

	slog.Info("undo", "from", node.ID, "to", s.current, "label", node.Label)
	return true
}

// Redo replays the forward ops of one child of the current revision and
// moves to it. Returns false if there are no children. Child selection: the
// preferred child recorded by the last undo from this position, if it still
// names an existing child; otherwise the lowest-id (earliest-created)
// child.
func (s *Store) Redo() bool {
	kids := s.children[s.current]
	if len(kids) == 0 {
		return false
	}

	target := kids[0]
	if preferred := s.preferredChildOf(s.current); preferred != 0 && slices.Contains(kids, preferred) {
		target = preferred
	}

	node := s.nodes[target]
	graph.ApplyAll(s.doc, node.Ops)
	s.current = target

	slog.Info("redo", "to", node.ID, "label", node.Label)
	return true
}

func (s *Store) preferredChildOf(id int64) int64 {
	if id == RootID {
		return s.rootPreferred
	}
	return s.nodes[id].PreferredChildID
}

// Revision returns a copy of the node with the given id. The root has no
// node; Revision(RootID) returns false.
func (s *Store) Revision(id int64) (Revision, bool) {
	node, ok := s.nodes[id]
	if !ok {
		return Revision{}, false
	}
	return *node, true
}

// Children returns the ids of a revision's children in ascending id order
// (creation order).
func (s *Store) Children(parentID int64) []int64 {
	kids := s.children[parentID]
	out := make([]int64, len(kids))
	copy(out, kids)
	return out
}

// Parent returns the parent id of a revision. False if the id names no
// node (including RootID, which has no parent).
func (s *Store) Parent(id int64) (int64, bool) {
	node, ok := s.nodes[id]
	if !ok {
		return 0, false
	}
	return node.ParentID, true
}

// Reset discards the entire tree and returns to the initial root state
// with no recorded history. Used when the caller replaces the document
// wholesale rather than editing it incrementally. The document itself is
// not touched - the caller has already swapped its contents.
func (s *Store) Reset() {
	s.nodes = make(map[int64]*Revision)
	s.children = make(map[int64][]int64)
	s.current = RootID
	s.nextID = 1
	s.rootPreferred = 0
	slog.Info("history reset")
}

// Tree is the plain-data export of a store, for persistence.
type Tree struct {
	Revisions            []Revision // ascending id order
	CurrentID            int64
	RootPreferredChildID int64
}

// Export renders the tree as plain data. Op slices are shared with the
// store; treat the export as read-only.
func (s *Store) Export() Tree {
	revs := make([]Revision, 0, len(s.nodes))
	for _, node := range s.nodes {
		revs = append(revs, *node)
	}
	slices.SortFunc(revs, func(a, b Revision) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return Tree{
		Revisions:            revs,
		CurrentID:            s.current,
		RootPreferredChildID: s.rootPreferred,
	}
}

// Restore rebuilds a store from an exported tree and replays the
// root-to-current path against doc, which must hold the document's root
// state (typically empty). Fails if the tree is inconsistent: a missing
// parent, a duplicate id, or a current pointer naming no node.
func Restore(doc *graph.Document, tree Tree, opts ...Option) (*Store, error) {
	s := NewStore(doc, opts...)

	for i := range tree.Revisions {
		rev := tree.Revisions[i]
		if rev.ID == RootID {
			return nil, fmt.Errorf("revision id 0 is reserved for the implicit root")
		}
		if _, dup := s.nodes[rev.ID]; dup {
			return nil, fmt.Errorf("duplicate revision id %d", rev.ID)
		}
		node := rev
		s.nodes[rev.ID] = &node
		s.children[rev.ParentID] = append(s.children[rev.ParentID], rev.ID)
		if rev.ID >= s.nextID {
			s.nextID = rev.ID + 1
		}
	}

	for _, node := range s.nodes {
		if node.ParentID != RootID {
			if _, ok := s.nodes[node.ParentID]; !ok {
				return nil, fmt.Errorf("revision %d references missing parent %d", node.ID, node.ParentID)
			}
		}
	}
	for parent := range s.children {
		slices.Sort(s.children[parent])
	}

	s.rootPreferred = tree.RootPreferredChildID

	if tree.CurrentID != RootID {
		if _, ok := s.nodes[tree.CurrentID]; !ok {
			return nil, fmt.Errorf("current revision %d does not exist", tree.CurrentID)
		}
		// Walk parents up to the root, then replay forward.
		var path []int64
		for id := tree.CurrentID; id != RootID; id = s.nodes[id].ParentID {
			path = append(path, id)
		}
		slices.Reverse(path)
		for _, id := range path {
			graph.ApplyAll(doc, s.nodes[id].Ops)
		}
		s.current = tree.CurrentID
	}

	slog.Debug("history restored", "revisions", len(s.nodes), "current", s.current)
	return s, nil
}
