package graph

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints ids for newly created entities. Implemented by
// UUIDv7Generator (production) and FixedIDGenerator (tests).
//
// The engine itself never generates ids - ops carry fully-formed entities -
// but callers that create entities (the CUE patch loader, editor commands)
// need a source of fresh ones.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator mints time-sortable UUIDv7 ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so entity ids
// sort by creation time - handy when scanning a document dump.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined ids in order, for deterministic
// tests and golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedIDGenerator("b1", "b2")
//	gen.NewID() // "b1"
//	gen.NewID() // "b2"
//	gen.NewID() // panic: ids exhausted
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// NewID returns the next predetermined id. Panics when exhausted - a test
// asking for more ids than it declared is a test bug, and failing fast
// beats silently recycling ids.
func (g *FixedIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("graph: FixedIDGenerator exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
