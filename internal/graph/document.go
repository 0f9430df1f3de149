package graph

import (
	"fmt"
	"slices"
)

// Document is the in-memory patch document: one table per entity kind plus
// two dedicated slots (time root, timeline hint).
//
// All fields are unexported. Reads go through the exported lookup methods
// and return clones; writes happen only inside this package's apply engine.
// That is the load-bearing invariant that makes inverse computation and
// replay trustworthy - no other code path can touch a table.
type Document struct {
	blocks         map[string]*Block
	connections    map[string]*Connection
	buses          map[string]*Bus
	publishers     map[string]*Publisher
	listeners      map[string]*Listener
	composites     map[string]*Composite
	defaultSources map[string]*DefaultSource

	// timeRoot names the block treated as the timing root, "" if none.
	timeRoot string

	// timelineHint is an opaque scheduling hint. The engine stores and
	// replays it but never interprets it.
	timelineHint string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		blocks:         make(map[string]*Block),
		connections:    make(map[string]*Connection),
		buses:          make(map[string]*Bus),
		publishers:     make(map[string]*Publisher),
		listeners:      make(map[string]*Listener),
		composites:     make(map[string]*Composite),
		defaultSources: make(map[string]*DefaultSource),
	}
}

// Lookup returns a clone of the entity with the given id, or false if the
// table has no such entity. The clone is the caller's to keep; mutating it
// does not touch the document.
func (d *Document) Lookup(t Table, id string) (Entity, bool) {
	switch t {
	case TableBlocks:
		if e, ok := d.blocks[id]; ok {
			return e.Clone(), true
		}
	case TableConnections:
		if e, ok := d.connections[id]; ok {
			return e.Clone(), true
		}
	case TableBuses:
		if e, ok := d.buses[id]; ok {
			return e.Clone(), true
		}
	case TablePublishers:
		if e, ok := d.publishers[id]; ok {
			return e.Clone(), true
		}
	case TableListeners:
		if e, ok := d.listeners[id]; ok {
			return e.Clone(), true
		}
	case TableComposites:
		if e, ok := d.composites[id]; ok {
			return e.Clone(), true
		}
	case TableDefaultSources:
		if e, ok := d.defaultSources[id]; ok {
			return e.Clone(), true
		}
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
	return nil, false
}

// Has reports whether the table contains an entity with the given id.
func (d *Document) Has(t Table, id string) bool {
	_, ok := d.Lookup(t, id)
	return ok
}

// Count returns the number of entities in a table.
func (d *Document) Count(t Table) int {
	switch t {
	case TableBlocks:
		return len(d.blocks)
	case TableConnections:
		return len(d.connections)
	case TableBuses:
		return len(d.buses)
	case TablePublishers:
		return len(d.publishers)
	case TableListeners:
		return len(d.listeners)
	case TableComposites:
		return len(d.composites)
	case TableDefaultSources:
		return len(d.defaultSources)
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
}

// IDs returns the ids in a table, sorted ascending for deterministic
// iteration.
func (d *Document) IDs(t Table) []string {
	ids := make([]string, 0, d.Count(t))
	switch t {
	case TableBlocks:
		for id := range d.blocks {
			ids = append(ids, id)
		}
	case TableConnections:
		for id := range d.connections {
			ids = append(ids, id)
		}
	case TableBuses:
		for id := range d.buses {
			ids = append(ids, id)
		}
	case TablePublishers:
		for id := range d.publishers {
			ids = append(ids, id)
		}
	case TableListeners:
		for id := range d.listeners {
			ids = append(ids, id)
		}
	case TableComposites:
		for id := range d.composites {
			ids = append(ids, id)
		}
	case TableDefaultSources:
		for id := range d.defaultSources {
			ids = append(ids, id)
		}
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
	slices.Sort(ids)
	return ids
}

// TimeRoot returns the id of the timing-root block, "" if none is set.
func (d *Document) TimeRoot() string { return d.timeRoot }

// TimelineHint returns the opaque scheduling hint, "" if unset.
func (d *Document) TimelineHint() string { return d.timelineHint }

// insert stores a clone of the entity under its id. Ops are validated
// before application, so a colliding id here means the single-writer rule
// was broken somewhere.
func (d *Document) insert(t Table, e Entity) {
	switch t {
	case TableBlocks:
		d.blocks[e.EntityID()] = e.Clone().(*Block)
	case TableConnections:
		d.connections[e.EntityID()] = e.Clone().(*Connection)
	case TableBuses:
		d.buses[e.EntityID()] = e.Clone().(*Bus)
	case TablePublishers:
		d.publishers[e.EntityID()] = e.Clone().(*Publisher)
	case TableListeners:
		d.listeners[e.EntityID()] = e.Clone().(*Listener)
	case TableComposites:
		d.composites[e.EntityID()] = e.Clone().(*Composite)
	case TableDefaultSources:
		d.defaultSources[e.EntityID()] = e.Clone().(*DefaultSource)
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
}

// remove deletes the entity with the given id.
func (d *Document) remove(t Table, id string) {
	switch t {
	case TableBlocks:
		delete(d.blocks, id)
	case TableConnections:
		delete(d.connections, id)
	case TableBuses:
		delete(d.buses, id)
	case TablePublishers:
		delete(d.publishers, id)
	case TableListeners:
		delete(d.listeners, id)
	case TableComposites:
		delete(d.composites, id)
	case TableDefaultSources:
		delete(d.defaultSources, id)
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
}

// overwrite replaces the stored entity's fields in place, through the
// pointer already held in the table. The slot is never delete-and-reinsert:
// callers outside the engine that track the record by identity keep a valid
// handle across updates.
func (d *Document) overwrite(t Table, id string, next Entity) {
	switch t {
	case TableBlocks:
		cur, ok := d.blocks[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Block))
	case TableConnections:
		cur, ok := d.connections[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Connection))
	case TableBuses:
		cur, ok := d.buses[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Bus))
	case TablePublishers:
		cur, ok := d.publishers[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Publisher))
	case TableListeners:
		cur, ok := d.listeners[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Listener))
	case TableComposites:
		cur, ok := d.composites[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*Composite))
	case TableDefaultSources:
		cur, ok := d.defaultSources[id]
		mustExist(t, id, ok)
		*cur = *(next.Clone().(*DefaultSource))
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
}

// mustExist guards overwrite targets. Ops reach the apply engine
// pre-validated against live state, so a missing target is a programming
// error, not a user error.
func mustExist(t Table, id string, ok bool) {
	if !ok {
		panic(fmt.Sprintf("graph: update target %s/%s does not exist", t, id))
	}
}

// setBlockPosition writes a block's position in place.
func (d *Document) setBlockPosition(blockID string, pos Position) {
	cur, ok := d.blocks[blockID]
	mustExist(TableBlocks, blockID, ok)
	cur.Position = pos
}
