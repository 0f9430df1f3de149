package graph

import "maps"

// Entity is the sealed interface over the document's record types.
// Only the seven concrete types in this file implement it.
//
// Clone returns a deep copy; the engine stores and hands out clones so that
// snapshots captured inside ops stay immutable after the fact.
type Entity interface {
	EntityID() string
	Clone() Entity

	entity() // sealed
}

// Position is a 2D placement on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PortRef addresses one named port on one block.
type PortRef struct {
	BlockID string `json:"block_id"`
	Port    string `json:"port"`
}

// Block is a processing node in the patch graph.
type Block struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Label    string            `json:"label,omitempty"`
	Position Position          `json:"position"`
	Params   map[string]string `json:"params,omitempty"`
}

func (b *Block) EntityID() string { return b.ID }
func (b *Block) entity()          {}

// Clone returns a deep copy, including the params map.
func (b *Block) Clone() Entity {
	c := *b
	c.Params = maps.Clone(b.Params)
	return &c
}

// Connection is a directed edge from one block's output port to another
// block's input port.
type Connection struct {
	ID   string  `json:"id"`
	From PortRef `json:"from"`
	To   PortRef `json:"to"`
}

func (c *Connection) EntityID() string { return c.ID }
func (c *Connection) entity()          {}

func (c *Connection) Clone() Entity {
	cp := *c
	return &cp
}

// Bus is a named many-to-many signal channel. Combine names the fan-in
// policy; its semantics belong to the compiler, not this engine.
type Bus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Combine string `json:"combine,omitempty"`
}

func (b *Bus) EntityID() string { return b.ID }
func (b *Bus) entity()          {}

func (b *Bus) Clone() Entity {
	c := *b
	return &c
}

// Publisher feeds a block output port onto a bus.
type Publisher struct {
	ID     string  `json:"id"`
	BusID  string  `json:"bus_id"`
	Source PortRef `json:"source"`
}

func (p *Publisher) EntityID() string { return p.ID }
func (p *Publisher) entity()          {}

func (p *Publisher) Clone() Entity {
	c := *p
	return &c
}

// Listener delivers a bus onto a block input port.
type Listener struct {
	ID     string  `json:"id"`
	BusID  string  `json:"bus_id"`
	Target PortRef `json:"target"`
}

func (l *Listener) EntityID() string { return l.ID }
func (l *Listener) entity()          {}

func (l *Listener) Clone() Entity {
	c := *l
	return &c
}

// Composite groups blocks into a named reusable unit.
type Composite struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	BlockIDs []string `json:"block_ids,omitempty"`
}

func (c *Composite) EntityID() string { return c.ID }
func (c *Composite) entity()          {}

// Clone returns a deep copy, including the block id list.
func (c *Composite) Clone() Entity {
	cp := *c
	if c.BlockIDs != nil {
		cp.BlockIDs = make([]string, len(c.BlockIDs))
		copy(cp.BlockIDs, c.BlockIDs)
	}
	return &cp
}

// DefaultSource supplies a constant value to an input port that has no
// incoming connection. The value is an opaque string to this engine.
type DefaultSource struct {
	ID     string  `json:"id"`
	Target PortRef `json:"target"`
	Value  string  `json:"value"`
}

func (d *DefaultSource) EntityID() string { return d.ID }
func (d *DefaultSource) entity()          {}

func (d *DefaultSource) Clone() Entity {
	c := *d
	return &c
}
