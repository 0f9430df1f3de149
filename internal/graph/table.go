package graph

import "fmt"

// Table identifies one of the document's entity collections.
//
// The set is closed and known at compile time. Adding a table is a code
// change (new entity type, new Document map, new switch arms), never
// configuration - this is what turns "unknown table" from a runtime
// defensive branch into a compile-time impossibility.
type Table uint8

const (
	TableBlocks Table = iota
	TableConnections
	TableBuses
	TablePublishers
	TableListeners
	TableComposites
	TableDefaultSources
)

// Tables lists every table in canonical order. Used for deterministic
// iteration (snapshots, diffs).
var Tables = [...]Table{
	TableBlocks,
	TableConnections,
	TableBuses,
	TablePublishers,
	TableListeners,
	TableComposites,
	TableDefaultSources,
}

// String returns the wire/display name of the table.
func (t Table) String() string {
	switch t {
	case TableBlocks:
		return "blocks"
	case TableConnections:
		return "connections"
	case TableBuses:
		return "buses"
	case TablePublishers:
		return "publishers"
	case TableListeners:
		return "listeners"
	case TableComposites:
		return "composites"
	case TableDefaultSources:
		return "default_sources"
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
}

// ParseTable maps a wire/display name back to its Table.
// Returns an error for unknown names; used at serialization boundaries
// where input is not under the type system's control.
func ParseTable(s string) (Table, error) {
	switch s {
	case "blocks":
		return TableBlocks, nil
	case "connections":
		return TableConnections, nil
	case "buses":
		return TableBuses, nil
	case "publishers":
		return TablePublishers, nil
	case "listeners":
		return TableListeners, nil
	case "composites":
		return TableComposites, nil
	case "default_sources":
		return TableDefaultSources, nil
	default:
		return 0, fmt.Errorf("unknown table %q", s)
	}
}

// TableOf returns the table an entity type belongs to.
// Each entity type lives in exactly one table.
func TableOf(e Entity) Table {
	switch e.(type) {
	case *Block:
		return TableBlocks
	case *Connection:
		return TableConnections
	case *Bus:
		return TableBuses
	case *Publisher:
		return TablePublishers
	case *Listener:
		return TableListeners
	case *Composite:
		return TableComposites
	case *DefaultSource:
		return TableDefaultSources
	default:
		panic(fmt.Sprintf("graph: unreachable entity type %T", e))
	}
}
