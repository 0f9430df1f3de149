package graph

import "fmt"

// Snapshot renders the whole document as plain maps and slices, sorted by
// table order and entity id. Used for state assertions in tests and for
// deterministic golden serialization; not a mutation surface.
func (d *Document) Snapshot() map[string]any {
	snap := make(map[string]any, len(Tables)+2)
	for _, t := range Tables {
		ids := d.IDs(t)
		list := make([]any, 0, len(ids))
		for _, id := range ids {
			e, _ := d.Lookup(t, id)
			list = append(list, entityMap(e))
		}
		snap[t.String()] = list
	}
	snap["time_root"] = d.timeRoot
	snap["timeline_hint"] = d.timelineHint
	return snap
}

func positionMap(p Position) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func portRefMap(r PortRef) map[string]any {
	return map[string]any{"block_id": r.BlockID, "port": r.Port}
}

// entityMap converts one entity to a plain map. Empty optional fields are
// omitted so snapshots stay compact and stable.
func entityMap(e Entity) map[string]any {
	switch v := e.(type) {
	case *Block:
		m := map[string]any{
			"id":       v.ID,
			"kind":     v.Kind,
			"position": positionMap(v.Position),
		}
		if v.Label != "" {
			m["label"] = v.Label
		}
		if len(v.Params) > 0 {
			params := make(map[string]any, len(v.Params))
			for k, p := range v.Params {
				params[k] = p
			}
			m["params"] = params
		}
		return m

	case *Connection:
		return map[string]any{
			"id":   v.ID,
			"from": portRefMap(v.From),
			"to":   portRefMap(v.To),
		}

	case *Bus:
		m := map[string]any{"id": v.ID, "name": v.Name}
		if v.Combine != "" {
			m["combine"] = v.Combine
		}
		return m

	case *Publisher:
		return map[string]any{
			"id":     v.ID,
			"bus_id": v.BusID,
			"source": portRefMap(v.Source),
		}

	case *Listener:
		return map[string]any{
			"id":     v.ID,
			"bus_id": v.BusID,
			"target": portRefMap(v.Target),
		}

	case *Composite:
		m := map[string]any{"id": v.ID, "name": v.Name}
		if len(v.BlockIDs) > 0 {
			ids := make([]any, len(v.BlockIDs))
			for i, id := range v.BlockIDs {
				ids[i] = id
			}
			m["block_ids"] = ids
		}
		return m

	case *DefaultSource:
		return map[string]any{
			"id":     v.ID,
			"target": portRefMap(v.Target),
			"value":  v.Value,
		}

	default:
		panic(fmt.Sprintf("graph: unreachable entity type %T", e))
	}
}
