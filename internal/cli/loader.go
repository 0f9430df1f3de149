package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/txn"
)

// Removal names one entity a patch deletes.
type Removal struct {
	Table graph.Table
	ID    string
}

// Patch is one CUE patch file decoded into builder-ready form. A patch
// commits as a single grouped transaction: all of it applies or none of it
// does, and one undo reverses the whole thing.
//
// The file shape is a top-level "patch" struct with a required label,
// an optional origin, one optional list per entity table (keyed by table
// name), an optional "remove" list of {table, id} pairs, and optional
// time_root / timeline_hint slot writes.
type Patch struct {
	Label  string
	Origin txn.Origin

	// Adds holds new entities keyed by table, applied in table order.
	Adds map[graph.Table][]graph.Entity

	Removals []Removal

	TimeRoot     *string
	TimelineHint *string
}

// LoadPatch reads and decodes one CUE patch file. Entities carrying no id
// are assigned one from ids.
func LoadPatch(path string, ids graph.IDGenerator) (*Patch, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("patch file not found: %s", path)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{path}, &load.Config{})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instance loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	patchVal := value.LookupPath(cue.ParsePath("patch"))
	if !patchVal.Exists() {
		return nil, fmt.Errorf("%s has no top-level %q field", path, "patch")
	}

	return decodePatch(patchVal, ids)
}

func decodePatch(v cue.Value, ids graph.IDGenerator) (*Patch, error) {
	p := &Patch{
		Origin: txn.OriginImport,
		Adds:   make(map[graph.Table][]graph.Entity),
	}

	labelVal := v.LookupPath(cue.ParsePath("label"))
	if !labelVal.Exists() {
		return nil, fmt.Errorf("patch is missing required field %q", "label")
	}
	label, err := labelVal.String()
	if err != nil {
		return nil, fmt.Errorf("patch label: %w", err)
	}
	p.Label = label

	if originVal := v.LookupPath(cue.ParsePath("origin")); originVal.Exists() {
		s, err := originVal.String()
		if err != nil {
			return nil, fmt.Errorf("patch origin: %w", err)
		}
		origin, err := parsePatchOrigin(s)
		if err != nil {
			return nil, err
		}
		p.Origin = origin
	}

	for _, t := range graph.Tables {
		listVal := v.LookupPath(cue.ParsePath(t.String()))
		if !listVal.Exists() {
			continue
		}
		iter, err := listVal.List()
		if err != nil {
			return nil, fmt.Errorf("%s is not a list: %w", t, err)
		}
		for iter.Next() {
			entity, err := decodePatchEntity(t, iter.Value(), ids)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", t, err)
			}
			p.Adds[t] = append(p.Adds[t], entity)
		}
	}

	if removeVal := v.LookupPath(cue.ParsePath("remove")); removeVal.Exists() {
		iter, err := removeVal.List()
		if err != nil {
			return nil, fmt.Errorf("remove is not a list: %w", err)
		}
		for iter.Next() {
			var target struct {
				Table string `json:"table"`
				ID    string `json:"id"`
			}
			if err := iter.Value().Decode(&target); err != nil {
				return nil, fmt.Errorf("remove entry: %w", err)
			}
			table, err := graph.ParseTable(target.Table)
			if err != nil {
				return nil, fmt.Errorf("remove entry: %w", err)
			}
			if target.ID == "" {
				return nil, fmt.Errorf("remove entry for %s has no id", target.Table)
			}
			p.Removals = append(p.Removals, Removal{Table: table, ID: target.ID})
		}
	}

	if trVal := v.LookupPath(cue.ParsePath("time_root")); trVal.Exists() {
		s, err := trVal.String()
		if err != nil {
			return nil, fmt.Errorf("patch time_root: %w", err)
		}
		p.TimeRoot = &s
	}

	if thVal := v.LookupPath(cue.ParsePath("timeline_hint")); thVal.Exists() {
		s, err := thVal.String()
		if err != nil {
			return nil, fmt.Errorf("patch timeline_hint: %w", err)
		}
		p.TimelineHint = &s
	}

	if p.Empty() {
		return nil, fmt.Errorf("patch %q carries no edits", p.Label)
	}

	return p, nil
}

// decodePatchEntity converts one CUE entity into the concrete type its
// table stores, routing through the same JSON shapes the op codec uses.
func decodePatchEntity(t graph.Table, v cue.Value, ids graph.IDGenerator) (graph.Entity, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if id, _ := fields["id"].(string); id == "" {
		fields["id"] = ids.NewID()
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	return graph.DecodeEntity(t, raw)
}

func parsePatchOrigin(s string) (txn.Origin, error) {
	switch txn.Origin(s) {
	case txn.OriginUI, txn.OriginImport, txn.OriginMigration, txn.OriginSystem, txn.OriginRemote:
		return txn.Origin(s), nil
	default:
		return "", fmt.Errorf("unknown patch origin %q", s)
	}
}

// Build replays the patch through a transaction builder: adds in table
// order, then removals, then slot writes. Callers wrap it in a group so the
// patch undoes as one step.
func (p *Patch) Build(b *txn.Builder) error {
	for _, t := range graph.Tables {
		for _, e := range p.Adds[t] {
			if err := b.Add(t, e); err != nil {
				return err
			}
		}
	}
	for _, r := range p.Removals {
		if err := b.Remove(r.Table, r.ID); err != nil {
			return err
		}
	}
	if p.TimeRoot != nil {
		b.SetTimeRoot(*p.TimeRoot)
	}
	if p.TimelineHint != nil {
		b.SetTimelineHint(*p.TimelineHint)
	}
	return nil
}

// EditCount returns the number of edits the patch carries.
func (p *Patch) EditCount() int {
	n := len(p.Removals)
	for _, entities := range p.Adds {
		n += len(entities)
	}
	if p.TimeRoot != nil {
		n++
	}
	if p.TimelineHint != nil {
		n++
	}
	return n
}

// Empty reports whether the patch carries no edits at all.
func (p *Patch) Empty() bool {
	return p.EditCount() == 0
}
