package graph

import (
	"encoding/json"
	"fmt"
)

// Ops and entities are plain data and serialize to tagged JSON so the
// revision tree can be persisted (or shipped) without the engine caring
// how. The envelope carries every variant's fields; kind selects which are
// meaningful, mirroring how the harness assertion struct multiplexes its
// per-type fields.

type opEnvelope struct {
	Kind string `json:"kind"`

	// add / remove / update
	Table   string          `json:"table,omitempty"`
	ID      string          `json:"id,omitempty"`
	Entity  json.RawMessage `json:"entity,omitempty"`
	Removed json.RawMessage `json:"removed,omitempty"`
	Prev    json.RawMessage `json:"prev,omitempty"`
	Next    json.RawMessage `json:"next,omitempty"`

	// set_block_position
	BlockID string    `json:"block_id,omitempty"`
	PrevPos *Position `json:"prev_pos,omitempty"`
	NextPos *Position `json:"next_pos,omitempty"`

	// set_time_root / set_timeline_hint; pointers so "" survives omitempty
	PrevValue *string `json:"prev_value,omitempty"`
	NextValue *string `json:"next_value,omitempty"`

	// many
	Ops []opEnvelope `json:"ops,omitempty"`
}

// MarshalOps encodes an op list as tagged JSON.
func MarshalOps(ops []Op) ([]byte, error) {
	envs, err := encodeOps(ops)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envs)
}

// UnmarshalOps decodes an op list produced by MarshalOps.
func UnmarshalOps(data []byte) ([]Op, error) {
	var envs []opEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode op list: %w", err)
	}
	return decodeOps(envs)
}

func encodeOps(ops []Op) ([]opEnvelope, error) {
	envs := make([]opEnvelope, len(ops))
	for i, op := range ops {
		env, err := encodeOp(op)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		envs[i] = env
	}
	return envs, nil
}

func encodeOp(op Op) (opEnvelope, error) {
	switch o := op.(type) {
	case AddOp:
		raw, err := json.Marshal(o.Entity)
		if err != nil {
			return opEnvelope{}, fmt.Errorf("encode entity: %w", err)
		}
		return opEnvelope{Kind: "add", Table: o.Table.String(), Entity: raw}, nil

	case RemoveOp:
		raw, err := json.Marshal(o.Removed)
		if err != nil {
			return opEnvelope{}, fmt.Errorf("encode removal snapshot: %w", err)
		}
		return opEnvelope{Kind: "remove", Table: o.Table.String(), ID: o.ID, Removed: raw}, nil

	case UpdateOp:
		prev, err := json.Marshal(o.Prev)
		if err != nil {
			return opEnvelope{}, fmt.Errorf("encode prev snapshot: %w", err)
		}
		next, err := json.Marshal(o.Next)
		if err != nil {
			return opEnvelope{}, fmt.Errorf("encode next snapshot: %w", err)
		}
		return opEnvelope{Kind: "update", Table: o.Table.String(), ID: o.ID, Prev: prev, Next: next}, nil

	case SetBlockPositionOp:
		prev, next := o.Prev, o.Next
		return opEnvelope{Kind: "set_block_position", BlockID: o.BlockID, PrevPos: &prev, NextPos: &next}, nil

	case SetTimeRootOp:
		prev, next := o.Prev, o.Next
		return opEnvelope{Kind: "set_time_root", PrevValue: &prev, NextValue: &next}, nil

	case SetTimelineHintOp:
		prev, next := o.Prev, o.Next
		return opEnvelope{Kind: "set_timeline_hint", PrevValue: &prev, NextValue: &next}, nil

	case ManyOp:
		members, err := encodeOps(o.Ops)
		if err != nil {
			return opEnvelope{}, err
		}
		return opEnvelope{Kind: "many", Ops: members}, nil

	default:
		panic(fmt.Sprintf("graph: unreachable op kind %T", op))
	}
}

func decodeOps(envs []opEnvelope) ([]Op, error) {
	ops := make([]Op, len(envs))
	for i, env := range envs {
		op, err := decodeOp(env)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

func decodeOp(env opEnvelope) (Op, error) {
	switch env.Kind {
	case "add":
		table, err := ParseTable(env.Table)
		if err != nil {
			return nil, err
		}
		entity, err := DecodeEntity(table, env.Entity)
		if err != nil {
			return nil, err
		}
		return AddOp{Table: table, Entity: entity}, nil

	case "remove":
		table, err := ParseTable(env.Table)
		if err != nil {
			return nil, err
		}
		removed, err := DecodeEntity(table, env.Removed)
		if err != nil {
			return nil, err
		}
		return RemoveOp{Table: table, ID: env.ID, Removed: removed}, nil

	case "update":
		table, err := ParseTable(env.Table)
		if err != nil {
			return nil, err
		}
		prev, err := DecodeEntity(table, env.Prev)
		if err != nil {
			return nil, err
		}
		next, err := DecodeEntity(table, env.Next)
		if err != nil {
			return nil, err
		}
		return UpdateOp{Table: table, ID: env.ID, Prev: prev, Next: next}, nil

	case "set_block_position":
		if env.PrevPos == nil || env.NextPos == nil {
			return nil, fmt.Errorf("set_block_position missing prev_pos or next_pos")
		}
		return SetBlockPositionOp{BlockID: env.BlockID, Prev: *env.PrevPos, Next: *env.NextPos}, nil

	case "set_time_root":
		if env.PrevValue == nil || env.NextValue == nil {
			return nil, fmt.Errorf("set_time_root missing prev_value or next_value")
		}
		return SetTimeRootOp{Prev: *env.PrevValue, Next: *env.NextValue}, nil

	case "set_timeline_hint":
		if env.PrevValue == nil || env.NextValue == nil {
			return nil, fmt.Errorf("set_timeline_hint missing prev_value or next_value")
		}
		return SetTimelineHintOp{Prev: *env.PrevValue, Next: *env.NextValue}, nil

	case "many":
		members, err := decodeOps(env.Ops)
		if err != nil {
			return nil, err
		}
		return ManyOp{Ops: members}, nil

	default:
		return nil, fmt.Errorf("unknown op kind %q", env.Kind)
	}
}

// DecodeEntity decodes an entity payload into the concrete type its table
// stores. The closed table set makes this dispatch exhaustive.
func DecodeEntity(t Table, raw json.RawMessage) (Entity, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing entity payload for table %s", t)
	}
	var (
		e   Entity
		err error
	)
	switch t {
	case TableBlocks:
		v := &Block{}
		err = json.Unmarshal(raw, v)
		e = v
	case TableConnections:
		v := &Connection{}
		err = json.Unmarshal(raw, v)
		e = v
	case TableBuses:
		v := &Bus{}
		err = json.Unmarshal(raw, v)
		e = v
	case TablePublishers:
		v := &Publisher{}
		err = json.Unmarshal(raw, v)
		e = v
	case TableListeners:
		v := &Listener{}
		err = json.Unmarshal(raw, v)
		e = v
	case TableComposites:
		v := &Composite{}
		err = json.Unmarshal(raw, v)
		e = v
	case TableDefaultSources:
		v := &DefaultSource{}
		err = json.Unmarshal(raw, v)
		e = v
	default:
		panic(fmt.Sprintf("graph: unreachable table %d", uint8(t)))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s entity: %w", t, err)
	}
	if e.EntityID() == "" {
		return nil, fmt.Errorf("decoded %s entity has empty id", t)
	}
	return e, nil
}
