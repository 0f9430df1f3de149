package graph

import (
	"errors"
	"fmt"
)

// OpErrorCode categorizes op validation failures.
type OpErrorCode string

const (
	// ErrCodeMalformedOp indicates a structurally invalid op: a missing id,
	// a missing snapshot, disagreeing ids inside an update, or a malformed
	// nested op inside Many.
	ErrCodeMalformedOp OpErrorCode = "MALFORMED_OP"
)

// OpError reports a structurally invalid op. Validation is purely
// structural: it never checks referential integrity between entities -
// that is the responsibility of the caller building the transaction.
type OpError struct {
	Code    OpErrorCode
	Kind    string // op variant wire name
	Table   string // table wire name, when the op targets one
	Message string
}

func (e *OpError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s op on %s: %s", e.Code, e.Kind, e.Table, e.Message)
	}
	return fmt.Sprintf("%s: %s op: %s", e.Code, e.Kind, e.Message)
}

// IsMalformedOp reports whether err is (or wraps) a malformed-op error.
func IsMalformedOp(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == ErrCodeMalformedOp
}

func malformed(op Op, table string, msg string) *OpError {
	return &OpError{Code: ErrCodeMalformedOp, Kind: KindOf(op), Table: table, Message: msg}
}

// Validate checks an op for structural well-formedness. It performs no
// cross-entity or semantic checks and never touches a document.
func Validate(op Op) error {
	switch o := op.(type) {
	case AddOp:
		if o.Entity == nil {
			return malformed(op, o.Table.String(), "missing entity")
		}
		if o.Entity.EntityID() == "" {
			return malformed(op, o.Table.String(), "entity has empty id")
		}
		if TableOf(o.Entity) != o.Table {
			return malformed(op, o.Table.String(), fmt.Sprintf("entity type %T does not belong to table", o.Entity))
		}
		return nil

	case RemoveOp:
		if o.ID == "" {
			return malformed(op, o.Table.String(), "empty id")
		}
		if o.Removed == nil {
			return malformed(op, o.Table.String(), "missing removal snapshot")
		}
		if o.Removed.EntityID() != o.ID {
			return malformed(op, o.Table.String(), fmt.Sprintf("snapshot id %q does not match op id %q", o.Removed.EntityID(), o.ID))
		}
		if TableOf(o.Removed) != o.Table {
			return malformed(op, o.Table.String(), fmt.Sprintf("snapshot type %T does not belong to table", o.Removed))
		}
		return nil

	case UpdateOp:
		if o.ID == "" {
			return malformed(op, o.Table.String(), "empty id")
		}
		if o.Prev == nil || o.Next == nil {
			return malformed(op, o.Table.String(), "missing prev or next snapshot")
		}
		if o.Prev.EntityID() != o.ID || o.Next.EntityID() != o.ID {
			return malformed(op, o.Table.String(), fmt.Sprintf("snapshot ids %q/%q do not match op id %q", o.Prev.EntityID(), o.Next.EntityID(), o.ID))
		}
		if TableOf(o.Prev) != o.Table || TableOf(o.Next) != o.Table {
			return malformed(op, o.Table.String(), "snapshot type does not belong to table")
		}
		return nil

	case SetBlockPositionOp:
		if o.BlockID == "" {
			return malformed(op, TableBlocks.String(), "empty block id")
		}
		return nil

	case SetTimeRootOp, SetTimelineHintOp:
		// Both slots accept any value, including "" for absent.
		return nil

	case ManyOp:
		for i, member := range o.Ops {
			if member == nil {
				return malformed(op, "", fmt.Sprintf("nil op at index %d", i))
			}
			if err := Validate(member); err != nil {
				return fmt.Errorf("many op index %d: %w", i, err)
			}
		}
		return nil

	default:
		panic(fmt.Sprintf("graph: unreachable op kind %T", op))
	}
}

// ValidateAll validates every op in a list, failing on the first error.
func ValidateAll(ops []Op) error {
	for i, op := range ops {
		if op == nil {
			return &OpError{Code: ErrCodeMalformedOp, Kind: "nil", Message: fmt.Sprintf("nil op at index %d", i)}
		}
		if err := Validate(op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}
