package txn

import (
	"errors"
	"fmt"
)

// TxErrorCode categorizes build-phase failures.
type TxErrorCode string

const (
	// ErrCodeDuplicateID indicates an Add targeting an id already present
	// in its table (including one added earlier in the same build).
	ErrCodeDuplicateID TxErrorCode = "DUPLICATE_ID"

	// ErrCodeNotFound indicates a Remove/Replace/SetBlockPosition targeting
	// an id absent from its table.
	ErrCodeNotFound TxErrorCode = "NOT_FOUND"

	// ErrCodeIDMismatch indicates a Replace whose replacement value carries
	// a different id than the target.
	ErrCodeIDMismatch TxErrorCode = "ID_MISMATCH"
)

// TxError reports a failed builder call. All TxErrors are raised during the
// build phase, strictly before any mutation, so they never leave the
// document in a partial state.
type TxError struct {
	Code    TxErrorCode
	Table   string
	ID      string
	Message string
}

func (e *TxError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s/%s: %s", e.Code, e.Table, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s/%s", e.Code, e.Table, e.ID)
}

// IsDuplicateID reports whether err is (or wraps) a duplicate-id error.
func IsDuplicateID(err error) bool { return codeOf(err) == ErrCodeDuplicateID }

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool { return codeOf(err) == ErrCodeNotFound }

// IsIDMismatch reports whether err is (or wraps) an id-mismatch error.
func IsIDMismatch(err error) bool { return codeOf(err) == ErrCodeIDMismatch }

func codeOf(err error) TxErrorCode {
	var te *TxError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
