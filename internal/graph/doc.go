// Package graph holds the document model for a patchbay node graph and the
// primitive mutation vocabulary that changes it.
//
// The package enforces the single-writer rule structurally: the Document's
// tables are unexported, reads return defensive clones, and the only code
// that writes a table is the apply engine in this package. Higher layers
// (txn, history) mutate exclusively by handing op lists to ApplyAll.
//
// Ops form a closed, sealed union. Every op has a mechanically computable
// inverse, which is what makes undo/redo a pure replay problem instead of
// per-feature bookkeeping.
package graph
