package cli

import (
	"context"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/history"
	"github.com/roach88/patchbay/internal/persist"
)

// session bundles the open database with the document and history rebuilt
// from it. Every command follows the same shape: open, act, save, close.
type session struct {
	store *persist.Store
	doc   *graph.Document
	hist  *history.Store
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	store, err := persist.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	tree, err := store.LoadTree(ctx)
	if err != nil {
		store.Close()
		return nil, WrapExitError(ExitCommandError, "load revision tree", err)
	}

	doc := graph.NewDocument()
	hist, err := history.Restore(doc, tree)
	if err != nil {
		store.Close()
		return nil, WrapExitError(ExitCommandError, "restore document", err)
	}

	return &session{store: store, doc: doc, hist: hist}, nil
}

func (s *session) save(ctx context.Context) error {
	if err := s.store.SaveTree(ctx, s.hist.Export()); err != nil {
		return WrapExitError(ExitCommandError, "save revision tree", err)
	}
	return nil
}

func (s *session) Close() error {
	return s.store.Close()
}
