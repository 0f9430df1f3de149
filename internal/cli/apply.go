package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/txn"
)

// ApplyResult is the JSON payload for a successful apply.
type ApplyResult struct {
	Revision int64  `json:"revision"`
	Label    string `json:"label"`
	Edits    int    `json:"edits"`
	Changes  int    `json:"changes"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <patch.cue>",
		Short: "Apply a CUE patch file as one transaction",
		Long: `Apply a CUE patch file to the document as a single grouped transaction.

The patch commits atomically and records one revision: a later undo
reverses the entire patch in one step. A rejected patch (duplicate id,
missing target) leaves both the document and the history untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runApply(opts *RootOptions, patchPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	patch, err := LoadPatch(patchPath, graph.UUIDv7Generator{})
	if err != nil {
		_ = formatter.Error(ErrCodePatchLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load patch", err)
	}

	sess, err := openSession(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer sess.Close()

	formatter.VerboseLog("Loaded patch %q with %d edit(s)", patch.Label, patch.EditCount())

	res, err := txn.Run(sess.doc, txn.Spec{Label: patch.Label, Origin: patch.Origin}, func(b *txn.Builder) error {
		return b.Many(func() error { return patch.Build(b) })
	})
	if err != nil {
		_ = formatter.Error(ErrCodeRejected, err.Error(), nil)
		return WrapExitError(ExitFailure, "patch rejected", err)
	}

	revision := sess.hist.AddRevision(res.Ops, res.InverseOps, patch.Label)
	if err := sess.save(ctx); err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}

	result := ApplyResult{
		Revision: revision,
		Label:    patch.Label,
		Edits:    patch.EditCount(),
		Changes:  res.Summary.Total(),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Applied %q as revision %d (%d change(s))\n", result.Label, result.Revision, result.Changes)
	return nil
}
