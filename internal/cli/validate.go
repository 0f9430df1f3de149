package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/txn"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Label string `json:"label,omitempty"`
	Edits int    `json:"edits,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <patch.cue>",
		Short: "Check a patch against the current document without applying it",
		Long: `Validate a CUE patch file against the current document state.

Runs the full commit pipeline - decode, build, op validation - against an
in-memory copy of the document, then discards the result. Nothing is
written to the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, patchPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	patch, err := LoadPatch(patchPath, graph.UUIDv7Generator{})
	if err != nil {
		_ = formatter.Error(ErrCodePatchLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load patch", err)
	}

	// The restored document is an in-memory replay; committing against it
	// and never saving is exactly a dry run.
	sess, err := openSession(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer sess.Close()

	_, err = txn.Run(sess.doc, txn.Spec{Label: patch.Label, Origin: patch.Origin}, func(b *txn.Builder) error {
		return b.Many(func() error { return patch.Build(b) })
	})
	if err != nil {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeRejected, err.Error(), ValidationResult{Valid: false, Label: patch.Label, Error: err.Error()})
		} else {
			fmt.Fprintf(formatter.Writer, "✗ Patch %q would be rejected: %v\n", patch.Label, err)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("patch %q would be rejected", patch.Label))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Label: patch.Label, Edits: patch.EditCount()})
	}
	fmt.Fprintf(formatter.Writer, "✓ Patch %q is valid (%d edit(s))\n", patch.Label, patch.EditCount())
	return nil
}
