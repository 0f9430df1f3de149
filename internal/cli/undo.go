package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StepResult is the JSON payload for undo/redo.
type StepResult struct {
	CurrentRevision int64 `json:"current_revision"`
	CanUndo         bool  `json:"can_undo"`
	CanRedo         bool  `json:"can_redo"`
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Step back one revision",
		Long: `Move the document one revision toward the root by applying the current
revision's inverse ops. The revision stays in the tree; redo retraces it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(rootOpts, cmd, "undo")
		},
	}

	return cmd
}

// NewRedoCommand creates the redo command.
func NewRedoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Step forward one revision",
		Long: `Reapply a child of the current revision. When several branches exist,
the child most recently undone from is retraced; otherwise the earliest
branch wins.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(rootOpts, cmd, "redo")
		},
	}

	return cmd
}

func runStep(opts *RootOptions, cmd *cobra.Command, direction string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	sess, err := openSession(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer sess.Close()

	var moved bool
	if direction == "undo" {
		moved = sess.hist.Undo()
	} else {
		moved = sess.hist.Redo()
	}
	if !moved {
		message := fmt.Sprintf("nothing to %s", direction)
		_ = formatter.Error(ErrCodeNoHistory, message, nil)
		return NewExitError(ExitFailure, message)
	}

	if err := sess.save(ctx); err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}

	result := StepResult{
		CurrentRevision: sess.hist.CurrentRevisionID(),
		CanUndo:         sess.hist.CanUndo(),
		CanRedo:         sess.hist.CanRedo(),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Now at revision %d\n", result.CurrentRevision)
	return nil
}
