package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/graph"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current document state",
		Long: `Print the document as of the current revision.

Text format prints a per-table summary; JSON format emits the full
document snapshot.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	sess, err := openSession(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer sess.Close()

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"current_revision": sess.hist.CurrentRevisionID(),
			"document":         sess.doc.Snapshot(),
		})
	}

	fmt.Fprintf(formatter.Writer, "revision %d\n", sess.hist.CurrentRevisionID())
	for _, t := range graph.Tables {
		ids := sess.doc.IDs(t)
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s (%d):\n", t, len(ids))
		for _, id := range ids {
			fmt.Fprintf(formatter.Writer, "  %s\n", id)
		}
	}
	if root := sess.doc.TimeRoot(); root != "" {
		fmt.Fprintf(formatter.Writer, "time_root: %s\n", root)
	}
	if hint := sess.doc.TimelineHint(); hint != "" {
		fmt.Fprintf(formatter.Writer, "timeline_hint: %s\n", hint)
	}
	return nil
}
