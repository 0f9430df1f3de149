package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/history"
)

// LogEntry is one revision in the log output.
type LogEntry struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	Label     string    `json:"label"`
	Ops       int       `json:"ops"`
	Timestamp time.Time `json:"timestamp"`
	Current   bool      `json:"current,omitempty"`
	Preferred int64     `json:"preferred_child_id,omitempty"`
}

// LogResult is the JSON payload for the log command.
type LogResult struct {
	CurrentRevision int64      `json:"current_revision"`
	Revisions       []LogEntry `json:"revisions"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the revision tree",
		Long: `Show every revision in the history tree, in creation order.

The current position is marked with "*". Revisions sharing a parent are
siblings - alternative branches created by committing after an undo.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, cmd)
		},
	}

	return cmd
}

func runLog(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	sess, err := openSession(ctx, opts)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer sess.Close()

	tree := sess.hist.Export()

	result := LogResult{CurrentRevision: tree.CurrentID}
	for _, rev := range tree.Revisions {
		result.Revisions = append(result.Revisions, LogEntry{
			ID:        rev.ID,
			ParentID:  rev.ParentID,
			Label:     rev.Label,
			Ops:       len(rev.Ops),
			Timestamp: rev.Timestamp,
			Current:   rev.ID == tree.CurrentID,
			Preferred: rev.PreferredChildID,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Revisions) == 0 {
		fmt.Fprintln(formatter.Writer, "(no revisions)")
		return nil
	}

	marker := " "
	if tree.CurrentID == history.RootID {
		marker = "*"
	}
	fmt.Fprintf(formatter.Writer, "%s %4d  (root)\n", marker, history.RootID)

	for _, entry := range result.Revisions {
		marker = " "
		if entry.Current {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %4d  parent=%-4d ops=%-3d %s  %s\n",
			marker, entry.ID, entry.ParentID, entry.Ops,
			entry.Timestamp.UTC().Format(time.RFC3339), entry.Label)
	}
	return nil
}
