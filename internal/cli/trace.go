package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/codec"
	"github.com/roach88/rewind/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - list sessions when empty
	Action   string // optional - filter to one action label
}

// TraceEvent is one journal entry in the timeline.
type TraceEvent struct {
	Seq         int64     `json:"seq"`
	Kind        string    `json:"kind"`
	ActionLabel string    `json:"action_label,omitempty"`
	State       any       `json:"state,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// TraceResult holds the timeline of one session.
type TraceResult struct {
	Session  journal.SessionInfo `json:"session"`
	Timeline []TraceEvent        `json:"timeline"`
	Stats    TraceStats          `json:"stats"`
}

// TraceStats holds summary statistics for the timeline.
type TraceStats struct {
	TotalEntries int            `json:"total_entries"`
	Shown        int            `json:"shown"`
	ByLabel      map[string]int `json:"by_label"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded devtools sessions",
		Long: `Inspect devtools sessions recorded in a journal.

Without --session, lists every session with its entry count. With
--session, prints the session's timeline of devtools messages, with
each state payload decoded.

Examples:
  rewind trace --db ./rewind.db
  rewind trace --db ./rewind.db --session 0190d3c2-...
  rewind trace --db ./rewind.db --session 0190d3c2-... --action add_todo
  rewind trace --db ./rewind.db --session 0190d3c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to print")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action label")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(cmd, opts.RootOptions)

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.Session == "" {
		sessions, err := j.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return outputSessions(formatter, sessions)
	}

	info, err := j.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(CodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	entries, err := j.ReadEntries(ctx, opts.Session, opts.Action)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	timeline, err := buildTimeline(entries)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode entries", err)
	}

	result := TraceResult{
		Session:  info,
		Timeline: timeline,
		Stats: TraceStats{
			TotalEntries: info.Entries,
			Shown:        len(timeline),
			ByLabel:      countLabels(timeline),
		},
	}

	if formatter.JSON() {
		return formatter.Result(result, nil)
	}
	return outputTraceText(formatter, result)
}

// buildTimeline decodes each entry's serialized state.
func buildTimeline(entries []journal.Entry) ([]TraceEvent, error) {
	timeline := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		var state any
		if e.State != "" {
			decoded, err := codec.DeserializeJSON[any](e.State)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", e.Seq, err)
			}
			state = decoded
		}
		timeline = append(timeline, TraceEvent{
			Seq:         e.Seq,
			Kind:        e.Kind,
			ActionLabel: e.ActionLabel,
			State:       state,
			RecordedAt:  e.RecordedAt,
		})
	}
	return timeline, nil
}

func countLabels(timeline []TraceEvent) map[string]int {
	counts := make(map[string]int)
	for _, e := range timeline {
		if e.ActionLabel != "" {
			counts[e.ActionLabel]++
		}
	}
	return counts
}

func outputSessions(f *OutputFormatter, sessions []journal.SessionInfo) error {
	if f.JSON() {
		return f.Result(sessions, nil)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		cyan.Fprintf(f.Writer, "%s", s.ID)
		fmt.Fprintf(f.Writer, "  %-20s %4d entries  ", s.Name, s.Entries)
		faint.Fprintln(f.Writer, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func outputTraceText(f *OutputFormatter, result TraceResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Session: %s (%s)\n", result.Session.ID, result.Session.Name)
	fmt.Fprintf(w, "Entries: %d shown of %d\n\n", result.Stats.Shown, result.Stats.TotalEntries)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No entries.")
		return nil
	}

	for _, e := range result.Timeline {
		faint.Fprintf(w, "[%d] ", e.Seq)
		yellow.Fprintf(w, "%s ", e.Kind)
		cyan.Fprintf(w, "%s", e.ActionLabel)
		if e.State != nil {
			state, err := codec.MarshalCanonical(e.State)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, " %s", state)
		}
		fmt.Fprintln(w)
	}
	return nil
}
