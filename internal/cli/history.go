package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/journal"
	"github.com/seltzinger/airsync/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transfers from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var (
	historyLimit      int
	historyPruneOlder time.Duration
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries to show")
	historyCmd.Flags().DurationVar(&historyPruneOlder, "prune-older", 0, "Delete entries older than this before listing (e.g. 720h)")

	rootCmd.AddCommand(historyCmd)
}

// History is a slice of the transfer journal, newest first.
type History struct {
	Entries []journal.Entry `json:"entries"`
	Pruned  int64           `json:"pruned,omitempty"`
}

func (h *History) Headers() []string {
	return []string{"When", "Dir", "File", "Size", "Outcome", "Took"}
}

func (h *History) Rows() [][]string {
	rows := make([][]string, 0, len(h.Entries))
	for _, e := range h.Entries {
		outcome := e.Outcome
		if e.Error != "" {
			outcome += ": " + truncate(e.Error, 30)
		}
		rows = append(rows, []string{
			e.At.Format("2006-01-02 15:04:05"),
			e.Direction,
			truncate(e.Filename, 40),
			humanize.IBytes(uint64(e.Size)),
			outcome,
			e.Duration.String(),
		})
	}
	return rows
}

func (h *History) EmptyMessage() string {
	return "No transfers recorded"
}

func runHistory(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	j := openJournal(out)
	if j == nil {
		return failCode(out, "history", utils.ErrCodeJournalError,
			errors.New("journal unavailable"))
	}
	defer j.Close()

	ctx := context.Background()
	view := &History{Entries: []journal.Entry{}}

	if historyPruneOlder > 0 {
		removed, err := j.Prune(ctx, time.Now().Add(-historyPruneOlder))
		if err != nil {
			return failCode(out, "history", utils.ErrCodeJournalError, err)
		}
		view.Pruned = removed
	}

	entries, err := j.Recent(ctx, historyLimit)
	if err != nil {
		return failCode(out, "history", utils.ErrCodeJournalError, err)
	}
	view.Entries = entries

	return out.WriteSuccess("history", view)
}
