package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/sync"
)

var watchCmd = &cobra.Command{
	Use:   "watch {up|down|both}",
	Short: "Mirror new files continuously until interrupted",
	Long: `Watch one or both sides for newly created files and copy each one to
the other side as it appears. Runs until interrupted; the file being
transferred when the interrupt arrives is finished first.`,
	ValidArgs: []string{"up", "down", "both"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// WatchStatus reports how a watch run ended.
type WatchStatus struct {
	Direction   string `json:"direction"`
	Interrupted bool   `json:"interrupted"`
}

func (s *WatchStatus) Headers() []string {
	return []string{"Direction", "Interrupted"}
}

func (s *WatchStatus) Rows() [][]string {
	return [][]string{{s.Direction, strconv.FormatBool(s.Interrupted)}}
}

func (s *WatchStatus) EmptyMessage() string {
	return "Watch never started"
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	session := newSession(newDeviceClient())
	var opts []sync.EngineOption
	if j := openJournal(out); j != nil {
		defer j.Close()
		opts = append(opts, sync.WithRecorder(j))
	}
	monitor := sync.NewMonitor(sync.NewEngine(session, opts...))

	direction := args[0]
	switch direction {
	case "up":
		monitor.SyncUp()
	case "down":
		monitor.SyncDown()
	case "both":
		monitor.SyncBoth()
	}

	out.Log("watching %s between %s and %s (Ctrl-C to stop)",
		direction, flags.LocalDir, flags.RemoteDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The worker can die on its own when a transfer fails, so wait on
	// both its exit and the interrupt.
	done := make(chan error, 1)
	go func() { done <- monitor.Join() }()

	interrupted := false
	var err error
	select {
	case <-ctx.Done():
		interrupted = true
		// Restore default signal handling so a second interrupt kills
		// the process instead of waiting out the transfer.
		stop()
		out.Log("stopping after the current transfer")
		monitor.Stop()
		err = <-done
	case err = <-done:
	}

	if err != nil {
		return fail(out, "watch", err)
	}
	return out.WriteSuccess("watch", &WatchStatus{
		Direction:   direction,
		Interrupted: interrupted,
	})
}
