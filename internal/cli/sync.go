package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/sync"
	"github.com/seltzinger/airsync/internal/utils"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy files between the card and the local directory",
	Long: `Copy files one way, then stop. Files already present with the same
size on the destination side are skipped; files present with a
different size are replaced.`,
}

var syncDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Copy card files into the local directory",
	Args:  cobra.NoArgs,
	RunE:  runSyncDown,
}

var syncUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Copy local files onto the card",
	Args:  cobra.NoArgs,
	RunE:  runSyncUp,
}

var (
	syncRecent    int
	syncLastNamed int
	syncExts      []string
	syncGlob      string
	syncAfter     string
)

func init() {
	syncCmd.PersistentFlags().IntVar(&syncRecent, "recent", 0, "Only the N newest files by timestamp")
	syncCmd.PersistentFlags().IntVar(&syncLastNamed, "last-named", 0, "Only the N last files in name order")
	syncCmd.PersistentFlags().StringSliceVar(&syncExts, "ext", nil, "Only files with one of these extensions")
	syncCmd.PersistentFlags().StringVar(&syncGlob, "name", "", "Only files whose name matches this glob")
	syncCmd.PersistentFlags().StringVar(&syncAfter, "after", "", "Only files modified after this time (RFC3339 or YYYY-MM-DD)")

	syncCmd.AddCommand(syncDownCmd)
	syncCmd.AddCommand(syncUpCmd)
	rootCmd.AddCommand(syncCmd)
}

// TransferResult is one file's outcome in a finished batch.
type TransferResult struct {
	Filename  string `json:"filename"`
	Outcome   string `json:"outcome"`
	Bytes     int64  `json:"bytes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// SyncSummary is the result of one sync batch.
type SyncSummary struct {
	Direction   string           `json:"direction"`
	Transferred int              `json:"transferred"`
	Skipped     int              `json:"skipped"`
	Bytes       int64            `json:"bytes"`
	ElapsedMs   int64            `json:"elapsedMs"`
	Files       []TransferResult `json:"files"`
}

func newSyncSummary(direction string, report *sync.Report) *SyncSummary {
	s := &SyncSummary{
		Direction:   direction,
		Transferred: report.Transferred(),
		Skipped:     report.Skipped(),
		Bytes:       report.Bytes,
		ElapsedMs:   report.Elapsed.Milliseconds(),
		Files:       []TransferResult{},
	}
	for _, res := range report.Results {
		s.Files = append(s.Files, TransferResult{
			Filename:  res.File.Filename,
			Outcome:   res.Outcome.String(),
			Bytes:     res.Bytes,
			ElapsedMs: res.Elapsed.Milliseconds(),
		})
	}
	return s
}

func (s *SyncSummary) Headers() []string {
	return []string{"File", "Outcome", "Size", "Took"}
}

func (s *SyncSummary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Files))
	for _, f := range s.Files {
		rows = append(rows, []string{
			truncate(f.Filename, 40),
			f.Outcome,
			humanize.IBytes(uint64(f.Bytes)),
			(time.Duration(f.ElapsedMs) * time.Millisecond).String(),
		})
	}
	return rows
}

func (s *SyncSummary) EmptyMessage() string {
	return fmt.Sprintf("Nothing to sync %s", s.Direction)
}

func runSyncDown(cmd *cobra.Command, args []string) error {
	return runSyncOnce("sync.down", "down")
}

func runSyncUp(cmd *cobra.Command, args []string) error {
	return runSyncOnce("sync.up", "up")
}

func runSyncOnce(command, direction string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	if syncRecent > 0 && syncLastNamed > 0 {
		return failCode(out, command, utils.ErrCodeInvalidArgument,
			errors.New("--recent and --last-named are mutually exclusive"))
	}
	filters, err := fileFilters(syncExts, syncGlob, syncAfter)
	if err != nil {
		return failCode(out, command, utils.ErrCodeInvalidArgument, err)
	}

	session := newSession(newDeviceClient(), filters...)

	var opts []sync.EngineOption
	if j := openJournal(out); j != nil {
		defer j.Close()
		opts = append(opts, sync.WithRecorder(j))
	}
	engine := sync.NewEngine(session, opts...)

	// An interrupt cancels the batch mid-stream; the engine removes the
	// partial destination file before the error surfaces here.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runBatch(ctx, engine, direction)
	if err != nil {
		if report != nil && len(report.Results) > 0 {
			out.Log("%d files finished before the failure", len(report.Results))
		}
		return fail(out, command, err)
	}

	log.WithFields(log.Fields{
		"direction":   direction,
		"transferred": report.Transferred(),
		"skipped":     report.Skipped(),
		"bytes":       report.Bytes,
	}).Info("sync finished")

	return out.WriteSuccess(command, newSyncSummary(direction, report))
}

// runBatch picks the batch strategy from the selection flags.
func runBatch(ctx context.Context, engine *sync.Engine, direction string) (*sync.Report, error) {
	down := direction == "down"
	switch {
	case syncRecent > 0:
		if down {
			return sync.DownByTime(ctx, engine, syncRecent)
		}
		return sync.UpByTime(ctx, engine, syncRecent)
	case syncLastNamed > 0:
		if down {
			return sync.DownByName(ctx, engine, syncLastNamed)
		}
		return sync.UpByName(ctx, engine, syncLastNamed)
	default:
		if down {
			return sync.DownAll(ctx, engine)
		}
		return sync.UpAll(ctx, engine)
	}
}
