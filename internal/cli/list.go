package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/sync"
	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files on either side of the sync pair",
}

var listLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "List files in the local directory",
	Args:  cobra.NoArgs,
	RunE:  runListLocal,
}

var listRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List files in the card directory",
	Args:  cobra.NoArgs,
	RunE:  runListRemote,
}

var (
	listExts  []string
	listGlob  string
	listAfter string
)

func init() {
	listCmd.PersistentFlags().StringSliceVar(&listExts, "ext", nil, "Only files with one of these extensions")
	listCmd.PersistentFlags().StringVar(&listGlob, "name", "", "Only files whose name matches this glob")
	listCmd.PersistentFlags().StringVar(&listAfter, "after", "", "Only files modified after this time (RFC3339 or YYYY-MM-DD)")

	listCmd.AddCommand(listLocalCmd)
	listCmd.AddCommand(listRemoteCmd)
	rootCmd.AddCommand(listCmd)
}

// FileListing is one side's directory listing.
type FileListing struct {
	Side      string           `json:"side"`
	Directory string           `json:"directory"`
	Files     []types.FileInfo `json:"files"`
}

func (l *FileListing) Headers() []string {
	return []string{"Name", "Size", "Modified"}
}

func (l *FileListing) Rows() [][]string {
	rows := make([][]string, 0, len(l.Files))
	for _, f := range l.Files {
		rows = append(rows, []string{
			truncate(f.Filename, 40),
			humanize.IBytes(uint64(f.Size)),
			formatTime(f.Modified),
		})
	}
	return rows
}

func (l *FileListing) EmptyMessage() string {
	return fmt.Sprintf("No files in %s", l.Directory)
}

func runListLocal(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	filters, err := fileFilters(listExts, listGlob, listAfter)
	if err != nil {
		return failCode(out, "list.local", utils.ErrCodeInvalidArgument, err)
	}

	catalog := sync.NewLocalCatalog(flags.LocalDir, filters...)
	files, err := catalog.List(context.Background())
	if err != nil {
		return fail(out, "list.local", err)
	}

	return out.WriteSuccess("list.local", &FileListing{
		Side:      "local",
		Directory: flags.LocalDir,
		Files:     files,
	})
}

func runListRemote(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	filters, err := fileFilters(listExts, listGlob, listAfter)
	if err != nil {
		return failCode(out, "list.remote", utils.ErrCodeInvalidArgument, err)
	}

	session := newSession(newDeviceClient(), filters...)
	ctx, cancel := opCtx()
	defer cancel()

	files, err := session.RemoteCatalog().List(ctx)
	if err != nil {
		return fail(out, "list.remote", err)
	}

	return out.WriteSuccess("list.remote", &FileListing{
		Side:      "remote",
		Directory: flags.RemoteDir,
		Files:     files,
	})
}

// fileFilters builds catalog filters from the shared filter flags.
func fileFilters(exts []string, glob, after string) ([]sync.Filter, error) {
	var filters []sync.Filter
	if len(exts) > 0 {
		filters = append(filters, sync.FilterExt(exts...))
	}
	if glob != "" {
		filters = append(filters, sync.FilterNameGlob(glob))
	}
	if after != "" {
		t, err := parseAfter(after)
		if err != nil {
			return nil, err
		}
		filters = append(filters, sync.FilterNewerThan(t))
	}
	return filters, nil
}

func parseAfter(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want RFC3339 or YYYY-MM-DD)", s)
}
