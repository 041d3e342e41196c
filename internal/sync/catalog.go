package sync

import (
	"context"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/types"
)

// A Catalog lists the files currently present on one side of a sync
// pair. Every List call observes fresh state; catalogs never cache.
type Catalog interface {
	List(ctx context.Context) ([]types.FileInfo, error)
}

// Lister is the slice of the device API a remote catalog needs.
type Lister interface {
	ListEntries(ctx context.Context, dir string) ([]device.RawEntry, error)
}

// LocalCatalog lists the regular files of one local directory.
// Subdirectories are not descended.
type LocalCatalog struct {
	dir     string
	filters []Filter
}

func NewLocalCatalog(dir string, filters ...Filter) *LocalCatalog {
	return &LocalCatalog{dir: dir, filters: filters}
}

func (c *LocalCatalog) List(ctx context.Context) ([]types.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(fs, c.dir)
	if err != nil {
		return nil, err
	}
	var files []types.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f := types.FileInfo{
			Directory: c.dir,
			Filename:  entry.Name(),
			Path:      filepath.Join(c.dir, entry.Name()),
			Size:      entry.Size(),
			Modified:  entry.ModTime(),
		}
		if accepted(f, c.filters) {
			files = append(files, f)
		}
	}
	return files, nil
}

// RemoteCatalog lists the files of one directory on the card. Directory
// and volume-label entries are dropped; only files take part in a sync.
type RemoteCatalog struct {
	device  Lister
	dir     string
	filters []Filter
}

func NewRemoteCatalog(device Lister, dir string, filters ...Filter) *RemoteCatalog {
	return &RemoteCatalog{device: device, dir: dir, filters: filters}
}

func (c *RemoteCatalog) List(ctx context.Context) ([]types.FileInfo, error) {
	entries, err := c.device.ListEntries(ctx, c.dir)
	if err != nil {
		return nil, err
	}
	var files []types.FileInfo
	for _, entry := range entries {
		if entry.Attr.Directory() || entry.Attr.Volume() {
			continue
		}
		f := types.FileInfo{
			Directory: entry.Directory,
			Filename:  entry.Filename,
			Path:      path.Join(entry.Directory, entry.Filename),
			Size:      entry.Size,
			Modified:  entry.Modified(),
		}
		if accepted(f, c.filters) {
			files = append(files, f)
		}
	}
	return files, nil
}

func accepted(f types.FileInfo, filters []Filter) bool {
	for _, filter := range filters {
		if !filter(f) {
			return false
		}
	}
	return true
}
