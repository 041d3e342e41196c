package sync

import (
	"context"
	"io"
	"time"

	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/utils"
)

// DeviceAPI is the slice of the device client the sync engine drives.
type DeviceAPI interface {
	ListEntries(ctx context.Context, dir string) ([]device.RawEntry, error)
	MemoryChanged(ctx context.Context) (bool, error)
	Fetch(ctx context.Context, remotePath string) (io.ReadCloser, int64, error)
	Upload(ctx context.Context, dir, filename string, r io.Reader, modified time.Time) error
	Delete(ctx context.Context, remotePath string) error
}

// Session bundles the device with the directory pair and the file
// filters one sync run operates on. Construct one per run; nothing is
// shared between sessions.
type Session struct {
	Device    DeviceAPI
	LocalDir  string
	RemoteDir string
	Filters   []Filter
}

type SessionOption func(*Session)

func WithLocalDir(dir string) SessionOption {
	return func(s *Session) { s.LocalDir = dir }
}

func WithRemoteDir(dir string) SessionOption {
	return func(s *Session) { s.RemoteDir = dir }
}

func WithFilters(filters ...Filter) SessionOption {
	return func(s *Session) { s.Filters = filters }
}

func NewSession(dev DeviceAPI, opts ...SessionOption) *Session {
	s := &Session{
		Device:    dev,
		LocalDir:  utils.DefaultLocalDir,
		RemoteDir: utils.DefaultRemoteDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalCatalog returns a catalog of the session's local directory.
func (s *Session) LocalCatalog() *LocalCatalog {
	return NewLocalCatalog(s.LocalDir, s.Filters...)
}

// RemoteCatalog returns a catalog of the session's remote directory.
func (s *Session) RemoteCatalog() *RemoteCatalog {
	return NewRemoteCatalog(s.Device, s.RemoteDir, s.Filters...)
}
