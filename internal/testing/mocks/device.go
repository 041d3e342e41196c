package mocks

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seltzinger/airsync/internal/device"
)

// MockDevice is an in-memory stand-in for the card's HTTP API. Files
// live in a map keyed by full remote path; uploads and deletes raise
// the change flag the way writes on a real card do.
type MockDevice struct {
	mu       sync.Mutex
	files    map[string][]byte
	modified map[string]time.Time
	changed  bool

	// Calls recorded in order, readable after the fact.
	Fetches     []string
	Uploads     []string
	Deletes     []string
	SignalCalls int

	// Optional overrides; nil falls through to the in-memory default.
	ListEntriesFunc   func(ctx context.Context, dir string) ([]device.RawEntry, error)
	MemoryChangedFunc func(ctx context.Context) (bool, error)
	FetchFunc         func(ctx context.Context, remotePath string) (io.ReadCloser, int64, error)
	UploadFunc        func(ctx context.Context, dir, filename string, r io.Reader, modified time.Time) error
	DeleteFunc        func(ctx context.Context, remotePath string) error
}

// NewMockDevice creates an empty mock card.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		files:    make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

// Put seeds a remote file without raising the change flag, as if it had
// been on the card all along.
func (m *MockDevice) Put(dir, filename string, content []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := path.Join(dir, filename)
	m.files[p] = append([]byte(nil), content...)
	m.modified[p] = modified
}

// SetChanged forces the change flag.
func (m *MockDevice) SetChanged(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = v
}

// Content returns a remote file's bytes.
func (m *MockDevice) Content(remotePath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[remotePath]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), content...), true
}

// ListEntries mocks the directory listing.
func (m *MockDevice) ListEntries(ctx context.Context, dir string) ([]device.RawEntry, error) {
	if m.ListEntriesFunc != nil {
		return m.ListEntriesFunc(ctx, dir)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []device.RawEntry
	for p, content := range m.files {
		if path.Dir(p) != dir {
			continue
		}
		date, tm := device.EncodeFATTime(m.modified[p])
		entries = append(entries, device.RawEntry{
			Directory: dir,
			Filename:  path.Base(p),
			Path:      p,
			Size:      int64(len(content)),
			Attr:      0x20,
			Date:      date,
			Time:      tm,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

// MemoryChanged mocks the change signal, clearing it on read.
func (m *MockDevice) MemoryChanged(ctx context.Context) (bool, error) {
	if m.MemoryChangedFunc != nil {
		return m.MemoryChangedFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignalCalls++
	changed := m.changed
	m.changed = false
	return changed, nil
}

// Fetch mocks a streaming file read. Missing paths answer 404 like the
// real card.
func (m *MockDevice) Fetch(ctx context.Context, remotePath string) (io.ReadCloser, int64, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, remotePath)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches = append(m.Fetches, remotePath)
	content, ok := m.files[remotePath]
	if !ok {
		return nil, 0, &device.StatusError{URL: remotePath, StatusCode: 404}
	}
	return io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil
}

// Upload mocks a host upload, storing the streamed content.
func (m *MockDevice) Upload(ctx context.Context, dir, filename string, r io.Reader, modified time.Time) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, dir, filename, r, modified)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := path.Join(dir, filename)
	m.Uploads = append(m.Uploads, p)
	m.files[p] = content
	m.modified[p] = modified
	m.changed = true
	return nil
}

// Delete mocks removing a remote path.
func (m *MockDevice) Delete(ctx context.Context, remotePath string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, remotePath)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, remotePath)
	delete(m.files, remotePath)
	delete(m.modified, remotePath)
	m.changed = true
	return nil
}

// FetchOrder returns the fetched paths joined for easy assertions.
func (m *MockDevice) FetchOrder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Fetches))
	for i, p := range m.Fetches {
		names[i] = path.Base(p)
	}
	return strings.Join(names, ",")
}
