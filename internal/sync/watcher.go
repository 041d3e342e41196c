package sync

import (
	"context"
	"fmt"

	"github.com/seltzinger/airsync/internal/types"
)

// Signaler reports whether remote contents changed since last asked.
// Reading the signal clears it on the device.
type Signaler interface {
	MemoryChanged(ctx context.Context) (bool, error)
}

// Watcher turns a catalog into a stream of arrival sets. Each call to
// Next observes the catalog and reports the files that appeared since
// the previous observation, along with the full current snapshot.
//
// The first call establishes a baseline: it returns the initial
// snapshot with no arrivals. A watcher with a signal (the remote
// variant) clears the signal once while establishing the baseline, and
// afterwards skips the list call entirely on ticks where the signal
// stays quiet, reusing the previous snapshot.
type Watcher struct {
	catalog Catalog
	key     func(types.FileInfo) string
	signal  Signaler

	primed  bool
	known   map[string]struct{}
	current []types.FileInfo
}

// NewLocalWatcher watches a local catalog. Arrival identity is
// filename, size and modification time, so a rewritten file re-arrives.
func NewLocalWatcher(catalog Catalog) *Watcher {
	return &Watcher{catalog: catalog, key: localKey}
}

// NewRemoteWatcher watches a remote catalog gated by a change signal.
// Arrival identity is filename only: the card's listing timestamps lag
// writes, so richer keys would re-announce files spuriously. An
// in-place remote rewrite under the same name is therefore not seen as
// an arrival.
func NewRemoteWatcher(catalog Catalog, signal Signaler) *Watcher {
	return &Watcher{catalog: catalog, key: remoteKey, signal: signal}
}

// Next advances the watcher by one tick.
func (w *Watcher) Next(ctx context.Context) (arrivals, snapshot []types.FileInfo, err error) {
	if !w.primed {
		if w.signal != nil {
			if _, err := w.signal.MemoryChanged(ctx); err != nil {
				return nil, nil, err
			}
		}
		files, err := w.catalog.List(ctx)
		if err != nil {
			return nil, nil, err
		}
		w.known = keysOf(files, w.key)
		w.current = files
		w.primed = true
		return nil, files, nil
	}

	if w.signal != nil {
		changed, err := w.signal.MemoryChanged(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !changed {
			return nil, w.current, nil
		}
	}

	files, err := w.catalog.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		if _, ok := w.known[w.key(f)]; !ok {
			arrivals = append(arrivals, f)
		}
	}
	w.known = keysOf(files, w.key)
	w.current = files
	return arrivals, files, nil
}

func keysOf(files []types.FileInfo, key func(types.FileInfo) string) map[string]struct{} {
	keys := make(map[string]struct{}, len(files))
	for _, f := range files {
		keys[key(f)] = struct{}{}
	}
	return keys
}

func localKey(f types.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", f.Filename, f.Size, f.Modified.UnixNano())
}

func remoteKey(f types.FileInfo) string {
	return f.Filename
}
