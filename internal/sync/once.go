package sync

import (
	"context"
	"sort"

	"github.com/seltzinger/airsync/internal/types"
)

// DownAll downloads every remote file into the local directory,
// skipping files that already match.
func DownAll(ctx context.Context, engine *Engine) (*Report, error) {
	files, err := engine.Session().RemoteCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	return engine.DownloadAll(ctx, files)
}

// UpAll uploads every local file onto the card, skipping files that
// already match.
func UpAll(ctx context.Context, engine *Engine) (*Report, error) {
	files, err := engine.Session().LocalCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	return engine.UploadAll(ctx, files)
}

// DownByTime downloads the count most recently modified remote files,
// newest first.
func DownByTime(ctx context.Context, engine *Engine, count int) (*Report, error) {
	files, err := engine.Session().RemoteCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	picked := newestFirst(files, count)
	logSyncStart(DirectionDown, picked)
	return engine.DownloadAll(ctx, picked)
}

// UpByTime uploads the count most recently modified local files,
// newest first.
func UpByTime(ctx context.Context, engine *Engine, count int) (*Report, error) {
	files, err := engine.Session().LocalCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	picked := newestFirst(files, count)
	logSyncStart(DirectionUp, picked)
	return engine.UploadAll(ctx, picked)
}

// DownByName downloads the count remote files whose names sort highest,
// highest first. Cameras number their files, so this approximates
// newest-first without trusting timestamps.
func DownByName(ctx context.Context, engine *Engine, count int) (*Report, error) {
	files, err := engine.Session().RemoteCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	picked := highestNameFirst(files, count)
	logSyncStart(DirectionDown, picked)
	return engine.DownloadAll(ctx, picked)
}

// UpByName uploads the count local files whose names sort highest,
// highest first.
func UpByName(ctx context.Context, engine *Engine, count int) (*Report, error) {
	files, err := engine.Session().LocalCatalog().List(ctx)
	if err != nil {
		return nil, err
	}
	picked := highestNameFirst(files, count)
	logSyncStart(DirectionUp, picked)
	return engine.UploadAll(ctx, picked)
}

func newestFirst(files []types.FileInfo, count int) []types.FileInfo {
	sorted := append([]types.FileInfo(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Modified.Before(sorted[j].Modified)
	})
	return lastReversed(sorted, count)
}

func highestNameFirst(files []types.FileInfo, count int) []types.FileInfo {
	sorted := append([]types.FileInfo(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filename < sorted[j].Filename
	})
	return lastReversed(sorted, count)
}

// lastReversed takes the top count entries of an ascending sort,
// highest first.
func lastReversed(sorted []types.FileInfo, count int) []types.FileInfo {
	if count > len(sorted) {
		count = len(sorted)
	}
	if count <= 0 {
		return nil
	}
	top := make([]types.FileInfo, 0, count)
	for i := len(sorted) - 1; i >= len(sorted)-count; i-- {
		top = append(top, sorted[i])
	}
	return top
}
