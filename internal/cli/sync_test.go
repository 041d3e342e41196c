package cli

import (
	"testing"
	"time"

	"github.com/seltzinger/airsync/internal/sync"
	"github.com/seltzinger/airsync/internal/types"
)

func TestNewSyncSummary(t *testing.T) {
	report := &sync.Report{
		Results: []sync.Result{
			{
				File:    types.FileInfo{Filename: "IMG_0001.JPG"},
				Outcome: sync.OutcomeTransferred,
				Bytes:   1024,
				Elapsed: 1500 * time.Millisecond,
			},
			{
				File:    types.FileInfo{Filename: "IMG_0002.JPG"},
				Outcome: sync.OutcomeSkipped,
			},
			{
				File:    types.FileInfo{Filename: "IMG_0003.JPG"},
				Outcome: sync.OutcomeReplaced,
				Bytes:   2048,
				Elapsed: 500 * time.Millisecond,
			},
		},
		Bytes:   3072,
		Elapsed: 2 * time.Second,
	}

	summary := newSyncSummary("down", report)

	if summary.Direction != "down" {
		t.Errorf("Expected direction down, got '%s'", summary.Direction)
	}
	if summary.Transferred != 2 {
		t.Errorf("Expected 2 transferred, got %d", summary.Transferred)
	}
	if summary.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", summary.Skipped)
	}
	if summary.Bytes != 3072 {
		t.Errorf("Expected 3072 bytes, got %d", summary.Bytes)
	}
	if summary.ElapsedMs != 2000 {
		t.Errorf("Expected 2000ms, got %d", summary.ElapsedMs)
	}
	if len(summary.Files) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(summary.Files))
	}
	if summary.Files[0].Outcome != "transferred" {
		t.Errorf("Expected transferred, got '%s'", summary.Files[0].Outcome)
	}
	if summary.Files[1].Outcome != "skipped" {
		t.Errorf("Expected skipped, got '%s'", summary.Files[1].Outcome)
	}
	if summary.Files[2].Outcome != "replaced" {
		t.Errorf("Expected replaced, got '%s'", summary.Files[2].Outcome)
	}
}

func TestSyncSummaryRows(t *testing.T) {
	summary := &SyncSummary{
		Direction: "up",
		Files: []TransferResult{
			{Filename: "IMG_0001.JPG", Outcome: "transferred", Bytes: 1024, ElapsedMs: 1500},
		},
	}

	rows := summary.Rows()
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row[0] != "IMG_0001.JPG" {
		t.Errorf("Expected IMG_0001.JPG, got '%s'", row[0])
	}
	if row[1] != "transferred" {
		t.Errorf("Expected transferred, got '%s'", row[1])
	}
	if row[2] != "1.0 KiB" {
		t.Errorf("Expected 1.0 KiB, got '%s'", row[2])
	}
	if row[3] != "1.5s" {
		t.Errorf("Expected 1.5s, got '%s'", row[3])
	}
}

func TestSyncSummaryEmptyMessage(t *testing.T) {
	summary := &SyncSummary{Direction: "down"}
	if summary.EmptyMessage() != "Nothing to sync down" {
		t.Errorf("Expected direction in empty message, got '%s'", summary.EmptyMessage())
	}
}
