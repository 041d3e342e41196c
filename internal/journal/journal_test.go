package journal

import (
	"path/filepath"
	"testing"
	"time"

	testhelpers "github.com/seltzinger/airsync/internal/testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history", "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := testhelpers.TestContext()

	entry := Entry{
		Direction: "down",
		Filename:  "IMG_0001.JPG",
		Source:    "/DCIM/100__TSB/IMG_0001.JPG",
		Dest:      "photos/IMG_0001.JPG",
		Size:      52341,
		Duration:  1200 * time.Millisecond,
		Outcome:   "transferred",
	}
	testhelpers.AssertNoError(t, j.Record(ctx, entry))

	entries, err := j.Recent(ctx, 10)
	testhelpers.AssertNoError(t, err)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.ID == "" {
		t.Error("Expected a generated ID")
	}
	if got.At.IsZero() {
		t.Error("Expected a generated timestamp")
	}
	if got.Filename != entry.Filename || got.Direction != entry.Direction {
		t.Errorf("Expected %s/%s, got %s/%s",
			entry.Direction, entry.Filename, got.Direction, got.Filename)
	}
	if got.Size != entry.Size || got.Duration != entry.Duration {
		t.Errorf("Expected size %d duration %v, got %d/%v",
			entry.Size, entry.Duration, got.Size, got.Duration)
	}
	if got.Error != "" {
		t.Errorf("Expected no error text, got '%s'", got.Error)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := testhelpers.TestContext()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	names := []string{"IMG_0001.JPG", "IMG_0002.JPG", "IMG_0003.JPG"}
	for i, name := range names {
		err := j.Record(ctx, Entry{
			At:        base.Add(time.Duration(i) * time.Minute),
			Direction: "up",
			Filename:  name,
			Outcome:   "transferred",
		})
		testhelpers.AssertNoError(t, err)
	}

	entries, err := j.Recent(ctx, 2)
	testhelpers.AssertNoError(t, err)
	if len(entries) != 2 {
		t.Fatalf("Expected the limit honored, got %d entries", len(entries))
	}
	if entries[0].Filename != "IMG_0003.JPG" || entries[1].Filename != "IMG_0002.JPG" {
		t.Errorf("Expected newest first, got %s then %s",
			entries[0].Filename, entries[1].Filename)
	}
}

func TestRecordKeepsCallerID(t *testing.T) {
	j := openTestJournal(t)
	ctx := testhelpers.TestContext()

	err := j.Record(ctx, Entry{
		ID:        "fixed-id",
		At:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Direction: "down",
		Filename:  "IMG_0001.JPG",
		Outcome:   "failed",
		Error:     "card pulled",
	})
	testhelpers.AssertNoError(t, err)

	entries, err := j.Recent(ctx, 1)
	testhelpers.AssertNoError(t, err)
	if len(entries) != 1 || entries[0].ID != "fixed-id" {
		t.Fatalf("Expected the caller's ID kept, got %+v", entries)
	}
	if entries[0].Error != "card pulled" {
		t.Errorf("Expected the error text stored, got '%s'", entries[0].Error)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	j := openTestJournal(t)
	ctx := testhelpers.TestContext()

	entry := Entry{ID: "dup", Direction: "up", Filename: "IMG_0001.JPG", Outcome: "transferred"}
	testhelpers.AssertNoError(t, j.Record(ctx, entry))
	testhelpers.AssertError(t, j.Record(ctx, entry))
}

func TestPrune(t *testing.T) {
	j := openTestJournal(t)
	ctx := testhelpers.TestContext()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := j.Record(ctx, Entry{
			At:        base.Add(time.Duration(i) * time.Hour),
			Direction: "up",
			Filename:  "IMG_0001.JPG",
			Outcome:   "transferred",
		})
		testhelpers.AssertNoError(t, err)
	}

	removed, err := j.Prune(ctx, base.Add(2*time.Hour))
	testhelpers.AssertNoError(t, err)
	if removed != 2 {
		t.Errorf("Expected 2 entries pruned, got %d", removed)
	}
	entries, err := j.Recent(ctx, 10)
	testhelpers.AssertNoError(t, err)
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries left, got %d", len(entries))
	}
}

func TestMigrateIdempotent(t *testing.T) {
	j := openTestJournal(t)
	testhelpers.AssertNoError(t, j.Migrate(testhelpers.TestContext()))
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "journal.db")
	j, err := Open(path)
	testhelpers.AssertNoError(t, err)
	defer j.Close()

	testhelpers.AssertNoError(t, j.Record(testhelpers.TestContext(), Entry{
		Direction: "down", Filename: "IMG_0001.JPG", Outcome: "transferred",
	}))
}
