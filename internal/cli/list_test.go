package cli

import (
	"testing"
	"time"

	"github.com/seltzinger/airsync/internal/types"
)

func TestParseAfter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339",
			input: "2016-01-23T11:19:04Z",
			want:  time.Date(2016, 1, 23, 11, 19, 4, 0, time.UTC),
		},
		{
			name:  "date and time",
			input: "2016-01-23 11:19:04",
			want:  time.Date(2016, 1, 23, 11, 19, 4, 0, time.UTC),
		},
		{
			name:  "date only",
			input: "2016-01-23",
			want:  time.Date(2016, 1, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "nonsense",
			input:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAfter(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFileFilters(t *testing.T) {
	filters, err := fileFilters(nil, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 0 {
		t.Errorf("Expected no filters, got %d", len(filters))
	}

	filters, err = fileFilters([]string{"jpg", "cr2"}, "IMG_*", "2016-01-23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 3 {
		t.Errorf("Expected 3 filters, got %d", len(filters))
	}

	if _, err := fileFilters(nil, "", "yesterday"); err == nil {
		t.Fatal("expected error for bad --after value")
	}
}

func TestFileListingRows(t *testing.T) {
	listing := &FileListing{
		Side:      "remote",
		Directory: "/DCIM/100__TSB",
		Files: []types.FileInfo{
			{Filename: "IMG_0001.JPG", Size: 1024, Modified: time.Date(2016, 1, 23, 11, 19, 4, 0, time.UTC)},
			{Filename: "IMG_0002.JPG", Size: 2048},
		},
	}

	rows := listing.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "IMG_0001.JPG" {
		t.Errorf("Expected IMG_0001.JPG, got '%s'", rows[0][0])
	}
	if rows[0][1] != "1.0 KiB" {
		t.Errorf("Expected 1.0 KiB, got '%s'", rows[0][1])
	}
	if rows[0][2] != "2016-01-23 11:19:04" {
		t.Errorf("Expected formatted time, got '%s'", rows[0][2])
	}
	if rows[1][2] != "-" {
		t.Errorf("Expected '-' for zero time, got '%s'", rows[1][2])
	}
}

func TestFileListingEmptyMessage(t *testing.T) {
	listing := &FileListing{Side: "local", Directory: "photos"}
	if listing.EmptyMessage() != "No files in photos" {
		t.Errorf("Expected directory in empty message, got '%s'", listing.EmptyMessage())
	}
}
