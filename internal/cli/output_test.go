package cli

import (
	"testing"
	"time"

	"github.com/seltzinger/airsync/internal/types"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short stays", "IMG_0001.JPG", 40, "IMG_0001.JPG"},
		{"exact stays", "abcde", 5, "abcde"},
		{"long shortens", "a_very_long_filename_from_somewhere.jpg", 20, "a_very_long_filen..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("Expected '-' for zero time, got '%s'", got)
	}
	at := time.Date(2016, 1, 23, 11, 19, 4, 0, time.UTC)
	if got := formatTime(at); got != "2016-01-23 11:19:04" {
		t.Errorf("Expected formatted time, got '%s'", got)
	}
}

func TestAddWarning(t *testing.T) {
	w := NewOutputWriter(types.OutputFormatJSON, false, false)
	w.AddWarning("JOURNAL_ERROR", "journal unavailable", "warning")
	if len(w.warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(w.warnings))
	}
	if w.warnings[0].Code != "JOURNAL_ERROR" {
		t.Errorf("Expected JOURNAL_ERROR, got '%s'", w.warnings[0].Code)
	}
}
