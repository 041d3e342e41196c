package sync

import (
	"path"
	"strings"
	"time"

	"github.com/seltzinger/airsync/internal/types"
)

// A Filter narrows which files a catalog reports. A file is listed only
// when every filter accepts it.
type Filter func(types.FileInfo) bool

// FilterExt accepts files whose extension matches one of exts,
// case-insensitively. Extensions may be given with or without the
// leading dot.
func FilterExt(exts ...string) Filter {
	normalized := make([]string, len(exts))
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = strings.ToLower(ext)
	}
	return func(f types.FileInfo) bool {
		got := strings.ToLower(path.Ext(f.Filename))
		for _, want := range normalized {
			if got == want {
				return true
			}
		}
		return false
	}
}

// FilterNameGlob accepts files whose name matches pattern, using
// path.Match syntax.
func FilterNameGlob(pattern string) Filter {
	return func(f types.FileInfo) bool {
		ok, err := path.Match(pattern, f.Filename)
		return err == nil && ok
	}
}

// FilterNewerThan accepts files modified strictly after t. Files without
// a timestamp are rejected.
func FilterNewerThan(t time.Time) Filter {
	return func(f types.FileInfo) bool {
		return !f.Modified.IsZero() && f.Modified.After(t)
	}
}
