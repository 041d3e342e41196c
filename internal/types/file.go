package types

import "time"

// FileInfo is one file observed in a directory listing, local or remote.
// Modified is the zero time when the listing carried no usable timestamp.
type FileInfo struct {
	Directory string    `json:"directory"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified,omitempty"`
}
