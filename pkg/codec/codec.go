// Package codec defines the video writer backends recordings are delivered
// to, and a registrar to select them by name.
package codec

import (
	"github.com/camsync/camsync/pkg/frame"
)

// Setting describes the stream a Writer receives.
type Setting struct {
	Width, Height int
	Format        frame.Format
	FrameRate     float64
	// BitRate is a target in bits per second. Zero lets the backend choose.
	BitRate int
}

// Writer persists a recording. Frames arrive in capture order from a single
// goroutine. Close finalizes the output and is safe to call twice.
type Writer interface {
	Open(path string, s Setting) error
	Write(rec frame.Record) error
	Close() error
}

// Builder creates an unopened Writer.
type Builder func() Writer
