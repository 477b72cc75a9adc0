// Package sink holds the two destinations of captured frames: a single-slot
// buffer for live preview and a lossless recorder feeding a codec.Writer.
package sink

import (
	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/frame"
)

var logger = logging.NewLogger("camsync/sink")

// Sink receives frames from a capture loop in capture order.
type Sink interface {
	Put(rec frame.Record) error
}
