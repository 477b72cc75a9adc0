package worker

import (
	"time"

	"github.com/pion/logging"

	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/sink"
)

const (
	DefaultCommandTimeout = 5 * time.Second
	// DefaultStopTimeout bounds stop, disarm and release, which may wait
	// for a secondary's capture loop to drain.
	DefaultStopTimeout = 30 * time.Second
	DefaultGrabTimeout = 100 * time.Millisecond
	DefaultInboxSize   = 16
	DefaultBackend     = "ffmpeg"
)

// Config tunes a worker. Zero fields take the defaults above.
type Config struct {
	CommandTimeout time.Duration
	StopTimeout    time.Duration
	// GrabTimeout is how long the capture loop blocks on the device
	// before checking for a stop request.
	GrabTimeout time.Duration
	InboxSize   int
	// QueueSize is the recorder queue length.
	QueueSize int
	// Backend is the codec used when prime names none.
	Backend string
	// Properties are applied with prop.Registry.Init once the sensor size
	// is known.
	Properties    map[prop.Name]interface{}
	LoggerFactory logging.LoggerFactory
}

func (c *Config) setDefaults() {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.GrabTimeout <= 0 {
		c.GrabTimeout = DefaultGrabTimeout
	}
	if c.InboxSize <= 0 {
		c.InboxSize = DefaultInboxSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = sink.DefaultQueueSize
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
}
