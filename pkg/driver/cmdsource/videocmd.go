package cmdsource

import (
	"fmt"
	"sync"
	"time"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
)

// Options describes the output of a source command.
type Options struct {
	// Command is split like a shell would, without running a shell.
	Command string
	Width   int
	Height  int
	// Format is the raw layout on the command's output, GREY or YUY2.
	Format frame.Format
	// FrameRate is the rate the command produces frames at. It is exported
	// to the command as CAMSYNC_AcquisitionFrameRate.
	FrameRate float64
	// Depth is the number of undelivered frames held. Defaults to 4.
	Depth       int
	StopTimeout time.Duration
}

// Camera is a free-running camera fed by a command. It has no trigger
// hardware, so it can only be a primary.
type Camera struct {
	args []string
	opts Options

	mu       sync.Mutex
	features map[string]interface{}
	proc     *process
	decoder  frame.Decoder
	seq      uint64
}

var _ driver.Adapter = &Camera{}

// New validates opts and creates a closed camera. The command is started by
// BeginAcquisition and stopped by EndAcquisition.
func New(opts Options) (*Camera, error) {
	args, err := splitCommand(opts.Command)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("cmdsource: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.Format == "" {
		opts.Format = frame.FormatGREY
	}
	if _, err := frame.NewDecoder(opts.Format, frame.FormatMono8); err != nil {
		return nil, fmt.Errorf("cmdsource: %w", err)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Depth <= 0 {
		opts.Depth = 4
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Camera{args: args, opts: opts}, nil
}

// Register creates a command camera and registers it with m under id.
func Register(m *driver.Manager, id driver.Identity, opts Options) error {
	c, err := New(opts)
	if err != nil {
		return err
	}
	return m.Register(c, driver.Info{
		Label:      c.args[0] + " " + id.String(),
		DeviceType: driver.Command,
		Identity:   id,
	})
}

func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.features = map[string]interface{}{
		driver.FeatureAcquisitionFrameRate: c.opts.FrameRate,
		driver.FeatureWidth:                c.opts.Width,
		driver.FeatureHeight:               c.opts.Height,
		driver.FeatureSensorWidth:          c.opts.Width,
		driver.FeatureSensorHeight:         c.opts.Height,
		driver.FeaturePixelFormat:          string(frame.FormatMono8),
		driver.FeatureTriggerMode:          driver.TriggerOff,
	}
	return nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	p := c.proc
	c.proc = nil
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.stop(c.opts.StopTimeout)
}

func (c *Camera) Feature(name string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.features[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, availability.ErrUnimplemented)
	}
	return v, nil
}

// SetFeature accepts a frame rate, which is only passed on to the command,
// and the capture pixel format. The frame size is fixed by the command.
func (c *Camera) SetFeature(name string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != nil {
		return fmt.Errorf("cmdsource: %s is not writable while streaming", name)
	}

	switch name {
	case driver.FeatureAcquisitionFrameRate:
		if v, ok := value.(float64); !ok || v <= 0 {
			return fmt.Errorf("cmdsource: invalid %s %v", name, value)
		}
	case driver.FeaturePixelFormat:
		if f := frame.Format(fmt.Sprint(value)); f != frame.FormatMono8 && f != frame.FormatRGB8 {
			return fmt.Errorf("cmdsource: pixel format %s unsupported", f)
		}
	case driver.FeatureTriggerMode:
		if value != driver.TriggerOff {
			return fmt.Errorf("%s %v: %w", name, value, availability.ErrUnimplemented)
		}
	default:
		return fmt.Errorf("%s: %w", name, availability.ErrUnimplemented)
	}

	c.features[name] = value
	return nil
}

func (c *Camera) BeginAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.features == nil {
		return fmt.Errorf("cmdsource: device is not open")
	}
	if c.proc != nil {
		return fmt.Errorf("cmdsource: acquisition already running")
	}

	out := frame.Format(c.features[driver.FeaturePixelFormat].(string))
	decoder, err := frame.NewDecoder(c.opts.Format, out)
	if err != nil {
		return err
	}

	size := c.opts.Width * c.opts.Height * c.opts.Format.BytesPerPixel()
	p, err := start(c.args, environ(c.features), size, c.opts.Depth)
	if err != nil {
		return fmt.Errorf("%w: %v", availability.ErrNoDevice, err)
	}
	logger.Infof("started %s", c.args[0])

	c.proc = p
	c.decoder = decoder
	return nil
}

// GrabNext returns the next frame the command wrote. Once the command has
// exited every call fails with availability.ErrDisconnected.
func (c *Camera) GrabNext(timeout time.Duration) (frame.Record, error) {
	c.mu.Lock()
	p, decoder := c.proc, c.decoder
	c.mu.Unlock()

	if p == nil {
		return frame.Record{}, fmt.Errorf("cmdsource: %w", errNotRunning)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var buf []byte
	select {
	case b, ok := <-p.frames:
		if !ok {
			return frame.Record{}, fmt.Errorf("%s exited: %w: %v", c.args[0], availability.ErrDisconnected, p.err)
		}
		buf = b
	case <-deadline.C:
		return frame.Record{}, driver.ErrGrabTimeout
	}
	captured := time.Now()

	img, err := decoder.Decode(buf, c.opts.Width, c.opts.Height)
	if err != nil {
		return frame.Record{}, err
	}

	c.mu.Lock()
	rec := frame.Record{Seq: c.seq, Captured: captured, Image: img}
	c.seq++
	c.mu.Unlock()
	return rec, nil
}

func (c *Camera) EndAcquisition() error {
	c.mu.Lock()
	p := c.proc
	c.proc = nil
	c.mu.Unlock()

	if p == nil {
		return fmt.Errorf("cmdsource: %w", errNotRunning)
	}
	return p.stop(c.opts.StopTimeout)
}
