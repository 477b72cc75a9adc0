// Package dummy provides a synthetic camera driver for testing.
//
// The camera produces pseudo-random noise frames and models the parts of a
// machine-vision camera the acquisition layer depends on: feature nodes, an
// on-device stream buffer with the usual handling modes, a trigger input
// fed from a trigger.Line, a trigger output that pulses the line once per
// exposure, and fault injection through Disconnect.
package dummy

import (
	"fmt"
	"image"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/trigger"
)

var logger = logging.NewLogger("camsync/dummy")

const (
	DefaultSensorWidth  = 320
	DefaultSensorHeight = 240
	// DefaultBufferCount is the number of frames the on-device stream
	// buffer holds.
	DefaultBufferCount = 16

	minFrameRate = 1.0
	maxFrameRate = 200.0
	minExposure  = 100.0
	maxExposure  = 30000.0
)

// Options configures a synthetic camera.
type Options struct {
	SensorWidth  int
	SensorHeight int
	BufferCount  int
	// Line is the wire shared by the trigger input and output. Defaults to
	// the process-wide line trigger.DefaultLine.
	Line *trigger.Line
	Seed int64
}

// Camera is a synthetic camera. It implements driver.Adapter and
// driver.Ranger.
type Camera struct {
	opts Options

	mu           sync.Mutex
	features     map[string]interface{}
	opened       bool
	disconnected chan struct{}
	acq          *acquisition
	random       *rand.Rand
}

var _ driver.Adapter = &Camera{}
var _ driver.Halter = &Camera{}
var _ driver.Ranger = &Camera{}

// New creates a closed synthetic camera.
func New(opts Options) *Camera {
	if opts.SensorWidth <= 0 {
		opts.SensorWidth = DefaultSensorWidth
	}
	if opts.SensorHeight <= 0 {
		opts.SensorHeight = DefaultSensorHeight
	}
	if opts.BufferCount <= 0 {
		opts.BufferCount = DefaultBufferCount
	}
	if opts.Line == nil {
		opts.Line = trigger.Get(trigger.DefaultLine)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	return &Camera{
		opts:         opts,
		disconnected: make(chan struct{}),
		random:       rand.New(rand.NewSource(opts.Seed)),
	}
}

// Register creates a synthetic camera and registers it with m under id.
func Register(m *driver.Manager, id driver.Identity, opts Options) (*Camera, error) {
	c := New(opts)
	err := m.Register(c, driver.Info{
		Label:      "dummy " + id.String(),
		DeviceType: driver.Synthetic,
		Identity:   id,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Camera) defaults() map[string]interface{} {
	return map[string]interface{}{
		driver.FeatureAcquisitionFrameRate:     30.0,
		driver.FeatureAcquisitionFrameRateOn:   true,
		driver.FeatureExposureTime:             1500.0,
		driver.FeatureBinningHorizontal:        1,
		driver.FeatureBinningVertical:          1,
		driver.FeatureWidth:                    c.opts.SensorWidth,
		driver.FeatureHeight:                   c.opts.SensorHeight,
		driver.FeatureOffsetX:                  0,
		driver.FeatureOffsetY:                  0,
		driver.FeatureSensorWidth:              c.opts.SensorWidth,
		driver.FeatureSensorHeight:             c.opts.SensorHeight,
		driver.FeatureStreamBufferHandlingMode: "OldestFirst",
		driver.FeaturePixelFormat:              string(frame.FormatMono8),
		driver.FeatureTriggerMode:              driver.TriggerOff,
		driver.FeatureTriggerSource:            driver.TriggerSourceSoftware,
		driver.FeatureTriggerActivation:        driver.ActivationRisingEdge,
		driver.FeatureLineSelector:             "Line2",
		driver.FeatureLineSource:               driver.LineSourceOff,
	}
}

// Disconnect simulates the device dropping off the bus. Every later call
// fails with availability.ErrDisconnected and a running acquisition stops
// producing frames.
func (c *Camera) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.disconnected:
	default:
		logger.Infof("simulating disconnect")
		close(c.disconnected)
	}
}

func (c *Camera) checkConnected() error {
	select {
	case <-c.disconnected:
		return availability.ErrDisconnected
	default:
		return nil
	}
}

func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkConnected(); err != nil {
		return err
	}
	c.features = c.defaults()
	c.opened = true
	return nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.acq != nil {
		c.acq.halt()
		c.acq = nil
	}
	c.opened = false
	return nil
}

func (c *Camera) Feature(name string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkConnected(); err != nil {
		return nil, err
	}
	v, ok := c.features[name]
	if !ok {
		return nil, fmt.Errorf("dummy: unknown feature %q", name)
	}
	return v, nil
}

func (c *Camera) SetFeature(name string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkConnected(); err != nil {
		return err
	}
	if c.acq != nil {
		return fmt.Errorf("dummy: %s is not writable while streaming", name)
	}
	old, ok := c.features[name]
	if !ok {
		return fmt.Errorf("dummy: unknown feature %q", name)
	}
	if reflect.TypeOf(old) != reflect.TypeOf(value) {
		return fmt.Errorf("dummy: %s expects %T, got %T", name, old, value)
	}

	switch name {
	case driver.FeatureSensorWidth, driver.FeatureSensorHeight:
		return fmt.Errorf("dummy: %s is read-only", name)
	case driver.FeatureAcquisitionFrameRate:
		if v := value.(float64); v < minFrameRate || v > maxFrameRate {
			return fmt.Errorf("dummy: %s %g out of range", name, v)
		}
	case driver.FeatureExposureTime:
		if v := value.(float64); v < minExposure || v > maxExposure {
			return fmt.Errorf("dummy: %s %g out of range", name, v)
		}
	case driver.FeatureBinningHorizontal, driver.FeatureBinningVertical:
		v := value.(int)
		if v != 1 && v != 2 && v != 4 {
			return fmt.Errorf("dummy: %s %d unsupported", name, v)
		}
		c.features[name] = v
		// binning resets the image format to the full binned sensor
		c.features[driver.FeatureOffsetX] = 0
		c.features[driver.FeatureOffsetY] = 0
		c.features[driver.FeatureWidth] = c.opts.SensorWidth / c.features[driver.FeatureBinningHorizontal].(int)
		c.features[driver.FeatureHeight] = c.opts.SensorHeight / c.features[driver.FeatureBinningVertical].(int)
		return nil
	case driver.FeatureWidth, driver.FeatureOffsetX:
		if err := c.checkSpan(name, value.(int), driver.FeatureWidth, driver.FeatureOffsetX, c.opts.SensorWidth, driver.FeatureBinningHorizontal); err != nil {
			return err
		}
	case driver.FeatureHeight, driver.FeatureOffsetY:
		if err := c.checkSpan(name, value.(int), driver.FeatureHeight, driver.FeatureOffsetY, c.opts.SensorHeight, driver.FeatureBinningVertical); err != nil {
			return err
		}
	case driver.FeaturePixelFormat:
		if v := frame.Format(value.(string)); v != frame.FormatMono8 && v != frame.FormatRGB8 {
			return fmt.Errorf("dummy: pixel format %s unsupported", v)
		}
	case driver.FeatureStreamBufferHandlingMode:
		switch value.(string) {
		case "NewestOnly", "NewestFirst", "OldestFirst":
		default:
			return fmt.Errorf("dummy: buffer handling mode %q unsupported", value)
		}
	case driver.FeatureTriggerMode:
		if v := value.(string); v != driver.TriggerOn && v != driver.TriggerOff {
			return fmt.Errorf("dummy: trigger mode %q unsupported", v)
		}
	case driver.FeatureTriggerSource:
		if v := value.(string); v != driver.TriggerSourceSoftware && v != driver.TriggerSourceLine3 {
			return fmt.Errorf("dummy: trigger source %q unsupported", v)
		}
	case driver.FeatureLineSource:
		if v := value.(string); v != driver.LineSourceOff && v != driver.LineSourceCounterActive {
			return fmt.Errorf("dummy: line source %q unsupported", v)
		}
	}

	c.features[name] = value
	return nil
}

// checkSpan rejects an offset or extent that would leave the binned sensor.
func (c *Camera) checkSpan(name string, v int, extent, offset string, sensor int, binning string) error {
	max := sensor / c.features[binning].(int)
	e, o := c.features[extent].(int), c.features[offset].(int)
	if name == extent {
		e = v
	} else {
		o = v
	}
	if e <= 0 || o < 0 || o+e > max {
		return fmt.Errorf("dummy: %s %d exceeds the %d pixel sensor", name, v, max)
	}
	return nil
}

// Range implements driver.Ranger.
func (c *Camera) Range(name string) (float64, float64, bool) {
	switch name {
	case driver.FeatureAcquisitionFrameRate:
		return minFrameRate, maxFrameRate, true
	case driver.FeatureExposureTime:
		return minExposure, maxExposure, true
	}
	return 0, 0, false
}

func (c *Camera) BeginAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkConnected(); err != nil {
		return err
	}
	if !c.opened {
		return fmt.Errorf("dummy: device is not open")
	}
	if c.acq != nil {
		return fmt.Errorf("dummy: acquisition already running")
	}

	cfg := acquisitionConfig{
		width:    c.features[driver.FeatureWidth].(int),
		height:   c.features[driver.FeatureHeight].(int),
		format:   frame.Format(c.features[driver.FeaturePixelFormat].(string)),
		mode:     c.features[driver.FeatureStreamBufferHandlingMode].(string),
		capacity: c.opts.BufferCount,
		output:   c.features[driver.FeatureLineSource] == driver.LineSourceCounterActive,
	}

	a := newAcquisition(cfg, c.opts.Line, c.disconnected, rand.New(rand.NewSource(c.random.Int63())))
	switch {
	case c.features[driver.FeatureTriggerMode] == driver.TriggerOff:
		period := time.Duration(float64(time.Second) / c.features[driver.FeatureAcquisitionFrameRate].(float64))
		a.startFreeRun(period)
	case c.features[driver.FeatureTriggerSource] == driver.TriggerSourceLine3:
		a.startTriggered(c.opts.Line.Subscribe(c.opts.BufferCount))
	default:
		// software trigger: armed, but no frames until a trigger that
		// never comes
		a.startHeld()
	}

	c.acq = a
	return nil
}

func (c *Camera) GrabNext(timeout time.Duration) (frame.Record, error) {
	c.mu.Lock()
	a := c.acq
	c.mu.Unlock()

	if a == nil {
		return frame.Record{}, fmt.Errorf("dummy: acquisition not running")
	}
	return a.next(timeout)
}

// StopExposure stops the frame clock, or for a triggered camera stops
// listening after exposing the pulses already received. Buffered frames
// stay available to GrabNext until EndAcquisition.
func (c *Camera) StopExposure() error {
	c.mu.Lock()
	a := c.acq
	c.mu.Unlock()

	if a == nil {
		return fmt.Errorf("dummy: acquisition not running")
	}
	a.halt()
	return c.checkConnected()
}

func (c *Camera) EndAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.acq == nil {
		return fmt.Errorf("dummy: acquisition not running")
	}
	c.acq.halt()
	c.acq = nil
	return c.checkConnected()
}

// noise fills a new image of the configured size and format.
func noise(random *rand.Rand, cfg acquisitionConfig) image.Image {
	rect := image.Rect(0, 0, cfg.width, cfg.height)
	if cfg.format == frame.FormatRGB8 {
		img := image.NewRGBA(rect)
		random.Read(img.Pix)
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
		return img
	}
	img := image.NewGray(rect)
	random.Read(img.Pix)
	return img
}
