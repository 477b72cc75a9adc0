package camera

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blackjack/webcam"

	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
)

var logger = logging.NewLogger("camsync/camera")

const (
	maxEmptyFrameCount = 5

	// V4L2 control ids, linux/v4l2-controls.h
	cidExposureAuto     webcam.ControlID = 0x009a0901
	cidExposureAbsolute webcam.ControlID = 0x009a0902

	exposureManual = 1
)

var errEmptyFrame = errors.New("empty frame")

// fourcc builds a V4L2 pixel format code.
func fourcc(a, b, c, d byte) webcam.PixelFormat {
	return webcam.PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	pixFmtGREY = fourcc('G', 'R', 'E', 'Y')
	pixFmtYUYV = fourcc('Y', 'U', 'Y', 'V')
)

// Camera implementation using v4l2
// Reference: https://linuxtv.org/downloads/v4l-dvb-apis/uapi/v4l/videodev.html#videodev
type camera struct {
	path    string
	cam     *webcam.Webcam
	formats map[webcam.PixelFormat]frame.Format

	mu       sync.Mutex
	features map[string]interface{}
	width    int
	height   int
	decoder  frame.Decoder
	buf      []byte
	seq      uint64
}

func init() {
	discovered := make(map[string]struct{})
	discover(driver.GetManager(), discovered, "/dev/v4l/by-path/*")
	discover(driver.GetManager(), discovered, "/dev/video*")
}

func discover(m *driver.Manager, discovered map[string]struct{}, pattern string) {
	devices, err := filepath.Glob(pattern)
	if err != nil {
		// No v4l device.
		return
	}
	for _, device := range devices {
		label := filepath.Base(device)
		reallink, err := filepath.EvalSymlinks(device)
		if err != nil {
			logger.Warnf("Failed to eval symlinks for %s: %v", device, err)
			continue
		}
		if _, ok := discovered[reallink]; ok {
			continue
		}
		discovered[reallink] = struct{}{}

		short := filepath.Base(reallink)
		index, _ := strconv.Atoi(strings.TrimPrefix(short, "video"))
		err = m.Register(newCamera(device), driver.Info{
			Label:      label + LabelSeparator + short,
			DeviceType: driver.Camera,
			Identity:   driver.Identity{Serial: short, Index: index},
		})
		if err != nil {
			logger.Warnf("Failed to register %s: %v", device, err)
		}
	}
}

func newCamera(path string) *camera {
	return &camera{
		path: path,
		formats: map[webcam.PixelFormat]frame.Format{
			pixFmtGREY: frame.FormatGREY,
			pixFmtYUYV: frame.FormatYUYV,
		},
	}
}

func (c *camera) Open() error {
	cam, err := webcam.Open(c.path)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", c.path, availability.ErrNoDevice, err)
	}

	width, height := 0, 0
	for format := range cam.GetSupportedFormats() {
		if _, ok := c.formats[format]; !ok {
			continue
		}
		for _, size := range cam.GetSupportedFrameSizes(format) {
			if int(size.MaxWidth*size.MaxHeight) > width*height {
				width, height = int(size.MaxWidth), int(size.MaxHeight)
			}
		}
	}
	if width == 0 {
		cam.Close()
		return fmt.Errorf("%s: no supported pixel format", c.path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cam = cam
	c.width, c.height = width, height
	c.features = map[string]interface{}{
		driver.FeatureAcquisitionFrameRate:     30.0,
		driver.FeatureExposureTime:             0.0,
		driver.FeatureWidth:                    width,
		driver.FeatureHeight:                   height,
		driver.FeatureSensorWidth:              width,
		driver.FeatureSensorHeight:             height,
		driver.FeaturePixelFormat:              string(frame.FormatMono8),
		driver.FeatureStreamBufferHandlingMode: "OldestFirst",
		driver.FeatureTriggerMode:              driver.TriggerOff,
		driver.FeatureLineSource:               driver.LineSourceOff,
	}
	if v, err := cam.GetControl(cidExposureAbsolute); err == nil {
		c.features[driver.FeatureExposureTime] = float64(v) * 100
	}
	return nil
}

func (c *camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cam == nil {
		return nil
	}
	err := c.cam.Close()
	c.cam = nil
	return err
}

func (c *camera) Feature(name string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.features[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, availability.ErrUnimplemented)
	}
	return v, nil
}

func (c *camera) SetFeature(name string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case driver.FeatureAcquisitionFrameRate, driver.FeaturePixelFormat:
		// applied when acquisition begins
	case driver.FeatureExposureTime:
		us, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s expects float64, got %T", name, value)
		}
		if err := c.cam.SetControl(cidExposureAuto, exposureManual); err != nil {
			return err
		}
		// V4L2 absolute exposure is in units of 100 µs
		if err := c.cam.SetControl(cidExposureAbsolute, int32(math.Round(us/100))); err != nil {
			return err
		}
	case driver.FeatureStreamBufferHandlingMode:
		if value != "OldestFirst" {
			return fmt.Errorf("%s %v: %w", name, value, availability.ErrUnimplemented)
		}
	case driver.FeatureTriggerMode:
		if value != driver.TriggerOff {
			return fmt.Errorf("%s %v: %w", name, value, availability.ErrUnimplemented)
		}
	case driver.FeatureLineSource:
		if value != driver.LineSourceOff {
			return fmt.Errorf("%s %v: %w", name, value, availability.ErrUnimplemented)
		}
	default:
		return fmt.Errorf("%s: %w", name, availability.ErrUnimplemented)
	}

	c.features[name] = value
	return nil
}

// Range implements driver.Ranger for exposure.
func (c *camera) Range(name string) (float64, float64, bool) {
	if name != driver.FeatureExposureTime {
		return 0, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ctrl, ok := c.cam.GetControls()[cidExposureAbsolute]
	if !ok {
		return 0, 0, false
	}
	return float64(ctrl.Min) * 100, float64(ctrl.Max) * 100, true
}

func (c *camera) BeginAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := frame.Format(c.features[driver.FeaturePixelFormat].(string))
	supported := c.cam.GetSupportedFormats()
	pf := pixFmtYUYV
	if _, ok := supported[pixFmtGREY]; ok && out == frame.FormatMono8 {
		pf = pixFmtGREY
	}

	decoder, err := frame.NewDecoder(c.formats[pf], out)
	if err != nil {
		return err
	}

	_, w, h, err := c.cam.SetImageFormat(pf, uint32(c.width), uint32(c.height))
	if err != nil {
		return err
	}
	c.width, c.height = int(w), int(h)

	fps := c.features[driver.FeatureAcquisitionFrameRate].(float64)
	if err := c.cam.SetFramerate(float32(fps)); err != nil {
		logger.Warnf("%s: framerate %g not accepted: %v", c.path, fps, err)
	}

	if err := c.cam.StartStreaming(); err != nil {
		return err
	}
	c.decoder = decoder
	return nil
}

func (c *camera) GrabNext(timeout time.Duration) (frame.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// WaitForFrame takes whole seconds
	secs := uint32(math.Ceil(timeout.Seconds()))
	if secs == 0 {
		secs = 1
	}

	for i := 0; i < maxEmptyFrameCount; i++ {
		err := c.cam.WaitForFrame(secs)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			return frame.Record{}, driver.ErrGrabTimeout
		default:
			return frame.Record{}, fmt.Errorf("%w: %v", availability.ErrDisconnected, err)
		}

		b, err := c.cam.ReadFrame()
		if err != nil {
			return frame.Record{}, fmt.Errorf("%w: %v", availability.ErrDisconnected, err)
		}
		captured := time.Now()

		// Frame is empty.
		// Retry reading and return errEmptyFrame if it exceeds maxEmptyFrameCount.
		if len(b) == 0 {
			continue
		}

		if len(b) > len(c.buf) {
			c.buf = make([]byte, len(b))
		}
		// move the memory from mmap to Go before the driver reuses it
		n := copy(c.buf, b)
		img, err := c.decoder.Decode(c.buf[:n], c.width, c.height)
		if err != nil {
			return frame.Record{}, err
		}

		rec := frame.Record{Seq: c.seq, Captured: captured, Image: img}
		c.seq++
		return rec, nil
	}
	return frame.Record{}, errEmptyFrame
}

func (c *camera) EndAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam.StopStreaming()
}
