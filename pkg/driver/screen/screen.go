// Package screen provides a display capture binding. A display behaves as a
// free-running camera without trigger hardware, which makes it usable as
// the primary of a rig whose secondaries are synthetic.
package screen

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
)

type captureFunc func(displayIndex int) (*image.RGBA, error)

type screen struct {
	displayIndex int
	bounds       image.Rectangle
	capture      captureFunc

	mu       sync.Mutex
	features map[string]interface{}
	tick     *time.Ticker
	seq      uint64
}

func init() {
	activeDisplays := screenshot.NumActiveDisplays()
	for i := 0; i < activeDisplays; i++ {
		s := newScreen(i, screenshot.GetDisplayBounds(i), screenshot.CaptureDisplay)
		driver.GetManager().Register(s, driver.Info{
			Label:      fmt.Sprint(i),
			DeviceType: driver.Screen,
			Identity:   driver.Identity{Serial: fmt.Sprintf("screen%d", i), Index: i},
		})
	}
}

func newScreen(displayIndex int, bounds image.Rectangle, capture captureFunc) *screen {
	return &screen{
		displayIndex: displayIndex,
		bounds:       bounds,
		capture:      capture,
	}
}

func (s *screen) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.bounds.Dx(), s.bounds.Dy()
	s.features = map[string]interface{}{
		driver.FeatureAcquisitionFrameRate: 30.0,
		driver.FeatureWidth:                w,
		driver.FeatureHeight:               h,
		driver.FeatureSensorWidth:          w,
		driver.FeatureSensorHeight:         h,
		driver.FeaturePixelFormat:          string(frame.FormatMono8),
		driver.FeatureTriggerMode:          driver.TriggerOff,
		driver.FeatureLineSource:           driver.LineSourceOff,
	}
	return nil
}

func (s *screen) Close() error {
	return nil
}

func (s *screen) Feature(name string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.features[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, availability.ErrUnimplemented)
	}
	return v, nil
}

func (s *screen) SetFeature(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case driver.FeatureAcquisitionFrameRate:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s expects float64, got %T", name, value)
		}
	case driver.FeaturePixelFormat:
		if f := frame.Format(fmt.Sprint(value)); f != frame.FormatMono8 && f != frame.FormatRGB8 {
			return fmt.Errorf("pixel format %s unsupported", f)
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

	s.features[name] = value
	return nil
}

func (s *screen) BeginAcquisition() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fps := s.features[driver.FeatureAcquisitionFrameRate].(float64)
	s.tick = time.NewTicker(time.Duration(float64(time.Second) / fps))
	return nil
}

func (s *screen) GrabNext(timeout time.Duration) (frame.Record, error) {
	s.mu.Lock()
	tick := s.tick
	format := frame.Format(s.features[driver.FeaturePixelFormat].(string))
	s.mu.Unlock()

	if tick == nil {
		return frame.Record{}, fmt.Errorf("screen: acquisition not running")
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var captured time.Time
	select {
	case captured = <-tick.C:
	case <-deadline.C:
		return frame.Record{}, driver.ErrGrabTimeout
	}

	rgba, err := s.capture(s.displayIndex)
	if err != nil {
		return frame.Record{}, fmt.Errorf("%w: %v", availability.ErrDisconnected, err)
	}

	var img image.Image = rgba
	if format == frame.FormatMono8 {
		img = frame.ToGray(rgba)
	}

	s.mu.Lock()
	rec := frame.Record{Seq: s.seq, Captured: captured, Image: img}
	s.seq++
	s.mu.Unlock()
	return rec, nil
}

func (s *screen) EndAcquisition() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	return nil
}
