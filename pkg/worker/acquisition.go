package worker

import (
	"errors"
	"image"

	"github.com/camsync/camsync/pkg/codec"
	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/sink"
	"github.com/camsync/camsync/pkg/trigger"
)

// session is one armed capture, from prime to stop, disarm or release.
type session struct {
	rec       *sink.Recorder
	stream    *sink.Slot
	sink      sink.Sink
	transform frame.Transform
	cap       *capture
	streaming bool
}

func (w *Worker) prime(args PrimeArgs) error {
	if w.state == StateAcquiring {
		return errcode.New(errcode.State, "prime", "illegal in state %s", w.state)
	}

	// checked on every prime, including the no-op one
	if w.role == trigger.Secondary {
		if args.PrimaryFrameRate <= 0 {
			return errcode.New(errcode.Validation, "prime", "a secondary needs the primary framerate")
		}
		if fps := w.props.FrameRate(); fps > args.PrimaryFrameRate {
			return errcode.New(errcode.Validation, "prime", "framerate %g exceeds the primary framerate %g", fps, args.PrimaryFrameRate)
		}
	}

	if w.state == StatePrimed {
		w.log.Infof("%s: already primed", w.id)
		return nil
	}

	return w.state.Update(StatePrimed, func() error {
		s, err := w.arm(args)
		if err != nil {
			return err
		}
		w.session = s
		w.log.Infof("%s: primed as %s", w.id, w.role)
		return nil
	})
}

// arm configures the device and builds the sink. A secondary starts
// streaming right away and waits for pulses; a primary waits for trigger.
func (w *Worker) arm(args PrimeArgs) (*session, error) {
	// a preview stream never paces secondaries
	transform, err := w.configure(args.Stream == nil)
	if err != nil {
		return nil, err
	}

	s := &session{transform: transform, stream: args.Stream}
	if args.Stream != nil {
		s.sink = args.Stream
	} else {
		var wr codec.Writer
		if args.Path != "" {
			if wr, err = w.openWriter(args); err != nil {
				return nil, err
			}
		}
		s.rec = sink.NewRecorder(wr, w.cfg.QueueSize)
		s.sink = s.rec
	}

	if w.role == trigger.Secondary {
		if err := w.drv.BeginAcquisition(); err != nil {
			if s.rec != nil {
				_, _ = s.rec.Close()
			}
			return nil, w.hardware("prime", err)
		}
		s.streaming = true
		s.cap = w.startCapture(s)
	}
	return s, nil
}

func (w *Worker) openWriter(args PrimeArgs) (codec.Writer, error) {
	backend := args.Backend
	if backend == "" {
		backend = w.cfg.Backend
	}
	wr, err := codec.Build(backend)
	if err != nil {
		return nil, errcode.Wrap(errcode.Validation, "prime", err)
	}

	width, height := w.props.FrameSize()
	fps := w.props.FrameRate()
	if w.role == trigger.Secondary {
		fps = args.PrimaryFrameRate
	}
	setting := codec.Setting{
		Width:     width,
		Height:    height,
		Format:    frame.FormatFor(w.props.Color()),
		FrameRate: fps,
	}
	if err := wr.Open(args.Path, setting); err != nil {
		return nil, errcode.Wrap(errcode.Error, "prime", err)
	}
	w.log.Debugf("%s: recording %dx%d %s to %s with %s", w.id, width, height, setting.Format, args.Path, backend)
	return wr, nil
}

// configure writes the registry to the device. Optional features the
// binding does not implement are emulated in software or skipped. A
// primary drives its trigger output only when pulse is set.
func (w *Worker) configure(pulse bool) (frame.Transform, error) {
	var transforms []frame.Transform
	set := func(name string, v interface{}) (bool, error) {
		err := w.drv.SetFeature(name, v)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, availability.ErrUnimplemented):
			return false, nil
		}
		return false, w.hardware("prime", err)
	}
	optional := func(name string, v interface{}) error {
		ok, err := set(name, v)
		if err == nil && !ok {
			w.log.Debugf("%s: %s not supported, skipped", w.id, name)
		}
		return err
	}
	required := func(name string, v interface{}) error {
		ok, err := set(name, v)
		if err == nil && !ok {
			return errcode.New(errcode.Hardware, "prime", "%s: %s=%v not supported", w.id, name, v)
		}
		return err
	}

	color := w.props.Color()
	ok, err := set(driver.FeaturePixelFormat, string(frame.FormatFor(color)))
	if err != nil {
		return nil, err
	}
	if !ok {
		if color {
			transforms = append(transforms, func(img image.Image) image.Image { return frame.ToRGBA(img) })
		} else {
			transforms = append(transforms, func(img image.Image) image.Image { return frame.ToGray(img) })
		}
	}

	bin := w.props.BinSize()
	hwBin := true
	for _, name := range []string{driver.FeatureBinningHorizontal, driver.FeatureBinningVertical} {
		ok, err := set(name, bin)
		if err != nil {
			return nil, err
		}
		hwBin = hwBin && ok
	}
	if !hwBin && bin > 1 {
		transforms = append(transforms, func(img image.Image) image.Image { return frame.Bin(img, bin) })
	}

	roi := w.props.ROI()
	hwROI := hwBin
	if hwROI {
		full := roi
		if full.IsZero() {
			bw, bh := w.props.BinnedSize()
			full = frame.ROI{Width: bw, Height: bh}
		}
		steps := []struct {
			name string
			v    int
		}{
			{driver.FeatureOffsetX, 0},
			{driver.FeatureOffsetY, 0},
			{driver.FeatureWidth, full.Width},
			{driver.FeatureHeight, full.Height},
			{driver.FeatureOffsetX, full.X},
			{driver.FeatureOffsetY, full.Y},
		}
		for _, step := range steps {
			ok, err := set(step.name, step.v)
			if err != nil {
				return nil, err
			}
			if !ok {
				hwROI = false
				break
			}
		}
	}
	if !hwROI && !roi.IsZero() {
		transforms = append(transforms, func(img image.Image) image.Image { return frame.Crop(img, roi) })
	}

	if err := optional(driver.FeatureStreamBufferHandlingMode, w.props.Mode()); err != nil {
		return nil, err
	}
	if err := optional(driver.FeatureExposureTime, w.props.Exposure()); err != nil {
		return nil, err
	}

	switch w.role {
	case trigger.Primary:
		if err := optional(driver.FeatureAcquisitionFrameRateOn, true); err != nil {
			return nil, err
		}
		if err := optional(driver.FeatureAcquisitionFrameRate, w.props.FrameRate()); err != nil {
			return nil, err
		}
		if err := optional(driver.FeatureTriggerMode, driver.TriggerOff); err != nil {
			return nil, err
		}
		if err := optional(driver.FeatureLineSelector, "Line2"); err != nil {
			return nil, err
		}
		if !pulse {
			if err := optional(driver.FeatureLineSource, driver.LineSourceOff); err != nil {
				return nil, err
			}
			break
		}
		ok, err := set(driver.FeatureLineSource, driver.LineSourceCounterActive)
		if err != nil {
			return nil, err
		}
		if !ok {
			w.log.Warnf("%s: no trigger output, secondaries will not be paced by this device", w.id)
		}
	case trigger.Secondary:
		if err := optional(driver.FeatureAcquisitionFrameRateOn, false); err != nil {
			return nil, err
		}
		if err := optional(driver.FeatureLineSource, driver.LineSourceOff); err != nil {
			return nil, err
		}
		if err := required(driver.FeatureTriggerMode, driver.TriggerOff); err != nil {
			return nil, err
		}
		if err := required(driver.FeatureTriggerSource, driver.TriggerSourceLine3); err != nil {
			return nil, err
		}
		if err := optional(driver.FeatureTriggerActivation, driver.ActivationAnyEdge); err != nil {
			return nil, err
		}
		if err := required(driver.FeatureTriggerMode, driver.TriggerOn); err != nil {
			return nil, err
		}
	}

	if len(transforms) == 0 {
		return nil, nil
	}
	return frame.Merge(transforms...), nil
}

func (w *Worker) trigger() error {
	if w.role == trigger.Secondary {
		return errcode.New(errcode.Role, "trigger", "a secondary starts on its trigger input")
	}
	if w.state != StatePrimed {
		return errcode.New(errcode.State, "trigger", "illegal in state %s", w.state)
	}

	return w.state.Update(StateAcquiring, func() error {
		if err := w.drv.BeginAcquisition(); err != nil {
			return w.hardware("trigger", err)
		}
		w.session.streaming = true
		w.session.cap = w.startCapture(w.session)
		w.log.Infof("%s: triggered", w.id)
		return nil
	})
}

func (w *Worker) stop() ([]float64, error) {
	if w.state != StateAcquiring {
		return nil, errcode.New(errcode.State, "stop", "illegal in state %s", w.state)
	}
	return w.finish()
}

func (w *Worker) disarm() ([]float64, error) {
	if w.state != StatePrimed {
		return nil, errcode.New(errcode.State, "disarm", "illegal in state %s", w.state)
	}
	return w.finish()
}

// finish ends the session and moves to Stopped even when the session
// failed, so the device can be primed again.
func (w *Worker) finish() ([]float64, error) {
	var (
		stamps []float64
		err    error
	)
	_ = w.state.Update(StateStopped, func() error {
		stamps, err = w.endSession()
		return nil
	})
	if err == nil {
		w.log.Infof("%s: stopped after %d frames", w.id, len(stamps))
	}
	return stamps, err
}

// endSession halts capture, ends acquisition and closes the sink. The
// timestamps gathered so far are returned even when it fails.
func (w *Worker) endSession() ([]float64, error) {
	s := w.session
	w.session = nil
	if s == nil {
		return []float64{}, nil
	}

	var capErr, endErr, recErr error
	if s.cap != nil {
		capErr = s.cap.halt()
	}
	if s.streaming {
		if err := w.drv.EndAcquisition(); err != nil {
			endErr = w.hardware("stop", err)
		}
	}
	stamps := []float64{}
	if s.rec != nil {
		stamps, recErr = s.rec.Close()
	}
	if s.stream != nil {
		s.stream.Close()
	}

	for _, err := range []error{capErr, recErr, endErr} {
		if err != nil {
			return stamps, err
		}
	}
	return stamps, nil
}
