package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/frame"
)

const (
	// drainWait is how long an empty device buffer is polled after a stop
	// request before the capture loop gives up on in-flight frames.
	drainWait = 5 * time.Millisecond
	// drainLimit bounds the drain of a device that keeps exposing because
	// it cannot stop exposure on its own.
	drainLimit = 256
)

type eventKind int

const (
	eventFirstFrame eventKind = iota
	eventFailed
)

// event is sent from a capture loop to the command loop.
type event struct {
	kind    eventKind
	capture *capture
	err     error
}

// capture is the grab loop of one session.
type capture struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	frames   uint64
	// next is the sequence number a recording expects, owned by the loop
	next uint64

	// written by the loop before done is closed
	err error
}

func (w *Worker) startCapture(s *session) *capture {
	c := &capture{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.runCapture(c, s)
	return c
}

// halt asks the loop to drain and exit, waits for it, and returns the error
// that ended it, if any.
func (c *capture) halt() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return c.err
}

func (w *Worker) runCapture(c *capture, s *session) {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			if err := w.stopExposure(c, s); err != nil {
				w.failCapture(c, s, err)
			}
			return
		case <-w.ctx.Done():
			return
		default:
		}

		rec, err := w.drv.GrabNext(w.cfg.GrabTimeout)
		if errors.Is(err, driver.ErrGrabTimeout) {
			continue
		}
		if err != nil {
			w.failCapture(c, s, w.hardware("grab", err))
			return
		}
		if err := w.deliver(c, s, rec); err != nil {
			w.failCapture(c, s, err)
			return
		}
	}
}

// stopExposure halts the device so no frame is exposed, and no trigger
// pulse sent, after the final drain. Devices that cannot halt are drained
// for as long as frames keep arriving within drainWait.
func (w *Worker) stopExposure(c *capture, s *session) error {
	err := w.drv.StopExposure()
	switch {
	case err == nil:
		return w.drain(c, s, -1)
	case errors.Is(err, availability.ErrUnimplemented):
		return w.drain(c, s, drainLimit)
	}
	return w.hardware("stop", err)
}

// drain collects frames already buffered on the device, at most limit of
// them unless limit is negative.
func (w *Worker) drain(c *capture, s *session, limit int) error {
	for i := 0; limit < 0 || i < limit; i++ {
		rec, err := w.drv.GrabNext(drainWait)
		if errors.Is(err, driver.ErrGrabTimeout) {
			return nil
		}
		if err != nil {
			return w.hardware("grab", err)
		}
		if err := w.deliver(c, s, rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) deliver(c *capture, s *session, rec frame.Record) error {
	// a recording is lossless: a gap or reordering in the device sequence
	// means the device buffer overflowed or was read newest first
	if s.rec != nil {
		if atomic.LoadUint64(&c.frames) > 0 && rec.Seq != c.next {
			return errcode.New(errcode.BackendOverrun, "record", "%s: expected frame %d, device delivered %d", w.id, c.next, rec.Seq)
		}
		c.next = rec.Seq + 1
	}
	if s.transform != nil {
		rec.Image = s.transform(rec.Image)
	}
	if err := s.sink.Put(rec); err != nil {
		return err
	}
	if atomic.AddUint64(&c.frames, 1) == 1 {
		w.notify(event{kind: eventFirstFrame, capture: c})
	}
	return nil
}

func (w *Worker) failCapture(c *capture, s *session, err error) {
	c.err = err
	if s.stream != nil && errors.Is(err, errcode.Hardware) {
		s.stream.Fail(err)
	}
	w.notify(event{kind: eventFailed, capture: c, err: err})
}

func (w *Worker) notify(ev event) {
	select {
	case w.events <- ev:
	default:
		w.log.Warnf("%s: event queue full, dropping event %d", w.id, ev.kind)
	}
}
