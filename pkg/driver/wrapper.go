package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
)

func wrapAdapter(a Adapter, info Info) Driver {
	return &adapterWrapper{
		Adapter: a,
		id:      uuid.NewString(),
		info:    info,
		state:   StateClosed,
	}
}

type adapterWrapper struct {
	Adapter
	id   string
	info Info

	mu    sync.Mutex
	state State
}

func (w *adapterWrapper) ID() string {
	return w.id
}

func (w *adapterWrapper) Info() Info {
	return w.info
}

func (w *adapterWrapper) Status() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *adapterWrapper) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateClosed {
		return fmt.Errorf("invalid state: driver is already opened")
	}
	return w.state.Update(StateOpened, w.Adapter.Open)
}

// Close ends a running acquisition before closing the handle. Closing a
// closed driver is a no-op.
func (w *adapterWrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return nil
	}
	if w.state == StateStreaming {
		if err := w.state.Update(StateOpened, w.Adapter.EndAcquisition); err != nil {
			logger.Warnf("%s: end acquisition on close: %v", w.info.Identity, err)
		}
	}
	return w.state.Update(StateClosed, w.Adapter.Close)
}

func (w *adapterWrapper) Feature(name string) (interface{}, error) {
	if w.Status() == StateClosed {
		return nil, fmt.Errorf("invalid state: driver hasn't been opened")
	}
	return w.Adapter.Feature(name)
}

func (w *adapterWrapper) SetFeature(name string, value interface{}) error {
	if w.Status() == StateClosed {
		return fmt.Errorf("invalid state: driver hasn't been opened")
	}
	return w.Adapter.SetFeature(name, value)
}

func (w *adapterWrapper) BeginAcquisition() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Update(StateStreaming, w.Adapter.BeginAcquisition)
}

func (w *adapterWrapper) GrabNext(timeout time.Duration) (frame.Record, error) {
	if w.Status() != StateStreaming {
		return frame.Record{}, fmt.Errorf("invalid state: driver isn't streaming")
	}
	return w.Adapter.GrabNext(timeout)
}

// StopExposure reports availability.ErrUnimplemented for adapters that
// are not a Halter. The handle stays streaming until EndAcquisition.
func (w *adapterWrapper) StopExposure() error {
	if w.Status() != StateStreaming {
		return fmt.Errorf("invalid state: driver isn't streaming")
	}
	h, ok := w.Adapter.(Halter)
	if !ok {
		return availability.ErrUnimplemented
	}
	return h.StopExposure()
}

func (w *adapterWrapper) EndAcquisition() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateStreaming {
		return fmt.Errorf("invalid state: driver isn't streaming")
	}
	return w.state.Update(StateOpened, w.Adapter.EndAcquisition)
}

func (w *adapterWrapper) Range(name string) (float64, float64, bool) {
	r, ok := w.Adapter.(Ranger)
	if !ok || w.Status() == StateClosed {
		return 0, 0, false
	}
	return r.Range(name)
}
