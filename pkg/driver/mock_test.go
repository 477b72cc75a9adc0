package driver

import (
	"errors"
	"time"

	"github.com/camsync/camsync/pkg/frame"
)

var errBegin = errors.New("failed to begin acquisition")

type adapterMock struct {
	features map[string]interface{}
	opened   int
	closed   int
	ended    int
	broken   bool
}

func newAdapterMock() *adapterMock {
	return &adapterMock{features: make(map[string]interface{})}
}

func (a *adapterMock) Open() error  { a.opened++; return nil }
func (a *adapterMock) Close() error { a.closed++; return nil }

func (a *adapterMock) Feature(name string) (interface{}, error) {
	return a.features[name], nil
}

func (a *adapterMock) SetFeature(name string, v interface{}) error {
	a.features[name] = v
	return nil
}

func (a *adapterMock) BeginAcquisition() error {
	if a.broken {
		return errBegin
	}
	return nil
}

func (a *adapterMock) GrabNext(time.Duration) (frame.Record, error) {
	return frame.Record{Seq: 1, Captured: time.Now()}, nil
}

func (a *adapterMock) EndAcquisition() error { a.ended++; return nil }

type rangedAdapterMock struct{ *adapterMock }

func (rangedAdapterMock) Range(name string) (float64, float64, bool) {
	return 1, 60, name == FeatureAcquisitionFrameRate
}

type haltingAdapterMock struct {
	*adapterMock
	halted int
}

func (h *haltingAdapterMock) StopExposure() error { h.halted++; return nil }
