package driver

import (
	"errors"
	"testing"
	"time"

	"github.com/camsync/camsync/pkg/driver/availability"
)

func TestWrapperState(t *testing.T) {
	a := newAdapterMock()
	d := wrapAdapter(a, Info{})

	if d.Status() != StateClosed {
		t.Fatalf("expected %s, got %s", StateClosed, d.Status())
	}

	if _, err := d.Feature(FeatureWidth); err == nil {
		t.Errorf("expected to get an invalid state")
	}
	if err := d.BeginAcquisition(); err == nil {
		t.Errorf("expected to get an invalid state")
	}

	if err := d.Open(); err != nil {
		t.Fatalf("expected to successfully open, but got %v", err)
	}
	if err := d.Open(); err == nil {
		t.Errorf("expected opening twice to fail")
	}

	if err := d.SetFeature(FeatureWidth, 64); err != nil {
		t.Errorf("expected to set a feature, but got %v", err)
	}
	if _, err := d.GrabNext(time.Millisecond); err == nil {
		t.Errorf("expected grabbing before acquisition to fail")
	}

	if err := d.BeginAcquisition(); err != nil {
		t.Fatalf("expected to begin acquisition, but got %v", err)
	}
	if _, err := d.GrabNext(time.Millisecond); err != nil {
		t.Errorf("expected to grab, but got %v", err)
	}
	if d.Status() != StateStreaming {
		t.Errorf("expected %s, got %s", StateStreaming, d.Status())
	}

	if err := d.EndAcquisition(); err != nil {
		t.Errorf("expected to end acquisition, but got %v", err)
	}
	if err := d.EndAcquisition(); err == nil {
		t.Errorf("expected ending twice to fail")
	}

	if err := d.Close(); err != nil {
		t.Errorf("expected to close, but got %v", err)
	}
	if d.Status() != StateClosed {
		t.Errorf("expected %s, got %s", StateClosed, d.Status())
	}
}

func TestWrapperWithBrokenAcquisition(t *testing.T) {
	a := newAdapterMock()
	a.broken = true
	d := wrapAdapter(a, Info{})

	if err := d.Open(); err != nil {
		t.Fatalf("expected to open successfully")
	}

	err := d.BeginAcquisition()
	if err != errBegin {
		t.Errorf("expected to get %v, but got %v", errBegin, err)
	}

	if d.Status() != StateOpened {
		t.Errorf("expected the status to be %v, but got %v", StateOpened, d.Status())
	}
}

func TestWrapperCloseEndsAcquisition(t *testing.T) {
	a := newAdapterMock()
	d := wrapAdapter(a, Info{})

	d.Open()
	d.BeginAcquisition()
	if err := d.Close(); err != nil {
		t.Fatalf("expected to close, but got %v", err)
	}
	if a.ended != 1 || a.closed != 1 {
		t.Errorf("expected one end and one close, got %d and %d", a.ended, a.closed)
	}

	// closing again does not reach the adapter
	d.Close()
	if a.closed != 1 {
		t.Errorf("expected a single close, got %d", a.closed)
	}
}

func TestWrapperRange(t *testing.T) {
	plain := wrapAdapter(newAdapterMock(), Info{})
	plain.Open()
	if _, _, ok := plain.Range(FeatureAcquisitionFrameRate); ok {
		t.Errorf("expected no range from an adapter without limits")
	}

	ranged := wrapAdapter(rangedAdapterMock{newAdapterMock()}, Info{})
	if _, _, ok := ranged.Range(FeatureAcquisitionFrameRate); ok {
		t.Errorf("expected no range before open")
	}
	ranged.Open()
	min, max, ok := ranged.Range(FeatureAcquisitionFrameRate)
	if !ok || min != 1 || max != 60 {
		t.Errorf("expected 1 - 60, got %g - %g (%v)", min, max, ok)
	}
}

func TestWrapperStopExposure(t *testing.T) {
	plain := wrapAdapter(newAdapterMock(), Info{})
	if err := plain.Open(); err != nil {
		t.Fatal(err)
	}
	if err := plain.StopExposure(); err == nil {
		t.Errorf("expected stopping exposure before acquisition to fail")
	}
	if err := plain.BeginAcquisition(); err != nil {
		t.Fatal(err)
	}
	if err := plain.StopExposure(); !errors.Is(err, availability.ErrUnimplemented) {
		t.Errorf("expected %v, got %v", availability.ErrUnimplemented, err)
	}

	h := &haltingAdapterMock{adapterMock: newAdapterMock()}
	d := wrapAdapter(h, Info{})
	if err := d.Open(); err != nil {
		t.Fatal(err)
	}
	if err := d.BeginAcquisition(); err != nil {
		t.Fatal(err)
	}
	if err := d.StopExposure(); err != nil {
		t.Errorf("expected to stop exposure, but got %v", err)
	}
	if h.halted != 1 {
		t.Errorf("expected one call, got %d", h.halted)
	}
	if d.Status() != StateStreaming {
		t.Errorf("expected %s, got %s", StateStreaming, d.Status())
	}
}
