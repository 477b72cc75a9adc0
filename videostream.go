package camsync

import (
	"context"
	"image"
	"sync"

	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/sink"
)

// VideoStream is a live preview of one device. Read returns the latest
// frame; frames a slow reader misses are dropped. Properties are locked
// while the stream is open: close it, reconfigure a camera, and open a new
// stream to change them.
type VideoStream struct {
	cam  *Camera
	slot *sink.Slot

	mu     sync.Mutex
	closed bool
}

// OpenVideoStream opens the device named by identity as a free-running
// primary and starts streaming. The buffer handling mode defaults to
// NewestOnly.
func OpenVideoStream(ctx context.Context, identity string, opts ...CameraOption) (*VideoStream, error) {
	opts = append([]CameraOption{WithProperty(string(prop.Mode), prop.ModeNewestOnly)}, opts...)
	cam, err := NewCamera(identity, Primary, opts...)
	if err != nil {
		return nil, err
	}

	slot := sink.NewSlot()
	if err := cam.Prime(ctx, withStream(slot)); err != nil {
		_ = cam.Release(ctx)
		return nil, err
	}
	if err := cam.Trigger(ctx); err != nil {
		_ = cam.Release(ctx)
		return nil, err
	}
	return &VideoStream{cam: cam, slot: slot}, nil
}

// Read blocks until the first frame has arrived, then returns a copy of the
// most recent frame. It returns false once the stream is closed or the
// device failed.
func (v *VideoStream) Read(ctx context.Context) (bool, image.Image) {
	ok, rec := v.slot.Read(ctx)
	if !ok {
		return false, nil
	}
	return true, rec.Image
}

// IsOpen reports whether the stream is delivering frames.
func (v *VideoStream) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.slot.Err() == nil
}

func (v *VideoStream) GetProperty(ctx context.Context, name string) (interface{}, error) {
	return v.cam.GetProperty(ctx, name)
}

// SetProperty fails with ErrLocked while the stream is open.
func (v *VideoStream) SetProperty(ctx context.Context, name string, value interface{}) error {
	return v.cam.SetProperty(ctx, name, value)
}

// Close stops streaming and releases the device. Closing twice does
// nothing.
func (v *VideoStream) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	_, err := v.cam.Stop(ctx)
	if rerr := v.cam.Release(ctx); err == nil {
		err = rerr
	}
	return err
}
