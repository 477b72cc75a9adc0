package camsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/sink"
	"github.com/camsync/camsync/pkg/worker"
)

// Camera is the controller side of one device worker. Its methods may be
// called from several goroutines; the worker executes them one at a time
// in call order.
type Camera struct {
	w  *worker.Worker
	ch *worker.Channel
}

// PrimeOption is a type of Camera.Prime functional option.
type PrimeOption func(*worker.PrimeArgs)

// WithOutput records the session to path with the named backend. An empty
// backend uses the camera default. Without an output only timestamps are
// kept.
func WithOutput(path, backend string) PrimeOption {
	return func(a *worker.PrimeArgs) {
		a.Path = path
		a.Backend = backend
	}
}

// WithPrimaryFrameRate passes the framerate of the primary to a secondary.
// It is required when priming a secondary.
func WithPrimaryFrameRate(fps float64) PrimeOption {
	return func(a *worker.PrimeArgs) {
		a.PrimaryFrameRate = fps
	}
}

func withStream(s *sink.Slot) PrimeOption {
	return func(a *worker.PrimeArgs) {
		a.Stream = s
	}
}

func (c *Camera) do(ctx context.Context, verb worker.Verb, args interface{}) (worker.Response, error) {
	return c.ch.Do(ctx, worker.Command{Verb: verb, Args: args})
}

// Prime configures and arms the device. Priming a primed camera does
// nothing.
func (c *Camera) Prime(ctx context.Context, opts ...PrimeOption) error {
	var args worker.PrimeArgs
	for _, opt := range opts {
		opt(&args)
	}
	_, err := c.do(ctx, worker.VerbPrime, args)
	return err
}

// Trigger starts acquisition on a primed primary.
func (c *Camera) Trigger(ctx context.Context) error {
	_, err := c.do(ctx, worker.VerbTrigger, nil)
	return err
}

// Stop ends acquisition and returns the capture timestamps in milliseconds
// since the first frame. The timestamps gathered before a failure are
// returned along with the error.
func (c *Camera) Stop(ctx context.Context) ([]float64, error) {
	resp, err := c.do(ctx, worker.VerbStop, nil)
	return resp.Timestamps, err
}

// Disarm returns a primed camera to the stopped state without capturing.
func (c *Camera) Disarm(ctx context.Context) error {
	_, err := c.do(ctx, worker.VerbDisarm, nil)
	return err
}

// Release ends any session, closes the device and stops the worker. When
// the worker does not answer in time it is terminated.
func (c *Camera) Release(ctx context.Context) error {
	_, err := c.do(ctx, worker.VerbRelease, nil)
	if errors.Is(err, ErrIPCTimeout) {
		c.w.Terminate()
	}
	return err
}

// GetProperty returns the current value of a property.
func (c *Camera) GetProperty(ctx context.Context, name string) (interface{}, error) {
	resp, err := c.do(ctx, worker.VerbGetProperty, worker.PropertyArgs{Name: prop.Name(name)})
	return resp.Value, err
}

// SetProperty writes a property. It fails with ErrLocked while primed or
// acquiring and with ErrRole for framerate and exposure on a secondary.
func (c *Camera) SetProperty(ctx context.Context, name string, v interface{}) error {
	_, err := c.do(ctx, worker.VerbSetProperty, worker.PropertyArgs{Name: prop.Name(name), Value: v})
	return err
}

// State returns the acquisition state.
func (c *Camera) State(ctx context.Context) (State, error) {
	resp, err := c.do(ctx, worker.VerbState, nil)
	if err != nil {
		return "", err
	}
	s, ok := resp.Value.(State)
	if !ok {
		return "", fmt.Errorf("camsync: unexpected state %v", resp.Value)
	}
	return s, nil
}

// IsPrimed reports whether the camera is armed: primed, or acquiring and
// not yet stopped.
func (c *Camera) IsPrimed(ctx context.Context) (bool, error) {
	s, err := c.State(ctx)
	if err != nil {
		return false, err
	}
	return s == worker.StatePrimed || s == worker.StateAcquiring, nil
}

func (c *Camera) Identity() driver.Identity {
	return c.w.Identity()
}

func (c *Camera) Role() Role {
	return c.w.Role()
}

func (c *Camera) String() string {
	return fmt.Sprintf("%s (%s)", c.Identity(), c.Role())
}
