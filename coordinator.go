package camsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/prop"
)

// Output is where one camera records a session.
type Output struct {
	Path    string
	Backend string
}

// Result is the outcome of stopping one camera.
type Result struct {
	Camera     *Camera
	Timestamps []float64
	Err        error
}

// Coordinator drives one primary and its secondaries as a rig. It orders
// the calls so that every secondary is armed before the primary can pulse,
// and the primary stops emitting pulses before any secondary is stopped.
type Coordinator struct {
	primary     *Camera
	secondaries []*Camera
}

// NewCoordinator checks the roles of the cameras and returns a rig.
func NewCoordinator(primary *Camera, secondaries ...*Camera) (*Coordinator, error) {
	if primary == nil || primary.Role() != Primary {
		return nil, errcode.New(errcode.Role, "coordinate", "the first camera must be a primary")
	}
	for _, s := range secondaries {
		if s.Role() != Secondary {
			return nil, errcode.New(errcode.Role, "coordinate", "%s is not a secondary", s)
		}
	}
	return &Coordinator{primary: primary, secondaries: secondaries}, nil
}

// Cameras returns the primary followed by the secondaries.
func (c *Coordinator) Cameras() []*Camera {
	return append([]*Camera{c.primary}, c.secondaries...)
}

// Prime reads the primary framerate, primes every secondary with it and
// then primes the primary. Cameras missing from outputs keep timestamps
// only. When a camera fails, those already primed are disarmed.
func (c *Coordinator) Prime(ctx context.Context, outputs map[*Camera]Output) error {
	v, err := c.primary.GetProperty(ctx, string(prop.FrameRate))
	if err != nil {
		return err
	}
	fps, ok := v.(float64)
	if !ok {
		return fmt.Errorf("camsync: unexpected framerate %v", v)
	}

	var primed []*Camera
	prime := func(cam *Camera, opts ...PrimeOption) error {
		if out, ok := outputs[cam]; ok {
			opts = append(opts, WithOutput(out.Path, out.Backend))
		}
		if err := cam.Prime(ctx, opts...); err != nil {
			for _, p := range primed {
				if derr := p.Disarm(ctx); derr != nil {
					logger.Warnf("%s: disarm after failed prime: %v", p, derr)
				}
			}
			return fmt.Errorf("%s: %w", cam, err)
		}
		primed = append(primed, cam)
		return nil
	}

	for _, s := range c.secondaries {
		if err := prime(s, WithPrimaryFrameRate(fps)); err != nil {
			return err
		}
	}
	return prime(c.primary)
}

// Trigger starts the primary. Secondaries follow on its first pulse.
func (c *Coordinator) Trigger(ctx context.Context) error {
	return c.primary.Trigger(ctx)
}

// Stop stops the primary, then every secondary. A secondary that never saw
// a pulse is disarmed and reports no timestamps. The returned error joins
// the per-camera errors.
func (c *Coordinator) Stop(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(c.secondaries)+1)
	stamps, err := c.primary.Stop(ctx)
	results = append(results, Result{Camera: c.primary, Timestamps: stamps, Err: err})

	for _, s := range c.secondaries {
		stamps, err := s.Stop(ctx)
		if errors.Is(err, ErrState) {
			if primed, _ := s.IsPrimed(ctx); primed {
				logger.Warnf("%s: no trigger pulse received, disarming", s)
				err = s.Disarm(ctx)
				stamps = []float64{}
			}
		}
		results = append(results, Result{Camera: s, Timestamps: stamps, Err: err})
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Camera, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

// Release releases the primary, then every secondary.
func (c *Coordinator) Release(ctx context.Context) error {
	var errs []error
	for _, cam := range c.Cameras() {
		if err := cam.Release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cam, err))
		}
	}
	return errors.Join(errs...)
}
