// Package camsync records frame-synchronized video from several cameras.
//
// Each Camera runs its device on a dedicated worker and talks to it over an
// ordered command channel. One camera is the primary: Trigger starts its
// acquisition and its hardware trigger output paces every secondary, which
// starts capturing on the first pulse it receives. Stop returns the capture
// timestamps of a session, in milliseconds since its first frame.
//
//	primary, _ := camsync.NewCamera("#0", camsync.Primary)
//	secondary, _ := camsync.NewCamera("#1", camsync.Secondary)
//	rig, _ := camsync.NewCoordinator(primary, secondary)
//	rig.Prime(ctx, nil)
//	rig.Trigger(ctx)
//	...
//	results, err := rig.Stop(ctx)
package camsync

import (
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/driver/dummy"
	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/trigger"
	"github.com/camsync/camsync/pkg/worker"
)

// Role re-exports trigger.Role.
type Role = trigger.Role

const (
	Primary   = trigger.Primary
	Secondary = trigger.Secondary
)

// State re-exports worker.State.
type State = worker.State

// CameraOptions stores parameters used by NewCamera.
type CameraOptions struct {
	dummy         bool
	dummyOptions  dummy.Options
	manager       *driver.Manager
	props         map[prop.Name]interface{}
	cfg           worker.Config
	line          string
	loggerFactory logging.LoggerFactory
}

// CameraOption is a type of NewCamera functional option.
type CameraOption func(*CameraOptions)

// WithColor captures color frames instead of 8-bit grayscale.
func WithColor() CameraOption {
	return WithProperty(string(prop.Color), true)
}

// WithDummy binds the camera to a synthetic device that produces noise
// frames. The device is registered on first use.
func WithDummy() CameraOption {
	return func(o *CameraOptions) {
		o.dummy = true
	}
}

// WithDummySensor sets the sensor size of a synthetic device.
func WithDummySensor(width, height int) CameraOption {
	return func(o *CameraOptions) {
		o.dummy = true
		o.dummyOptions.SensorWidth = width
		o.dummyOptions.SensorHeight = height
	}
}

// WithDriverManager selects the manager devices are looked up in. The
// default is driver.GetManager().
func WithDriverManager(m *driver.Manager) CameraOption {
	return func(o *CameraOptions) {
		o.manager = m
	}
}

// WithProperty sets an initial property value. On a secondary this is the
// only way to configure framerate and exposure.
func WithProperty(name string, v interface{}) CameraOption {
	return func(o *CameraOptions) {
		o.props[prop.Name(name)] = v
	}
}

// WithTimeouts bounds the wait for command responses. stop, disarm and
// release use the stop timeout.
func WithTimeouts(command, stop time.Duration) CameraOption {
	return func(o *CameraOptions) {
		o.cfg.CommandTimeout = command
		o.cfg.StopTimeout = stop
	}
}

// WithQueueSize sets how many frames a recording may fall behind its
// backend before the session fails with ErrBackendOverrun.
func WithQueueSize(n int) CameraOption {
	return func(o *CameraOptions) {
		o.cfg.QueueSize = n
	}
}

// WithBackend sets the recording backend used when Prime names none.
func WithBackend(name string) CameraOption {
	return func(o *CameraOptions) {
		o.cfg.Backend = name
	}
}

// WithLoggerFactory routes worker logs through f.
func WithLoggerFactory(f logging.LoggerFactory) CameraOption {
	return func(o *CameraOptions) {
		o.loggerFactory = f
	}
}

// WithTriggerLine names the trigger line a synthetic device drives or
// listens on. Cameras on the same line are wired together.
func WithTriggerLine(name string) CameraOption {
	return func(o *CameraOptions) {
		o.line = name
	}
}

// NewCamera binds a worker to the device named by identity, a serial number
// or "#N" for the N-th device. The device is opened and held exclusively
// until Release.
func NewCamera(identity string, role Role, opts ...CameraOption) (*Camera, error) {
	id, err := driver.ParseIdentity(identity)
	if err != nil {
		return nil, wrapValidation("create", err)
	}

	o := CameraOptions{
		manager: driver.GetManager(),
		props:   make(map[prop.Name]interface{}),
		line:    trigger.DefaultLine,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.dummy {
		if err := registerDummy(o.manager, id, o.dummyOptions, o.line); err != nil {
			return nil, err
		}
	}

	d, release, err := o.manager.Acquire(id)
	if err != nil {
		return nil, wrapHardware("create", err)
	}

	cfg := o.cfg
	cfg.Properties = o.props
	cfg.LoggerFactory = o.loggerFactory
	w := worker.New(id, role, d, release, cfg)
	if err := w.Start(); err != nil {
		return nil, err
	}
	return &Camera{w: w, ch: w.Channel()}, nil
}

// registerDummy adds a synthetic device for id unless one exists.
func registerDummy(m *driver.Manager, id driver.Identity, opts dummy.Options, line string) error {
	_, err := m.Lookup(id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, availability.ErrNoDevice) {
		return wrapHardware("create", err)
	}

	if id.Serial != "" {
		// reachable by serial only
		id.Index = -1
	}
	opts.Line = trigger.Get(line)
	if _, err := dummy.Register(m, id, opts); err != nil {
		return wrapHardware("create", err)
	}
	return nil
}
