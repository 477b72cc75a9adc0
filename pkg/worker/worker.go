// Package worker runs one camera device.
//
// A Worker owns a driver exclusively and executes Commands one at a time
// in the order they arrive on its Channel. While a capture session is
// armed a second goroutine owns the grab path and feeds a sink; it only
// reports back to the command loop through events, so hardware calls on
// the handle are never interleaved with property or state changes.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/logging"

	camlog "github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/trigger"
)

// Worker is the execution unit of one device.
type Worker struct {
	id      driver.Identity
	role    trigger.Role
	drv     driver.Driver
	release func()
	cfg     Config
	log     logging.LeveledLogger

	// owned by the command loop
	state   State
	props   *prop.Registry
	session *session

	inbox  chan Command
	outbox chan Response
	events chan event
	ch     *Channel

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}
}

// New creates a worker for the device bound to d. release gives the device
// back to its manager and is called once when the worker exits; nil closes
// d instead.
func New(id driver.Identity, role trigger.Role, d driver.Driver, release func(), cfg Config) *Worker {
	cfg.setDefaults()
	if release == nil {
		release = func() {
			_ = d.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		id:      id,
		role:    role,
		drv:     d,
		release: release,
		cfg:     cfg,
		log:     camlog.Factory(cfg.LoggerFactory).NewLogger("camsync/worker"),
		state:   StateUnprimed,
		props:   prop.NewRegistry(role, 0, 0),
		inbox:   make(chan Command, cfg.InboxSize),
		outbox:  make(chan Response, cfg.InboxSize),
		events:  make(chan event, 8),
		ctx:     ctx,
		cancel:  cancel,
		exited:  make(chan struct{}),
	}
	w.ch = newChannel(w.inbox, w.outbox, w.exited, cfg, w.log)
	return w
}

// Start opens the device, reads its sensor size and limits, applies the
// configured properties and starts the command loop. On failure the device
// is released and the worker never runs.
func (w *Worker) Start() error {
	if err := w.open(); err != nil {
		w.cancel()
		w.release()
		close(w.exited)
		return err
	}

	go w.loop()
	return nil
}

func (w *Worker) open() error {
	if err := w.drv.Open(); err != nil {
		return errcode.Wrap(errcode.Hardware, "open", err)
	}

	width, err := w.intFeature(driver.FeatureSensorWidth)
	if err != nil {
		return err
	}
	height, err := w.intFeature(driver.FeatureSensorHeight)
	if err != nil {
		return err
	}
	w.props.SetSensor(width, height)

	limits := map[prop.Name]string{
		prop.FrameRate: driver.FeatureAcquisitionFrameRate,
		prop.Exposure:  driver.FeatureExposureTime,
	}
	for name, feature := range limits {
		min, max, ok := w.drv.Range(feature)
		if !ok {
			continue
		}
		if err := w.props.Narrow(name, min, max); err != nil {
			w.log.Warnf("%s: %v", w.id, err)
		}
	}

	// sorted names apply binsize before roi
	for _, name := range w.props.Names() {
		v, ok := w.cfg.Properties[name]
		if !ok {
			continue
		}
		if err := w.props.Init(name, v); err != nil {
			return err
		}
	}
	for name := range w.cfg.Properties {
		if _, err := w.props.Descriptor(name); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) intFeature(name string) (int, error) {
	v, err := w.drv.Feature(name)
	if err != nil {
		return 0, errcode.Wrap(errcode.Hardware, "open", err)
	}
	n, ok := v.(int)
	if !ok {
		return 0, errcode.New(errcode.Hardware, "open", "%s is %T, want int", name, v)
	}
	return n, nil
}

// Channel returns the command channel of w.
func (w *Worker) Channel() *Channel {
	return w.ch
}

func (w *Worker) Identity() driver.Identity {
	return w.id
}

func (w *Worker) Role() trigger.Role {
	return w.role
}

// Done is closed once the worker has exited and released its device.
func (w *Worker) Done() <-chan struct{} {
	return w.exited
}

// Terminate cuts the worker short without waiting for the command in
// progress. The capture session is torn down and the device released as
// soon as the loop regains control.
func (w *Worker) Terminate() {
	w.cancel()
}

func (w *Worker) loop() {
	defer close(w.exited)

	for {
		select {
		case cmd := <-w.inbox:
			resp := w.handle(cmd)
			w.outbox <- resp
			if w.state == StateReleased {
				return
			}
		case ev := <-w.events:
			w.onEvent(ev)
		case <-w.ctx.Done():
			w.log.Warnf("%s: terminated", w.id)
			w.shutdown()
			return
		}
	}
}

func (w *Worker) handle(cmd Command) Response {
	// a secondary's first frame must be seen before the command runs
	w.drainEvents()

	resp := Response{ID: cmd.ID}
	op := string(cmd.Verb)
	switch cmd.Verb {
	case VerbGetProperty:
		args, ok := cmd.Args.(PropertyArgs)
		if !ok {
			resp.Err = badArgs(op, cmd.Args)
			break
		}
		resp.Value, resp.Err = w.props.Get(args.Name)
	case VerbSetProperty:
		args, ok := cmd.Args.(PropertyArgs)
		if !ok {
			resp.Err = badArgs(op, cmd.Args)
			break
		}
		resp.Err = w.props.Set(args.Name, args.Value, w.state.Locked())
	case VerbState:
		resp.Value = w.state
	case VerbPrime:
		args, ok := cmd.Args.(PrimeArgs)
		if !ok && cmd.Args != nil {
			resp.Err = badArgs(op, cmd.Args)
			break
		}
		resp.Err = w.prime(args)
	case VerbTrigger:
		resp.Err = w.trigger()
	case VerbStop:
		resp.Timestamps, resp.Err = w.stop()
	case VerbDisarm:
		resp.Timestamps, resp.Err = w.disarm()
	case VerbRelease:
		resp.Err = w.state.Update(StateReleased, func() error {
			w.shutdown()
			return nil
		})
	default:
		resp.Err = errcode.New(errcode.Validation, op, "unknown command")
	}

	if resp.Err != nil {
		w.log.Debugf("%s: %s: %v", w.id, cmd.Verb, resp.Err)
	}
	return resp
}

func badArgs(op string, args interface{}) error {
	return errcode.New(errcode.Validation, op, "unexpected arguments %T", args)
}

// shutdown ends any session and gives the device back.
func (w *Worker) shutdown() {
	if w.session != nil {
		if _, err := w.endSession(); err != nil {
			w.log.Warnf("%s: session ended with error on release: %v", w.id, err)
		}
	}
	w.release()
	w.state = StateReleased
	w.log.Infof("%s: released", w.id)
}

func (w *Worker) drainEvents() {
	for {
		select {
		case ev := <-w.events:
			w.onEvent(ev)
		default:
			return
		}
	}
}

func (w *Worker) onEvent(ev event) {
	current := w.session != nil && w.session.cap == ev.capture
	switch ev.kind {
	case eventFirstFrame:
		if current && w.state == StatePrimed {
			_ = w.state.Update(StateAcquiring, nil)
			w.log.Infof("%s: trigger detected, acquiring", w.id)
		}
	case eventFailed:
		w.log.Errorf("%s: capture failed: %v", w.id, ev.err)
	}
}

func (w *Worker) hardware(op string, err error) error {
	if errors.Is(err, errcode.Hardware) {
		return err
	}
	return errcode.Wrap(errcode.Hardware, op, fmt.Errorf("%s: %w", w.id, err))
}
