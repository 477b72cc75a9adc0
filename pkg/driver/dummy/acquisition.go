package dummy

import (
	"math/rand"
	"sync"
	"time"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/trigger"
)

type acquisitionConfig struct {
	width    int
	height   int
	format   frame.Format
	mode     string
	capacity int
	// output drives the trigger line on every exposure.
	output bool
}

// acquisition is one BeginAcquisition..EndAcquisition run. A producer
// goroutine exposes a frame on every edge and stores it in the stream
// buffer; GrabNext takes frames out of the buffer.
type acquisition struct {
	cfg    acquisitionConfig
	line   *trigger.Line
	lost   <-chan struct{}
	random *rand.Rand

	stop     chan struct{}
	done     chan struct{}
	haltOnce sync.Once

	mu      sync.Mutex
	queue   []frame.Record
	ready   chan struct{}
	seq     uint64
	dropped uint64
}

func newAcquisition(cfg acquisitionConfig, line *trigger.Line, lost <-chan struct{}, random *rand.Rand) *acquisition {
	return &acquisition{
		cfg:    cfg,
		line:   line,
		lost:   lost,
		random: random,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ready:  make(chan struct{}, 1),
	}
}

func (a *acquisition) startFreeRun(period time.Duration) {
	tick := time.NewTicker(period)
	go a.run(tick.C, tick.Stop, false)
}

// startTriggered exposes on every pulse of sub. Pulses already received
// when the acquisition halts are still exposed.
func (a *acquisition) startTriggered(sub *trigger.Subscription) {
	go a.run(sub.C(), sub.Close, true)
}

func (a *acquisition) startHeld() {
	go a.run(nil, func() {}, false)
}

func (a *acquisition) run(edges <-chan time.Time, cleanup func(), flush bool) {
	defer close(a.done)
	defer cleanup()

	for {
		select {
		case t := <-edges:
			a.expose(t)
		case <-a.stop:
			for flush {
				select {
				case t := <-edges:
					a.expose(t)
				default:
					return
				}
			}
			return
		case <-a.lost:
			return
		}
	}
}

func (a *acquisition) expose(t time.Time) {
	if a.cfg.output {
		a.line.Pulse(t)
	}

	rec := frame.Record{
		Seq:      a.seq,
		Captured: t,
		Image:    noise(a.random, a.cfg),
	}
	a.seq++
	a.push(rec)
}

// push stores rec according to the buffer handling mode.
func (a *acquisition) push(rec frame.Record) {
	a.mu.Lock()
	switch a.cfg.mode {
	case "NewestOnly":
		a.queue = append(a.queue[:0], rec)
	case "NewestFirst":
		if len(a.queue) >= a.cfg.capacity {
			a.queue = a.queue[1:]
			a.dropped++
		}
		a.queue = append(a.queue, rec)
	default:
		if len(a.queue) >= a.cfg.capacity {
			// buffer full: the incoming frame is lost
			a.dropped++
			if a.dropped == 1 {
				logger.Warnf("stream buffer full, dropping frame %d", rec.Seq)
			}
		} else {
			a.queue = append(a.queue, rec)
		}
	}
	a.mu.Unlock()

	select {
	case a.ready <- struct{}{}:
	default:
	}
}

func (a *acquisition) pop() (frame.Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) == 0 {
		return frame.Record{}, false
	}
	var rec frame.Record
	if a.cfg.mode == "NewestFirst" {
		rec = a.queue[len(a.queue)-1]
		a.queue = a.queue[:len(a.queue)-1]
	} else {
		rec = a.queue[0]
		a.queue = a.queue[1:]
	}
	return rec, true
}

func (a *acquisition) next(timeout time.Duration) (frame.Record, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-a.lost:
			return frame.Record{}, availability.ErrDisconnected
		default:
		}

		if rec, ok := a.pop(); ok {
			return rec, nil
		}

		select {
		case <-a.ready:
		case <-deadline.C:
			return frame.Record{}, driver.ErrGrabTimeout
		case <-a.lost:
			return frame.Record{}, availability.ErrDisconnected
		case <-a.done:
			// halted: nothing more will arrive
			if rec, ok := a.pop(); ok {
				return rec, nil
			}
			return frame.Record{}, driver.ErrGrabTimeout
		}
	}
}

func (a *acquisition) halt() {
	a.haltOnce.Do(func() { close(a.stop) })
	<-a.done
}
