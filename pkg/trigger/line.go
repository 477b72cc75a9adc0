// Package trigger models the hardware trigger wiring between a primary and
// its secondaries.
//
// On real hardware the primary's output line is wired to each secondary's
// trigger input and pulses never pass through software. Line stands in for
// that wire when devices are synthetic: the primary's driver calls Pulse
// once per exposure and every subscribed secondary driver receives it.
package trigger

import (
	"sync"
	"time"
)

// DefaultLine is the name of the line synthetic devices use unless
// configured otherwise.
const DefaultLine = "line3"

// Line fans trigger pulses out to every subscriber.
type Line struct {
	mu   sync.Mutex
	name string
	subs map[*Subscription]struct{}
	sent uint64
}

// NewLine creates an idle line.
func NewLine(name string) *Line {
	return &Line{
		name: name,
		subs: make(map[*Subscription]struct{}),
	}
}

func (l *Line) Name() string { return l.name }

// Pulse delivers an edge at t to all subscribers. A subscriber whose queue
// is full loses its oldest pending edge, like an input that misses a
// trigger while still reading out.
func (l *Line) Pulse(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent++
	for sub := range l.subs {
		select {
		case sub.ch <- t:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- t
		}
	}
}

// Pulses returns the number of edges driven so far.
func (l *Line) Pulses() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// Subscribe attaches a new input to the line. Only edges pulsed after
// Subscribe returns are delivered.
func (l *Line) Subscribe(queueLen int) *Subscription {
	if queueLen <= 0 {
		queueLen = 8
	}
	sub := &Subscription{
		line: l,
		ch:   make(chan time.Time, queueLen),
	}

	l.mu.Lock()
	l.subs[sub] = struct{}{}
	l.mu.Unlock()
	return sub
}

// Subscription is one trigger input attached to a Line.
type Subscription struct {
	line *Line
	ch   chan time.Time
	once sync.Once
}

// C returns the channel carrying pulse times.
func (s *Subscription) C() <-chan time.Time { return s.ch }

// Close detaches the input. Pending edges are discarded.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.line.mu.Lock()
		delete(s.line.subs, s)
		s.line.mu.Unlock()
	})
}

// Lines is a registry of named lines.
type Lines struct {
	mu    sync.Mutex
	lines map[string]*Line
}

// NewLines creates an empty registry.
func NewLines() *Lines {
	return &Lines{lines: make(map[string]*Line)}
}

// Get returns the line called name, creating it on first use.
func (ls *Lines) Get(name string) *Line {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	l, ok := ls.lines[name]
	if !ok {
		l = NewLine(name)
		ls.lines[name] = l
	}
	return l
}

var defaultLines = NewLines()

// Get returns the named line from the process-wide registry.
func Get(name string) *Line {
	return defaultLines.Get(name)
}
