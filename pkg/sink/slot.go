package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/camsync/camsync/pkg/frame"
)

var errSlotClosed = errors.New("sink: slot closed")

// Slot keeps the most recent frame. Every Put overwrites it in place, so a
// reader slower than the producer silently misses frames.
type Slot struct {
	mu    sync.Mutex
	buf   *frame.Buffer
	rec   frame.Record
	puts  uint64
	first chan struct{}
	done  chan struct{}
	err   error
}

func NewSlot() *Slot {
	return &Slot{
		buf:   frame.NewBuffer(0),
		first: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Put implements Sink.
func (s *Slot) Put(rec frame.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.buf.StoreCopy(rec.Image)
	s.rec = rec
	s.rec.Image = s.buf.Load()
	if s.puts == 0 {
		close(s.first)
	}
	s.puts++
	return nil
}

// Read blocks until the first frame has arrived and returns a copy of the
// latest frame. It returns false once the slot is closed or failed, or
// when ctx ends first.
func (s *Slot) Read(ctx context.Context) (bool, frame.Record) {
	select {
	case <-s.first:
	case <-s.done:
		return false, frame.Record{}
	case <-ctx.Done():
		return false, frame.Record{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return false, frame.Record{}
	}
	out := frame.NewBuffer(0)
	out.StoreCopy(s.rec.Image)
	rec := s.rec
	rec.Image = out.Load()
	return true, rec
}

// Puts returns the number of frames written so far.
func (s *Slot) Puts() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Fail marks the device as failed. Readers get false from now on.
func (s *Slot) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	logger.Warnf("stream failed: %v", err)
	s.err = err
	close(s.done)
}

// Close ends the stream.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	s.err = errSlotClosed
	close(s.done)
}

// Err returns why the slot stopped, or nil while it is open.
func (s *Slot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
