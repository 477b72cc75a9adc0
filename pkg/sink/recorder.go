package sink

import (
	"sync"
	"time"

	"github.com/camsync/camsync/pkg/codec"
	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/frame"
)

// DefaultQueueSize is the number of frames a Recorder buffers ahead of its
// backend.
const DefaultQueueSize = 256

// Recorder delivers every frame to a backend in capture order. Put never
// blocks: when the backend falls a full queue behind, the session is
// poisoned with a backend_overrun error instead of dropping frames.
type Recorder struct {
	w       codec.Writer
	queue   chan frame.Record
	done    chan struct{}
	tracker *codec.BitrateTracker

	mu       sync.Mutex
	origin   time.Time
	stamps   []float64
	overrun  error
	writeErr error
	closed   bool
}

// NewRecorder starts a recorder. w may be nil, in which case only
// timestamps are kept. w must already be open; Close closes it.
func NewRecorder(w codec.Writer, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		w:       w,
		queue:   make(chan frame.Record, queueSize),
		done:    make(chan struct{}),
		tracker: codec.NewBitrateTracker(time.Second),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)

	for rec := range r.queue {
		if r.w == nil {
			continue
		}
		r.mu.Lock()
		failed := r.writeErr != nil
		r.mu.Unlock()
		if failed {
			// keep draining so the session ends on the first error
			continue
		}

		if err := r.w.Write(rec); err != nil {
			logger.Errorf("backend write of frame %d failed: %v", rec.Seq, err)
			r.mu.Lock()
			r.writeErr = errcode.Wrap(errcode.Error, "record", err)
			r.mu.Unlock()
			continue
		}
		w, h := rec.Size()
		r.mu.Lock()
		r.tracker.AddFrame(w*h, time.Now())
		r.mu.Unlock()
	}
}

// Put implements Sink.
func (r *Recorder) Put(rec frame.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return errcode.New(errcode.State, "record", "recorder closed")
	case r.overrun != nil:
		return r.overrun
	case r.writeErr != nil:
		return r.writeErr
	}

	select {
	case r.queue <- rec:
	default:
		r.overrun = errcode.New(errcode.BackendOverrun, "record",
			"backend fell %d frames behind at frame %d (%.1f fps written)",
			cap(r.queue), rec.Seq, r.tracker.GetFrameRate())
		logger.Error(r.overrun.Error())
		return r.overrun
	}

	if len(r.stamps) == 0 {
		r.origin = rec.Captured
	}
	r.stamps = append(r.stamps, rec.Millis(r.origin))
	return nil
}

// Frames returns the number of frames accepted so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stamps)
}

// Close drains the queue, finalizes the backend and returns the timestamps
// of every accepted frame in milliseconds since the first one. On overrun
// or backend failure the partial timestamps are returned with the error.
func (r *Recorder) Close() ([]float64, error) {
	r.mu.Lock()
	if r.closed {
		defer r.mu.Unlock()
		return append([]float64{}, r.stamps...), r.err()
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	var closeErr error
	if r.w != nil {
		closeErr = errcode.Wrap(errcode.Error, "record", r.w.Close())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr == nil {
		r.writeErr = closeErr
	}
	stamps := append([]float64{}, r.stamps...)
	return stamps, r.err()
}

func (r *Recorder) err() error {
	if r.overrun != nil {
		return r.overrun
	}
	return r.writeErr
}
