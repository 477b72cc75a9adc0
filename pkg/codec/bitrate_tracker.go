package codec

import (
	"time"
)

// BitrateTracker measures what a backend absorbs over a sliding window.
type BitrateTracker struct {
	windowSize time.Duration
	buffer     []int
	times      []time.Time
}

func NewBitrateTracker(windowSize time.Duration) *BitrateTracker {
	return &BitrateTracker{
		windowSize: windowSize,
	}
}

func (bt *BitrateTracker) AddFrame(sizeBytes int, timestamp time.Time) {
	bt.buffer = append(bt.buffer, sizeBytes)
	bt.times = append(bt.times, timestamp)

	// Remove old entries outside the window
	cutoff := timestamp.Add(-bt.windowSize)
	i := 0
	for ; i < len(bt.times); i++ {
		if bt.times[i].After(cutoff) {
			break
		}
	}
	bt.buffer = bt.buffer[i:]
	bt.times = bt.times[i:]
}

func (bt *BitrateTracker) span() float64 {
	if len(bt.times) < 2 {
		return 0
	}
	return bt.times[len(bt.times)-1].Sub(bt.times[0]).Seconds()
}

// GetBitrate returns bits per second over the window.
func (bt *BitrateTracker) GetBitrate() float64 {
	duration := bt.span()
	if duration <= 0 {
		return 0
	}
	totalBytes := 0
	for _, b := range bt.buffer {
		totalBytes += b
	}
	return float64(totalBytes*8) / duration
}

// GetFrameRate returns frames per second over the window.
func (bt *BitrateTracker) GetFrameRate() float64 {
	duration := bt.span()
	if duration <= 0 {
		return 0
	}
	return float64(len(bt.times)-1) / duration
}
