package frame

import (
	"image"
	"time"
)

// Record is one captured image and its monotonic capture time. A Record is
// created by a driver at grab time and owned by a sink until it is written
// or handed to a reader.
type Record struct {
	Seq      uint64
	Captured time.Time
	Image    image.Image
}

// Millis returns the capture time relative to origin in milliseconds.
func (r Record) Millis(origin time.Time) float64 {
	return float64(r.Captured.Sub(origin)) / float64(time.Millisecond)
}

// Size returns the image width and height, or zeros for an empty record.
func (r Record) Size() (int, int) {
	if r.Image == nil {
		return 0, 0
	}
	b := r.Image.Bounds()
	return b.Dx(), b.Dy()
}

// ROI is a region of interest in binned sensor pixels. The zero value
// selects the full frame.
type ROI struct {
	X, Y          int
	Width, Height int
}

func (r ROI) IsZero() bool {
	return r == ROI{}
}

// Fits reports whether r lies inside a width x height frame.
func (r ROI) Fits(width, height int) bool {
	if r.IsZero() {
		return true
	}
	if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.X+r.Width <= width && r.Y+r.Height <= height
}

// Rect returns r as an image.Rectangle, resolving the zero value against
// the full frame size.
func (r ROI) Rect(width, height int) image.Rectangle {
	if r.IsZero() {
		return image.Rect(0, 0, width, height)
	}
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}
