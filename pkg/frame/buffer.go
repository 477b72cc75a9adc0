package frame

import (
	"image"
)

// Buffer is a reusable copy target for capture images.
type Buffer struct {
	buffer []uint8
	tmp    image.Image
}

// NewBuffer creates a new Buffer instance and initialize internal buffer
// with initialSize
func NewBuffer(initialSize int) *Buffer {
	return &Buffer{
		buffer: make([]uint8, initialSize),
	}
}

func (buff *Buffer) store(src []uint8) []uint8 {
	if len(buff.buffer) < len(src) {
		if cap(buff.buffer) >= len(src) {
			buff.buffer = buff.buffer[:len(src)]
		} else {
			buff.buffer = make([]uint8, len(src))
		}
	}

	copy(buff.buffer, src)
	return buff.buffer[:len(src):len(src)]
}

// Load loads the current owned image
func (buff *Buffer) Load() image.Image {
	return buff.tmp
}

// StoreCopy makes a copy of src and store its copy. StoreCopy will reuse as much memory as it can
// from the previous copies. For example, if StoreCopy is given an image that has the same resolution
// and format from the previous call, StoreCopy will not allocate extra memory and only copy the content
// from src to the previous buffer.
func (buff *Buffer) StoreCopy(src image.Image) {
	switch src := src.(type) {
	case *image.Gray:
		clone, ok := buff.tmp.(*image.Gray)
		if ok {
			*clone = *src
		} else {
			copied := *src
			clone = &copied
		}

		clone.Pix = buff.store(src.Pix)
		buff.tmp = clone
	case *image.RGBA:
		clone, ok := buff.tmp.(*image.RGBA)
		if ok {
			*clone = *src
		} else {
			copied := *src
			clone = &copied
		}

		clone.Pix = buff.store(src.Pix)
		buff.tmp = clone
	default:
		buff.StoreCopy(ToRGBA(src))
	}
}
