package frame

import (
	"fmt"
	"image"
	"image/color"
)

// Decoder turns a raw driver buffer into a capture image.
type Decoder interface {
	Decode(frame []byte, width, height int) (image.Image, error)
}

type decoderFunc func(frame []byte, width, height int) (image.Image, error)

func (f decoderFunc) Decode(frame []byte, width, height int) (image.Image, error) {
	return f(frame, width, height)
}

// NewDecoder returns a decoder from the raw layout f to the capture format out.
func NewDecoder(f Format, out Format) (Decoder, error) {
	switch {
	case f == FormatGREY && out == FormatMono8:
		return decoderFunc(decodeGREY), nil
	case f == FormatGREY && out == FormatRGB8:
		return decoderFunc(func(b []byte, w, h int) (image.Image, error) {
			img, err := decodeGREY(b, w, h)
			if err != nil {
				return nil, err
			}
			return ToRGBA(img), nil
		}), nil
	case f == FormatYUY2 && out == FormatMono8:
		return decoderFunc(decodeYUY2Luma), nil
	case f == FormatYUY2 && out == FormatRGB8:
		return decoderFunc(decodeYUY2), nil
	}
	return nil, fmt.Errorf("%s to %s is not supported", f, out)
}

func decodeGREY(frame []byte, width, height int) (image.Image, error) {
	n := width * height
	if len(frame) < n {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), n)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, frame[:n])
	return img, nil
}

func decodeYUY2Luma(frame []byte, width, height int) (image.Image, error) {
	fi := width * height * 2
	if len(frame) < fi {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), fi)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < fi; i, j = i+2, j+1 {
		img.Pix[j] = frame[i]
	}
	return img, nil
}

func decodeYUY2(frame []byte, width, height int) (image.Image, error) {
	fi := width * height * 2
	if len(frame) < fi {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), fi)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fast := 0
	for i := 0; i < fi; i += 4 {
		y0, cb, y1, cr := frame[i], frame[i+1], frame[i+2], frame[i+3]
		for _, y := range [2]uint8{y0, y1} {
			r, g, b := color.YCbCrToRGB(y, cb, cr)
			img.Pix[fast*4] = r
			img.Pix[fast*4+1] = g
			img.Pix[fast*4+2] = b
			img.Pix[fast*4+3] = 0xff
			fast++
		}
	}
	return img, nil
}
