package frame

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Bin downsamples img by factor on both axes. Drivers without hardware
// binning use it to honour the binsize property. A factor of 1 or less
// returns img unchanged.
func Bin(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}

	b := img.Bounds()
	dst := image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor)
	var out draw.Image
	switch img.(type) {
	case *image.Gray:
		out = image.NewGray(dst)
	default:
		out = image.NewRGBA(dst)
	}
	xdraw.ApproxBiLinear.Scale(out, dst, img, b, xdraw.Src, nil)
	return out
}

// Crop copies the roi region of img into a new image anchored at the origin.
func Crop(img image.Image, roi ROI) image.Image {
	b := img.Bounds()
	if roi.IsZero() {
		return img
	}

	r := roi.Rect(b.Dx(), b.Dy()).Add(b.Min).Intersect(b)
	dst := image.Rect(0, 0, r.Dx(), r.Dy())
	var out draw.Image
	switch img.(type) {
	case *image.Gray:
		out = image.NewGray(dst)
	default:
		out = image.NewRGBA(dst)
	}
	draw.Draw(out, dst, img, r.Min, draw.Src)
	return out
}

// ToGray converts img to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// ToRGBA converts img to 8-bit RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if c, ok := img.(*image.RGBA); ok {
		return c
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// Raw packs img into the byte layout of f: one byte per pixel for Mono8,
// three (R, G, B) for RGB8. dst is reused when it has enough capacity.
func Raw(dst []byte, img image.Image, f Format) []byte {
	b := img.Bounds()
	n := b.Dx() * b.Dy() * f.BytesPerPixel()
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	switch f {
	case FormatRGB8:
		src := ToRGBA(img)
		w := b.Dx()
		j := 0
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				dst[j] = row[i]
				dst[j+1] = row[i+1]
				dst[j+2] = row[i+2]
				j += 3
			}
		}
	default:
		src := ToGray(img)
		w := b.Dx()
		for y := 0; y < b.Dy(); y++ {
			copy(dst[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
	}
	return dst
}

// FromRaw is the inverse of Raw.
func FromRaw(pix []byte, width, height int, f Format) (image.Image, error) {
	n := width * height * f.BytesPerPixel()
	if len(pix) < n {
		return nil, fmt.Errorf("frame length (%d) less than expected (%d)", len(pix), n)
	}

	rect := image.Rect(0, 0, width, height)
	if f == FormatRGB8 {
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < n; i, j = i+3, j+4 {
			img.Pix[j] = pix[i]
			img.Pix[j+1] = pix[i+1]
			img.Pix[j+2] = pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	}
	img := image.NewGray(rect)
	copy(img.Pix, pix[:n])
	return img, nil
}

// Transform maps one capture image to another.
type Transform func(img image.Image) image.Image

// Merge merges transforms and produces a new Transform that will execute
// transforms in order. nil entries are skipped.
func Merge(transforms ...Transform) Transform {
	return func(img image.Image) image.Image {
		for _, transform := range transforms {
			if transform == nil {
				continue
			}

			img = transform(img)
		}

		return img
	}
}
