package frame

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomize(arr []uint8) {
	for i := range arr {
		arr[i] = uint8(rand.Uint32())
	}
}

func TestROIFits(t *testing.T) {
	testCases := map[string]struct {
		roi  ROI
		fits bool
	}{
		"Zero":        {ROI{}, true},
		"Full":        {ROI{0, 0, 640, 480}, true},
		"Inside":      {ROI{10, 20, 100, 100}, true},
		"RightEdge":   {ROI{600, 0, 41, 10}, false},
		"NegativeX":   {ROI{-1, 0, 10, 10}, false},
		"EmptyHeight": {ROI{0, 0, 10, 0}, false},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.fits, tc.roi.Fits(640, 480))
		})
	}
}

func TestRecordMillis(t *testing.T) {
	origin := time.Now()
	r := Record{Captured: origin.Add(33*time.Millisecond + 500*time.Microsecond)}

	assert.InDelta(t, 33.5, r.Millis(origin), 1e-9)
}

func TestBin(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 48))
	randomize(src.Pix)

	binned := Bin(src, 4)
	_, ok := binned.(*image.Gray)
	assert.True(t, ok, "grayscale input must stay grayscale")
	assert.Equal(t, image.Rect(0, 0, 16, 12), binned.Bounds())
	assert.Same(t, src, Bin(src, 1))
}

func TestCrop(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	src.SetGray(3, 2, color.Gray{Y: 200})

	cropped := Crop(src, ROI{X: 2, Y: 2, Width: 4, Height: 3})
	require.Equal(t, image.Rect(0, 0, 4, 3), cropped.Bounds())
	assert.Equal(t, uint8(200), cropped.(*image.Gray).GrayAt(1, 0).Y)
}

func TestRaw(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgba.Set(0, 0, color.RGBA{1, 2, 3, 255})
	rgba.Set(1, 0, color.RGBA{4, 5, 6, 255})

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, Raw(nil, rgba, FormatRGB8))

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	randomize(gray.Pix)
	sub := gray.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
	raw := Raw(make([]byte, 0, 64), sub, FormatMono8)
	assert.Equal(t, []byte{gray.Pix[5], gray.Pix[6], gray.Pix[9], gray.Pix[10]}, raw)
}

func TestDecodeYUY2(t *testing.T) {
	// two pixels sharing neutral chroma
	raw := []byte{100, 128, 200, 128}

	d, err := NewDecoder(FormatYUY2, FormatMono8)
	require.NoError(t, err)
	img, err := d.Decode(raw, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{100, 200}, img.(*image.Gray).Pix)

	d, err = NewDecoder(FormatYUY2, FormatRGB8)
	require.NoError(t, err)
	img, err = d.Decode(raw, 2, 1)
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, uint32(200), r>>8)
	assert.Equal(t, r, g)
	assert.Equal(t, r, b)

	_, err = d.Decode(raw[:2], 2, 1)
	assert.Error(t, err)
}

func TestBufferStoreCopyAndLoad(t *testing.T) {
	resolution := image.Rect(0, 0, 16, 8)
	testCases := map[string]struct {
		New    func() image.Image
		Update func(image.Image)
	}{
		"Gray": {
			New: func() image.Image {
				img := image.NewGray(resolution)
				randomize(img.Pix)
				return img
			},
			Update: func(src image.Image) { randomize(src.(*image.Gray).Pix) },
		},
		"RGBA": {
			New: func() image.Image {
				img := image.NewRGBA(resolution)
				randomize(img.Pix)
				return img
			},
			Update: func(src image.Image) { randomize(src.(*image.RGBA).Pix) },
		},
	}

	buffer := NewBuffer(0)
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			src := tc.New()
			for i := 0; i < 3; i++ {
				buffer.StoreCopy(src)
				assert.Equal(t, src, buffer.Load())
				tc.Update(src)
				assert.NotEqual(t, src, buffer.Load(), "buffer must own its copy")
			}
		})
	}
}
