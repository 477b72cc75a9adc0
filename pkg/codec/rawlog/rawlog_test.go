package rawlog

import (
	"image"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/codec"
	"github.com/camsync/camsync/pkg/frame"
)

func TestWriteRead(t *testing.T) {
	w, err := codec.Build(Name)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session", "cam0.raw")
	require.NoError(t, w.Open(path, codec.Setting{Width: 4, Height: 2, Format: frame.FormatRGB8, FrameRate: 30}))

	start := time.Now()
	var written []*image.RGBA
	for i := 0; i < 3; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 2))
		for p := range img.Pix {
			img.Pix[p] = uint8(i*40 + p)
		}
		for p := 3; p < len(img.Pix); p += 4 {
			img.Pix[p] = 0xff
		}
		written = append(written, img)
		require.NoError(t, w.Write(frame.Record{
			Seq:      uint64(i),
			Captured: start.Add(time.Duration(i) * 10 * time.Millisecond),
			Image:    img,
		}))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Write(frame.Record{}))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, 4, h.Width)
	assert.Equal(t, string(frame.FormatRGB8), h.Format)
	assert.Equal(t, 30.0, h.FrameRate)

	for i := 0; i < 3; i++ {
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, uint64(i), rec.Seq)
		assert.Equal(t, start.Add(time.Duration(i)*10*time.Millisecond).UnixNano(), rec.Captured.UnixNano())
		assert.Equal(t, written[i].Pix, rec.Image.(*image.RGBA).Pix)
	}
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.raw")
	w := &Writer{}
	require.NoError(t, w.Open(path, codec.Setting{Width: 1, Height: 1, Format: frame.FormatMono8}))
	require.NoError(t, w.Close())

	_, err := Open(filepath.Join(t.TempDir(), "missing.raw"))
	assert.Error(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	r.Close()
}
