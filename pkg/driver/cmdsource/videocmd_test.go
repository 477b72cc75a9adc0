package cmdsource

import (
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
	"github.com/camsync/camsync/pkg/frame"
)

// catSource returns a camera replaying data as a 4x2 GREY stream.
func catSource(t *testing.T, data []byte) *Camera {
	t.Helper()
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not found in path")
	}
	path := filepath.Join(t.TempDir(), "frames.raw")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := New(Options{Command: "cat '" + path + "'", Width: 4, Height: 2})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	cases := map[string]struct {
		opts Options
		ok   bool
	}{
		"Valid":        {Options{Command: "cat frames.raw", Width: 4, Height: 2}, true},
		"YUY2":         {Options{Command: "cat frames.raw", Width: 4, Height: 2, Format: frame.FormatYUY2}, true},
		"EmptyCommand": {Options{Command: "  ", Width: 4, Height: 2}, false},
		"BadQuoting":   {Options{Command: "cat 'frames.raw", Width: 4, Height: 2}, false},
		"NoSize":       {Options{Command: "cat frames.raw"}, false},
		"PackedRGB":    {Options{Command: "cat frames.raw", Width: 4, Height: 2, Format: frame.FormatRGB8}, false},
	}
	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			_, err := New(c.opts)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	data := make([]byte, 3*8)
	for i := range data {
		data[i] = byte(i)
	}
	c := catSource(t, data)

	require.NoError(t, c.Open())
	defer c.Close()
	assert.True(t, errors.Is(c.SetFeature(driver.FeatureTriggerMode, driver.TriggerOn), availability.ErrUnimplemented))
	assert.True(t, errors.Is(c.SetFeature(driver.FeatureBinningHorizontal, 2), availability.ErrUnimplemented))
	w, err := c.Feature(driver.FeatureSensorWidth)
	require.NoError(t, err)
	assert.Equal(t, 4, w)

	require.NoError(t, c.BeginAcquisition())
	for i := 0; i < 3; i++ {
		rec, err := c.GrabNext(5 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), rec.Seq)
		gray, ok := rec.Image.(*image.Gray)
		require.True(t, ok, "expected grayscale, got %T", rec.Image)
		assert.Equal(t, data[i*8:(i+1)*8], gray.Pix)
	}

	_, err = c.GrabNext(5 * time.Second)
	assert.True(t, errors.Is(err, availability.ErrDisconnected), "got %v", err)
	assert.NoError(t, c.EndAcquisition())
}

func TestReplayColor(t *testing.T) {
	c := catSource(t, make([]byte, 8))
	require.NoError(t, c.Open())
	defer c.Close()
	require.NoError(t, c.SetFeature(driver.FeaturePixelFormat, string(frame.FormatRGB8)))

	require.NoError(t, c.BeginAcquisition())
	rec, err := c.GrabNext(5 * time.Second)
	require.NoError(t, err)
	_, ok := rec.Image.(*image.RGBA)
	assert.True(t, ok, "expected color, got %T", rec.Image)
	assert.Error(t, c.SetFeature(driver.FeaturePixelFormat, string(frame.FormatMono8)))
}

func TestTruncatedFrame(t *testing.T) {
	c := catSource(t, make([]byte, 12))
	require.NoError(t, c.Open())
	defer c.Close()
	require.NoError(t, c.BeginAcquisition())

	_, err := c.GrabNext(5 * time.Second)
	require.NoError(t, err)
	_, err = c.GrabNext(5 * time.Second)
	assert.True(t, errors.Is(err, availability.ErrDisconnected), "got %v", err)
}

func TestEnviron(t *testing.T) {
	env := environ(map[string]interface{}{
		driver.FeatureWidth:                640,
		driver.FeatureAcquisitionFrameRate: 30.0,
	})
	assert.Contains(t, env, "CAMSYNC_Width=640")
	assert.Contains(t, env, "CAMSYNC_AcquisitionFrameRate=30")
}

func TestRegister(t *testing.T) {
	m := driver.NewManager()
	id := driver.Identity{Serial: "cmd0"}
	require.NoError(t, Register(m, id, Options{Command: "cat frames.raw", Width: 4, Height: 2}))

	d, release, err := m.Acquire(id)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, driver.Command, d.Info().DeviceType)
	assert.Error(t, Register(m, driver.Identity{Serial: "cmd1"}, Options{Width: 4, Height: 2}))
}
