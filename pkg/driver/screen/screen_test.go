package screen

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/driver"
	"github.com/camsync/camsync/pkg/driver/availability"
)

func TestScreenCapture(t *testing.T) {
	bounds := image.Rect(0, 0, 16, 8)
	captures := 0
	s := newScreen(0, bounds, func(int) (*image.RGBA, error) {
		captures++
		return image.NewRGBA(bounds), nil
	})

	m := driver.NewManager()
	require.NoError(t, m.Register(s, driver.Info{DeviceType: driver.Screen, Identity: driver.Identity{Serial: "screen0"}}))
	d, release, err := m.Acquire(driver.Identity{Serial: "screen0"})
	require.NoError(t, err)
	defer release()

	require.NoError(t, d.Open())
	require.NoError(t, d.SetFeature(driver.FeatureAcquisitionFrameRate, 100.0))
	assert.True(t, errors.Is(d.SetFeature(driver.FeatureTriggerMode, driver.TriggerOn), availability.ErrUnimplemented))
	assert.True(t, errors.Is(d.SetFeature(driver.FeatureBinningHorizontal, 2), availability.ErrUnimplemented))

	require.NoError(t, d.BeginAcquisition())
	a, err := d.GrabNext(time.Second)
	require.NoError(t, err)
	b, err := d.GrabNext(time.Second)
	require.NoError(t, err)
	require.NoError(t, d.EndAcquisition())

	assert.Equal(t, 2, captures)
	assert.Equal(t, a.Seq+1, b.Seq)
	_, ok := a.Image.(*image.Gray)
	assert.True(t, ok, "expected grayscale, got %T", a.Image)
}

func TestScreenCaptureFailure(t *testing.T) {
	s := newScreen(0, image.Rect(0, 0, 4, 4), func(int) (*image.RGBA, error) {
		return nil, errors.New("display gone")
	})
	require.NoError(t, s.Open())
	require.NoError(t, s.BeginAcquisition())
	defer s.EndAcquisition()

	_, err := s.GrabNext(time.Second)
	assert.True(t, errors.Is(err, availability.ErrDisconnected))
}
