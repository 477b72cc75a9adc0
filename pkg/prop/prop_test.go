package prop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/trigger"
)

func TestDefaults(t *testing.T) {
	r := NewRegistry(trigger.Primary, 640, 480)

	assert.Equal(t, DefaultFrameRate, r.FrameRate())
	assert.Equal(t, DefaultExposure, r.Exposure())
	assert.Equal(t, 1, r.BinSize())
	assert.True(t, r.ROI().IsZero())
	assert.Equal(t, ModeOldestFirst, r.Mode())
	assert.False(t, r.Color())
	assert.Equal(t, []Name{BinSize, Color, Exposure, FrameRate, Mode, ROI}, r.Names())
}

func TestSet(t *testing.T) {
	cases := map[string]struct {
		role   trigger.Role
		name   Name
		value  interface{}
		locked bool
		code   errcode.Code
		want   interface{}
	}{
		"FrameRateInt":         {trigger.Primary, FrameRate, 60, false, errcode.OK, 60.0},
		"FrameRateTooHigh":     {trigger.Primary, FrameRate, 1000000, false, errcode.Validation, DefaultFrameRate},
		"FrameRateLocked":      {trigger.Primary, FrameRate, 60.0, true, errcode.Locked, DefaultFrameRate},
		"FrameRateOnSecondary": {trigger.Secondary, FrameRate, 10.0, false, errcode.Role, DefaultFrameRate},
		"RoleBeforeLock":       {trigger.Secondary, Exposure, 2000.0, true, errcode.Role, DefaultExposure},
		"ExposureString":       {trigger.Primary, Exposure, "fast", false, errcode.Validation, DefaultExposure},
		"BinSizeFloat":         {trigger.Primary, BinSize, 2.0, false, errcode.OK, 2},
		"BinSizeOdd":           {trigger.Primary, BinSize, 3, false, errcode.Validation, 1},
		"ModeOnSecondary":      {trigger.Secondary, Mode, ModeNewestOnly, false, errcode.OK, ModeNewestOnly},
		"ModeUnknown":          {trigger.Primary, Mode, "Newest", false, errcode.Validation, DefaultMode},
		"Color":                {trigger.Primary, Color, true, false, errcode.OK, true},
		"ColorLocked":          {trigger.Secondary, Color, true, true, errcode.Locked, false},
		"Unknown":              {trigger.Primary, Name("gain"), 1.0, false, errcode.Validation, nil},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			r := NewRegistry(c.role, 640, 480)
			err := r.Set(c.name, c.value, c.locked)
			assert.Equal(t, c.code, errcode.Of(err))

			if c.want == nil {
				return
			}
			v, err := r.Get(c.name)
			require.NoError(t, err)
			assert.Equal(t, c.want, v)
		})
	}
}

func TestLockedLeavesEveryPropertyUnchanged(t *testing.T) {
	values := map[Name]interface{}{
		FrameRate: 10.0,
		Exposure:  5000.0,
		BinSize:   2,
		ROI:       frame.ROI{Width: 16, Height: 16},
		Mode:      ModeNewestFirst,
		Color:     true,
	}

	r := NewRegistry(trigger.Primary, 640, 480)
	before := r.Snapshot()
	for name, v := range values {
		err := r.Set(name, v, true)
		assert.True(t, errors.Is(err, errcode.Locked), "%s: %v", name, err)
	}
	assert.Equal(t, before, r.Snapshot())
}

func TestROI(t *testing.T) {
	r := NewRegistry(trigger.Primary, 640, 480)

	require.NoError(t, r.Set(ROI, frame.ROI{X: 600, Y: 400, Width: 40, Height: 80}, false))
	w, h := r.FrameSize()
	assert.Equal(t, 40, w)
	assert.Equal(t, 80, h)

	err := r.Set(ROI, frame.ROI{X: 601, Y: 400, Width: 40, Height: 80}, false)
	assert.Equal(t, errcode.Validation, errcode.Of(err))

	// binning invalidates the region
	require.NoError(t, r.Set(BinSize, 2, false))
	assert.True(t, r.ROI().IsZero())
	w, h = r.FrameSize()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	err = r.Set(ROI, frame.ROI{X: 300, Y: 0, Width: 40, Height: 10}, false)
	assert.Equal(t, errcode.Validation, errcode.Of(err))

	require.NoError(t, r.Set(ROI, nil, false))
	assert.True(t, r.ROI().IsZero())
}

func TestInitIgnoresRole(t *testing.T) {
	r := NewRegistry(trigger.Secondary, 640, 480)

	require.NoError(t, r.Init(FrameRate, 40))
	assert.Equal(t, 40.0, r.FrameRate())

	err := r.Init(FrameRate, 500)
	assert.Equal(t, errcode.Validation, errcode.Of(err))
	assert.Equal(t, 40.0, r.FrameRate())
}

func TestNarrow(t *testing.T) {
	r := NewRegistry(trigger.Primary, 640, 480)

	require.NoError(t, r.Narrow(FrameRate, 0.5, 120))
	assert.Error(t, r.Set(FrameRate, 150.0, false))
	assert.NoError(t, r.Set(FrameRate, 120.0, false))
	assert.Error(t, r.Set(FrameRate, 0.75, false))

	assert.Error(t, r.Narrow(FrameRate, 300, 400))
	assert.Error(t, r.Narrow(BinSize, 1, 2))
}

func TestSetSensorResetsROI(t *testing.T) {
	r := NewRegistry(trigger.Primary, 640, 480)
	require.NoError(t, r.Set(ROI, frame.ROI{X: 500, Width: 100, Height: 100}, false))

	r.SetSensor(320, 240)
	assert.True(t, r.ROI().IsZero())
	w, h := r.SensorSize()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}
