package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsync/camsync/pkg/driver/availability"
)

func filterTrue(d Driver) bool {
	return true
}
func filterFalse(d Driver) bool {
	return false
}

func TestFilterNot(t *testing.T) {
	if FilterNot(filterTrue)(nil) != false {
		t.Error("FilterNot(filterTrue)() must be false")
	}
	if FilterNot(filterFalse)(nil) != true {
		t.Error("FilterNot(filterFalse)() must be true")
	}
}

func TestFilterAnd(t *testing.T) {
	if FilterAnd(filterTrue, filterTrue)(nil) != true {
		t.Error("FilterAnd(filterTrue, filterTrue)() must be true")
	}
	if FilterAnd(filterTrue, filterFalse)(nil) != false {
		t.Error("FilterAnd(filterTrue, filterFalse)() must be false")
	}
	if FilterAnd(filterFalse, filterTrue)(nil) != false {
		t.Error("FilterAnd(filterFalse, filterTrue)() must be false")
	}
	if FilterAnd(filterFalse, filterFalse)(nil) != false {
		t.Error("FilterAnd(filterFalse, filterFalse)() must be false")
	}
	if FilterAnd(filterFalse, filterTrue, filterTrue)(nil) != false {
		t.Error("FilterAnd(filterFalse, filterTrue, filterTrue)() must be false")
	}
	if FilterAnd(filterTrue, filterTrue, filterTrue)(nil) != true {
		t.Error("FilterAnd(filterTrue, filterTrue, filterTrue)() must be true")
	}
}

func TestManagerQuery(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(newAdapterMock(), Info{Label: "a", DeviceType: Camera, Identity: Identity{Serial: "A"}}))
	require.NoError(t, m.Register(newAdapterMock(), Info{Label: "b", DeviceType: Synthetic, Identity: Identity{Serial: "B"}}))
	require.NoError(t, m.Register(newAdapterMock(), Info{Label: "c", DeviceType: Camera, Identity: Identity{Index: 2}}))

	cameras := m.Query(FilterDeviceType(Camera))
	require.Len(t, cameras, 2)
	assert.Equal(t, "a", cameras[0].Info().Label)
	assert.Equal(t, "c", cameras[1].Info().Label)

	assert.Len(t, m.Query(FilterNot(FilterDeviceType(Camera))), 1)
	assert.Len(t, m.Query(FilterID(cameras[1].ID())), 1)

	err := m.Register(newAdapterMock(), Info{Identity: Identity{Serial: "A"}})
	assert.Error(t, err)
}

func TestManagerAcquire(t *testing.T) {
	m := NewManager()
	a := newAdapterMock()
	id := Identity{Serial: "17"}
	require.NoError(t, m.Register(a, Info{Identity: id}))

	_, _, err := m.Acquire(Identity{Serial: "18"})
	assert.True(t, errors.Is(err, availability.ErrNoDevice))

	d, release, err := m.Acquire(id)
	require.NoError(t, err)
	require.NoError(t, d.Open())

	_, _, err = m.Acquire(id)
	assert.True(t, errors.Is(err, availability.ErrBusy))
	assert.True(t, errors.Is(m.Unregister(id), availability.ErrBusy))

	release()
	release()
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, StateClosed, d.Status())

	_, release, err = m.Acquire(id)
	require.NoError(t, err)
	release()

	require.NoError(t, m.Unregister(id))
	assert.Empty(t, m.Query(filterTrue))
}

func TestParseIdentity(t *testing.T) {
	cases := map[string]struct {
		in      string
		want    Identity
		wantErr bool
	}{
		"Index":       {"#3", Identity{Index: 3}, false},
		"Serial":      {"19340931", Identity{Serial: "19340931"}, false},
		"AlphaSerial": {" CAM-19340931 ", Identity{Serial: "CAM-19340931"}, false},
		"Empty":       {"  ", Identity{}, true},
		"Negative":    {"#-1", Identity{}, true},
		"NotANumber":  {"#a", Identity{}, true},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			id, err := ParseIdentity(c.in)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, id)
			assert.NotEmpty(t, id.String())
		})
	}
}
