package driver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camsync/camsync/pkg/frame"
)

// ErrGrabTimeout is returned by GrabNext when no frame arrived in time.
// It is not a failure: a secondary waiting for its first trigger pulse
// sees it repeatedly.
var ErrGrabTimeout = errors.New("grab timeout")

// Identity selects exactly one physical device, either by serial number
// or, when Serial is empty, by enumeration index.
type Identity struct {
	Serial string
	Index  int
}

func (i Identity) String() string {
	if i.Serial != "" {
		return i.Serial
	}
	return "#" + strconv.Itoa(i.Index)
}

// Matches reports whether a device registered as other is selected by i.
// A serial number selects by serial, otherwise the index selects.
func (i Identity) Matches(other Identity) bool {
	if i.Serial != "" {
		return i.Serial == other.Serial
	}
	return i.Index == other.Index
}

// ParseIdentity reads "#N" as an enumeration index and anything else as a
// serial number.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, fmt.Errorf("driver: empty device identity")
	}
	if !strings.HasPrefix(s, "#") {
		return Identity{Serial: s}, nil
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return Identity{}, fmt.Errorf("driver: invalid device index %q", s)
	}
	return Identity{Index: n}, nil
}

type OpenCloser interface {
	Open() error
	Close() error
}

// FeatureAccessor reads and writes named feature nodes of an opened
// device. Names are listed in feature.go.
type FeatureAccessor interface {
	Feature(name string) (interface{}, error)
	SetFeature(name string, value interface{}) error
}

// Grabber streams frames out of an opened device.
type Grabber interface {
	BeginAcquisition() error
	// GrabNext blocks up to timeout for the next frame and returns
	// ErrGrabTimeout when none arrived.
	GrabNext(timeout time.Duration) (frame.Record, error)
	EndAcquisition() error
}

// Halter is implemented by adapters that can stop exposing frames while
// keeping the ones already in the stream buffer, like the GenICam
// AcquisitionStop command. After StopExposure, GrabNext returns
// ErrGrabTimeout as soon as the buffer is empty.
type Halter interface {
	StopExposure() error
}

// Ranger is implemented by adapters that report the device limits of
// numeric features.
type Ranger interface {
	Range(name string) (min, max float64, ok bool)
}

type Adapter interface {
	OpenCloser
	FeatureAccessor
	Grabber
}

// Info describes a registered device.
type Info struct {
	Label      string
	DeviceType DeviceType
	Identity   Identity
}

// Driver is an Adapter registered with the manager. It enforces the
// handle ordering Open, BeginAcquisition, GrabNext, EndAcquisition, Close.
type Driver interface {
	Adapter
	Halter
	Ranger
	ID() string
	Info() Info
	Status() State
}
