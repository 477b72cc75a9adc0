// Package prop is the property registry of a camera worker.
//
// Every configurable acquisition property has a descriptor holding its
// domain and current value. Writes go through Set, which applies the role
// rule, the acquisition lock and the domain check in that order and only
// stores the value when all three pass. A registry belongs to a single
// worker goroutine and is not safe for concurrent use.
package prop

import (
	"fmt"
	"sort"

	"github.com/camsync/camsync/pkg/errcode"
	"github.com/camsync/camsync/pkg/frame"
	"github.com/camsync/camsync/pkg/trigger"
)

// Name identifies an acquisition property.
type Name string

const (
	FrameRate Name = "framerate"
	Exposure  Name = "exposure"
	BinSize   Name = "binsize"
	ROI       Name = "roi"
	Mode      Name = "mode"
	Color     Name = "color"
)

// Buffer handling modes accepted by the mode property.
const (
	ModeNewestOnly  = "NewestOnly"
	ModeNewestFirst = "NewestFirst"
	ModeOldestFirst = "OldestFirst"
)

// Defaults and limits.
const (
	DefaultFrameRate = 30.0
	MinFrameRate     = 1.0
	MaxFrameRate     = 200.0

	DefaultExposure = 1500.0 // microseconds
	MinExposure     = 100.0
	MaxExposure     = 10000.0

	DefaultBinSize = 1
	DefaultMode    = ModeOldestFirst
)

// Descriptor is the declared domain and current value of one property.
type Descriptor struct {
	Name   Name
	Domain Domain
	Value  interface{}
	// Derived marks properties a secondary takes from its primary.
	Derived bool
}

// Registry holds the descriptors of one device.
type Registry struct {
	role         trigger.Role
	sensorWidth  int
	sensorHeight int
	props        map[Name]*Descriptor
}

// NewRegistry declares every property with its default value for a device
// of the given role and full sensor size.
func NewRegistry(role trigger.Role, sensorWidth, sensorHeight int) *Registry {
	r := &Registry{
		role:         role,
		sensorWidth:  sensorWidth,
		sensorHeight: sensorHeight,
		props:        make(map[Name]*Descriptor),
	}

	r.declare(FrameRate, FloatRanged{Min: MinFrameRate, Max: MaxFrameRate}, DefaultFrameRate, true)
	r.declare(Exposure, FloatRanged{Min: MinExposure, Max: MaxExposure}, DefaultExposure, true)
	r.declare(BinSize, IntOneOf{1, 2, 4}, DefaultBinSize, false)
	r.declare(ROI, ROIWithin{Size: r.BinnedSize}, frame.ROI{}, false)
	r.declare(Mode, StringOneOf{ModeNewestOnly, ModeNewestFirst, ModeOldestFirst}, DefaultMode, false)
	r.declare(Color, Bool{}, false, false)
	return r
}

func (r *Registry) declare(name Name, d Domain, v interface{}, derived bool) {
	r.props[name] = &Descriptor{Name: name, Domain: d, Value: v, Derived: derived}
}

// Role returns the role the registry enforces.
func (r *Registry) Role() trigger.Role { return r.role }

// Names returns the declared property names in sorted order.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.props))
	for name := range r.props {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Descriptor returns a copy of the named descriptor.
func (r *Registry) Descriptor(name Name) (Descriptor, error) {
	d, ok := r.props[name]
	if !ok {
		return Descriptor{}, errcode.New(errcode.Validation, "get_property", "unknown property %q", name)
	}
	return *d, nil
}

// Get returns the current value of the named property.
func (r *Registry) Get(name Name) (interface{}, error) {
	d, err := r.Descriptor(name)
	if err != nil {
		return nil, err
	}
	return d.Value, nil
}

// Snapshot returns every current value keyed by name.
func (r *Registry) Snapshot() map[Name]interface{} {
	out := make(map[Name]interface{}, len(r.props))
	for name, d := range r.props {
		out[name] = d.Value
	}
	return out
}

// Writable reports whether name may be written on this device while the
// acquisition lock is in the given state.
func (r *Registry) Writable(name Name, locked bool) error {
	d, ok := r.props[name]
	if !ok {
		return errcode.New(errcode.Validation, "set_property", "unknown property %q", name)
	}
	if d.Derived && r.role == trigger.Secondary {
		return errcode.New(errcode.Role, "set_property", "%s is fixed by the primary on a secondary device", name)
	}
	if locked {
		return errcode.New(errcode.Locked, "set_property", "%s cannot change while primed or acquiring", name)
	}
	return nil
}

// Validate normalizes v and checks it against the domain of name without
// storing it.
func (r *Registry) Validate(name Name, v interface{}) (interface{}, error) {
	d, ok := r.props[name]
	if !ok {
		return nil, errcode.New(errcode.Validation, "set_property", "unknown property %q", name)
	}
	nv, err := normalize(d.Domain, v)
	if err == nil {
		err = d.Domain.Check(nv)
	}
	if err != nil {
		return nil, errcode.New(errcode.Validation, "set_property", "%s: %v", name, err)
	}
	return nv, nil
}

// Set writes v to name. It fails with a role error for derived properties
// on a secondary, a locked error while locked, and a validation error when
// v is outside the domain. On any failure the stored value is unchanged.
func (r *Registry) Set(name Name, v interface{}, locked bool) error {
	if err := r.Writable(name, locked); err != nil {
		return err
	}
	nv, err := r.Validate(name, v)
	if err != nil {
		return err
	}
	r.store(name, nv)
	return nil
}

// Init writes a construction-time value. Only the domain is checked, so a
// secondary can be given the framerate it will be validated with at prime.
func (r *Registry) Init(name Name, v interface{}) error {
	nv, err := r.Validate(name, v)
	if err != nil {
		return err
	}
	r.store(name, nv)
	return nil
}

func (r *Registry) store(name Name, v interface{}) {
	r.props[name].Value = v
	if name == BinSize {
		// a new binning invalidates the region of interest
		r.props[ROI].Value = frame.ROI{}
	}
}

// Narrow intersects the range of a FloatRanged property with a range the
// device reported. The current value is left alone and is rejected when it
// is applied if it no longer fits.
func (r *Registry) Narrow(name Name, min, max float64) error {
	d, ok := r.props[name]
	if !ok {
		return fmt.Errorf("prop: unknown property %q", name)
	}
	f, ok := d.Domain.(FloatRanged)
	if !ok {
		return fmt.Errorf("prop: %s is not a ranged property", name)
	}
	if min > f.Min {
		f.Min = min
	}
	if max < f.Max {
		f.Max = max
	}
	if f.Min > f.Max {
		return fmt.Errorf("prop: device range %g - %g does not overlap %s", min, max, d.Domain)
	}
	d.Domain = f
	return nil
}

// SetSensor updates the full sensor size. A region of interest that no
// longer fits is reset to the full frame.
func (r *Registry) SetSensor(width, height int) {
	r.sensorWidth, r.sensorHeight = width, height
	roi := r.props[ROI].Value.(frame.ROI)
	w, h := r.BinnedSize()
	if !roi.Fits(w, h) {
		r.props[ROI].Value = frame.ROI{}
	}
}

// SensorSize returns the full sensor size.
func (r *Registry) SensorSize() (int, int) {
	return r.sensorWidth, r.sensorHeight
}

// BinnedSize returns the sensor size after binning.
func (r *Registry) BinnedSize() (int, int) {
	bin := r.BinSize()
	return r.sensorWidth / bin, r.sensorHeight / bin
}

// FrameSize returns the size of captured frames: the region of interest,
// or the binned sensor when no region is set.
func (r *Registry) FrameSize() (int, int) {
	roi := r.ROI()
	if roi.IsZero() {
		return r.BinnedSize()
	}
	return roi.Width, roi.Height
}

func (r *Registry) FrameRate() float64 { return r.props[FrameRate].Value.(float64) }
func (r *Registry) Exposure() float64  { return r.props[Exposure].Value.(float64) }
func (r *Registry) BinSize() int       { return r.props[BinSize].Value.(int) }
func (r *Registry) ROI() frame.ROI     { return r.props[ROI].Value.(frame.ROI) }
func (r *Registry) Mode() string       { return r.props[Mode].Value.(string) }
func (r *Registry) Color() bool        { return r.props[Color].Value.(bool) }

// normalize converts loosely typed caller input to the Go type the domain
// expects. Integral numbers are accepted for float properties and integral
// floats for integer properties.
func normalize(d Domain, v interface{}) (interface{}, error) {
	switch d.(type) {
	case FloatRanged:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case uint:
			return float64(x), nil
		}
	case IntOneOf:
		switch x := v.(type) {
		case int:
			return x, nil
		case int32:
			return int(x), nil
		case int64:
			return int(x), nil
		case uint:
			return int(x), nil
		case float64:
			if x == float64(int(x)) {
				return int(x), nil
			}
		}
	case ROIWithin:
		switch x := v.(type) {
		case nil:
			return frame.ROI{}, nil
		case *frame.ROI:
			if x == nil {
				return frame.ROI{}, nil
			}
			return *x, nil
		}
	}
	return v, nil
}
