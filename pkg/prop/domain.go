package prop

import (
	"fmt"
	"math"
	"strings"

	"github.com/camsync/camsync/pkg/frame"
)

// Domain declares the values a property accepts.
type Domain interface {
	// Check returns nil when v is inside the domain. v is already
	// normalized to the property's Go type.
	Check(v interface{}) error
	String() string
}

// FloatRanged accepts float64 values in [Min, Max].
type FloatRanged struct {
	Min float64
	Max float64
}

// Check implements Domain.
func (f FloatRanged) Check(v interface{}) error {
	x, ok := v.(float64)
	if !ok {
		return fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsNaN(x) || x < f.Min || x > f.Max {
		return fmt.Errorf("%g is outside %s", x, f)
	}
	return nil
}

// String implements Domain.
func (f FloatRanged) String() string {
	return fmt.Sprintf("%g - %g (range)", f.Min, f.Max)
}

// IntOneOf accepts one of the listed integers.
type IntOneOf []int

// Check implements Domain.
func (i IntOneOf) Check(v interface{}) error {
	x, ok := v.(int)
	if !ok {
		return fmt.Errorf("expected an integer, got %T", v)
	}
	for _, ii := range i {
		if ii == x {
			return nil
		}
	}
	return fmt.Errorf("%d is not %s", x, i)
}

// String implements Domain.
func (i IntOneOf) String() string {
	var opts []string
	for _, v := range i {
		opts = append(opts, fmt.Sprint(v))
	}
	return fmt.Sprintf("%s (one of values)", strings.Join(opts, ","))
}

// StringOneOf accepts one of the listed strings.
type StringOneOf []string

// Check implements Domain.
func (s StringOneOf) Check(v interface{}) error {
	x, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %T", v)
	}
	for _, ss := range s {
		if ss == x {
			return nil
		}
	}
	return fmt.Errorf("%q is not %s", x, s)
}

// String implements Domain.
func (s StringOneOf) String() string {
	return fmt.Sprintf("%s (one of values)", strings.Join([]string(s), ","))
}

// Bool accepts either boolean.
type Bool struct{}

// Check implements Domain.
func (Bool) Check(v interface{}) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("expected a bool, got %T", v)
	}
	return nil
}

// String implements Domain.
func (Bool) String() string { return "true,false" }

// ROIWithin accepts regions that fit the binned sensor. Size reports the
// current binned sensor size.
type ROIWithin struct {
	Size func() (int, int)
}

// Check implements Domain.
func (r ROIWithin) Check(v interface{}) error {
	x, ok := v.(frame.ROI)
	if !ok {
		return fmt.Errorf("expected a region of interest, got %T", v)
	}
	w, h := r.Size()
	if !x.Fits(w, h) {
		return fmt.Errorf("%+v does not fit a %dx%d frame", x, w, h)
	}
	return nil
}

// String implements Domain.
func (r ROIWithin) String() string {
	w, h := r.Size()
	return fmt.Sprintf("within %dx%d", w, h)
}
