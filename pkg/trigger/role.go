package trigger

import "fmt"

// Role selects the synchronization behaviour of a camera worker. It is
// fixed when the worker is created.
type Role int

const (
	// Primary starts acquisition on an explicit trigger and drives the
	// trigger line at its framerate.
	Primary Role = iota
	// Secondary starts and paces acquisition from pulses received on its
	// trigger input. Its framerate and exposure follow the primary.
	Secondary
)

func (r Role) String() string {
	switch r {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole parses "primary" or "secondary".
func ParseRole(s string) (Role, error) {
	switch s {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	}
	return 0, fmt.Errorf("trigger: unknown role %q", s)
}
