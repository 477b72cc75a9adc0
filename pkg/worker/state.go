package worker

import (
	"github.com/camsync/camsync/pkg/errcode"
)

// State is the acquisition lifecycle of one device.
type State string

const (
	StateUnprimed State = "unprimed"
	// StatePrimed means the device is configured and armed. A primary
	// waits for trigger, a secondary for its first hardware pulse.
	StatePrimed    State = "primed"
	StateAcquiring State = "acquiring"
	StateStopped   State = "stopped"
	// StateReleased is terminal.
	StateReleased State = "released"
)

// Locked reports whether properties are frozen in s.
func (s State) Locked() bool {
	return s == StatePrimed || s == StateAcquiring
}

// Update updates current state, s, to next. If the transition is illegal
// or f fails to execute, s will stay unchanged. Otherwise, s will be
// updated to next.
func (s *State) Update(next State, f func() error) error {
	checkFunc := s.toReleased
	switch next {
	case StatePrimed:
		checkFunc = s.toPrimed
	case StateAcquiring:
		checkFunc = s.toAcquiring
	case StateStopped:
		checkFunc = s.toStopped
	case StateUnprimed:
		checkFunc = s.toUnprimed
	}

	if err := checkFunc(); err != nil {
		return err
	}

	if f != nil {
		if err := f(); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

func (s *State) illegal(op string) error {
	return errcode.New(errcode.State, op, "illegal in state %s", *s)
}

func (s *State) toPrimed() error {
	if *s != StateUnprimed && *s != StateStopped {
		return s.illegal(string(VerbPrime))
	}
	return nil
}

func (s *State) toAcquiring() error {
	if *s != StatePrimed {
		return s.illegal(string(VerbTrigger))
	}
	return nil
}

// toStopped accepts Acquiring (stop) and Primed (disarm).
func (s *State) toStopped() error {
	if *s != StateAcquiring && *s != StatePrimed {
		return s.illegal(string(VerbStop))
	}
	return nil
}

func (s *State) toReleased() error {
	if *s == StateReleased {
		return s.illegal(string(VerbRelease))
	}
	return nil
}

func (s *State) toUnprimed() error {
	return s.illegal("reset")
}
