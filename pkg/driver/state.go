package driver

import "fmt"

// State represents the state of a device handle.
type State string

const (
	// StateClosed means that the device has not been opened. Sensor size and
	// feature limits are still unknown.
	StateClosed State = "closed"
	// StateOpened means that the device is open and its features may be
	// read and written.
	StateOpened State = "opened"
	// StateStreaming means that acquisition has begun on the device and
	// frames may be grabbed from it.
	StateStreaming State = "streaming"
)

// Update updates current state, s, to next. If f fails to execute,
// s will stay unchanged. Otherwise, s will be updated to next
func (s *State) Update(next State, f func() error) error {
	checkFunc := s.toClosed
	switch next {
	case StateOpened:
		checkFunc = s.toOpened
	case StateStreaming:
		checkFunc = s.toStreaming
	}

	if err := checkFunc(); err != nil {
		return err
	}

	err := f()
	if err == nil {
		*s = next
	}
	return err
}

func (s *State) toOpened() error {
	if *s == StateOpened {
		return fmt.Errorf("invalid state: driver is already opened")
	}
	return nil
}

func (s *State) toClosed() error {
	return nil
}

func (s *State) toStreaming() error {
	if *s == StateClosed {
		return fmt.Errorf("invalid state: driver is closed")
	}

	if *s == StateStreaming {
		return fmt.Errorf("invalid state: driver is already streaming")
	}

	return nil
}
