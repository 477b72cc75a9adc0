// Package errcode defines the stable error codes returned by camera workers.
//
// Every failure that crosses a worker's command channel carries one of the
// codes below, so callers can branch with errors.Is regardless of the
// message or the wrapped cause:
//
//	if errors.Is(err, errcode.Locked) { ... }
package errcode

import (
	"errors"
	"fmt"
)

// Code is a stable error identifier. It is a string newtype, comparable,
// and implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK Code = "ok"

	// Hardware means the device is unreachable, disconnected or rejected
	// its configuration. Fatal to that device's worker only.
	Hardware Code = "hardware"
	// Validation means a value lies outside its declared domain. The prior
	// value is retained.
	Validation Code = "validation"
	// Locked means a property write was attempted while primed or acquiring.
	Locked Code = "locked"
	// Role means the command is illegal for the device's trigger role.
	Role Code = "role"
	// State means the command is illegal in the current lifecycle state.
	State Code = "state"
	// IPCTimeout means no response arrived within the bounded wait. The
	// command may or may not have executed.
	IPCTimeout Code = "ipc_timeout"
	// BackendOverrun means the recording backend could not keep pace.
	BackendOverrun Code = "backend_overrun"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation, a message and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is reports whether target is the same Code as e.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E with a formatted message.
func New(c Code, op string, format string, args ...interface{}) *E {
	return &E{C: c, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches c to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for ; err != nil; err = errors.Unwrap(err) {
		switch x := err.(type) {
		case Code:
			return x
		case coder:
			return x.Code()
		}
	}
	return Error
}
