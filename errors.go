package camsync

import (
	"github.com/camsync/camsync/pkg/errcode"
)

// Errors returned by cameras match one of these with errors.Is.
var (
	ErrHardware       error = errcode.Hardware
	ErrValidation     error = errcode.Validation
	ErrLocked         error = errcode.Locked
	ErrRole           error = errcode.Role
	ErrState          error = errcode.State
	ErrIPCTimeout     error = errcode.IPCTimeout
	ErrBackendOverrun error = errcode.BackendOverrun
)

func wrapHardware(op string, err error) error {
	return errcode.Wrap(errcode.Hardware, op, err)
}

func wrapValidation(op string, err error) error {
	return errcode.Wrap(errcode.Validation, op, err)
}
