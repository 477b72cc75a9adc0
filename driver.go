package camsync

import (
	"github.com/camsync/camsync/pkg/driver"
)

// RegisterDevice allows user space level of device registration. identity
// is a serial number or "#N"; a Camera created with the same identity binds
// to a.
func RegisterDevice(a driver.Adapter, label, identity string) error {
	id, err := driver.ParseIdentity(identity)
	if err != nil {
		return wrapValidation("register", err)
	}
	return driver.GetManager().Register(a, driver.Info{
		Label:      label,
		DeviceType: driver.Camera,
		Identity:   id,
	})
}
