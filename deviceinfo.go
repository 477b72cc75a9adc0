package camsync

import (
	"github.com/camsync/camsync/internal/logging"
	"github.com/camsync/camsync/pkg/driver"
)

var logger = logging.NewLogger("camsync")

// DeviceInfo describes a device a Camera can be bound to.
type DeviceInfo struct {
	DeviceID   string
	Identity   driver.Identity
	Label      string
	DeviceType driver.DeviceType
	Status     driver.State
}

// EnumerateDevices lists the devices registered with m, or with the
// default manager when m is nil.
func EnumerateDevices(m *driver.Manager) []DeviceInfo {
	if m == nil {
		m = driver.GetManager()
	}
	drivers := m.Query(func(driver.Driver) bool { return true })
	info := make([]DeviceInfo, 0, len(drivers))
	for _, d := range drivers {
		driverInfo := d.Info()
		info = append(info, DeviceInfo{
			DeviceID:   d.ID(),
			Identity:   driverInfo.Identity,
			Label:      driverInfo.Label,
			DeviceType: driverInfo.DeviceType,
			Status:     d.Status(),
		})
	}
	return info
}
