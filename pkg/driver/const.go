package driver

// DeviceType represents human readable device type. DeviceType
// can be useful to filter the drivers too.
type DeviceType string

const (
	// Camera represents camera devices
	Camera DeviceType = "camera"
	// Screen represents screen devices
	Screen DeviceType = "screen"
	// Synthetic represents devices producing generated frames
	Synthetic DeviceType = "synthetic"
	// Command represents devices fed by an external program
	Command DeviceType = "command"
)
