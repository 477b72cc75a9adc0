/*
Package camera provides the V4L2 camera binding.

Importing the package registers every video device found on the host with
the driver manager. Devices are identified by their kernel name, so
"video0" selects /dev/video0, and by the index in that name.

Device Label Generation Rules

On Linux, the device label will be in the format of:
	pci-0000:00:00.0-usb-0:0:0.0-video-index0;video0
If /dev/v4l/by-path/* is not available (for example in a docker container without
bindings in /dev/v4l/by-path/), it will be:
	video0;video0

V4L2 devices have no hardware trigger and no on-sensor binning or region
of interest. Those features report availability.ErrUnimplemented and the
acquisition layer falls back to processing frames in software.
*/
package camera

// LabelSeparator is used to separate labels for a driver that
// is found from multiple locations on a host.
const LabelSeparator = ";"
