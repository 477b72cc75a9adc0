package frame

// Format is the pixel layout of a captured frame.
type Format string

const (
	// FormatMono8 is 8-bit grayscale, stored as *image.Gray.
	FormatMono8 Format = "Mono8"
	// FormatRGB8 is 8-bit per channel color, stored as *image.RGBA.
	FormatRGB8 Format = "RGB8"

	// Raw sensor layouts a driver may hand to a Decoder.

	// FormatGREY https://www.fourcc.org/pixel-format/y800/
	FormatGREY Format = "GREY"
	// FormatYUY2 https://www.fourcc.org/pixel-format/yuv-yuy2/
	FormatYUY2 Format = "YUY2"
)

// FormatYUYV is an alias of FormatYUY2
const FormatYUYV = FormatYUY2

// FormatFor returns the capture format for the color flag.
func FormatFor(color bool) Format {
	if color {
		return FormatRGB8
	}
	return FormatMono8
}

// BytesPerPixel returns the packed size of one pixel in f.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB8:
		return 3
	case FormatYUY2:
		return 2
	default:
		return 1
	}
}
