package mode

import (
	"strings"

	"github.com/pkg/errors"
)

// Format describes a packed pixel format: its DRM fourcc, bits per pixel
// and the byte offset of each colour channel inside a pixel in memory.
type Format struct {
	Name    string
	FourCC  uint32
	Bpp     uint32
	Depth   uint32
	R, G, B int
}

// FourCC builds a DRM format code from its four characters.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	// FormatRGB888 is DRM_FORMAT_RGB888: [23:0] R:G:B little endian, so
	// blue is stored first.
	FormatRGB888 = Format{Name: "RGB888", FourCC: FourCC('R', 'G', '2', '4'),
		Bpp: 24, Depth: 24, R: 2, G: 1, B: 0}

	// FormatBGR888 is DRM_FORMAT_BGR888: [23:0] B:G:R little endian.
	FormatBGR888 = Format{Name: "BGR888", FourCC: FourCC('B', 'G', '2', '4'),
		Bpp: 24, Depth: 24, R: 0, G: 1, B: 2}

	// FormatXRGB8888 is DRM_FORMAT_XRGB8888: [31:0] x:R:G:B little endian.
	FormatXRGB8888 = Format{Name: "XRGB8888", FourCC: FourCC('X', 'R', '2', '4'),
		Bpp: 32, Depth: 24, R: 2, G: 1, B: 0}

	formats = []Format{FormatRGB888, FormatBGR888, FormatXRGB8888}
)

// BytesPerPixel is the size of one pixel in memory.
func (f Format) BytesPerPixel() uint32 { return f.Bpp / 8 }

func (f Format) String() string { return f.Name }

// FormatByName looks a format up by name, case insensitive.
func FormatByName(name string) (Format, error) {
	for _, f := range formats {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, errors.Errorf("unknown pixel format %q", name)
}

// FourCCString renders a format code as its four characters.
func FourCCString(code uint32) string {
	b := []byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)}
	return string(b)
}
