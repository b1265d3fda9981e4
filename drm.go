package hwexer

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/NeowayLabs/hwexer/ioctl"
)

type (
	version struct {
		Major   int32
		Minor   int32
		Patch   int32
		namelen uint
		name    uintptr
		datelen uint
		date    uintptr
		desclen uint
		desc    uintptr
	}

	// Version of DRM driver
	Version struct {
		Major, Minor, Patch int32
		Name                string // Name of the driver (eg.: i915)
		Date                string
		Desc                string
	}
)

const (
	driPath = "/dev/dri"
)

// Available reports the driver version of the first card.
func Available() (Version, error) {
	dev, err := OpenCard(0)
	if err != nil {
		return Version{}, err
	}
	defer dev.Close()
	return GetVersion(dev)
}

// CardPath returns the primary node path of card n.
func CardPath(n int) string {
	return fmt.Sprintf("%s/card%d", driPath, n)
}

// OpenCard opens the primary node of card n.
func OpenCard(n int) (*Device, error) {
	return Open(CardPath(n))
}

// OpenDisplay opens a card node and enables the client capabilities the
// atomic display path depends on, before any resource is queried.
func OpenDisplay(path string) (*Device, error) {
	dev, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := NegotiateAtomic(dev); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

func GetVersion(dev ioctl.Device) (Version, error) {
	var (
		name, date, desc []byte
	)

	version := &version{}
	err := dev.Ioctl(IOCTLVersion, unsafe.Pointer(version))
	if err != nil {
		return Version{}, &IoctlError{Op: "DRM_IOCTL_VERSION", Err: err}
	}

	if version.namelen > 0 {
		name = make([]byte, version.namelen+1)
		version.name = uintptr(unsafe.Pointer(&name[0]))
	}
	if version.datelen > 0 {
		date = make([]byte, version.datelen+1)
		version.date = uintptr(unsafe.Pointer(&date[0]))
	}
	if version.desclen > 0 {
		desc = make([]byte, version.desclen+1)
		version.desc = uintptr(unsafe.Pointer(&desc[0]))
	}

	err = dev.Ioctl(IOCTLVersion, unsafe.Pointer(version))
	if err != nil {
		return Version{}, &IoctlError{Op: "DRM_IOCTL_VERSION", Err: err}
	}

	// remove C null byte at end
	name = clip(name, version.namelen)
	date = clip(date, version.datelen)
	desc = clip(desc, version.desclen)

	nozero := func(r rune) bool { return r == 0 }

	return Version{
		Major: version.Major,
		Minor: version.Minor,
		Patch: version.Patch,
		Name:  string(bytes.TrimFunc(name, nozero)),
		Date:  string(bytes.TrimFunc(date, nozero)),
		Desc:  string(bytes.TrimFunc(desc, nozero)),
	}, nil
}

func clip(b []byte, n uint) []byte {
	if uint(len(b)) < n {
		return b
	}
	return b[:n]
}

func (v Version) String() string {
	return fmt.Sprintf("%s %d.%d.%d (%s)", v.Name, v.Major, v.Minor, v.Patch, v.Date)
}
