package hwexer

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer/ioctl"
)

type (
	capability struct {
		capability uint64
		value      uint64
	}
)

const (
	CapDumbBuffer = iota + 1
	CapVBlankHighCRTC
	CapDumbPreferredDepth
	CapDumbPreferShadow
	CapPrime
	CapTimestampMonotonic
	CapAsyncPageFlip
	CapCursorWidth
	CapCursorHeight

	CapAddFB2Modifiers = 0x10
)

// Client capabilities a process can opt into with DRM_IOCTL_SET_CLIENT_CAP.
const (
	ClientCapStereo3D = iota + 1
	ClientCapUniversalPlanes
	ClientCapAtomic
	ClientCapAspectRatio
	ClientCapWritebackConnectors
)

var clientCapNames = map[uint64]string{
	ClientCapStereo3D:            "STEREO_3D",
	ClientCapUniversalPlanes:     "UNIVERSAL_PLANES",
	ClientCapAtomic:              "ATOMIC",
	ClientCapAspectRatio:         "ASPECT_RATIO",
	ClientCapWritebackConnectors: "WRITEBACK_CONNECTORS",
}

// ClientCapName returns the kernel name of a client capability.
func ClientCapName(c uint64) string {
	if n, ok := clientCapNames[c]; ok {
		return n
	}
	return fmt.Sprintf("cap(%d)", c)
}

// GetCap queries a driver capability.
func GetCap(dev ioctl.Device, c uint64) (uint64, error) {
	req := &capability{capability: c}
	if err := dev.Ioctl(IOCTLGetCap, unsafe.Pointer(req)); err != nil {
		return 0, &IoctlError{Op: "DRM_IOCTL_GET_CAP", Err: err}
	}
	return req.value, nil
}

func HasDumbBuffer(dev ioctl.Device) bool {
	val, err := GetCap(dev, CapDumbBuffer)
	if err != nil {
		return false
	}
	return val != 0
}

// Negotiator enables optional driver behaviour on a handle.
type Negotiator interface {
	Negotiate(c uint64, enabled bool) error
}

// Negotiate requests a client capability. Each capability is requested at
// most once per handle; a refusal is returned as
// *CapabilityUnsupportedError.
func (d *Device) Negotiate(c uint64, enabled bool) error {
	if d.negotiated[c] {
		return errors.Wrapf(ErrAlreadyNegotiated, "client cap %s", ClientCapName(c))
	}
	req := &capability{capability: c}
	if enabled {
		req.value = 1
	}
	if err := d.Ioctl(IOCTLSetClientCap, unsafe.Pointer(req)); err != nil {
		return &CapabilityUnsupportedError{Cap: c, Err: err}
	}
	d.negotiated[c] = true
	log.Debug().Str("path", d.path).Str("cap", ClientCapName(c)).Bool("enabled", enabled).
		Msg("client capability set")
	return nil
}

// Negotiated reports whether c was successfully requested on the handle.
func (d *Device) Negotiated(c uint64) bool { return d.negotiated[c] }

// NegotiateAtomic enables universal planes and then atomic mode setting,
// the order the kernel requires.
func NegotiateAtomic(n Negotiator) error {
	for _, c := range []uint64{ClientCapUniversalPlanes, ClientCapAtomic} {
		if err := n.Negotiate(c, true); err != nil {
			return err
		}
	}
	return nil
}
