package hwexer_test

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hwexer"
)

// drmVersion mirrors struct drm_version.
type drmVersion struct {
	major, minor, patch int32
	nameLen             uint
	name                uintptr
	dateLen             uint
	date                uintptr
	descLen             uint
	desc                uintptr
}

// fakeDriver answers DRM_IOCTL_VERSION and DRM_IOCTL_GET_CAP the way the
// kernel does.
type fakeDriver struct {
	name, date, desc string
	caps             map[uint64]uint64
}

func (f *fakeDriver) Ioctl(req uint32, arg unsafe.Pointer) error {
	switch req {
	case hwexer.IOCTLVersion:
		v := (*drmVersion)(arg)
		v.major, v.minor, v.patch = 1, 0, 0
		v.nameLen = fill(v.name, v.nameLen, f.name)
		v.dateLen = fill(v.date, v.dateLen, f.date)
		v.descLen = fill(v.desc, v.descLen, f.desc)
		return nil
	case hwexer.IOCTLGetCap:
		c := (*[2]uint64)(arg)
		val, ok := f.caps[c[0]]
		if !ok {
			return unix.EINVAL
		}
		c[1] = val
		return nil
	}
	return unix.ENOTTY
}

func fill(dst uintptr, n uint, s string) uint {
	if dst != 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), n), s)
	}
	return uint(len(s))
}

type recordingNegotiator struct {
	calls  []uint64
	refuse uint64
}

func (r *recordingNegotiator) Negotiate(c uint64, enabled bool) error {
	r.calls = append(r.calls, c)
	if c == r.refuse {
		return &hwexer.CapabilityUnsupportedError{Cap: c, Err: unix.EINVAL}
	}
	return nil
}
