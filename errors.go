package hwexer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoDisplayAttached is returned when no connector reports a
	// connected sink.
	ErrNoDisplayAttached = errors.New("no display attached")

	// ErrNoModeAvailable is returned for a connector without modes.
	ErrNoModeAvailable = errors.New("no display mode available")

	// ErrNoCrtc is returned when no CRTC can drive the chosen connector.
	ErrNoCrtc = errors.New("no CRTC available for connector")

	// ErrNoCompatiblePlane is returned when no plane can be attached to
	// the chosen CRTC.
	ErrNoCompatiblePlane = errors.New("no plane compatible with CRTC")

	// ErrBufferStillMapped is returned when a buffer is destroyed or
	// registered while a mapping of it is outstanding.
	ErrBufferStillMapped = errors.New("buffer still mapped")

	// ErrBufferInUse is returned when a buffer is destroyed while a
	// framebuffer still references it.
	ErrBufferInUse = errors.New("buffer referenced by a framebuffer")

	// ErrBufferDestroyed is returned for any use of a destroyed buffer.
	ErrBufferDestroyed = errors.New("buffer already destroyed")

	// ErrAlreadyNegotiated is returned when a client capability is
	// requested a second time on the same handle.
	ErrAlreadyNegotiated = errors.New("capability already negotiated on this handle")

	// ErrCrossDevice is returned when property handles resolved on one
	// device are used in a request for another.
	ErrCrossDevice = errors.New("property handles belong to another device")

	// ErrClosed is returned for any use of a closed device handle.
	ErrClosed = errors.New("device handle closed")
)

// DeviceOpenError reports a device node that could not be opened.
type DeviceOpenError struct {
	Path string
	Err  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// CapabilityUnsupportedError reports a client capability the driver
// refused to enable.
type CapabilityUnsupportedError struct {
	Cap uint64
	Err error
}

func (e *CapabilityUnsupportedError) Error() string {
	return fmt.Sprintf("driver rejected client capability %s: %v", ClientCapName(e.Cap), e.Err)
}

func (e *CapabilityUnsupportedError) Unwrap() error { return e.Err }

// OutOfVideoMemoryError reports a buffer allocation the device could not
// satisfy.
type OutOfVideoMemoryError struct {
	Width, Height, Bpp uint32
	Err                error
}

func (e *OutOfVideoMemoryError) Error() string {
	return fmt.Sprintf("out of video memory allocating %dx%d@%dbpp: %v",
		e.Width, e.Height, e.Bpp, e.Err)
}

func (e *OutOfVideoMemoryError) Unwrap() error { return e.Err }

// PropertyNotFoundError reports a required property missing on a kernel
// object.
type PropertyNotFoundError struct {
	Object uint32
	Type   string
	Name   string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("%s %d has no property %q", e.Type, e.Object, e.Name)
}

// CommitError carries the kernel's refusal of an atomic commit.
type CommitError struct {
	Flags uint32
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("atomic commit (flags 0x%x) rejected: %v", e.Flags, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// IoctlError carries the errno of a failed control call.
type IoctlError struct {
	Op  string
	Err error
}

func (e *IoctlError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IoctlError) Unwrap() error { return e.Err }
