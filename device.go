package hwexer

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"launchpad.net/gommap"

	"github.com/NeowayLabs/hwexer/ioctl"
)

// Device owns one open file descriptor to a kernel device node. It is
// not safe for concurrent use.
type Device struct {
	file       *os.File
	path       string
	negotiated map[uint64]bool
}

// Open opens the device node at path for reading and writing.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceOpenError{Path: path, Err: err}
	}
	log.Debug().Str("path", path).Int("fd", fd).Msg("device opened")
	return &Device{
		file:       os.NewFile(uintptr(fd), path),
		path:       path,
		negotiated: make(map[uint64]bool),
	}, nil
}

// Path returns the node the handle was opened on.
func (d *Device) Path() string { return d.path }

// Fd returns the raw descriptor.
func (d *Device) Fd() uintptr { return d.file.Fd() }

// Ioctl issues a control call on the handle.
func (d *Device) Ioctl(req uint32, arg unsafe.Pointer) error {
	if d.file == nil {
		return ErrClosed
	}
	return ioctl.Do(d.file.Fd(), req, arg)
}

// Map maps size bytes of the device at offset, shared and writable.
func (d *Device) Map(offset uint64, size uint64) ([]byte, error) {
	if d.file == nil {
		return nil, ErrClosed
	}
	mmap, err := gommap.MapAt(0, d.file.Fd(), int64(offset), int64(size),
		gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes at 0x%x", size, offset)
	}
	return mmap, nil
}

// Unmap releases a mapping returned by Map.
func (d *Device) Unmap(b []byte) error {
	if err := gommap.MMap(b).UnsafeUnmap(); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}

// Write writes p to the device node.
func (d *Device) Write(p []byte) (int, error) {
	if d.file == nil {
		return 0, ErrClosed
	}
	return d.file.Write(p)
}

// Read reads from the device node.
func (d *Device) Read(p []byte) (int, error) {
	if d.file == nil {
		return 0, ErrClosed
	}
	return d.file.Read(p)
}

// Close releases the descriptor. Further calls on the handle fail with
// ErrClosed.
func (d *Device) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	log.Debug().Str("path", d.path).Msg("device closed")
	return err
}
