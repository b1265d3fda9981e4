package ioctl

import "unsafe"

// Device accepts ioctl requests. Implementations own a file descriptor
// and are not safe for concurrent use.
type Device interface {
	Ioctl(req uint32, arg unsafe.Pointer) error
}
