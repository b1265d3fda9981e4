package ioctl

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Do issues one ioctl on fd. The returned error is the bare unix.Errno so
// callers can match it with errors.Is.
func Do(fd uintptr, req uint32, arg unsafe.Pointer) error {
	_, _, errcode := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errcode != 0 {
		return errcode
	}
	return nil
}
