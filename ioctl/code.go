package ioctl

import (
	"fmt"

	"github.com/pkg/errors"
)

// To decode a hex IOCTL code:
//
// Most architectures use this generic format, but check
// include/ARCH/ioctl.h for specifics, e.g. powerpc
// uses 3 bits to encode read/write and 13 bits for size.
//
//	bits    meaning
//	31-30	00 - no parameters: uses _IO macro
//		10 - read: _IOR
//		01 - write: _IOW
//		11 - read/write: _IOWR
//
//	29-16	size of arguments
//
//	15-8	ascii character supposedly
//		unique to each driver
//
//	7-0	function #
//
// So for example 0x82187201 is a read with arg length of 0x218,
// character 'r' function 1. Grepping the source reveals this is:
//
// #define VFAT_IOCTL_READDIR_BOTH         _IOR('r', 1, struct dirent [2])
// source: https://www.kernel.org/doc/Documentation/ioctl/ioctl-decoding.txt

const (
	None  = uint8(0x0)
	Write = uint8(0x1)
	Read  = uint8(0x2)
)

const (
	nrShift   = 0
	typeShift = 8
	sizeShift = 16
	dirShift  = 30

	// MaxSize is the largest argument size the 14 bit size field can hold.
	MaxSize = 1<<14 - 1
)

// Code is the decoded form of an ioctl request number.
type Code struct {
	Dir  uint8  // direction of the transfer (read, write, both or none)
	Size uint16 // size of arguments (only 14bits usable)
	Type uint8  // unique ascii character for this device
	Nr   uint8  // function code
}

// NewCode encodes an ioctl request number. It panics on values that do
// not fit the encoding, so it is only meant for package level tables.
func NewCode(typ uint8, sz uint16, uniq, fn uint8) uint32 {
	c := Code{Dir: typ, Size: sz, Type: uniq, Nr: fn}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c.Value()
}

// Decode splits a request number into its fields.
func Decode(code uint32) Code {
	return Code{
		Dir:  uint8(code >> dirShift & 0x3),
		Size: uint16(code >> sizeShift & MaxSize),
		Type: uint8(code >> typeShift),
		Nr:   uint8(code >> nrShift),
	}
}

// Validate reports whether the fields fit the generic encoding.
func (c Code) Validate() error {
	if c.Dir > Write|Read {
		return errors.Errorf("invalid ioctl direction: %d", c.Dir)
	}
	if c.Size > MaxSize {
		return errors.Errorf("invalid ioctl size value: %d", c.Size)
	}
	if c.Dir == None && c.Size != 0 {
		return errors.Errorf("ioctl without transfer carries size %d", c.Size)
	}
	if c.Dir != None && c.Size == 0 {
		return errors.New("ioctl with transfer has no payload")
	}
	return nil
}

// Value returns the encoded request number.
func (c Code) Value() uint32 {
	var code uint32
	code |= uint32(c.Dir) << dirShift
	code |= uint32(c.Size) << sizeShift
	code |= uint32(c.Type) << typeShift
	code |= uint32(c.Nr) << nrShift
	return code
}

func (c Code) String() string {
	macro := "_IO"
	switch c.Dir {
	case Read:
		macro = "_IOR"
	case Write:
		macro = "_IOW"
	case Read | Write:
		macro = "_IOWR"
	}
	if c.Dir == None {
		return fmt.Sprintf("%s(%q, 0x%02x)", macro, rune(c.Type), c.Nr)
	}
	return fmt.Sprintf("%s(%q, 0x%02x, %d)", macro, rune(c.Type), c.Nr, c.Size)
}
