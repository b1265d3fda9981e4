// Package pwm talks to a PWM control node through its two ioctl
// requests: one reading and one writing a 32 bit value.
package pwm

import (
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

// Magic is the ioctl type character of the PWM driver.
const Magic = 'p'

const (
	CmdGet = "get"
	CmdSet = "set"
)

// Protocol holds the driver's requests. It is validated when the package
// is initialised.
var Protocol = ioctl.MustTable(
	ioctl.Command{
		Name:    CmdGet,
		Payload: "uint32",
		Code:    ioctl.Code{Dir: ioctl.Read, Size: 4, Type: Magic, Nr: 0x01},
		Want:    0x80047001, // _IOR('p', 0x01, uint32_t)
	},
	ioctl.Command{
		Name:    CmdSet,
		Payload: "uint32",
		Code:    ioctl.Code{Dir: ioctl.Write, Size: 4, Type: Magic, Nr: 0x02},
		Want:    0x40047002, // _IOW('p', 0x02, uint32_t)
	},
)

var (
	IOCTLGet = Protocol.MustLookup(CmdGet).Value()
	IOCTLSet = Protocol.MustLookup(CmdSet).Value()
)

// Read returns the current value of the PWM device.
func Read(dev ioctl.Device) (uint32, error) {
	var v uint32
	if err := dev.Ioctl(IOCTLGet, unsafe.Pointer(&v)); err != nil {
		return 0, &hwexer.IoctlError{Op: "PWM_GET", Err: err}
	}
	log.Debug().Uint32("value", v).Msg("pwm read")
	return v, nil
}

// Write sets the PWM device to v.
func Write(dev ioctl.Device, v uint32) error {
	if err := dev.Ioctl(IOCTLSet, unsafe.Pointer(&v)); err != nil {
		return &hwexer.IoctlError{Op: "PWM_SET", Err: err}
	}
	log.Debug().Uint32("value", v).Msg("pwm written")
	return nil
}
