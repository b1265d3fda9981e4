package pwm_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
	"github.com/NeowayLabs/hwexer/pwm"
)

// register behaves like the driver: set stores, get returns the store.
type register struct {
	value uint32
	reqs  []uint32
	fail  error
}

func (r *register) Ioctl(req uint32, arg unsafe.Pointer) error {
	r.reqs = append(r.reqs, req)
	if r.fail != nil {
		return r.fail
	}
	switch req {
	case 0x40047002:
		r.value = *(*uint32)(arg)
	case 0x80047001:
		*(*uint32)(arg) = r.value
	default:
		return unix.ENOTTY
	}
	return nil
}

func TestProtocolCodes(t *testing.T) {
	assert.Equal(t, uint32(0x80047001), pwm.IOCTLGet)
	assert.Equal(t, uint32(0x40047002), pwm.IOCTLSet)

	get := ioctl.Decode(pwm.IOCTLGet)
	assert.Equal(t, ioctl.Read, get.Dir)
	assert.Equal(t, uint16(4), get.Size)
	assert.Equal(t, uint8('p'), get.Type)
	assert.Equal(t, uint8(1), get.Nr)

	name, ok := pwm.Protocol.Name(0x40047002)
	assert.True(t, ok)
	assert.Equal(t, pwm.CmdSet, name)

	cmds := pwm.Protocol.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "get _IOR('p', 0x01, 4)", cmds[0].String())
	assert.Equal(t, "set _IOW('p', 0x02, 4)", cmds[1].String())
}

func TestProtocolRejectsMismatch(t *testing.T) {
	_, err := ioctl.NewTable(ioctl.Command{
		Name: "get",
		Code: ioctl.Code{Dir: ioctl.Read, Size: 4, Type: 'p', Nr: 0x01},
		Want: 0x40047001,
	})
	assert.Error(t, err)
}

func TestWriteThenRead(t *testing.T) {
	for _, v := range []uint32{0, 1, 50, 0x7fffffff, 0xDEADBEEF, 0xffffffff} {
		dev := &register{}
		require.NoError(t, pwm.Write(dev, v))
		got, err := pwm.Read(dev)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, []uint32{0x40047002, 0x80047001}, dev.reqs)
	}
}

func TestIoctlFailure(t *testing.T) {
	dev := &register{fail: unix.ENODEV}

	_, err := pwm.Read(dev)
	var ioErr *hwexer.IoctlError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "PWM_GET", ioErr.Op)
	assert.ErrorIs(t, err, unix.ENODEV)

	err = pwm.Write(dev, 1)
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "PWM_SET", ioErr.Op)
	assert.ErrorIs(t, err, unix.ENODEV)
}

func TestNotAPWMDevice(t *testing.T) {
	dev, err := hwexer.Open("/dev/null")
	require.NoError(t, err)
	defer dev.Close()

	_, err = pwm.Read(dev)
	assert.ErrorIs(t, err, unix.ENOTTY)
}
