package mode

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

const (
	DisplayInfoLen   = 32
	ConnectorNameLen = 32
	DisplayModeLen   = 32
	PropNameLen      = 32

	// attempts at a consistent two-pass snapshot before giving up
	maxEnumAttempts = 3
)

// Card is an open display device handle: it takes ioctls and maps dumb
// buffers. *hwexer.Device implements it.
type Card interface {
	ioctl.Device
	Map(offset uint64, size uint64) ([]byte, error)
	Unmap(b []byte) error
}

type (
	sysResources struct {
		fbIDPtr              uint64
		crtcIDPtr            uint64
		connectorIDPtr       uint64
		encoderIDPtr         uint64
		CountFbs             uint32
		CountCrtcs           uint32
		CountConnectors      uint32
		CountEncoders        uint32
		MinWidth, MaxWidth   uint32
		MinHeight, MaxHeight uint32
	}

	sysGetConnector struct {
		encodersPtr   uint64
		modesPtr      uint64
		propsPtr      uint64
		propValuesPtr uint64

		countModes    uint32
		countProps    uint32
		countEncoders uint32

		encoderID       uint32 // current encoder
		ID              uint32
		connectorType   uint32
		connectorTypeID uint32

		connection        uint32
		mmWidth, mmHeight uint32 // HxW in millimeters
		subpixel          uint32
		pad               uint32
	}

	sysGetEncoder struct {
		id  uint32
		typ uint32

		crtcID uint32

		possibleCrtcs  uint32
		possibleClones uint32
	}

	// Info is struct drm_mode_modeinfo.
	Info struct {
		Clock                                         uint32
		Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew uint16
		Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan uint16

		Vrefresh uint32

		Flags uint32
		Type  uint32
		Name  [DisplayModeLen]uint8
	}

	Resources struct {
		sysResources

		Fbs        []uint32
		Crtcs      []uint32
		Connectors []uint32
		Encoders   []uint32
	}

	Connector struct {
		ID            uint32
		EncoderID     uint32
		Type          uint32
		TypeID        uint32
		Connection    Connection
		Width, Height uint32 // physical size in millimeters
		Subpixel      uint8

		Modes []Info

		Props      []uint32
		PropValues []uint64

		Encoders []uint32
	}

	Encoder struct {
		ID   uint32
		Type uint32

		CrtcID uint32

		PossibleCrtcs  uint32
		PossibleClones uint32
	}

	sysCrtc struct {
		setConnectorsPtr uint64
		countConnectors  uint32

		id   uint32
		fbID uint32 // Id of framebuffer

		x, y uint32 // Position on the frameuffer

		gammaSize uint32
		modeValid uint32
		mode      Info
	}

	Crtc struct {
		ID       uint32
		Index    int    // position in the resources list; bit in possible_crtcs masks
		BufferID uint32 // FB id to connect to 0 = disconnect

		X, Y          uint32 // Position on the framebuffer
		Width, Height uint32
		ModeValid     int
		Mode          Info

		GammaSize int // Number of gamma stops
	}
)

// Width is the horizontal resolution in pixels.
func (i Info) Width() uint32 { return uint32(i.Hdisplay) }

// Height is the vertical resolution in pixels.
func (i Info) Height() uint32 { return uint32(i.Vdisplay) }

// ModeName returns the mode name with the C padding removed.
func (i Info) ModeName() string {
	for n, b := range i.Name {
		if b == 0 {
			return string(i.Name[:n])
		}
	}
	return string(i.Name[:])
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d@%dHz", i.Hdisplay, i.Vdisplay, i.Vrefresh)
}

func slicePtr[T any](s []T) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s[0])))
}

func ioctlErr(op string, err error) error {
	return &hwexer.IoctlError{Op: op, Err: err}
}

func GetResources(card ioctl.Device) (*Resources, error) {
	for attempt := 0; attempt < maxEnumAttempts; attempt++ {
		mres := &sysResources{}
		err := card.Ioctl(IOCTLModeResources, unsafe.Pointer(mres))
		if err != nil {
			return nil, ioctlErr("MODE_GETRESOURCES", err)
		}
		counts := *mres

		var (
			fbids, crtcids, connectorids, encoderids []uint32
		)

		if mres.CountFbs > 0 {
			fbids = make([]uint32, mres.CountFbs)
			mres.fbIDPtr = slicePtr(fbids)
		}
		if mres.CountCrtcs > 0 {
			crtcids = make([]uint32, mres.CountCrtcs)
			mres.crtcIDPtr = slicePtr(crtcids)
		}
		if mres.CountEncoders > 0 {
			encoderids = make([]uint32, mres.CountEncoders)
			mres.encoderIDPtr = slicePtr(encoderids)
		}
		if mres.CountConnectors > 0 {
			connectorids = make([]uint32, mres.CountConnectors)
			mres.connectorIDPtr = slicePtr(connectorids)
		}

		err = card.Ioctl(IOCTLModeResources, unsafe.Pointer(mres))
		if err != nil {
			return nil, ioctlErr("MODE_GETRESOURCES", err)
		}

		// an object appeared between the two calls (hotplug): start over
		if mres.CountFbs > counts.CountFbs || mres.CountCrtcs > counts.CountCrtcs ||
			mres.CountConnectors > counts.CountConnectors || mres.CountEncoders > counts.CountEncoders {
			continue
		}

		return &Resources{
			sysResources: *mres,
			Fbs:          fbids[:mres.CountFbs],
			Crtcs:        crtcids[:mres.CountCrtcs],
			Encoders:     encoderids[:mres.CountEncoders],
			Connectors:   connectorids[:mres.CountConnectors],
		}, nil
	}
	return nil, errors.New("display resources changed during enumeration")
}

func GetConnector(card ioctl.Device, connid uint32) (*Connector, error) {
	for attempt := 0; attempt < maxEnumAttempts; attempt++ {
		conn := &sysGetConnector{}
		conn.ID = connid
		err := card.Ioctl(IOCTLModeGetConnector, unsafe.Pointer(conn))
		if err != nil {
			return nil, ioctlErr(fmt.Sprintf("MODE_GETCONNECTOR(%d)", connid), err)
		}
		counts := *conn

		var (
			props, encoders []uint32
			propValues      []uint64
			modes           []Info
		)

		if conn.countProps > 0 {
			props = make([]uint32, conn.countProps)
			conn.propsPtr = slicePtr(props)

			propValues = make([]uint64, conn.countProps)
			conn.propValuesPtr = slicePtr(propValues)
		}
		if conn.countModes > 0 {
			modes = make([]Info, conn.countModes)
			conn.modesPtr = slicePtr(modes)
		}
		if conn.countEncoders > 0 {
			encoders = make([]uint32, conn.countEncoders)
			conn.encodersPtr = slicePtr(encoders)
		}

		err = card.Ioctl(IOCTLModeGetConnector, unsafe.Pointer(conn))
		if err != nil {
			return nil, ioctlErr(fmt.Sprintf("MODE_GETCONNECTOR(%d)", connid), err)
		}

		if conn.countProps > counts.countProps || conn.countModes > counts.countModes ||
			conn.countEncoders > counts.countEncoders {
			continue
		}

		return &Connector{
			ID:         conn.ID,
			EncoderID:  conn.encoderID,
			Connection: Connection(conn.connection),
			Width:      conn.mmWidth,
			Height:     conn.mmHeight,

			// convert subpixel from kernel to userspace
			Subpixel: uint8(conn.subpixel + 1),
			Type:     conn.connectorType,
			TypeID:   conn.connectorTypeID,

			Props:      props[:conn.countProps],
			PropValues: propValues[:conn.countProps],
			Modes:      modes[:conn.countModes],
			Encoders:   encoders[:conn.countEncoders],
		}, nil
	}
	return nil, errors.Errorf("connector %d changed during enumeration", connid)
}

func GetEncoder(card ioctl.Device, id uint32) (*Encoder, error) {
	encoder := &sysGetEncoder{}
	encoder.id = id

	err := card.Ioctl(IOCTLModeGetEncoder, unsafe.Pointer(encoder))
	if err != nil {
		return nil, ioctlErr(fmt.Sprintf("MODE_GETENCODER(%d)", id), err)
	}

	return &Encoder{
		ID:             encoder.id,
		CrtcID:         encoder.crtcID,
		Type:           encoder.typ,
		PossibleCrtcs:  encoder.possibleCrtcs,
		PossibleClones: encoder.possibleClones,
	}, nil
}

func GetCrtc(card ioctl.Device, id uint32) (*Crtc, error) {
	crtc := &sysCrtc{}
	crtc.id = id
	err := card.Ioctl(IOCTLModeGetCrtc, unsafe.Pointer(crtc))
	if err != nil {
		return nil, ioctlErr(fmt.Sprintf("MODE_GETCRTC(%d)", id), err)
	}
	ret := &Crtc{
		ID:        crtc.id,
		X:         crtc.x,
		Y:         crtc.y,
		ModeValid: int(crtc.modeValid),
		BufferID:  crtc.fbID,
		GammaSize: int(crtc.gammaSize),
	}

	ret.Mode = crtc.mode
	ret.Width = uint32(crtc.mode.Hdisplay)
	ret.Height = uint32(crtc.mode.Vdisplay)
	return ret, nil
}
