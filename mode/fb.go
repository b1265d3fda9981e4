package mode

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

const (
	// FBModifiers tells ADDFB2 the modifier array is valid.
	FBModifiers = 1 << 1

	// ModifierLinear is DRM_FORMAT_MOD_LINEAR.
	ModifierLinear uint64 = 0
	// ModifierNone is DRM_FORMAT_MOD_INVALID: no modifier is passed and
	// the driver picks its default layout.
	ModifierNone uint64 = 0x00ffffffffffffff

	maxPlanes = 4
)

type sysFBCmd2 struct {
	fbID        uint32
	width       uint32
	height      uint32
	pixelFormat uint32
	flags       uint32

	handles [maxPlanes]uint32
	pitches [maxPlanes]uint32
	offsets [maxPlanes]uint32
	pad     uint32

	modifier [maxPlanes]uint64
}

// PlanarLayout describes a framebuffer as up to four memory planes. A
// packed format uses only the first one.
type PlanarLayout struct {
	Width, Height uint32
	Format        Format
	Modifier      uint64
	Pitches       [maxPlanes]uint32
	Offsets       [maxPlanes]uint32

	handles [maxPlanes]uint32
	planes  int
}

// NewPlanarLayout lays a single plane buffer out for ADDFB2.
func NewPlanarLayout(buf *Buffer) PlanarLayout {
	return PlanarLayout{
		Width:    buf.Width,
		Height:   buf.Height,
		Format:   buf.Format,
		Modifier: ModifierNone,
		Pitches:  [maxPlanes]uint32{buf.Pitch},
		handles:  [maxPlanes]uint32{buf.Handle},
		planes:   1,
	}
}

// Planes is the number of memory planes in use.
func (l PlanarLayout) Planes() int { return l.planes }

// Handle returns the buffer handle backing plane i. Unused planes report
// false.
func (l PlanarLayout) Handle(i int) (uint32, bool) {
	if i < 0 || i >= l.planes {
		return 0, false
	}
	return l.handles[i], true
}

func (l PlanarLayout) sys() *sysFBCmd2 {
	req := &sysFBCmd2{
		width:       l.Width,
		height:      l.Height,
		pixelFormat: l.Format.FourCC,
		pitches:     l.Pitches,
		offsets:     l.Offsets,
	}
	for i := 0; i < l.planes; i++ {
		req.handles[i] = l.handles[i]
	}
	if l.Modifier != ModifierNone {
		req.flags |= FBModifiers
		for i := 0; i < l.planes; i++ {
			req.modifier[i] = l.Modifier
		}
	}
	return req
}

// Framebuffer is a buffer registered for scan-out. It keeps the buffer
// from being destroyed until it is removed.
type Framebuffer struct {
	card   ioctl.Device
	buf    *Buffer
	ID     uint32
	Layout PlanarLayout

	removed bool
}

// AddFramebuffer registers buf with the card using layout. The buffer
// must be unmapped.
func AddFramebuffer(card ioctl.Device, layout PlanarLayout, buf *Buffer) (*Framebuffer, error) {
	if buf.destroyed {
		return nil, hwexer.ErrBufferDestroyed
	}
	if buf.mapping != nil {
		return nil, errors.Wrapf(hwexer.ErrBufferStillMapped, "add framebuffer for buffer %d", buf.Handle)
	}

	req := layout.sys()
	if err := card.Ioctl(IOCTLModeAddFB2, unsafe.Pointer(req)); err != nil {
		return nil, ioctlErr("MODE_ADDFB2", err)
	}
	buf.pins++

	log.Debug().Uint32("fb", req.fbID).Uint32("handle", buf.Handle).
		Str("format", FourCCString(layout.Format.FourCC)).Msg("framebuffer added")

	return &Framebuffer{
		card:   card,
		buf:    buf,
		ID:     req.fbID,
		Layout: layout,
	}, nil
}

// Remove unregisters the framebuffer and releases its buffer.
func (fb *Framebuffer) Remove() error {
	if fb.removed {
		return nil
	}
	id := fb.ID
	if err := fb.card.Ioctl(IOCTLModeRmFB, unsafe.Pointer(&id)); err != nil {
		return ioctlErr("MODE_RMFB", err)
	}
	fb.removed = true
	fb.buf.pins--
	log.Debug().Uint32("fb", fb.ID).Msg("framebuffer removed")
	return nil
}
