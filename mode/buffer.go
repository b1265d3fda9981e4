package mode

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hwexer"
)

type (
	sysCreateDumb struct {
		height uint32
		width  uint32
		bpp    uint32
		flags  uint32

		// returned values
		handle uint32
		pitch  uint32
		size   uint64
	}

	sysMapDumb struct {
		handle uint32
		pad    uint32
		offset uint64
	}

	sysDestroyDumb struct {
		handle uint32
	}
)

// Buffer is a kernel dumb buffer. The device chooses its pitch, which may
// be larger than Width times the pixel size.
type Buffer struct {
	card Card

	Width, Height uint32
	Format        Format
	Pitch         uint32
	Size          uint64
	Handle        uint32

	mapping   *Mapping
	pins      int // framebuffers referencing the buffer
	destroyed bool
}

// Mapping is the CPU view of a mapped buffer. It must be unmapped before
// the buffer is destroyed or registered as a framebuffer.
type Mapping struct {
	buf  *Buffer
	data []byte
}

// CreateBuffer allocates a width x height dumb buffer for format.
func CreateBuffer(card Card, width, height uint32, format Format) (*Buffer, error) {
	req := &sysCreateDumb{
		width:  width,
		height: height,
		bpp:    format.Bpp,
	}
	err := card.Ioctl(IOCTLModeCreateDumb, unsafe.Pointer(req))
	if err != nil {
		if errors.Is(err, unix.ENOMEM) || errors.Is(err, unix.ENOSPC) {
			return nil, &hwexer.OutOfVideoMemoryError{
				Width:  width,
				Height: height,
				Bpp:    format.Bpp,
				Err:    err,
			}
		}
		return nil, ioctlErr("MODE_CREATE_DUMB", err)
	}

	log.Debug().Uint32("handle", req.handle).Uint32("width", width).Uint32("height", height).
		Uint32("pitch", req.pitch).Uint64("size", req.size).Str("format", format.Name).
		Msg("dumb buffer created")

	return &Buffer{
		card:   card,
		Width:  width,
		Height: height,
		Format: format,
		Pitch:  req.pitch,
		Size:   req.size,
		Handle: req.handle,
	}, nil
}

// Mapped reports whether a mapping of the buffer is live.
func (b *Buffer) Mapped() bool { return b.mapping != nil }

// Map prepares the buffer for mapping and maps it into memory. Only one
// mapping may be live at a time.
func (b *Buffer) Map() (*Mapping, error) {
	if b.destroyed {
		return nil, hwexer.ErrBufferDestroyed
	}
	if b.mapping != nil {
		return nil, errors.Errorf("buffer %d already mapped", b.Handle)
	}

	req := &sysMapDumb{handle: b.Handle}
	if err := b.card.Ioctl(IOCTLModeMapDumb, unsafe.Pointer(req)); err != nil {
		return nil, ioctlErr("MODE_MAP_DUMB", err)
	}

	data, err := b.card.Map(req.offset, b.Size)
	if err != nil {
		return nil, err
	}
	b.mapping = &Mapping{buf: b, data: data}
	return b.mapping, nil
}

// Destroy frees the buffer. It refuses while the buffer is mapped or
// referenced by a framebuffer.
func (b *Buffer) Destroy() error {
	switch {
	case b.destroyed:
		return hwexer.ErrBufferDestroyed
	case b.mapping != nil:
		return errors.Wrapf(hwexer.ErrBufferStillMapped, "destroy buffer %d", b.Handle)
	case b.pins > 0:
		return errors.Wrapf(hwexer.ErrBufferInUse, "destroy buffer %d", b.Handle)
	}

	req := &sysDestroyDumb{handle: b.Handle}
	if err := b.card.Ioctl(IOCTLModeDestroyDumb, unsafe.Pointer(req)); err != nil {
		return ioctlErr("MODE_DESTROY_DUMB", err)
	}
	b.destroyed = true
	log.Debug().Uint32("handle", b.Handle).Msg("dumb buffer destroyed")
	return nil
}

// Release unmaps a mapping that is still live and destroys the buffer.
func (b *Buffer) Release() error {
	if b.mapping != nil {
		if err := b.mapping.Unmap(); err != nil {
			return errors.Wrapf(err, "unmap buffer %d", b.Handle)
		}
	}
	return b.Destroy()
}

// Bytes returns the mapped memory, nil after Unmap.
func (m *Mapping) Bytes() []byte { return m.data }

// Paint fills the buffer with the test gradient.
func (m *Mapping) Paint() error {
	if m.data == nil {
		return errors.New("paint on unmapped buffer")
	}
	b := m.buf
	return Paint(m.data, b.Width, b.Height, b.Pitch, b.Format)
}

// Unmap releases the mapping. Calling it again is a no-op.
func (m *Mapping) Unmap() error {
	if m.data == nil {
		return nil
	}
	if err := m.buf.card.Unmap(m.data); err != nil {
		return err
	}
	m.data = nil
	m.buf.mapping = nil
	return nil
}

// Paint writes the deterministic test gradient into pix: for row y and
// column x, red is ^y, green is x and blue is y, each truncated to a
// byte and stored in the byte order of format. Rows are pitch bytes
// apart and nothing at or beyond height*pitch is touched.
func Paint(pix []byte, width, height, pitch uint32, format Format) error {
	bpp := format.BytesPerPixel()
	if bpp < 3 {
		return errors.Errorf("cannot paint %s", format.Name)
	}
	if uint64(pitch) < uint64(width)*uint64(bpp) {
		return errors.Errorf("pitch %d too small for %d pixels of %s", pitch, width, format.Name)
	}
	total := uint64(height) * uint64(pitch)
	if uint64(len(pix)) < total {
		return errors.Errorf("buffer of %d bytes too small for %d rows of %d", len(pix), height, pitch)
	}
	pix = pix[:total]

	rowLen, size := offset(width, bpp), int(bpp)
	for y := uint32(0); y < height; y++ {
		start := offset(y, pitch)
		row := pix[start : start+rowLen]
		for x := uint32(0); x < width; x++ {
			px := row[offset(x, bpp) : offset(x, bpp)+size]
			px[format.R] = ^uint8(y)
			px[format.G] = uint8(x)
			px[format.B] = uint8(y)
		}
	}
	return nil
}

// offset is n units of size bytes, without wrapping at 4 GiB.
func offset(n, size uint32) int {
	return int(uint64(n) * uint64(size))
}
