package mode

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

// Atomic commit flags.
const (
	AtomicPageFlipEvent = 0x0001
	AtomicTestOnly      = 0x0100
	AtomicNonblock      = 0x0200
	AtomicAllowModeset  = 0x0400
)

type (
	sysAtomic struct {
		flags         uint32
		countObjs     uint32
		objsPtr       uint64
		countPropsPtr uint64
		propsPtr      uint64
		propValuesPtr uint64
		reserved      uint64
		userData      uint64
	}

	sysCreateBlob struct {
		data   uint64
		length uint32
		blobID uint32
	}

	sysDestroyBlob struct {
		blobID uint32
	}
)

type atomicObject struct {
	id     uint32
	props  []uint32
	values []uint64
}

// AtomicRequest accumulates property assignments for one card and submits
// them as a single all-or-nothing commit. Objects and their properties
// keep the order they were first set in.
type AtomicRequest struct {
	card ioctl.Device
	objs []*atomicObject
}

func NewAtomicRequest(card ioctl.Device) *AtomicRequest {
	return &AtomicRequest{card: card}
}

func (r *AtomicRequest) object(id uint32) *atomicObject {
	for _, o := range r.objs {
		if o.id == id {
			return o
		}
	}
	o := &atomicObject{id: id}
	r.objs = append(r.objs, o)
	return o
}

// Add assigns value to the property prop of object obj. Assigning the
// same property again replaces the earlier value.
func (r *AtomicRequest) Add(obj, prop uint32, value uint64) {
	o := r.object(obj)
	for i, p := range o.props {
		if p == prop {
			o.values[i] = value
			return
		}
	}
	o.props = append(o.props, prop)
	o.values = append(o.values, value)
}

// Set assigns value to the named property of the object set describes.
// The set must have been resolved against the request's card.
func (r *AtomicRequest) Set(set *PropertySet, name string, value uint64) error {
	if set.card != r.card {
		return errors.Wrapf(hwexer.ErrCrossDevice, "%s %d", ObjectTypeName(set.Type), set.Object)
	}
	id, ok := set.ID(name)
	if !ok {
		return &hwexer.PropertyNotFoundError{
			Object: set.Object,
			Type:   ObjectTypeName(set.Type),
			Name:   name,
		}
	}
	r.Add(set.Object, id, value)
	return nil
}

// Get returns the value assigned to prop of obj.
func (r *AtomicRequest) Get(obj, prop uint32) (uint64, bool) {
	for _, o := range r.objs {
		if o.id != obj {
			continue
		}
		for i, p := range o.props {
			if p == prop {
				return o.values[i], true
			}
		}
	}
	return 0, false
}

// Merge copies the assignments of other into r, other's values winning.
// Both requests must target the same card.
func (r *AtomicRequest) Merge(other *AtomicRequest) error {
	if other.card != r.card {
		return hwexer.ErrCrossDevice
	}
	for _, o := range other.objs {
		for i, p := range o.props {
			r.Add(o.id, p, o.values[i])
		}
	}
	return nil
}

// Len is the number of property assignments in the request.
func (r *AtomicRequest) Len() int {
	n := 0
	for _, o := range r.objs {
		n += len(o.props)
	}
	return n
}

// Objects returns the object ids in the order they were first set.
func (r *AtomicRequest) Objects() []uint32 {
	ids := make([]uint32, len(r.objs))
	for i, o := range r.objs {
		ids[i] = o.id
	}
	return ids
}

// Commit submits the request once. A refusal is returned as
// *hwexer.CommitError carrying the kernel errno, and the request is left
// as it was.
func (r *AtomicRequest) Commit(flags uint32) error {
	var (
		objs   = make([]uint32, 0, len(r.objs))
		counts = make([]uint32, 0, len(r.objs))
		props  = make([]uint32, 0, r.Len())
		values = make([]uint64, 0, r.Len())
	)
	for _, o := range r.objs {
		objs = append(objs, o.id)
		counts = append(counts, uint32(len(o.props)))
		props = append(props, o.props...)
		values = append(values, o.values...)
	}

	req := &sysAtomic{
		flags:         flags,
		countObjs:     uint32(len(objs)),
		objsPtr:       slicePtr(objs),
		countPropsPtr: slicePtr(counts),
		propsPtr:      slicePtr(props),
		propValuesPtr: slicePtr(values),
	}
	err := r.card.Ioctl(IOCTLModeAtomic, unsafe.Pointer(req))
	// the kernel only sees the arrays through req's integer fields
	runtime.KeepAlive(objs)
	runtime.KeepAlive(counts)
	runtime.KeepAlive(props)
	runtime.KeepAlive(values)
	if err != nil {
		log.Debug().Err(err).Uint32("flags", flags).Int("objects", len(objs)).
			Msg("atomic commit rejected")
		return &hwexer.CommitError{Flags: flags, Err: err}
	}
	log.Debug().Uint32("flags", flags).Int("objects", len(objs)).Int("properties", len(props)).
		Msg("atomic commit applied")
	return nil
}

// Blob is a kernel property blob.
type Blob struct {
	card ioctl.Device
	ID   uint32

	destroyed bool
}

// CreatePropertyBlob copies data into a new kernel blob.
func CreatePropertyBlob(card ioctl.Device, data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, errors.New("empty property blob")
	}
	req := &sysCreateBlob{
		data:   slicePtr(data),
		length: uint32(len(data)),
	}
	err := card.Ioctl(IOCTLModeCreatePropBlob, unsafe.Pointer(req))
	runtime.KeepAlive(data)
	if err != nil {
		return nil, ioctlErr("MODE_CREATEPROPBLOB", err)
	}
	return &Blob{card: card, ID: req.blobID}, nil
}

// CreateModeBlob stores mode in a blob suitable for a CRTC's MODE_ID.
func CreateModeBlob(card ioctl.Device, mode Info) (*Blob, error) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(&mode)), unsafe.Sizeof(mode))
	blob, err := CreatePropertyBlob(card, data)
	if err != nil {
		return nil, errors.Wrapf(err, "mode %s", mode)
	}
	log.Debug().Uint32("blob", blob.ID).Stringer("mode", mode).Msg("mode blob created")
	return blob, nil
}

// Destroy releases the blob. Calling it again is a no-op.
func (b *Blob) Destroy() error {
	if b.destroyed {
		return nil
	}
	req := &sysDestroyBlob{blobID: b.ID}
	if err := b.card.Ioctl(IOCTLModeDestroyPropBlob, unsafe.Pointer(req)); err != nil {
		return ioctlErr(fmt.Sprintf("MODE_DESTROYPROPBLOB(%d)", b.ID), err)
	}
	b.destroyed = true
	return nil
}

// ScanoutTarget names everything a single plane scan-out commit ties
// together.
type ScanoutTarget struct {
	Connector, Crtc, Plane *PropertySet

	Framebuffer   uint32
	ModeBlob      uint32
	Width, Height uint32
}

// BuildScanout assembles the commit that routes the connector to the
// CRTC, activates the CRTC with the mode blob and shows the framebuffer
// full screen on the plane.
func BuildScanout(card ioctl.Device, t ScanoutTarget) (*AtomicRequest, error) {
	crtc := uint64(t.Crtc.Object)
	w, h := uint64(t.Width), uint64(t.Height)

	steps := []struct {
		set   *PropertySet
		name  string
		value uint64
	}{
		{t.Connector, "CRTC_ID", crtc},

		{t.Crtc, "MODE_ID", uint64(t.ModeBlob)},
		{t.Crtc, "ACTIVE", 1},

		{t.Plane, "FB_ID", uint64(t.Framebuffer)},
		{t.Plane, "CRTC_ID", crtc},
		// source rectangle is 16.16 fixed point
		{t.Plane, "SRC_X", 0},
		{t.Plane, "SRC_Y", 0},
		{t.Plane, "SRC_W", w << 16},
		{t.Plane, "SRC_H", h << 16},
		{t.Plane, "CRTC_X", 0},
		{t.Plane, "CRTC_Y", 0},
		{t.Plane, "CRTC_W", w},
		{t.Plane, "CRTC_H", h},
	}

	req := NewAtomicRequest(card)
	for _, s := range steps {
		if err := req.Set(s.set, s.name, s.value); err != nil {
			return nil, err
		}
	}
	return req, nil
}
