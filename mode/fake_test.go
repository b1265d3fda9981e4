package mode

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/hwexer"
)

// The fake card answers the mode setting ioctls the way the kernel does:
// counts are always reported, arrays are only filled when the caller's
// buffer is large enough.

type (
	fakeConnector struct {
		id, encoder, typ, typeID uint32
		connection               Connection
		modes                    []Info
		encoders                 []uint32
	}

	fakeEncoder struct {
		id, crtc, possibleCrtcs uint32
	}

	fakePlane struct {
		id, possibleCrtcs uint32
		typ               PlaneType
		formats           []uint32
	}

	fakeProp struct {
		name  string
		flags uint32
		enums []PropertyEnum
	}

	fakeDumb struct {
		width, height, pitch uint32
		data                 []byte
	}
)

type fakeCard struct {
	connectors []fakeConnector
	encoders   []fakeEncoder
	crtcs      []uint32
	planes     []fakePlane

	props    map[uint32]fakeProp
	objProps map[uint32][]uint32         // object -> attached property ids
	state    map[uint32]map[uint32]uint64 // object -> property -> value

	caps map[uint64]bool

	pitchAlign uint32
	vram       uint64
	nextHandle uint32
	dumbs      map[uint32]*fakeDumb
	mapped     int

	nextFB uint32
	fbs    map[uint32]sysFBCmd2

	nextBlob uint32
	blobs    map[uint32][]byte

	rejectCommit error
	commits      int
	testCommits  int
	lastAtomic   atomicCall // arrays of the last atomic request, as read

	beforeIoctl func(req uint32)
	hotplug     int // enumeration fills that see a new object first
	failUnmap   int // upcoming Unmap calls that fail
}

type atomicCall struct {
	objs, counts, props []uint32
	values              []uint64
}

const (
	propCrtcID uint32 = iota + 1
	propModeID
	propActive
	propFbID
	propSrcX
	propSrcY
	propSrcW
	propSrcH
	propCrtcX
	propCrtcY
	propCrtcW
	propCrtcH
	propType
	propDPMS
)

func mkMode(w, h uint16, refresh uint32, name string) Info {
	m := Info{Hdisplay: w, Vdisplay: h, Vrefresh: refresh, Htotal: w + 160, Vtotal: h + 45}
	copy(m.Name[:], name)
	return m
}

// newFakeCard builds a card with a disconnected and a connected
// connector, two CRTCs and an overlay, a primary and a cursor plane.
func newFakeCard() *fakeCard {
	f := &fakeCard{
		connectors: []fakeConnector{
			{id: 30, typ: 11, typeID: 1, connection: Disconnected, encoders: []uint32{40}},
			{id: 31, typ: 10, typeID: 1, connection: Connected, encoders: []uint32{41},
				modes: []Info{mkMode(1920, 1080, 60, "1920x1080"), mkMode(1280, 720, 60, "1280x720")}},
		},
		encoders: []fakeEncoder{
			{id: 40, possibleCrtcs: 0b11},
			{id: 41, possibleCrtcs: 0b10},
		},
		crtcs: []uint32{50, 51},
		planes: []fakePlane{
			{id: 60, typ: PlaneOverlay, possibleCrtcs: 0b11,
				formats: []uint32{FormatRGB888.FourCC, FormatXRGB8888.FourCC}},
			{id: 61, typ: PlanePrimary, possibleCrtcs: 0b10,
				formats: []uint32{FormatRGB888.FourCC, FormatXRGB8888.FourCC}},
			{id: 62, typ: PlaneCursor, possibleCrtcs: 0b11,
				formats: []uint32{FourCC('A', 'R', '2', '4')}},
		},
		props: map[uint32]fakeProp{
			propCrtcID: {name: "CRTC_ID"},
			propModeID: {name: "MODE_ID", flags: PropBlob},
			propActive: {name: "ACTIVE", flags: PropRange},
			propFbID:   {name: "FB_ID"},
			propSrcX:   {name: "SRC_X", flags: PropRange},
			propSrcY:   {name: "SRC_Y", flags: PropRange},
			propSrcW:   {name: "SRC_W", flags: PropRange},
			propSrcH:   {name: "SRC_H", flags: PropRange},
			propCrtcX:  {name: "CRTC_X", flags: PropRange},
			propCrtcY:  {name: "CRTC_Y", flags: PropRange},
			propCrtcW:  {name: "CRTC_W", flags: PropRange},
			propCrtcH:  {name: "CRTC_H", flags: PropRange},
			propType: {name: "type", flags: PropEnum | PropImmutable, enums: []PropertyEnum{
				{Value: 0, Name: "Overlay"}, {Value: 1, Name: "Primary"}, {Value: 2, Name: "Cursor"},
			}},
			propDPMS: {name: "DPMS", flags: PropEnum},
		},
		objProps:   make(map[uint32][]uint32),
		state:      make(map[uint32]map[uint32]uint64),
		caps:       make(map[uint64]bool),
		pitchAlign: 64,
		vram:       64 << 20,
		nextHandle: 1,
		dumbs:      make(map[uint32]*fakeDumb),
		nextFB:     100,
		fbs:        make(map[uint32]sysFBCmd2),
		nextBlob:   200,
		blobs:      make(map[uint32][]byte),
	}
	for _, c := range f.connectors {
		f.attach(c.id, propDPMS, 0)
		f.attach(c.id, propCrtcID, 0)
	}
	for _, id := range f.crtcs {
		f.attach(id, propActive, 0)
		f.attach(id, propModeID, 0)
	}
	planeProps := []uint32{
		propFbID, propCrtcID, propSrcX, propSrcY, propSrcW, propSrcH,
		propCrtcX, propCrtcY, propCrtcW, propCrtcH,
	}
	for _, p := range f.planes {
		f.attach(p.id, propType, uint64(p.typ))
		for _, prop := range planeProps {
			f.attach(p.id, prop, 0)
		}
	}
	return f
}

func (f *fakeCard) attach(obj, prop uint32, value uint64) {
	f.objProps[obj] = append(f.objProps[obj], prop)
	if f.state[obj] == nil {
		f.state[obj] = make(map[uint32]uint64)
	}
	f.state[obj][prop] = value
}

// grow makes the next enumeration fill see one more object, the way a
// hotplug between the count and the fill call does.
func (f *fakeCard) grow(add func()) {
	if f.hotplug > 0 {
		f.hotplug--
		add()
	}
}

func (f *fakeCard) plugConnector() {
	id := uint32(30 + len(f.connectors))
	f.connectors = append(f.connectors, fakeConnector{id: id, typ: 11, typeID: 2,
		connection: Disconnected, encoders: []uint32{40}})
	f.attach(id, propCrtcID, 0)
}

func (f *fakeCard) plugPlane() {
	id := uint32(60 + len(f.planes))
	f.planes = append(f.planes, fakePlane{id: id, typ: PlaneOverlay, possibleCrtcs: 0b01})
	f.attach(id, propType, uint64(PlaneOverlay))
}

func (f *fakeCard) plugProperty(obj uint32) {
	id := uint32(1000 + len(f.props))
	f.props[id] = fakeProp{name: fmt.Sprintf("HOTPLUG_%d", id), flags: PropRange}
	f.attach(obj, id, 0)
}

func (f *fakeCard) detach(obj, prop uint32) {
	ids := f.objProps[obj]
	for i, id := range ids {
		if id == prop {
			f.objProps[obj] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(f.state[obj], prop)
}

// snapshot copies the committed property state.
func (f *fakeCard) snapshot() map[uint32]map[uint32]uint64 {
	out := make(map[uint32]map[uint32]uint64, len(f.state))
	for obj, props := range f.state {
		out[obj] = make(map[uint32]uint64, len(props))
		for k, v := range props {
			out[obj][k] = v
		}
	}
	return out
}

func put[T any](ptr uint64, capacity uint32, vals []T) {
	if ptr == 0 || int(capacity) < len(vals) {
		return
	}
	copy(unsafe.Slice((*T)(unsafe.Pointer(uintptr(ptr))), len(vals)), vals)
}

func get[T any](ptr uint64, n uint32) []T {
	if ptr == 0 || n == 0 {
		return nil
	}
	return append([]T(nil), unsafe.Slice((*T)(unsafe.Pointer(uintptr(ptr))), n)...)
}

func (f *fakeCard) Ioctl(req uint32, arg unsafe.Pointer) error {
	if f.beforeIoctl != nil {
		f.beforeIoctl(req)
	}
	switch req {
	case hwexer.IOCTLSetClientCap:
		c := (*[2]uint64)(arg)
		if c[0] != hwexer.ClientCapUniversalPlanes && c[0] != hwexer.ClientCapAtomic {
			return unix.EINVAL
		}
		f.caps[c[0]] = c[1] != 0
		if c[0] == hwexer.ClientCapAtomic {
			f.caps[hwexer.ClientCapUniversalPlanes] = c[1] != 0
		}
		return nil

	case IOCTLModeResources:
		r := (*sysResources)(arg)
		if r.connectorIDPtr != 0 {
			f.grow(f.plugConnector)
		}
		ids := make([]uint32, len(f.connectors))
		for i, c := range f.connectors {
			ids[i] = c.id
		}
		encs := make([]uint32, len(f.encoders))
		for i, e := range f.encoders {
			encs[i] = e.id
		}
		var fbs []uint32
		for id := range f.fbs {
			fbs = append(fbs, id)
		}
		put(r.connectorIDPtr, r.CountConnectors, ids)
		put(r.encoderIDPtr, r.CountEncoders, encs)
		put(r.crtcIDPtr, r.CountCrtcs, f.crtcs)
		put(r.fbIDPtr, r.CountFbs, fbs)
		r.CountConnectors = uint32(len(ids))
		r.CountEncoders = uint32(len(encs))
		r.CountCrtcs = uint32(len(f.crtcs))
		r.CountFbs = uint32(len(fbs))
		r.MinWidth, r.MaxWidth, r.MinHeight, r.MaxHeight = 1, 8192, 1, 8192
		return nil

	case IOCTLModeGetConnector:
		r := (*sysGetConnector)(arg)
		for _, c := range f.connectors {
			if c.id != r.ID {
				continue
			}
			if r.propsPtr != 0 {
				f.grow(func() { f.plugProperty(c.id) })
			}
			props := f.objProps[c.id]
			values := make([]uint64, len(props))
			for i, p := range props {
				values[i] = f.state[c.id][p]
			}
			put(r.modesPtr, r.countModes, c.modes)
			put(r.encodersPtr, r.countEncoders, c.encoders)
			put(r.propsPtr, r.countProps, props)
			put(r.propValuesPtr, r.countProps, values)
			r.countModes = uint32(len(c.modes))
			r.countEncoders = uint32(len(c.encoders))
			r.countProps = uint32(len(props))
			r.encoderID = c.encoder
			r.connectorType = c.typ
			r.connectorTypeID = c.typeID
			r.connection = uint32(c.connection)
			r.mmWidth, r.mmHeight = 520, 290
			return nil
		}
		return unix.ENOENT

	case IOCTLModeGetEncoder:
		r := (*sysGetEncoder)(arg)
		for _, e := range f.encoders {
			if e.id == r.id {
				r.crtcID = e.crtc
				r.possibleCrtcs = e.possibleCrtcs
				r.typ = 2 // TMDS
				return nil
			}
		}
		return unix.ENOENT

	case IOCTLModeGetCrtc:
		r := (*sysCrtc)(arg)
		for _, id := range f.crtcs {
			if id == r.id {
				r.gammaSize = 256
				return nil
			}
		}
		return unix.ENOENT

	case IOCTLModeGetPlaneResources:
		r := (*sysPlaneRes)(arg)
		if r.planeIDPtr != 0 {
			f.grow(f.plugPlane)
		}
		var ids []uint32
		for _, p := range f.planes {
			// without universal planes the kernel only reports overlays
			if p.typ != PlaneOverlay && !f.caps[hwexer.ClientCapUniversalPlanes] {
				continue
			}
			ids = append(ids, p.id)
		}
		put(r.planeIDPtr, r.countPlanes, ids)
		r.countPlanes = uint32(len(ids))
		return nil

	case IOCTLModeGetPlane:
		r := (*sysGetPlane)(arg)
		for _, p := range f.planes {
			if p.id != r.id {
				continue
			}
			put(r.formatPtr, r.countFormats, p.formats)
			r.countFormats = uint32(len(p.formats))
			r.possibleCrtcs = p.possibleCrtcs
			r.crtcID = uint32(f.state[p.id][propCrtcID])
			r.fbID = uint32(f.state[p.id][propFbID])
			return nil
		}
		return unix.ENOENT

	case IOCTLModeObjGetProperties:
		r := (*sysObjGetProperties)(arg)
		if r.propsPtr != 0 {
			f.grow(func() { f.plugProperty(r.objID) })
		}
		props, ok := f.objProps[r.objID]
		if !ok {
			return unix.ENOENT
		}
		values := make([]uint64, len(props))
		for i, p := range props {
			values[i] = f.state[r.objID][p]
		}
		put(r.propsPtr, r.countProps, props)
		put(r.propValuesPtr, r.countProps, values)
		r.countProps = uint32(len(props))
		return nil

	case IOCTLModeGetProperty:
		r := (*sysGetProperty)(arg)
		p, ok := f.props[r.propID]
		if !ok {
			return unix.ENOENT
		}
		copy(r.name[:], p.name)
		r.flags = p.flags
		if len(p.enums) > 0 {
			values := make([]uint64, len(p.enums))
			enums := make([]sysPropertyEnum, len(p.enums))
			for i, e := range p.enums {
				values[i] = e.Value
				enums[i].value = e.Value
				copy(enums[i].name[:], e.Name)
			}
			put(r.valuesPtr, r.countValues, values)
			put(r.enumBlobPtr, r.countEnumBlobs, enums)
			r.countValues = uint32(len(values))
			r.countEnumBlobs = uint32(len(enums))
		} else if p.flags&PropRange != 0 {
			put(r.valuesPtr, r.countValues, []uint64{0, 1 << 32})
			r.countValues = 2
		}
		return nil

	case IOCTLModeCreateDumb:
		r := (*sysCreateDumb)(arg)
		if r.width == 0 || r.height == 0 || r.bpp == 0 {
			return unix.EINVAL
		}
		pitch := (r.width*((r.bpp+7)/8) + f.pitchAlign - 1) / f.pitchAlign * f.pitchAlign
		size := uint64(pitch) * uint64(r.height)
		if size > f.vram {
			return unix.ENOMEM
		}
		f.vram -= size
		r.handle = f.nextHandle
		r.pitch = pitch
		r.size = size
		f.dumbs[r.handle] = &fakeDumb{width: r.width, height: r.height, pitch: pitch, data: make([]byte, size)}
		f.nextHandle++
		return nil

	case IOCTLModeMapDumb:
		r := (*sysMapDumb)(arg)
		if _, ok := f.dumbs[r.handle]; !ok {
			return unix.ENOENT
		}
		r.offset = uint64(r.handle) << 32
		return nil

	case IOCTLModeDestroyDumb:
		r := (*sysDestroyDumb)(arg)
		d, ok := f.dumbs[r.handle]
		if !ok {
			return unix.ENOENT
		}
		f.vram += uint64(len(d.data))
		delete(f.dumbs, r.handle)
		return nil

	case IOCTLModeAddFB2:
		r := (*sysFBCmd2)(arg)
		d, ok := f.dumbs[r.handles[0]]
		if !ok {
			return unix.ENOENT
		}
		if r.width > d.width || r.height > d.height || r.pitches[0] < d.pitch {
			return unix.EINVAL
		}
		r.fbID = f.nextFB
		f.nextFB++
		f.fbs[r.fbID] = *r
		return nil

	case IOCTLModeRmFB:
		id := *(*uint32)(arg)
		if _, ok := f.fbs[id]; !ok {
			return unix.ENOENT
		}
		delete(f.fbs, id)
		// removing a framebuffer disables the planes showing it
		for _, p := range f.planes {
			if uint32(f.state[p.id][propFbID]) == id {
				f.state[p.id][propFbID] = 0
				f.state[p.id][propCrtcID] = 0
			}
		}
		return nil

	case IOCTLModeCreatePropBlob:
		r := (*sysCreateBlob)(arg)
		if r.length == 0 {
			return unix.EINVAL
		}
		r.blobID = f.nextBlob
		f.nextBlob++
		f.blobs[r.blobID] = get[byte](r.data, r.length)
		return nil

	case IOCTLModeDestroyPropBlob:
		r := (*sysDestroyBlob)(arg)
		if _, ok := f.blobs[r.blobID]; !ok {
			return unix.ENOENT
		}
		delete(f.blobs, r.blobID)
		return nil

	case IOCTLModeAtomic:
		return f.atomic((*sysAtomic)(arg))
	}
	return unix.ENOTTY
}

func (f *fakeCard) atomic(r *sysAtomic) error {
	if !f.caps[hwexer.ClientCapAtomic] {
		return unix.EOPNOTSUPP
	}
	if f.rejectCommit != nil {
		return f.rejectCommit
	}

	objs := get[uint32](r.objsPtr, r.countObjs)
	counts := get[uint32](r.countPropsPtr, r.countObjs)
	var total uint32
	for _, c := range counts {
		total += c
	}
	props := get[uint32](r.propsPtr, total)
	values := get[uint64](r.propValuesPtr, total)
	f.lastAtomic = atomicCall{objs: objs, counts: counts, props: props, values: values}

	// validate everything before applying anything
	next := f.snapshot()
	modeset := false
	n := 0
	for i, obj := range objs {
		attached, ok := f.objProps[obj]
		if !ok {
			return unix.ENOENT
		}
		for j := uint32(0); j < counts[i]; j++ {
			prop, value := props[n], values[n]
			n++
			if !contains(attached, prop) {
				return unix.EINVAL
			}
			switch prop {
			case propModeID:
				if _, ok := f.blobs[uint32(value)]; !ok && value != 0 {
					return unix.EINVAL
				}
				modeset = true
			case propActive:
				modeset = true
			case propFbID:
				if _, ok := f.fbs[uint32(value)]; !ok && value != 0 {
					return unix.EINVAL
				}
			}
			next[obj][prop] = value
		}
	}
	if modeset && r.flags&AtomicAllowModeset == 0 {
		return unix.EINVAL
	}

	if r.flags&AtomicTestOnly != 0 {
		f.testCommits++
		return nil
	}
	f.state = next
	f.commits++
	return nil
}

func contains(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (f *fakeCard) Map(offset uint64, size uint64) ([]byte, error) {
	d, ok := f.dumbs[uint32(offset>>32)]
	if !ok || size > uint64(len(d.data)) {
		return nil, unix.EINVAL
	}
	f.mapped++
	return d.data[:size], nil
}

func (f *fakeCard) Unmap(b []byte) error {
	if f.failUnmap > 0 {
		f.failUnmap--
		return unix.EIO
	}
	if f.mapped == 0 {
		return unix.EINVAL
	}
	f.mapped--
	return nil
}

// negotiated returns the fake with atomic mode setting enabled, the way
// hwexer.OpenDisplay leaves a real card.
func negotiated(f *fakeCard) *fakeCard {
	f.caps[hwexer.ClientCapUniversalPlanes] = true
	f.caps[hwexer.ClientCapAtomic] = true
	return f
}
