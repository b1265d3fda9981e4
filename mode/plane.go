package mode

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

// PlaneType is the value of a plane's "type" property.
type PlaneType uint64

const (
	PlaneOverlay PlaneType = iota
	PlanePrimary
	PlaneCursor
)

func (t PlaneType) String() string {
	switch t {
	case PlaneOverlay:
		return "Overlay"
	case PlanePrimary:
		return "Primary"
	case PlaneCursor:
		return "Cursor"
	}
	return fmt.Sprintf("PlaneType(%d)", uint64(t))
}

type (
	sysPlaneRes struct {
		planeIDPtr  uint64
		countPlanes uint32
		pad         uint32
	}

	sysGetPlane struct {
		id            uint32
		crtcID        uint32
		fbID          uint32
		possibleCrtcs uint32
		gammaSize     uint32
		countFormats  uint32
		formatPtr     uint64
	}

	// Plane is a scan-out source a CRTC blends into its output.
	Plane struct {
		ID            uint32
		Type          PlaneType
		CrtcID        uint32 // CRTC currently attached, 0 = none
		FbID          uint32
		PossibleCrtcs uint32 // bit i set = usable with the CRTC at index i
		GammaSize     uint32
		Formats       []uint32
	}
)

// Supports reports whether the plane advertises the fourcc.
func (p *Plane) Supports(fourcc uint32) bool {
	for _, f := range p.Formats {
		if f == fourcc {
			return true
		}
	}
	return false
}

// GetPlaneResources lists the plane ids of the card. Without the
// universal planes client capability only overlays are listed.
func GetPlaneResources(card ioctl.Device) ([]uint32, error) {
	for attempt := 0; attempt < maxEnumAttempts; attempt++ {
		res := &sysPlaneRes{}
		if err := card.Ioctl(IOCTLModeGetPlaneResources, unsafe.Pointer(res)); err != nil {
			return nil, ioctlErr("MODE_GETPLANERESOURCES", err)
		}
		count := res.countPlanes
		if count == 0 {
			return nil, nil
		}
		ids := make([]uint32, count)
		res.planeIDPtr = slicePtr(ids)
		if err := card.Ioctl(IOCTLModeGetPlaneResources, unsafe.Pointer(res)); err != nil {
			return nil, ioctlErr("MODE_GETPLANERESOURCES", err)
		}
		if res.countPlanes > count {
			continue
		}
		return ids[:res.countPlanes], nil
	}
	return nil, errors.New("plane resources changed during enumeration")
}

// GetPlane fetches one plane. Its type is read from the "type" property.
func GetPlane(card ioctl.Device, id uint32) (*Plane, error) {
	op := fmt.Sprintf("MODE_GETPLANE(%d)", id)
	req := &sysGetPlane{id: id}
	if err := card.Ioctl(IOCTLModeGetPlane, unsafe.Pointer(req)); err != nil {
		return nil, ioctlErr(op, err)
	}

	var formats []uint32
	if req.countFormats > 0 {
		formats = make([]uint32, req.countFormats)
		req.formatPtr = slicePtr(formats)
		if err := card.Ioctl(IOCTLModeGetPlane, unsafe.Pointer(req)); err != nil {
			return nil, ioctlErr(op, err)
		}
	}

	plane := &Plane{
		ID:            req.id,
		CrtcID:        req.crtcID,
		FbID:          req.fbID,
		PossibleCrtcs: req.possibleCrtcs,
		GammaSize:     req.gammaSize,
		Formats:       formats[:min(int(req.countFormats), len(formats))],
	}

	props, err := ResolveProperties(card, id, ObjectPlane, "type")
	if err != nil {
		return nil, err
	}
	typ, _ := props.Value("type")
	plane.Type = PlaneType(typ)
	return plane, nil
}

// ListPlanes returns every plane of the card in enumeration order.
func ListPlanes(card ioctl.Device) ([]*Plane, error) {
	ids, err := GetPlaneResources(card)
	if err != nil {
		return nil, err
	}
	planes := make([]*Plane, 0, len(ids))
	for _, id := range ids {
		plane, err := GetPlane(card, id)
		if err != nil {
			return nil, err
		}
		planes = append(planes, plane)
	}
	return planes, nil
}

// CompatibleCrtcs returns the CRTCs the plane can be attached to.
func CompatibleCrtcs(plane *Plane, crtcs []*Crtc) []*Crtc {
	var out []*Crtc
	for _, crtc := range crtcs {
		if crtc.Index >= 0 && crtc.Index < 32 && plane.PossibleCrtcs&(1<<uint(crtc.Index)) != 0 {
			out = append(out, crtc)
		}
	}
	return out
}

// CompatiblePlanes returns the planes that can be attached to crtc, in
// enumeration order.
func CompatiblePlanes(crtc *Crtc, planes []*Plane) []*Plane {
	if crtc.Index < 0 || crtc.Index >= 32 {
		return nil
	}
	var out []*Plane
	for _, p := range planes {
		if p.PossibleCrtcs&(1<<uint(crtc.Index)) != 0 {
			out = append(out, p)
		}
	}
	return out
}

// FilterFormat drops the planes that advertise a format list without
// fourcc in it.
func FilterFormat(planes []*Plane, fourcc uint32) []*Plane {
	var out []*Plane
	for _, p := range planes {
		if len(p.Formats) == 0 || p.Supports(fourcc) {
			out = append(out, p)
		}
	}
	return out
}

// SelectPlane chooses the plane to scan out on crtc: a Primary plane
// compatible with it if there is one, otherwise the first compatible
// Overlay in enumeration order. Cursor planes are never chosen.
func SelectPlane(planes []*Plane, crtc *Crtc, crtcs []*Crtc) (*Plane, error) {
	var fallback *Plane
	if !drives(crtcs, crtc) {
		return nil, errors.Errorf("crtc %d is not one of the card's CRTCs", crtc.ID)
	}
	for _, p := range CompatiblePlanes(crtc, planes) {
		if p.Type == PlaneCursor {
			continue
		}
		if p.Type == PlanePrimary {
			return p, nil
		}
		if fallback == nil {
			fallback = p
		}
	}
	if fallback == nil {
		return nil, errors.Wrapf(hwexer.ErrNoCompatiblePlane, "crtc %d", crtc.ID)
	}
	log.Debug().Uint32("plane", fallback.ID).Uint32("crtc", crtc.ID).
		Msg("no primary plane for crtc, using overlay")
	return fallback, nil
}

func drives(crtcs []*Crtc, crtc *Crtc) bool {
	for _, c := range crtcs {
		if c.ID == crtc.ID {
			return true
		}
	}
	return false
}
