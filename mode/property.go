package mode

import (
	"bytes"
	"fmt"
	"sort"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

// Kernel object types, as passed to DRM_IOCTL_MODE_OBJ_GETPROPERTIES.
const (
	ObjectCrtc      uint32 = 0xcccccccc
	ObjectConnector uint32 = 0xc0c0c0c0
	ObjectEncoder   uint32 = 0xe0e0e0e0
	ObjectMode      uint32 = 0xdededede
	ObjectProperty  uint32 = 0xb0b0b0b0
	ObjectFB        uint32 = 0xfbfbfbfb
	ObjectBlob      uint32 = 0xbbbbbbbb
	ObjectPlane     uint32 = 0xeeeeeeee
)

// Property flags.
const (
	PropPending   = 1 << 0
	PropRange     = 1 << 1
	PropImmutable = 1 << 2
	PropEnum      = 1 << 3
	PropBlob      = 1 << 4
	PropBitmask   = 1 << 5
)

// Properties each object must expose for a scan-out commit.
var (
	ConnectorProperties = []string{"CRTC_ID"}
	CrtcProperties      = []string{"MODE_ID", "ACTIVE"}
	PlaneProperties     = []string{
		"FB_ID", "CRTC_ID",
		"SRC_X", "SRC_Y", "SRC_W", "SRC_H",
		"CRTC_X", "CRTC_Y", "CRTC_W", "CRTC_H",
	}
)

// ObjectTypeName names a kernel object type for messages.
func ObjectTypeName(typ uint32) string {
	switch typ {
	case ObjectCrtc:
		return "crtc"
	case ObjectConnector:
		return "connector"
	case ObjectEncoder:
		return "encoder"
	case ObjectMode:
		return "mode"
	case ObjectProperty:
		return "property"
	case ObjectFB:
		return "framebuffer"
	case ObjectBlob:
		return "blob"
	case ObjectPlane:
		return "plane"
	}
	return fmt.Sprintf("object(0x%08x)", typ)
}

type (
	sysObjGetProperties struct {
		propsPtr      uint64
		propValuesPtr uint64
		countProps    uint32
		objID         uint32
		objType       uint32
		pad           uint32
	}

	sysGetProperty struct {
		valuesPtr      uint64
		enumBlobPtr    uint64
		propID         uint32
		flags          uint32
		name           [PropNameLen]byte
		countValues    uint32
		countEnumBlobs uint32
	}

	sysPropertyEnum struct {
		value uint64
		name  [PropNameLen]byte
	}

	PropertyEnum struct {
		Value uint64
		Name  string
	}

	// Property is the metadata of one kernel property.
	Property struct {
		ID     uint32
		Name   string
		Flags  uint32
		Values []uint64
		Enums  []PropertyEnum
	}
)

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// EnumValue returns the value of the named enum entry.
func (p *Property) EnumValue(name string) (uint64, bool) {
	for _, e := range p.Enums {
		if e.Name == name {
			return e.Value, true
		}
	}
	return 0, false
}

// GetObjectProperties returns the property ids attached to an object and
// their current values, in kernel order.
func GetObjectProperties(card ioctl.Device, obj, objType uint32) ([]uint32, []uint64, error) {
	op := fmt.Sprintf("MODE_OBJ_GETPROPERTIES(%s %d)", ObjectTypeName(objType), obj)
	for attempt := 0; attempt < maxEnumAttempts; attempt++ {
		req := &sysObjGetProperties{objID: obj, objType: objType}
		if err := card.Ioctl(IOCTLModeObjGetProperties, unsafe.Pointer(req)); err != nil {
			return nil, nil, ioctlErr(op, err)
		}
		count := req.countProps
		if count == 0 {
			return nil, nil, nil
		}

		props := make([]uint32, count)
		values := make([]uint64, count)
		req.propsPtr = slicePtr(props)
		req.propValuesPtr = slicePtr(values)
		if err := card.Ioctl(IOCTLModeObjGetProperties, unsafe.Pointer(req)); err != nil {
			return nil, nil, ioctlErr(op, err)
		}
		if req.countProps > count {
			continue
		}
		return props[:req.countProps], values[:req.countProps], nil
	}
	return nil, nil, errors.Errorf("%s: property list changed during enumeration", op)
}

// GetProperty fetches the name, flags, values and enum entries of a
// property.
func GetProperty(card ioctl.Device, id uint32) (*Property, error) {
	op := fmt.Sprintf("MODE_GETPROPERTY(%d)", id)
	req := &sysGetProperty{propID: id}
	if err := card.Ioctl(IOCTLModeGetProperty, unsafe.Pointer(req)); err != nil {
		return nil, ioctlErr(op, err)
	}

	var (
		values []uint64
		enums  []sysPropertyEnum
	)
	if req.countValues > 0 {
		values = make([]uint64, req.countValues)
		req.valuesPtr = slicePtr(values)
	}
	if req.flags&(PropEnum|PropBitmask) != 0 && req.countEnumBlobs > 0 {
		enums = make([]sysPropertyEnum, req.countEnumBlobs)
		req.enumBlobPtr = slicePtr(enums)
	} else {
		req.countEnumBlobs = 0
	}
	if req.valuesPtr != 0 || req.enumBlobPtr != 0 {
		if err := card.Ioctl(IOCTLModeGetProperty, unsafe.Pointer(req)); err != nil {
			return nil, ioctlErr(op, err)
		}
	}

	prop := &Property{
		ID:     req.propID,
		Name:   cstring(req.name[:]),
		Flags:  req.flags,
		Values: values[:min(int(req.countValues), len(values))],
	}
	for _, e := range enums[:min(int(req.countEnumBlobs), len(enums))] {
		prop.Enums = append(prop.Enums, PropertyEnum{Value: e.value, Name: cstring(e.name[:])})
	}
	return prop, nil
}

// PropertySet maps property names of one object to their handles, as
// resolved against one card.
type PropertySet struct {
	card   ioctl.Device
	Object uint32
	Type   uint32

	ids    map[string]uint32
	values map[string]uint64
}

// ID returns the handle of the named property.
func (s *PropertySet) ID(name string) (uint32, bool) {
	id, ok := s.ids[name]
	return id, ok
}

// Value returns the value the property had when it was resolved.
func (s *PropertySet) Value(name string) (uint64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the resolved property names, sorted.
func (s *PropertySet) Names() []string {
	names := make([]string, 0, len(s.ids))
	for n := range s.ids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResolveProperties reads the object's properties fresh from the card and
// returns them by name. If any of the required names is missing the
// result is a *hwexer.PropertyNotFoundError for the first of them and no
// set.
func ResolveProperties(card ioctl.Device, obj, objType uint32, required ...string) (*PropertySet, error) {
	ids, values, err := GetObjectProperties(card, obj, objType)
	if err != nil {
		return nil, err
	}

	set := &PropertySet{
		card:   card,
		Object: obj,
		Type:   objType,
		ids:    make(map[string]uint32, len(ids)),
		values: make(map[string]uint64, len(ids)),
	}
	for i, id := range ids {
		prop, err := GetProperty(card, id)
		if err != nil {
			return nil, err
		}
		set.ids[prop.Name] = id
		set.values[prop.Name] = values[i]
	}

	for _, name := range required {
		if _, ok := set.ids[name]; !ok {
			return nil, &hwexer.PropertyNotFoundError{
				Object: obj,
				Type:   ObjectTypeName(objType),
				Name:   name,
			}
		}
	}
	return set, nil
}
