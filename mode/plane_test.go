package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeowayLabs/hwexer"
)

var testCrtcs = []*Crtc{{ID: 50, Index: 0}, {ID: 51, Index: 1}}

func TestSelectPlanePrefersPrimary(t *testing.T) {
	planes := []*Plane{
		{ID: 1, Type: PlaneOverlay, PossibleCrtcs: 0b01},
		{ID: 2, Type: PlanePrimary, PossibleCrtcs: 0b01},
	}
	plane, err := SelectPlane(planes, testCrtcs[0], testCrtcs)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), plane.ID)
}

func TestSelectPlaneOverlayFallback(t *testing.T) {
	planes := []*Plane{
		{ID: 1, Type: PlaneCursor, PossibleCrtcs: 0b11},
		{ID: 2, Type: PlanePrimary, PossibleCrtcs: 0b10},
		{ID: 3, Type: PlaneOverlay, PossibleCrtcs: 0b01},
		{ID: 4, Type: PlaneOverlay, PossibleCrtcs: 0b11},
	}
	plane, err := SelectPlane(planes, testCrtcs[0], testCrtcs)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), plane.ID, "first compatible overlay in enumeration order")
}

func TestSelectPlaneNeverCursor(t *testing.T) {
	planes := []*Plane{
		{ID: 1, Type: PlaneCursor, PossibleCrtcs: 0b01},
		{ID: 2, Type: PlanePrimary, PossibleCrtcs: 0b10},
	}
	_, err := SelectPlane(planes, testCrtcs[0], testCrtcs)
	assert.ErrorIs(t, err, hwexer.ErrNoCompatiblePlane)
}

func TestSelectPlaneDeterministic(t *testing.T) {
	planes := []*Plane{
		{ID: 5, Type: PlaneOverlay, PossibleCrtcs: 0b11},
		{ID: 6, Type: PlaneOverlay, PossibleCrtcs: 0b11},
		{ID: 7, Type: PlanePrimary, PossibleCrtcs: 0b10},
	}
	first, err := SelectPlane(planes, testCrtcs[1], testCrtcs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		plane, err := SelectPlane(planes, testCrtcs[1], testCrtcs)
		require.NoError(t, err)
		assert.Same(t, first, plane)
	}
	assert.Equal(t, uint32(7), first.ID)
}

func TestCompatibleCrtcs(t *testing.T) {
	crtcs := []*Crtc{{ID: 10, Index: 0}, {ID: 11, Index: 1}, {ID: 12, Index: 2}}

	got := CompatibleCrtcs(&Plane{PossibleCrtcs: 0b101}, crtcs)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(10), got[0].ID)
	assert.Equal(t, uint32(12), got[1].ID)

	assert.Empty(t, CompatibleCrtcs(&Plane{PossibleCrtcs: 0}, crtcs))
	assert.Empty(t, CompatibleCrtcs(&Plane{PossibleCrtcs: 0b1000}, crtcs))
}

func TestCompatiblePlanes(t *testing.T) {
	planes := []*Plane{
		{ID: 1, Type: PlaneOverlay, PossibleCrtcs: 0b11},
		{ID: 2, Type: PlanePrimary, PossibleCrtcs: 0b10},
		{ID: 3, Type: PlaneCursor, PossibleCrtcs: 0b01},
	}

	got := CompatiblePlanes(testCrtcs[0], planes)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(1), got[0].ID)
	assert.Equal(t, uint32(3), got[1].ID)

	got = CompatiblePlanes(testCrtcs[1], planes)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(2), got[1].ID)

	assert.Empty(t, CompatiblePlanes(&Crtc{ID: 99, Index: 40}, planes))
}

func TestSelectPlaneUnknownCrtc(t *testing.T) {
	planes := []*Plane{{ID: 1, Type: PlanePrimary, PossibleCrtcs: 0b11}}
	_, err := SelectPlane(planes, &Crtc{ID: 99, Index: 0}, testCrtcs)
	assert.EqualError(t, err, "crtc 99 is not one of the card's CRTCs")
}

func TestFilterFormat(t *testing.T) {
	planes := []*Plane{
		{ID: 1, Formats: []uint32{FormatXRGB8888.FourCC}},
		{ID: 2, Formats: []uint32{FormatXRGB8888.FourCC, FormatRGB888.FourCC}},
		{ID: 3},
	}
	got := FilterFormat(planes, FormatRGB888.FourCC)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(2), got[0].ID)
	assert.Equal(t, uint32(3), got[1].ID, "planes without a format list are kept")
}

func TestListPlanesUniversal(t *testing.T) {
	card := newFakeCard()

	overlays, err := ListPlanes(card)
	require.NoError(t, err)
	require.Len(t, overlays, 1, "only overlays without universal planes")
	assert.Equal(t, PlaneOverlay, overlays[0].Type)

	planes, err := ListPlanes(negotiated(card))
	require.NoError(t, err)
	require.Len(t, planes, 3)
	assert.Equal(t, []PlaneType{PlaneOverlay, PlanePrimary, PlaneCursor},
		[]PlaneType{planes[0].Type, planes[1].Type, planes[2].Type})
	assert.True(t, planes[1].Supports(FormatRGB888.FourCC))
	assert.False(t, planes[2].Supports(FormatRGB888.FourCC))
	assert.Equal(t, uint32(0b10), planes[1].PossibleCrtcs)
}

func TestPlaneTypeString(t *testing.T) {
	assert.Equal(t, "Primary", PlanePrimary.String())
	assert.Equal(t, "Overlay", PlaneOverlay.String())
	assert.Equal(t, "Cursor", PlaneCursor.String())
	assert.Equal(t, "PlaneType(7)", PlaneType(7).String())
}
