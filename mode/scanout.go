package mode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// Signaler brackets a hardware run, eg.: by driving a GPIO line a scope
// can trigger on. gpio.Line and gpio.Nop implement it; mode does not
// import gpio so the display path builds without the GPIO stack.
type Signaler interface {
	Start() error
	End() error
}

type nopSignaler struct{}

func (nopSignaler) Start() error { return nil }
func (nopSignaler) End() error   { return nil }

// Scanout shows the test pattern on the first connected display: it
// selects a connector, mode, CRTC and plane, paints a buffer and commits
// it atomically, holds it on screen and tears everything down again.
type Scanout struct {
	Card   Card
	Format Format
	Hold   time.Duration
	Signal Signaler
	Flags  uint32 // extra commit flags, eg.: AtomicTestOnly
}

// Result describes what a scan-out run used.
type Result struct {
	Connector   *Connector
	Crtc        *Crtc
	Plane       *Plane
	Mode        Info
	Format      Format
	Pitch       uint32
	Size        uint64
	Framebuffer uint32
	TestOnly    bool
}

func (r *Result) String() string {
	what := "displayed"
	if r.TestOnly {
		what = "validated"
	}
	return fmt.Sprintf("%s %s on %s via crtc %d plane %d (%s, %s, pitch %d)",
		what, r.Mode, r.Connector.Name(), r.Crtc.ID, r.Plane.ID, r.Plane.Type, r.Format, r.Pitch)
}

func (s *Scanout) signal() Signaler {
	if s.Signal == nil {
		return nopSignaler{}
	}
	return s.Signal
}

func cleanup(what string, fn func() error) func() error {
	return func() error {
		err := fn()
		if err != nil {
			log.Warn().Err(err).Msgf("cleanup: %s", what)
		}
		return err
	}
}

// Run performs one scan-out. Cleanup of the mode blob, the framebuffer and
// the buffer always happens, in that order, and cleanup failures are
// joined into the returned error. ctx only bounds the hold period.
func (s *Scanout) Run(ctx context.Context) (res *Result, err error) {
	format := s.Format
	if format.FourCC == 0 {
		format = FormatRGB888
	}

	conns, err := ListConnectors(s.Card)
	if err != nil {
		return nil, err
	}
	conn, err := SelectConnected(conns)
	if err != nil {
		return nil, err
	}
	mode, err := SelectMode(conn)
	if err != nil {
		return nil, err
	}
	crtcs, err := ListCrtcs(s.Card)
	if err != nil {
		return nil, err
	}
	crtc, err := SelectCrtc(s.Card, conn, crtcs)
	if err != nil {
		return nil, err
	}
	planes, err := ListPlanes(s.Card)
	if err != nil {
		return nil, err
	}
	plane, err := SelectPlane(FilterFormat(planes, format.FourCC), crtc, crtcs)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("connector", conn.Name()).Stringer("mode", mode).Uint32("crtc", crtc.ID).
		Uint32("plane", plane.ID).Stringer("type", plane.Type).Msg("display path selected")

	buf, err := CreateBuffer(s.Card, mode.Width(), mode.Height(), format)
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(cleanup("destroy buffer", buf.Release)))

	m, err := buf.Map()
	if err != nil {
		return nil, err
	}
	err = multierr.Append(m.Paint(), m.Unmap())
	if err != nil {
		return nil, err
	}

	fb, err := AddFramebuffer(s.Card, NewPlanarLayout(buf), buf)
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(cleanup("remove framebuffer", fb.Remove)))

	// handles are not cached across runs: resolve them on this card now
	connProps, err := ResolveProperties(s.Card, conn.ID, ObjectConnector, ConnectorProperties...)
	if err != nil {
		return nil, err
	}
	crtcProps, err := ResolveProperties(s.Card, crtc.ID, ObjectCrtc, CrtcProperties...)
	if err != nil {
		return nil, err
	}
	planeProps, err := ResolveProperties(s.Card, plane.ID, ObjectPlane, PlaneProperties...)
	if err != nil {
		return nil, err
	}

	blob, err := CreateModeBlob(s.Card, mode)
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(cleanup("destroy mode blob", blob.Destroy)))

	req, err := BuildScanout(s.Card, ScanoutTarget{
		Connector:   connProps,
		Crtc:        crtcProps,
		Plane:       planeProps,
		Framebuffer: fb.ID,
		ModeBlob:    blob.ID,
		Width:       mode.Width(),
		Height:      mode.Height(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.signal().Start(); err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.signal().End))

	flags := s.Flags | AtomicAllowModeset
	if err := req.Commit(flags); err != nil {
		return nil, err
	}

	res = &Result{
		Connector:   conn,
		Crtc:        crtc,
		Plane:       plane,
		Mode:        mode,
		Format:      format,
		Pitch:       buf.Pitch,
		Size:        buf.Size,
		Framebuffer: fb.ID,
		TestOnly:    flags&AtomicTestOnly != 0,
	}
	if res.TestOnly || s.Hold <= 0 {
		return res, nil
	}

	log.Debug().Dur("hold", s.Hold).Msg("holding scan-out")
	timer := time.NewTimer(s.Hold)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		log.Debug().Msg("hold interrupted")
	}
	return res, nil
}
