package mode

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/ioctl"
)

// Connection is the state a connector reports for its sink.
type Connection uint32

const (
	Connected Connection = iota + 1
	Disconnected
	UnknownConnection
)

func (c Connection) String() string {
	switch c {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case UnknownConnection:
		return "unknown"
	}
	return fmt.Sprintf("connection(%d)", uint32(c))
}

var connectorTypeNames = []string{
	"Unknown", "VGA", "DVI-I", "DVI-D", "DVI-A", "Composite", "SVIDEO", "LVDS",
	"Component", "DIN", "DP", "HDMI-A", "HDMI-B", "TV", "eDP", "Virtual", "DSI",
	"DPI", "Writeback", "SPI", "USB",
}

// Name returns the connector name the kernel uses, eg.: HDMI-A-1.
func (c *Connector) Name() string {
	typ := "Unknown"
	if int(c.Type) < len(connectorTypeNames) {
		typ = connectorTypeNames[c.Type]
	}
	return fmt.Sprintf("%s-%d", typ, c.TypeID)
}

// ListConnectors returns a fresh snapshot of every connector on the card,
// in enumeration order.
func ListConnectors(card ioctl.Device) ([]*Connector, error) {
	res, err := GetResources(card)
	if err != nil {
		return nil, err
	}
	conns := make([]*Connector, 0, len(res.Connectors))
	for _, id := range res.Connectors {
		conn, err := GetConnector(card, id)
		if err != nil {
			return nil, errors.Wrap(err, "cannot retrieve connector")
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// ListCrtcs returns every CRTC with its enumeration index set.
func ListCrtcs(card ioctl.Device) ([]*Crtc, error) {
	res, err := GetResources(card)
	if err != nil {
		return nil, err
	}
	crtcs := make([]*Crtc, 0, len(res.Crtcs))
	for i, id := range res.Crtcs {
		crtc, err := GetCrtc(card, id)
		if err != nil {
			return nil, errors.Wrap(err, "cannot retrieve crtc")
		}
		crtc.Index = i
		crtcs = append(crtcs, crtc)
	}
	return crtcs, nil
}

// SelectConnected returns the first connector with a sink attached.
func SelectConnected(conns []*Connector) (*Connector, error) {
	for _, conn := range conns {
		// check if a monitor is connected
		if conn.Connection == Connected {
			return conn, nil
		}
	}
	return nil, hwexer.ErrNoDisplayAttached
}

// SelectMode returns the connector's first advertised mode, which the
// kernel sorts preferred first.
func SelectMode(conn *Connector) (Info, error) {
	if len(conn.Modes) == 0 {
		return Info{}, errors.Wrapf(hwexer.ErrNoModeAvailable, "connector %d", conn.ID)
	}
	return conn.Modes[0], nil
}

// SelectCrtc picks the CRTC driving the connector's current encoder. If
// the connector is not bound to an encoder, the first CRTC any of its
// encoders can drive is used.
func SelectCrtc(card ioctl.Device, conn *Connector, crtcs []*Crtc) (*Crtc, error) {
	if conn.EncoderID != 0 {
		encoder, err := GetEncoder(card, conn.EncoderID)
		if err != nil {
			return nil, err
		}
		if encoder.CrtcID != 0 {
			for _, crtc := range crtcs {
				if crtc.ID == encoder.CrtcID {
					return crtc, nil
				}
			}
		}
	}

	for _, id := range conn.Encoders {
		encoder, err := GetEncoder(card, id)
		if err != nil {
			return nil, errors.Wrap(err, "cannot retrieve encoder")
		}
		// iterate all global CRTCs
		for _, crtc := range crtcs {
			// check whether this CRTC works with the encoder
			if encoder.PossibleCrtcs&(1<<uint(crtc.Index)) == 0 {
				continue
			}
			log.Debug().Uint32("connector", conn.ID).Uint32("encoder", encoder.ID).
				Uint32("crtc", crtc.ID).Msg("crtc selected from encoder mask")
			return crtc, nil
		}
	}

	return nil, errors.Wrapf(hwexer.ErrNoCrtc, "connector %d", conn.ID)
}
