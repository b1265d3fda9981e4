package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/NeowayLabs/hwexer/ioctl"
	"github.com/NeowayLabs/hwexer/mode"
)

func listResources(w io.Writer, card ioctl.Device, what string) error {
	switch strings.ToLower(what) {
	case "":
		for _, fn := range []func(io.Writer, ioctl.Device) error{listConnectors, listCrtcs, listPlanes} {
			if err := fn(w, card); err != nil {
				return err
			}
		}
		return nil
	case "connectors":
		return listConnectors(w, card)
	case "crtcs":
		return listCrtcs(w, card)
	case "planes":
		return listPlanes(w, card)
	}
	return errors.Errorf("cannot list %q: want connectors, crtcs or planes", what)
}

func render(w io.Writer, header []any, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func listConnectors(w io.Writer, card ioctl.Device) error {
	conns, err := mode.ListConnectors(card)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, c := range conns {
		preferred := "-"
		if len(c.Modes) > 0 {
			preferred = c.Modes[0].String()
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name(),
			c.Connection.String(),
			strconv.Itoa(len(c.Modes)),
			preferred,
			fmt.Sprintf("%dx%d mm", c.Width, c.Height),
		})
	}
	return render(w, []any{"ID", "NAME", "STATUS", "MODES", "PREFERRED", "SIZE"}, rows)
}

func listCrtcs(w io.Writer, card ioctl.Device) error {
	crtcs, err := mode.ListCrtcs(card)
	if err != nil {
		return err
	}
	planes, err := mode.ListPlanes(card)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, c := range crtcs {
		current := "-"
		if c.ModeValid != 0 {
			current = c.Mode.String()
		}
		var ids []string
		for _, p := range mode.CompatiblePlanes(c, planes) {
			ids = append(ids, strconv.FormatUint(uint64(p.ID), 10))
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			strconv.Itoa(c.Index),
			strconv.FormatUint(uint64(c.BufferID), 10),
			current,
			strings.Join(ids, ","),
		})
	}
	return render(w, []any{"ID", "INDEX", "FB", "MODE", "PLANES"}, rows)
}

func listPlanes(w io.Writer, card ioctl.Device) error {
	planes, err := mode.ListPlanes(card)
	if err != nil {
		return err
	}
	crtcs, err := mode.ListCrtcs(card)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, p := range planes {
		var ids, formats []string
		for _, c := range mode.CompatibleCrtcs(p, crtcs) {
			ids = append(ids, strconv.FormatUint(uint64(c.ID), 10))
		}
		for _, f := range p.Formats {
			formats = append(formats, mode.FourCCString(f))
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.Type.String(),
			strings.Join(ids, ","),
			strings.Join(formats, " "),
		})
	}
	return render(w, []any{"ID", "TYPE", "CRTCS", "FORMATS"}, rows)
}
