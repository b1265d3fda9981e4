package ioctl

import (
	"sort"

	"github.com/pkg/errors"
)

// Command is one entry of a driver protocol table: a named request, the
// payload it carries and the request number the driver header declares
// for it.
type Command struct {
	Name    string
	Payload string // Go type of the argument, for diagnostics
	Code    Code
	Want    uint32 // number published by the driver header
}

// Value returns the encoded request number.
func (c Command) Value() uint32 { return c.Code.Value() }

func (c Command) String() string {
	return c.Name + " " + c.Code.String()
}

// Table is a validated set of commands keyed by name.
type Table struct {
	byName map[string]Command
	byCode map[uint32]string
}

// NewTable checks every command against the encoding rules and the number
// its header declares, and rejects duplicate names or request numbers.
func NewTable(cmds ...Command) (*Table, error) {
	t := &Table{
		byName: make(map[string]Command, len(cmds)),
		byCode: make(map[uint32]string, len(cmds)),
	}
	for _, c := range cmds {
		if c.Name == "" {
			return nil, errors.Errorf("command %s has no name", c.Code)
		}
		if err := c.Code.Validate(); err != nil {
			return nil, errors.Wrapf(err, "command %q", c.Name)
		}
		if got := c.Value(); got != c.Want {
			return nil, errors.Errorf("command %q encodes to 0x%08x, header declares 0x%08x",
				c.Name, got, c.Want)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, errors.Errorf("duplicate command %q", c.Name)
		}
		if other, dup := t.byCode[c.Want]; dup {
			return nil, errors.Errorf("commands %q and %q share request 0x%08x", other, c.Name, c.Want)
		}
		t.byName[c.Name] = c
		t.byCode[c.Want] = c.Name
	}
	return t, nil
}

// MustTable is NewTable for package level protocol tables.
func MustTable(cmds ...Command) *Table {
	t, err := NewTable(cmds...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the command registered under name.
func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// MustLookup is Lookup for names known at compile time.
func (t *Table) MustLookup(name string) Command {
	c, ok := t.byName[name]
	if !ok {
		panic(errors.Errorf("unknown ioctl command %q", name))
	}
	return c
}

// Name returns the command name for a request number.
func (t *Table) Name(code uint32) (string, bool) {
	n, ok := t.byCode[code]
	return n, ok
}

// Commands returns the table entries sorted by name.
func (t *Table) Commands() []Command {
	cmds := make([]Command, 0, len(t.byName))
	for _, c := range t.byName {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}
