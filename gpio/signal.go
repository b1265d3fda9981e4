// Package gpio brackets hardware runs with a GPIO line, so an external
// probe can trigger on the start and end of each run.
package gpio

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

//go:generate mockgen -source $GOFILE -destination signal_mocks.go -package $GOPACKAGE

// Signaler marks the start and the end of a run.
type Signaler interface {
	Start() error
	End() error
}

// Nop is the Signaler used when no line is configured.
type Nop struct{}

func (Nop) Start() error { return nil }
func (Nop) End() error   { return nil }

type output interface {
	SetValue(value int) error
	Close() error
}

// Line drives a GPIO character device line: high on Start, low on End.
type Line struct {
	chip   string
	offset int
	out    output
}

// Open requests offset on chip (eg.: gpiochip0) as an output, initially
// low.
func Open(chip string, offset int, consumer string) (*Line, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrapf(err, "request %s line %d", chip, offset)
	}
	log.Debug().Str("chip", chip).Int("offset", offset).Msg("gpio line requested")
	return &Line{chip: chip, offset: offset, out: l}, nil
}

func (l *Line) set(v int) error {
	if err := l.out.SetValue(v); err != nil {
		return errors.Wrapf(err, "set %s line %d to %d", l.chip, l.offset, v)
	}
	return nil
}

// Start drives the line high.
func (l *Line) Start() error { return l.set(1) }

// End drives the line low.
func (l *Line) End() error { return l.set(0) }

// Close releases the line.
func (l *Line) Close() error { return l.out.Close() }

func (l *Line) String() string { return fmt.Sprintf("%s:%d", l.chip, l.offset) }

// Bracket signals the start, runs fn and signals the end. The end is
// signalled even when fn fails; all errors are returned together.
func Bracket(s Signaler, fn func() error) (err error) {
	if err := s.Start(); err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.End))
	return fn()
}

// Pulse holds the signal for d.
func Pulse(s Signaler, d time.Duration) error {
	return Bracket(s, func() error {
		time.Sleep(d)
		return nil
	})
}
