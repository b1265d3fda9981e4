package main

import (
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/gpio"
	"github.com/NeowayLabs/hwexer/internal/config"
)

// session keeps the device handles of one REPL run open between
// commands. Each handle is opened the first time a command needs it.
type session struct {
	cfg *config.Config

	card *hwexer.Device
	pwm  *hwexer.Device
	dma  *hwexer.Device
	line *gpio.Line
}

func newSession(cfg *config.Config) *session {
	return &session{cfg: cfg}
}

// displayCard returns the card with atomic mode setting negotiated.
func (s *session) displayCard() (*hwexer.Device, error) {
	if s.card == nil {
		dev, err := hwexer.OpenDisplay(s.cfg.Card)
		if err != nil {
			return nil, err
		}
		s.card = dev
	}
	return s.card, nil
}

func (s *session) pwmDevice() (*hwexer.Device, error) {
	if s.pwm == nil {
		dev, err := hwexer.Open(s.cfg.PWMDevice)
		if err != nil {
			return nil, err
		}
		s.pwm = dev
	}
	return s.pwm, nil
}

func (s *session) dmaDevice() (*hwexer.Device, error) {
	if s.dma == nil {
		dev, err := hwexer.Open(s.cfg.DMADevice)
		if err != nil {
			return nil, err
		}
		s.dma = dev
	}
	return s.dma, nil
}

// signaler returns the configured GPIO line, or a no-op when none is.
func (s *session) signaler() (gpio.Signaler, error) {
	if !s.cfg.GPIOEnabled() {
		return gpio.Nop{}, nil
	}
	if s.line == nil {
		line, err := gpio.Open(s.cfg.GPIOChip, s.cfg.GPIOLine, "hwexer")
		if err != nil {
			return nil, err
		}
		s.line = line
	}
	return s.line, nil
}

func (s *session) Close() error {
	var err error
	for _, dev := range []*hwexer.Device{s.card, s.pwm, s.dma} {
		if dev != nil {
			err = multierr.Append(err, dev.Close())
		}
	}
	if s.line != nil {
		err = multierr.Append(err, s.line.Close())
	}
	if err != nil {
		log.Warn().Err(err).Msg("closing devices")
	}
	return err
}
