package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/NeowayLabs/hwexer"
	"github.com/NeowayLabs/hwexer/dma"
	"github.com/NeowayLabs/hwexer/gpio"
	"github.com/NeowayLabs/hwexer/mode"
	"github.com/NeowayLabs/hwexer/pwm"
)

// runError marks a failure of a command that was parsed successfully.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

func run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &runError{err: err}
		}
		return nil
	}
}

// newCommandTree builds the commands one input line is parsed against.
// The root has no name, so a line starts with the command itself.
func newCommandTree(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:               "",
		Short:             "Hardware exerciser commands",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.AddCommand(
		newTestCmd(s),
		newListCmd(s),
		newPWMGetCmd(s),
		newPWMSetCmd(s),
		newDMASendCmd(s),
		newGPIOPulseCmd(s),
		newCapsCmd(s),
		newVersionCmd(s),
	)
	return root
}

func newTestCmd(s *session) *cobra.Command {
	var (
		check bool
		hold  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "test [format]",
		Short: "Show a test pattern on the first connected display",
		Long: `Show a gradient on the first connected display through one atomic commit.
The optional argument picks the pixel format: RGB888, BGR888 or XRGB8888.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string) error {
			name := s.cfg.Format
			if len(args) == 1 {
				name = args[0]
			}
			format, err := mode.FormatByName(name)
			if err != nil {
				return err
			}
			card, err := s.displayCard()
			if err != nil {
				return err
			}
			sig, err := s.signaler()
			if err != nil {
				return err
			}

			scan := &mode.Scanout{Card: card, Format: format, Hold: hold, Signal: sig}
			if check {
				scan.Flags = mode.AtomicTestOnly
			}
			res, err := scan.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&check, "check", false, "only ask the driver to validate the commit")
	cmd.Flags().DurationVar(&hold, "hold", s.cfg.Hold, "how long the pattern stays on screen")
	return cmd
}

func newListCmd(s *session) *cobra.Command {
	var what string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connectors, CRTCs and planes",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string) error {
			card, err := s.displayCard()
			if err != nil {
				return err
			}
			return listResources(cmd.OutOrStdout(), card, what)
		}),
	}
	cmd.Flags().StringVar(&what, "arg", "", "what to list: connectors, crtcs or planes (default all)")
	return cmd
}

func newPWMGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pwm_get",
		Short: "Read the PWM value",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string) error {
			dev, err := s.pwmDevice()
			if err != nil {
				return err
			}
			v, err := pwm.Read(dev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PWM value: %d (0x%08x)\n", v, v)
			return nil
		}),
	}
}

func newPWMSetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pwm_set VALUE",
		Short: "Write the PWM value",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return err
			}
			dev, err := s.pwmDevice()
			if err != nil {
				return err
			}
			sig, err := s.signaler()
			if err != nil {
				return err
			}
			err = gpio.Bracket(sig, func() error {
				return pwm.Write(dev, uint32(v))
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PWM set to %d\n", v)
			return nil
		}),
	}
}

func newDMASendCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "dma_send",
		Short: "Send one 64 KiB block to the DMA sink",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string) error {
			dev, err := s.dmaDevice()
			if err != nil {
				return err
			}
			n, err := dma.Send(dev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", humanize.IBytes(uint64(n)), dev.Path())
			return nil
		}),
	}
}

func newGPIOPulseCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "gpio_pulse [duration]",
		Short: "Pulse the signal line",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string) error {
			if !s.cfg.GPIOEnabled() {
				return errors.New("no signal line configured (HWEXER_GPIO_LINE)")
			}
			d := 100 * time.Millisecond
			if len(args) == 1 {
				var err error
				if d, err = time.ParseDuration(args[0]); err != nil {
					return err
				}
			}
			sig, err := s.signaler()
			if err != nil {
				return err
			}
			if err := gpio.Pulse(sig, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pulsed %s:%d for %s\n", s.cfg.GPIOChip, s.cfg.GPIOLine, d)
			return nil
		}),
	}
}

var driverCaps = []struct {
	name string
	cap  uint64
}{
	{"DUMB_BUFFER", hwexer.CapDumbBuffer},
	{"VBLANK_HIGH_CRTC", hwexer.CapVBlankHighCRTC},
	{"DUMB_PREFERRED_DEPTH", hwexer.CapDumbPreferredDepth},
	{"DUMB_PREFER_SHADOW", hwexer.CapDumbPreferShadow},
	{"PRIME", hwexer.CapPrime},
	{"TIMESTAMP_MONOTONIC", hwexer.CapTimestampMonotonic},
	{"ASYNC_PAGE_FLIP", hwexer.CapAsyncPageFlip},
	{"CURSOR_WIDTH", hwexer.CapCursorWidth},
	{"CURSOR_HEIGHT", hwexer.CapCursorHeight},
	{"ADDFB2_MODIFIERS", hwexer.CapAddFB2Modifiers},
}

func newCapsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "caps",
		Short: "Show the driver capabilities of the card",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string) error {
			dev, err := hwexer.Open(s.cfg.Card)
			if err != nil {
				return err
			}
			defer dev.Close()

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("CAPABILITY", "VALUE")
			for _, c := range driverCaps {
				value := "-"
				if v, err := hwexer.GetCap(dev, c.cap); err == nil {
					value = strconv.FormatUint(v, 10)
				}
				if err := table.Append([]string{c.name, value}); err != nil {
					return err
				}
			}
			return table.Render()
		}),
	}
}

func newVersionCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the program and driver versions",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "hwexer %s\n", buildVersion)
			dev, err := hwexer.Open(s.cfg.Card)
			if err != nil {
				return err
			}
			defer dev.Close()
			v, err := hwexer.GetVersion(dev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver %s: %s\n", v, v.Desc)
			return nil
		}),
	}
}
