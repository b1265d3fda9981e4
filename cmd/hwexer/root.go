package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/NeowayLabs/hwexer/internal/config"
	"github.com/NeowayLabs/hwexer/internal/watch"
)

var buildVersion = "dev"

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "hwexer",
		Short: "Interactive hardware exerciser",
		Long: `Drive a display controller, a PWM device, a DMA sink and a GPIO line
from a prompt. Without a command an interactive session is started.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging(cfg, os.Stderr)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return interactive(cmd.Context(), cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Card, "card", cfg.Card, "DRM card node")
	flags.StringVar(&cfg.PWMDevice, "pwm", cfg.PWMDevice, "PWM control node")
	flags.StringVar(&cfg.DMADevice, "dma", cfg.DMADevice, "DMA sink node")
	flags.StringVar(&cfg.GPIOChip, "gpio-chip", cfg.GPIOChip, "GPIO chip of the signal line")
	flags.IntVar(&cfg.GPIOLine, "gpio-line", cfg.GPIOLine, "offset of the signal line, -1 disables it")
	flags.DurationVar(&cfg.Hold, "hold", cfg.Hold, "how long test patterns stay on screen")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "pixel format of test patterns")
	flags.StringVar(&cfg.History, "history", cfg.History, "history file, empty disables history")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.StringVar(&cfg.Watch, "watch", cfg.Watch, "directory watched for device nodes, empty disables it")

	root.AddCommand(newRunCmd(cfg))
	return root
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run COMMAND [ARGS...]",
		Short:   "Run one command and exit",
		Example: "hwexer run list --arg planes\nhwexer run pwm_set 0x40",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cfg)
			defer s.Close()

			tree := newCommandTree(s)
			tree.SetArgs(args)
			tree.SetOut(cmd.OutOrStdout())
			tree.SetErr(cmd.ErrOrStderr())
			return tree.ExecuteContext(cmd.Context())
		},
	}
	// everything after the command name belongs to it
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func setupLogging(cfg *config.Config, out io.Writer) error {
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
	return nil
}

func interactive(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(cfg)
	defer s.Close()

	r := &repl{out: os.Stdout, session: s}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		var history term.History
		if cfg.History != "" {
			h, err := openHistory(cfg.History, os.Stdout)
			if err != nil {
				return err
			}
			defer h.Close()
			history = h
		}
		tr := newTermReader(fd, struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}, history)
		// the terminal redraws the prompt around asynchronous output
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: tr.t})
		r.in = tr
	} else {
		r.in = &scanReader{s: bufio.NewScanner(os.Stdin)}
	}

	if cfg.Watch != "" {
		w, err := watch.New(cfg.Watch)
		if err != nil {
			log.Warn().Err(err).Msg("device watcher disabled")
		} else {
			log.Debug().Str("dirs", strings.Join(w.Dirs(), ",")).Msg("watching device nodes")
			go func() {
				_ = w.Run(ctx, func(e watch.Event) {
					log.Info().Str("node", e.Path).Bool("added", e.Added).Msg("device node changed")
				})
			}()
		}
	}

	return r.Run(ctx)
}
