package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const (
	prompt = ">> "

	keyCtrlC = 3
)

// errInterrupted is returned by a line reader when Ctrl-C ends the input.
var errInterrupted = errors.New("interrupted")

type lineReader interface {
	ReadLine() (string, error)
}

// keySpy remembers the last byte read from the terminal.
type keySpy struct {
	io.Reader
	last byte
}

func (k *keySpy) Read(p []byte) (int, error) {
	n, err := k.Reader.Read(p)
	if n > 0 {
		k.last = p[n-1]
	}
	return n, err
}

// termReader edits lines on a terminal. The terminal is in raw mode only
// while a line is read, so commands run with the usual signal handling.
type termReader struct {
	fd  int
	t   *term.Terminal
	spy *keySpy
}

func newTermReader(fd int, rw io.ReadWriter, history term.History) *termReader {
	spy := &keySpy{Reader: rw}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{spy, rw}, prompt)
	if history != nil {
		t.History = history
	}
	return &termReader{fd: fd, t: t, spy: spy}
}

// ReadLine returns errInterrupted on Ctrl-C and io.EOF on Ctrl-D.
func (r *termReader) ReadLine() (string, error) {
	if term.IsTerminal(r.fd) {
		state, err := term.MakeRaw(r.fd)
		if err != nil {
			return "", err
		}
		defer term.Restore(r.fd, state)
	}
	line, err := r.t.ReadLine()
	if errors.Is(err, io.EOF) && r.spy.last == keyCtrlC {
		return "", errInterrupted
	}
	return line, err
}

// scanReader reads lines from a non interactive input.
type scanReader struct {
	s *bufio.Scanner
}

func (r *scanReader) ReadLine() (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.s.Text(), nil
}

type repl struct {
	in      lineReader
	out     io.Writer
	session *session
}

// Run reads and executes lines until the input ends.
func (r *repl) Run(ctx context.Context) error {
	for {
		line, err := r.in.ReadLine()
		switch {
		case errors.Is(err, errInterrupted):
			fmt.Fprintln(r.out, "CTRL-C")
			return nil
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.out, "CTRL-D")
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		args, err := shlex.Split(line, true)
		if err != nil {
			fmt.Fprintf(r.out, "Failed to parse command: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		r.exec(ctx, args)
	}
}

// exec runs one command. An interrupt cancels the command, not the
// session.
func (r *repl) exec(ctx context.Context, args []string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	root := newCommandTree(r.session)
	root.SetArgs(args)
	root.SetOut(r.out)
	root.SetErr(r.out)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var runErr *runError
	if errors.As(err, &runErr) {
		log.Error().Err(runErr.err).Str("command", args[0]).Msg("command failed")
		fmt.Fprintf(r.out, "Error: %v\n", runErr.err)
		return
	}
	fmt.Fprintf(r.out, "Failed to parse command: %v\n", err)
}
