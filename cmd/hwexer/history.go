package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const historyLimit = 1000

// fileHistory is the line editor history, kept in a file one entry per
// line. Entries are appended to the file as they are added.
type fileHistory struct {
	lines []string // oldest first
	file  *os.File
}

// openHistory loads path and opens it for appending. A missing file is
// not an error: the history starts empty.
func openHistory(path string, out io.Writer) (*fileHistory, error) {
	h := &fileHistory{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "No previous history.")
	case err != nil:
		return nil, errors.Wrap(err, "load history")
	default:
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				h.push(line)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open history")
	}
	h.file = f
	return h, nil
}

func (h *fileHistory) push(line string) {
	h.lines = append(h.lines, line)
	if len(h.lines) > historyLimit {
		h.lines = h.lines[len(h.lines)-historyLimit:]
	}
}

// Add records an entry. Blank entries and repeats of the last one are
// dropped.
func (h *fileHistory) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" || (len(h.lines) > 0 && h.lines[len(h.lines)-1] == entry) {
		return
	}
	h.push(entry)
	if _, err := fmt.Fprintln(h.file, entry); err != nil {
		log.Warn().Err(err).Msg("cannot save history")
	}
}

func (h *fileHistory) Len() int { return len(h.lines) }

// At returns an entry, 0 being the most recent one.
func (h *fileHistory) At(idx int) string { return h.lines[len(h.lines)-1-idx] }

func (h *fileHistory) Close() error { return h.file.Close() }
