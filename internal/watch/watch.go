// Package watch reports device nodes appearing and disappearing.
package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Event is a device node added to or removed from a watched directory.
type Event struct {
	Path  string
	Added bool
}

func (e Event) String() string {
	if e.Added {
		return "added " + e.Path
	}
	return "removed " + e.Path
}

type Watcher struct {
	watcher *fsnotify.Watcher
	dirs    []string
}

// New watches dir and, when present, the DRM node directory below it.
func New(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{watcher: watcher}
	for _, d := range []string{dir, filepath.Join(dir, "dri")} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			continue
		}
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch %s", d)
		}
		w.dirs = append(w.dirs, d)
	}
	if len(w.dirs) == 0 {
		watcher.Close()
		return nil, errors.Errorf("watch %s: not a directory", dir)
	}
	return w, nil
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string { return w.dirs }

// Run delivers events to handle until ctx is done, then closes the
// watcher.
func (w *Watcher) Run(ctx context.Context, handle func(Event)) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create):
				handle(Event{Path: event.Name, Added: true})
			case event.Has(fsnotify.Remove):
				handle(Event{Path: event.Name})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("device watcher error")
		}
	}
}
