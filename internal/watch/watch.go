// Package watch reports changes to a fixed set of files.
//
// It watches the parent directory of every file, so editors that save by
// writing a temporary file and renaming it over the original are still
// seen. Bursts of events are coalesced into one Event per quiet period.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/ropekit/internal/logging"
)

// DefaultDelay is the quiet period before a burst of changes is reported.
const DefaultDelay = 100 * time.Millisecond

// ErrNoFiles is returned when a watcher is created for nothing.
var ErrNoFiles = errors.New("no files to watch")

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created, including by rename.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed away.
	OpRename
)

// Has returns true if op includes o.
func (op Op) Has(o Op) bool {
	return op&o != 0
}

// String returns the operation names joined with "|".
func (op Op) String() string {
	var names []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}} {
		if op.Has(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// Event is one debounced batch of changes.
type Event struct {
	// Paths are the absolute paths that changed, sorted.
	Paths []string
	// Op combines every operation seen in the batch.
	Op Op
	// Time is when the batch was reported.
	Time time.Time
}

// Watcher watches a fixed set of files.
type Watcher struct {
	fsw   *fsnotify.Watcher
	files map[string]bool
	delay time.Duration
	log   *logging.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the quiet period. Non-positive values use DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l.WithComponent("watch")
		}
	}
}

// New creates a watcher for files. Every file's directory must exist.
func New(files []string, opts ...Option) (*Watcher, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	w := &Watcher{
		files: make(map[string]bool, len(files)),
		delay: DefaultDelay,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			fsw.Close()
			return nil, err
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	w.fsw = fsw
	return w, nil
}

// Files returns the watched files as absolute paths, sorted.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Run delivers debounced events to handler until ctx ends or the watcher
// is closed. The handler runs on Run's goroutine; events that arrive while
// it runs are batched into the next call.
func (w *Watcher) Run(ctx context.Context, handler func(Event)) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	pending := make(map[string]bool)
	var ops Op

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			op := convertOp(ev.Op)
			if op == 0 {
				continue
			}
			pending[abs] = true
			ops |= op
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			ev := Event{Op: ops, Time: time.Now()}
			for p := range pending {
				ev.Paths = append(ev.Paths, p)
			}
			sort.Strings(ev.Paths)
			pending = make(map[string]bool)
			ops = 0

			w.log.Debug("files changed", "paths", ev.Paths, "op", ev.Op.String())
			handler(ev)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// convertOp converts fsnotify.Op to watch.Op. Permission changes are
// dropped.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
