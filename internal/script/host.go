// Package script runs Lua scripts against the rope API.
//
// Each run gets a fresh sandboxed gopher-lua state, a fresh node pool and
// a global "rope" module:
//
//	local r = rope.new("Building sturdy")
//	r:insert(10, "rope ")
//	print(r:collect(1, r:len()))
//
// Rope errors surface as Lua errors of the form "<op>: <error>", so
// scripts can catch them with pcall.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ropekit/internal/logging"
	"github.com/dshills/ropekit/internal/rope"
)

// Default limits for a script run.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultMaxOutput = 1 << 20
)

// Host runs scripts. It holds configuration only, so one Host may run
// several scripts concurrently.
type Host struct {
	out       io.Writer
	log       *logging.Logger
	timeout   time.Duration
	maxOutput int

	nodeSize int
	maxNodes int
	checks   bool
}

// Option configures a Host.
type Option func(*Host)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Host) {
		if w != nil {
			h.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// WithMaxOutput caps the bytes a run may print. Zero disables the cap.
func WithMaxOutput(n int) Option {
	return func(h *Host) {
		h.maxOutput = n
	}
}

// WithNodeSize sets the leaf size for rope.new.
func WithNodeSize(n int) Option {
	return func(h *Host) {
		h.nodeSize = n
	}
}

// WithMaxNodes caps the live rope nodes of each run. Zero means unlimited.
func WithMaxNodes(n int) Option {
	return func(h *Host) {
		h.maxNodes = n
	}
}

// WithInvariantChecks validates every rope after each structural change.
func WithInvariantChecks(enabled bool) Option {
	return func(h *Host) {
		h.checks = enabled
	}
}

// NewHost creates a host with the given options.
func NewHost(opts ...Option) *Host {
	h := &Host{
		out:       os.Stdout,
		log:       logging.Nop(),
		timeout:   DefaultTimeout,
		maxOutput: DefaultMaxOutput,
		nodeSize:  rope.DefaultNodeSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Result describes a completed run.
type Result struct {
	RunID   string
	Name    string
	Elapsed time.Duration
	// Output is the number of bytes the script printed.
	Output int
	// LiveNodes counts rope nodes the script never released.
	LiveNodes int
}

// Run executes code as a chunk called name. The run ends when the script
// returns, fails, exceeds its output cap, or the context or timeout ends.
func (h *Host) Run(ctx context.Context, name, code string) (*Result, error) {
	runID := uuid.NewString()
	base := h.log.WithFields(map[string]any{"run": runID, "script": name})
	log := base.WithComponent("script")

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	out := &limitedWriter{w: h.out, max: h.maxOutput}
	pool := rope.NewNodePool(h.maxNodes)

	L := newSandboxedState(out)
	defer L.Close()
	L.SetContext(ctx)

	mod := &ropeModule{opts: []rope.Option{
		rope.WithPool(pool),
		rope.WithNodeSize(h.nodeSize),
		rope.WithLogger(base),
		rope.WithInvariantChecks(h.checks),
	}}
	mod.Register(L)

	log.Debug("script started")
	start := time.Now()
	err := h.execute(L, name, code)
	res := &Result{
		RunID:     runID,
		Name:      name,
		Elapsed:   time.Since(start),
		Output:    out.written,
		LiveNodes: pool.Live(),
	}

	if err != nil {
		switch {
		case out.exceeded:
			err = fmt.Errorf("%w: %d bytes", ErrOutputLimit, h.maxOutput)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s", ErrTimeout, h.timeout)
		case ctx.Err() != nil:
			err = ctx.Err()
		}
		log.Warn("script failed", "error", err, "elapsed", res.Elapsed)
		return res, &RunError{Name: name, RunID: runID, Err: err}
	}

	log.Debug("script finished", "elapsed", res.Elapsed, "output", res.Output, "live_nodes", res.LiveNodes)
	return res, nil
}

// RunFile executes the script at path.
func (h *Host) RunFile(ctx context.Context, path string) (*Result, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return h.Run(ctx, path, string(code))
}

// execute compiles and calls the chunk with panic recovery.
func (h *Host) execute(L *lua.LState, name, code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	fn, err := L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

// limitedWriter forwards at most max bytes to w. Zero max means no cap.
type limitedWriter struct {
	w        io.Writer
	max      int
	written  int
	exceeded bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.max > 0 && lw.written+len(p) > lw.max {
		lw.exceeded = true
		return 0, ErrOutputLimit
	}
	n, err := lw.w.Write(p)
	lw.written += n
	return n, err
}
