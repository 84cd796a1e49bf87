package rope

import (
	"bytes"
	"io"
	"strings"

	"github.com/dshills/ropekit/internal/logging"
)

// DefaultNodeSize is the leaf size FromString uses when none is configured.
const DefaultNodeSize = 64

// Rope is a handle that exclusively owns one tree.
//
// The root is always an internal node with no right child whose leftLen is
// the length of the whole rope; an empty rope's root holds one empty leaf.
// Structural operations replace or rewire the tree behind the handle. A
// handle whose tree moves elsewhere (see Concat and Release) is consumed,
// and every later operation on it fails with ErrParameter.
//
// A Rope is not safe for concurrent use.
type Rope struct {
	root *Node

	pool     *NodePool
	nodeSize int
	log      *logging.Logger
	checks   bool
}

// Option configures a Rope during creation.
type Option func(*Rope)

// WithPool sets the node pool. Ropes that are concatenated must share a pool.
func WithPool(p *NodePool) Option {
	return func(r *Rope) {
		if p != nil {
			r.pool = p
		}
	}
}

// WithNodeSize sets the leaf size used by FromString.
func WithNodeSize(size int) Option {
	return func(r *Rope) {
		if size > 0 {
			r.nodeSize = size
		}
	}
}

// WithLogger sets the logger for rollback warnings and rebuild diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(r *Rope) {
		if l != nil {
			r.log = l.WithComponent("rope")
		}
	}
}

// WithInvariantChecks validates the whole tree after every structural
// operation. It turns each operation into O(n) and is meant for tests and
// debugging.
func WithInvariantChecks(enabled bool) Option {
	return func(r *Rope) {
		r.checks = enabled
	}
}

func newHandle(opts []Option) *Rope {
	r := &Rope{
		pool:     DefaultPool,
		nodeSize: DefaultNodeSize,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// derive creates a handle for root that shares r's configuration.
func (r *Rope) derive(root *Node) *Rope {
	return &Rope{
		root:     root,
		pool:     r.pool,
		nodeSize: r.nodeSize,
		log:      r.log,
		checks:   r.checks,
	}
}

// New creates an empty rope.
func New(opts ...Option) (*Rope, error) {
	r := newHandle(opts)
	root, err := r.pool.emptyRoot()
	if err != nil {
		return nil, allocError("new", err)
	}
	r.root = root
	return r, nil
}

// FromString creates a perfectly balanced rope holding s, with leaves of
// the configured node size.
func FromString(s string, opts ...Option) (*Rope, error) {
	if len(s) == 0 {
		return New(opts...)
	}

	r := newHandle(opts)
	root, err := r.pool.buildBalanced("fromstring", len(s), r.nodeSize, func(begin, count int) (string, error) {
		return s[begin-1 : begin-1+count], nil
	})
	if err != nil {
		return nil, err
	}
	r.root = root
	return r, r.verify("fromstring")
}

// emptyRoot allocates a root anchoring one empty leaf.
func (p *NodePool) emptyRoot() (*Node, error) {
	root, err := p.internal()
	if err != nil {
		return nil, err
	}
	leaf, err := p.leaf("")
	if err != nil {
		p.put(root)
		return nil, err
	}
	root.link(leaf, nil, 0)
	return root, nil
}

// Len returns the total byte length.
func (r *Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.leftLen
}

// IsEmpty returns true if the rope contains no bytes. A consumed handle is
// empty.
func (r *Rope) IsEmpty() bool {
	return r.Len() == 0
}

// Consumed reports whether the handle's tree has moved or been released.
func (r *Rope) Consumed() bool {
	return r.root == nil
}

// Pool returns the node pool backing the rope.
func (r *Rope) Pool() *NodePool {
	return r.pool
}

// Release tears down the tree and returns its nodes to the pool. The handle
// is consumed afterwards. Releasing a consumed handle is a no-op.
func (r *Rope) Release() {
	if r.root == nil {
		return
	}
	r.pool.release(r.root)
	r.root = nil
}

// String returns the full content. Use sparingly for large ropes.
func (r *Rope) String() string {
	var sb strings.Builder
	sb.Grow(r.Len())
	it := r.Leaves()
	for it.Next() {
		sb.Write(it.leaf.text)
	}
	return sb.String()
}

// WriteTo writes the full content to w.
func (r *Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	it := r.Leaves()
	for it.Next() {
		if len(it.leaf.text) == 0 {
			continue
		}
		n, err := w.Write(it.leaf.text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Equal returns true if two ropes hold the same bytes. A nil rope equals
// nothing.
// Note: This compares content, not structure.
func (r *Rope) Equal(other *Rope) bool {
	if r == nil || other == nil {
		return false
	}
	if r.Len() != other.Len() {
		return false
	}

	a, b := r.Leaves(), other.Leaves()
	var x, y []byte
	for {
		for len(x) == 0 && a.Next() {
			x = a.leaf.text
		}
		for len(y) == 0 && b.Next() {
			y = b.leaf.text
		}
		if len(x) == 0 || len(y) == 0 {
			return len(x) == len(y)
		}
		k := min(len(x), len(y))
		if !bytes.Equal(x[:k], y[:k]) {
			return false
		}
		x, y = x[k:], y[k:]
	}
}

// verify runs the invariant checker when enabled.
func (r *Rope) verify(op string) error {
	if !r.checks || r.root == nil {
		return nil
	}
	if err := r.Validate(); err != nil {
		r.log.Error("invariant check failed", "op", op, "error", err)
		return err
	}
	return nil
}
