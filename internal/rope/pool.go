package rope

import "sync"

// maxPooledBuffer is the largest leaf buffer capacity kept across reuse.
const maxPooledBuffer = 4 * 1024

// NodePool is the only source of rope nodes. It recycles released nodes
// through a sync.Pool and enforces an optional limit on the number of live
// nodes; allocations beyond the limit fail with ErrAllocation.
//
// A pool may be shared by several ropes, including ropes used from
// different goroutines. The ropes themselves are not safe for concurrent use.
type NodePool struct {
	mu    sync.Mutex
	limit int // Max live nodes, 0 for unlimited
	live  int

	nodes sync.Pool
}

// DefaultPool is used by ropes created without WithPool. It has no limit.
var DefaultPool = NewNodePool(0)

// NewNodePool creates a pool that allows at most limit live nodes.
// A limit of zero or less means unlimited.
func NewNodePool(limit int) *NodePool {
	if limit < 0 {
		limit = 0
	}
	return &NodePool{
		limit: limit,
		nodes: sync.Pool{
			New: func() interface{} {
				return &Node{}
			},
		},
	}
}

// Live returns the number of nodes handed out and not yet released.
func (p *NodePool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Limit returns the live-node limit, 0 for unlimited.
func (p *NodePool) Limit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limit
}

// SetLimit changes the live-node limit. Nodes already live are unaffected.
func (p *NodePool) SetLimit(limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	p.limit = limit
}

// get hands out one reset node.
func (p *NodePool) get() (*Node, error) {
	p.mu.Lock()
	if p.limit > 0 && p.live >= p.limit {
		p.mu.Unlock()
		return nil, errPoolExhausted
	}
	p.live++
	p.mu.Unlock()

	return p.nodes.Get().(*Node), nil
}

// internal allocates an internal-shaped node with no children.
func (p *NodePool) internal() (*Node, error) {
	return p.get()
}

// leaf allocates a leaf owning a private copy of text.
func (p *NodePool) leaf(text string) (*Node, error) {
	n, err := p.get()
	if err != nil {
		return nil, err
	}
	n.text = append(n.text[:0], text...)
	return n, nil
}

// reserve allocates k internal nodes or none at all.
func (p *NodePool) reserve(k int) ([]*Node, error) {
	nodes := make([]*Node, 0, k)
	for i := 0; i < k; i++ {
		n, err := p.get()
		if err != nil {
			p.putAll(nodes)
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// put returns a single node to the pool. Its children are not touched.
// The node must not be used after calling put.
func (p *NodePool) put(n *Node) {
	if n == nil {
		return
	}
	n.left = nil
	n.right = nil
	n.parent = nil
	n.leftLen = 0
	if cap(n.text) > maxPooledBuffer {
		n.text = nil
	} else {
		n.text = n.text[:0]
	}

	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.nodes.Put(n)
}

func (p *NodePool) putAll(nodes []*Node) {
	for _, n := range nodes {
		p.put(n)
	}
}

// release tears down the whole subtree rooted at n, returning every node to
// the pool. It uses an explicit stack so degenerate trees cannot exhaust
// the goroutine stack.
func (p *NodePool) release(n *Node) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.left != nil {
			stack = append(stack, top.left)
		}
		if top.right != nil {
			stack = append(stack, top.right)
		}
		p.put(top)
	}
}
