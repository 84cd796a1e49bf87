package rope

import "math/bits"

// Rebuild returns a perfectly balanced copy of the rope whose leaves hold
// nodeSize bytes each (the last may hold fewer). Leaves fill left to right;
// every leaf sits at depth ceil(log2(leafCount)) below the content node and
// the rightmost slots of the last level may be missing.
//
// The receiver is not modified and the caller owns both ropes afterwards.
// An empty rope is returned as is, not copied.
func (r *Rope) Rebuild(nodeSize int) (*Rope, error) {
	const op = "rebuild"
	if r.root == nil {
		return nil, errConsumed(op)
	}
	if nodeSize <= 0 {
		return nil, paramError(op, "node size %d must be positive", nodeSize)
	}
	n := r.Len()
	if n == 0 {
		return r, nil
	}

	src := r.root
	root, err := r.pool.buildBalanced(op, n, nodeSize, func(begin, count int) (string, error) {
		return collect(op, src, begin, begin+count-1)
	})
	if err != nil {
		r.log.Warn("rebuild failed", "node_size", nodeSize, "error", err)
		return nil, err
	}

	out := r.derive(root)
	leaves := leafCount(n, nodeSize)
	r.log.Debug("rebuilt rope", "length", n, "node_size", nodeSize, "leaves", leaves, "depth", ceilLog2(leaves))
	return out, out.verify(op)
}

// leafCount is ceil(length / nodeSize).
func leafCount(length, nodeSize int) int {
	return (length + nodeSize - 1) / nodeSize
}

// ceilLog2 is ceil(log2(x)) for x >= 1, and 0 below that.
func ceilLog2(x int) int {
	if x <= 1 {
		return 0
	}
	return bits.Len(uint(x - 1))
}

// fetchFunc supplies count bytes starting at 1-based index begin.
type fetchFunc func(begin, count int) (string, error)

// balancedBuilder threads the remaining length through a top-down build so
// that leaves are filled in strict left-to-right order.
type balancedBuilder struct {
	pool      *NodePool
	op        string
	nodeSize  int
	levels    int
	total     int
	remaining int
	fetch     fetchFunc
}

// buildBalanced builds a rooted, perfectly shaped tree of length bytes.
// On failure every node allocated so far is returned to the pool.
func (p *NodePool) buildBalanced(op string, length, nodeSize int, fetch fetchFunc) (*Node, error) {
	b := &balancedBuilder{
		pool:      p,
		op:        op,
		nodeSize:  nodeSize,
		levels:    ceilLog2(leafCount(length, nodeSize)),
		total:     length,
		remaining: length,
		fetch:     fetch,
	}

	content, err := b.build(0)
	if err != nil {
		return nil, err
	}
	if b.remaining != 0 {
		p.release(content)
		return nil, internalError(op, "%d bytes left after filling every leaf slot", b.remaining)
	}

	root, err := p.internal()
	if err != nil {
		p.release(content)
		return nil, allocError(op, err)
	}
	root.link(content, nil, length)
	return root, nil
}

func (b *balancedBuilder) build(level int) (*Node, error) {
	if b.remaining == 0 {
		return nil, nil
	}

	if level == b.levels {
		take := min(b.nodeSize, b.remaining)
		begin := b.total - b.remaining + 1
		text, err := b.fetch(begin, take)
		if err != nil {
			return nil, err
		}
		leaf, err := b.pool.leaf(text)
		if err != nil {
			return nil, allocError(b.op, err)
		}
		b.remaining -= take
		return leaf, nil
	}

	n, err := b.pool.internal()
	if err != nil {
		return nil, allocError(b.op, err)
	}
	before := b.remaining
	left, err := b.build(level + 1)
	if err != nil {
		b.pool.put(n)
		return nil, err
	}
	leftLen := before - b.remaining
	right, err := b.build(level + 1)
	if err != nil {
		b.pool.release(left)
		b.pool.put(n)
		return nil, err
	}
	n.link(left, right, leftLen)
	return n, nil
}
