package rope

// checkDetached fails if any node already has an owner.
func checkDetached(op string, nodes ...*Node) error {
	for _, n := range nodes {
		if n != nil && n.parent != nil {
			return paramError(op, "operand already has a parent")
		}
	}
	return nil
}

// concat adopts two detached subtrees under a fresh internal node with the
// given leftLen. Either subtree may be nil. Ownership of both moves to the
// result; nothing is copied.
func (p *NodePool) concat(left, right *Node, leftLen int) (*Node, error) {
	const op = "concat"
	if err := checkDetached(op, left, right); err != nil {
		return nil, err
	}
	n, err := p.internal()
	if err != nil {
		return nil, allocError(op, err)
	}
	n.link(left, right, leftLen)
	return n, nil
}

// Concat joins left and right into one rope. leftLen must equal left's
// length. Both handles are consumed on success and untouched on failure.
// Both ropes must share a node pool.
//
// An empty operand is treated as absent: the other tree is transferred
// without allocating.
func Concat(left, right *Rope, leftLen int) (*Rope, error) {
	const op = "concat"
	if left == nil || right == nil {
		return nil, paramError(op, "nil rope")
	}
	if left.root == nil || right.root == nil {
		return nil, errConsumed(op)
	}
	if left == right || left.root == right.root {
		return nil, paramError(op, "cannot concatenate a rope with itself")
	}
	if left.pool != right.pool {
		return nil, paramError(op, "ropes use different node pools")
	}
	if leftLen != left.Len() {
		return nil, paramError(op, "length hint %d does not match left length %d", leftLen, left.Len())
	}

	p := left.pool
	switch {
	case right.Len() == 0:
		right.Release()
		return left.move(), nil
	case left.Len() == 0:
		out := left.derive(right.root)
		right.root = nil
		left.Release()
		return out, nil
	}

	lc := left.root.left.detach()
	rc := right.root.left.detach()
	join, err := p.concat(lc, rc, leftLen)
	if err != nil {
		lc.parent = left.root
		rc.parent = right.root
		return nil, err
	}

	root := left.root
	root.link(join, nil, leftLen+right.Len())
	p.put(right.root)
	right.root = nil

	out := left.move()
	return out, out.verify(op)
}

// move transfers r's tree to a new handle and consumes r.
func (r *Rope) move() *Rope {
	out := r.derive(r.root)
	r.root = nil
	return out
}
