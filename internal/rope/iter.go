package rope

// LeafIterator walks the leaves of a rope in document order.
//
// The iterator reads the live tree; any structural operation on the rope
// invalidates it.
type LeafIterator struct {
	stack  []*Node
	cur    *Node
	leaf   *Node
	offset int // Absolute offset of the current leaf
	next   int // Absolute offset of the leaf after it
}

// Leaves returns an iterator over the rope's leaves, empty ones included.
// A consumed rope yields nothing.
func (r *Rope) Leaves() *LeafIterator {
	it := &LeafIterator{stack: make([]*Node, 0, 16)}
	if r.root != nil {
		it.cur = r.root
	}
	return it
}

// Next advances to the next leaf.
// Returns true if there is a leaf, false if iteration is complete.
func (it *LeafIterator) Next() bool {
	for it.cur != nil || len(it.stack) > 0 {
		// Push the left spine
		for it.cur != nil {
			it.stack = append(it.stack, it.cur)
			it.cur = it.cur.left
		}
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		it.cur = n.right

		if n.IsLeaf() {
			it.leaf = n
			it.offset = it.next
			it.next += len(n.text)
			return true
		}
	}
	it.leaf = nil
	return false
}

// Node returns the current leaf.
func (it *LeafIterator) Node() *Node {
	return it.leaf
}

// Text returns a copy of the current leaf's bytes.
func (it *LeafIterator) Text() string {
	if it.leaf == nil {
		return ""
	}
	return string(it.leaf.text)
}

// Bytes returns the current leaf's buffer. It must not be modified and is
// valid only until the next structural operation.
func (it *LeafIterator) Bytes() []byte {
	if it.leaf == nil {
		return nil
	}
	return it.leaf.text
}

// Offset returns the absolute 0-based offset of the current leaf's first
// byte.
func (it *LeafIterator) Offset() int {
	return it.offset
}

// Len returns the length of the current leaf.
func (it *LeafIterator) Len() int {
	if it.leaf == nil {
		return 0
	}
	return len(it.leaf.text)
}
