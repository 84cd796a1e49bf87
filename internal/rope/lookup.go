package rope

// KthChar returns the byte at 0-based index k.
func (r *Rope) KthChar(k int) (byte, error) {
	const op = "kthchar"
	if r.root == nil {
		return 0, errConsumed(op)
	}
	if k < 0 {
		return 0, paramError(op, "negative index %d", k)
	}
	if k >= r.Len() {
		return 0, indexError(op, k, r.Len())
	}

	n, off := r.root, k
	for !n.IsLeaf() {
		if off < n.leftLen {
			n = n.left
		} else {
			off -= n.leftLen
			n = n.right
		}
		if n == nil {
			return 0, internalError(op, "descent for index %d reached a missing child", k)
		}
	}
	if off >= len(n.text) {
		return 0, indexError(op, k, r.Len())
	}
	return n.text[off], nil
}

// Locate returns the leaf and in-leaf offset holding 0-based index k.
func (r *Rope) Locate(k int) (Location, error) {
	const op = "locate"
	if r.root == nil {
		return Location{}, errConsumed(op)
	}
	if k < 0 {
		return Location{}, paramError(op, "negative index %d", k)
	}
	if k >= r.Len() {
		return Location{}, indexError(op, k, r.Len())
	}
	return locate(op, r.root, k)
}

// locate descends from root to the leaf holding offset k. Reaching a leaf
// that cannot supply the offset means some leftLen is wrong.
func locate(op string, root *Node, k int) (Location, error) {
	n, off := root, k
	for !n.IsLeaf() {
		if off < n.leftLen {
			n = n.left
		} else {
			off -= n.leftLen
			n = n.right
		}
		if n == nil {
			return Location{}, internalError(op, "descent for index %d reached a missing child", k)
		}
	}
	if off >= len(n.text) {
		return Location{}, internalError(op, "leaf of length %d cannot supply offset %d", len(n.text), off)
	}
	return Location{Leaf: n, Offset: off}, nil
}
