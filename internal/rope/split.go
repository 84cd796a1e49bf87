package rope

// splitLeaf moves the bytes [pos, len) of leaf into a new, detached leaf and
// truncates leaf to [0, pos). If the new leaf cannot be allocated, leaf is
// left unchanged. No leftLen values are touched; the caller links the new
// leaf and fixes the ancestors.
func (p *NodePool) splitLeaf(leaf *Node, pos int) (*Node, error) {
	const op = "splitleaf"
	if leaf == nil || !leaf.IsLeaf() {
		return nil, paramError(op, "not a leaf")
	}
	if pos < 0 || pos > len(leaf.text) {
		return nil, paramError(op, "offset %d outside [0, %d]", pos, len(leaf.text))
	}

	tail, err := p.get()
	if err != nil {
		return nil, allocError(op, err)
	}
	tail.text = append(tail.text[:0], leaf.text[pos:]...)
	leaf.text = leaf.text[:pos]
	return tail, nil
}

// graft records a right subtree that moves from orig to a new spine node
// once the split commits.
type graft struct {
	orig  *Node
	spine *Node
}

// splitTree splits the tree under root at pos, 0 <= pos < length. The tree
// under root keeps [0, pos); the returned root holds [pos, end).
//
// The descent allocates the new spine and records which right subtrees move
// to it, without touching the original tree. If any allocation fails before
// the leaf split succeeds, the partial spine is returned to the pool and the
// original is unchanged. After the leaf split only pointer and counter
// updates remain, so the rest cannot fail.
func (p *NodePool) splitTree(root *Node, pos int) (*Node, error) {
	const op = "split"

	newRoot, err := p.internal()
	if err != nil {
		return nil, allocError(op, err)
	}
	spine := []*Node{newRoot}
	var grafts []graft

	cur, off, curLen := root, pos, subtreeLen(root)
	tip := newRoot
	for !cur.IsLeaf() {
		if off < cur.leftLen {
			// Going left: the right subtree belongs to the suffix.
			if cur.right != nil {
				n, err := p.internal()
				if err != nil {
					p.putAll(spine)
					return nil, allocError(op, err)
				}
				n.right = cur.right
				n.parent = tip
				tip.left = n
				tip.leftLen = curLen - cur.leftLen
				spine = append(spine, n)
				grafts = append(grafts, graft{orig: cur, spine: n})
				tip = n
			}
			curLen = cur.leftLen
			cur = cur.left
		} else {
			off -= cur.leftLen
			curLen -= cur.leftLen
			cur = cur.right
		}
		if cur == nil {
			p.putAll(spine)
			return nil, internalError(op, "descent for position %d reached a missing child", pos)
		}
	}

	tail, err := p.splitLeaf(cur, off)
	if err != nil {
		p.putAll(spine)
		return nil, err
	}

	// Commit. Nothing below allocates.
	tail.parent = tip
	tip.left = tail
	tip.leftLen = len(tail.text)
	for _, g := range grafts {
		g.orig.right.parent = g.spine
		g.orig.right = nil
	}

	// Original path: each left-child step resets the parent's leftLen to
	// what the child kept; each right-child step adds the parent's left side.
	kept := off
	for n := cur; n != root; n = n.parent {
		par := n.parent
		if par.left == n {
			par.leftLen = kept
		} else {
			kept += par.leftLen
		}
	}

	// New spine, bottom-up: each node's leftLen so far counts only the
	// grafted right subtree of its child; add the child's left side.
	cum := 0
	for i := len(spine) - 1; i >= 0; i-- {
		spine[i].leftLen += cum
		cum = spine[i].leftLen
	}

	return newRoot, nil
}

// Split splits the rope at 0-based position pos, 0 <= pos < Len. The
// receiver keeps [0, pos); the returned rope holds [pos, end) and shares the
// receiver's pool and options. On failure the receiver is unchanged.
func (r *Rope) Split(pos int) (*Rope, error) {
	const op = "split"
	if r.root == nil {
		return nil, errConsumed(op)
	}
	if pos < 0 || pos >= r.Len() {
		return nil, paramError(op, "position %d outside [0, %d)", pos, r.Len())
	}

	suffix, err := r.pool.splitTree(r.root, pos)
	if err != nil {
		r.log.Warn("split failed, rope unchanged", "position", pos, "error", err)
		return nil, err
	}

	out := r.derive(suffix)
	if err := r.verify(op); err != nil {
		return out, err
	}
	return out, out.verify(op)
}
