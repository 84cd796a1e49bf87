package rope

// Validate checks every structural invariant of the tree:
//
//   - the root has no parent, no right child, a left child and no data
//   - every child's parent points back at the node that holds it
//   - no node is reachable twice
//   - internal nodes hold no data
//   - every internal node's leftLen equals the length of its left subtree
//
// It returns an error matching ErrInternal describing the first violation.
// Validate costs O(n) time and memory.
func (r *Rope) Validate() error {
	const op = "validate"
	if r.root == nil {
		return errConsumed(op)
	}
	return validate(op, r.root)
}

func validate(op string, root *Node) error {
	switch {
	case root.parent != nil:
		return internalError(op, "root has a parent")
	case root.right != nil:
		return internalError(op, "root has a right child")
	case root.left == nil:
		return internalError(op, "root has no content")
	case len(root.text) != 0:
		return internalError(op, "root holds %d bytes of data", len(root.text))
	}

	// Pre-order pass: ownership and back-references.
	seen := make(map[*Node]struct{})
	order := make([]*Node, 0, 64)
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := seen[n]; dup {
			return internalError(op, "node reachable more than once")
		}
		seen[n] = struct{}{}
		order = append(order, n)

		for _, c := range [2]*Node{n.right, n.left} {
			if c == nil {
				continue
			}
			if c.parent != n {
				return internalError(op, "child at depth-first position %d has a wrong parent", len(order))
			}
			stack = append(stack, c)
		}
	}

	// Reverse pre-order visits children before parents.
	lengths := make(map[*Node]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.IsLeaf() {
			lengths[n] = len(n.text)
			continue
		}
		if len(n.text) != 0 {
			return internalError(op, "internal node holds %d bytes of data", len(n.text))
		}
		left := lengths[n.left]
		if n.leftLen != left {
			return internalError(op, "cached left length %d, actual %d", n.leftLen, left)
		}
		lengths[n] = left + lengths[n.right]
	}
	return nil
}
