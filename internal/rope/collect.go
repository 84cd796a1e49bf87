package rope

// Collect returns the bytes in the 1-based inclusive range [i, j],
// 1 <= i <= j <= Len.
func (r *Rope) Collect(i, j int) (string, error) {
	const op = "collect"
	if r.root == nil {
		return "", errConsumed(op)
	}
	if i < 1 || j > r.Len() || j < i {
		return "", paramError(op, "range [%d, %d] outside [1, %d]", i, j, r.Len())
	}
	return collect(op, r.root, i, j)
}

// collect locates index i-1, copies what its leaf holds, then walks toward
// the root. Each time the walk leaves a left child it drains the parent's
// right subtree in order until the budget is spent. A budget left over at
// the root means the cached lengths lied.
func collect(op string, root *Node, i, j int) (string, error) {
	want := j - i + 1
	loc, err := locate(op, root, i-1)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, want)
	take := min(want, len(loc.Leaf.text)-loc.Offset)
	buf = append(buf, loc.Leaf.text[loc.Offset:loc.Offset+take]...)
	budget := want - take

	for n := loc.Leaf; n != root && budget > 0; n = n.parent {
		if n.parent == nil {
			return "", internalError(op, "leaf is not connected to the root")
		}
		if n.isLeftChild() {
			buf, budget = pickInOrder(n.parent.right, buf, budget)
		}
	}
	if budget > 0 {
		return "", internalError(op, "collected %d of %d bytes", want-budget, want)
	}
	return string(buf), nil
}

// pickInOrder appends up to budget bytes from the leaves under n in
// document order, stopping as soon as the budget is spent. It returns the
// extended buffer and the unspent budget.
func pickInOrder(n *Node, buf []byte, budget int) ([]byte, int) {
	var stack []*Node
	for budget > 0 && (n != nil || len(stack) > 0) {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsLeaf() {
			take := min(budget, len(n.text))
			buf = append(buf, n.text[:take]...)
			budget -= take
		}
		n = n.right
	}
	return buf, budget
}
