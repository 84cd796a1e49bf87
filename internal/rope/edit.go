package rope

// Insert inserts text so that its first byte lands at 1-based index i,
// 1 <= i <= Len+1. Inserting at either end joins the new leaf to the
// existing content without splitting. Otherwise the rope is split at i-1
// and the pieces are joined as prefix, text, suffix.
//
// Every node the operation needs is reserved before the tree is touched,
// so on failure the rope is unchanged.
func (r *Rope) Insert(i int, text string) error {
	const op = "insert"
	if r.root == nil {
		return errConsumed(op)
	}
	n := r.Len()
	if len(text) == 0 {
		return paramError(op, "empty text")
	}
	if i < 1 || i > n+1 {
		return paramError(op, "index %d outside [1, %d]", i, n+1)
	}

	leaf, err := r.pool.leaf(text)
	if err != nil {
		return allocError(op, err)
	}
	add := len(text)

	if n == 0 {
		root, err := r.pool.internal()
		if err != nil {
			r.pool.put(leaf)
			return allocError(op, err)
		}
		root.link(leaf, nil, add)
		r.pool.release(r.root)
		r.root = root
		return r.verify(op)
	}

	if i == 1 || i == n+1 {
		nodes, err := r.pool.reserve(2)
		if err != nil {
			r.pool.put(leaf)
			return allocError(op, err)
		}
		join, root := nodes[0], nodes[1]
		content := r.root.left.detach()
		if i == 1 {
			join.link(leaf, content, add)
		} else {
			join.link(content, leaf, n)
		}
		root.link(join, nil, n+add)
		r.pool.put(r.root)
		r.root = root
		return r.verify(op)
	}

	nodes, err := r.pool.reserve(3)
	if err != nil {
		r.pool.put(leaf)
		return allocError(op, err)
	}
	suffix, err := r.pool.splitTree(r.root, i-1)
	if err != nil {
		r.pool.putAll(nodes)
		r.pool.put(leaf)
		r.log.Warn("insert failed, rope unchanged", "index", i, "error", err)
		return err
	}

	inner, outer, root := nodes[0], nodes[1], nodes[2]
	inner.link(r.root.left.detach(), leaf, i-1)
	outer.link(inner, suffix.left.detach(), i-1+add)
	root.link(outer, nil, n+add)
	r.pool.put(r.root)
	r.pool.put(suffix)
	r.root = root
	return r.verify(op)
}

// Delete removes the 1-based inclusive range [i, j], 1 <= i <= j <= Len.
//
// The prefix before i and the suffix after j are split off before anything
// is discarded. When both exist, one spare node is reserved so that a
// failure in the second split can re-join the halves of the first; the rope
// then keeps its content, though not necessarily its shape.
func (r *Rope) Delete(i, j int) error {
	const op = "delete"
	if r.root == nil {
		return errConsumed(op)
	}
	n := r.Len()
	if n == 0 {
		return paramError(op, "empty rope")
	}
	if i < 1 || j > n || j < i {
		return paramError(op, "range [%d, %d] outside [1, %d]", i, j, n)
	}

	switch {
	case i == 1 && j == n:
		root, err := r.pool.emptyRoot()
		if err != nil {
			return allocError(op, err)
		}
		r.pool.release(r.root)
		r.root = root

	case i == 1:
		suffix, err := r.pool.splitTree(r.root, j)
		if err != nil {
			r.log.Warn("delete failed, rope unchanged", "from", i, "to", j, "error", err)
			return err
		}
		r.pool.release(r.root)
		r.root = suffix

	case j == n:
		middle, err := r.pool.splitTree(r.root, i-1)
		if err != nil {
			r.log.Warn("delete failed, rope unchanged", "from", i, "to", j, "error", err)
			return err
		}
		r.pool.release(middle)

	default:
		nodes, err := r.pool.reserve(2)
		if err != nil {
			return allocError(op, err)
		}
		join, root := nodes[0], nodes[1]

		middle, err := r.pool.splitTree(r.root, i-1)
		if err != nil {
			r.pool.putAll(nodes)
			r.log.Warn("delete failed, rope unchanged", "from", i, "to", j, "error", err)
			return err
		}
		suffix, err := r.pool.splitTree(middle, j-i+1)
		if err != nil {
			join.link(r.root.left.detach(), middle.left.detach(), i-1)
			r.root.link(join, nil, n)
			r.pool.put(middle)
			r.pool.put(root)
			r.log.Warn("delete failed, halves re-joined", "from", i, "to", j, "error", err)
			return err
		}

		join.link(r.root.left.detach(), suffix.left.detach(), i-1)
		root.link(join, nil, n-(j-i+1))
		r.pool.release(middle)
		r.pool.put(r.root)
		r.pool.put(suffix)
		r.root = root
	}

	return r.verify(op)
}
