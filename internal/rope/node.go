package rope

// Node is a node in the rope's binary tree.
//
// A node is a leaf iff it has no children. Leaves own a byte buffer (which may
// be empty); internal nodes own their children and cache leftLen, the exact
// byte count of the left subtree. The parent field is a back-reference used
// only for upward walks; it never implies ownership.
type Node struct {
	text    []byte // Leaf buffer; empty for internal nodes
	leftLen int    // Byte count of the left subtree (internal nodes)

	left, right *Node
	parent      *Node // Non-owning back-reference
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return n.left == nil && n.right == nil
}

// LeftLen returns the cached length of the left subtree.
func (n *Node) LeftLen() int {
	return n.leftLen
}

// Left returns the left child, or nil.
func (n *Node) Left() *Node {
	return n.left
}

// Right returns the right child, or nil.
func (n *Node) Right() *Node {
	return n.right
}

// Parent returns the node's parent, or nil for a detached node or a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Text returns a copy of a leaf's buffer. Internal nodes return "".
func (n *Node) Text() string {
	return string(n.text)
}

// Len returns the byte length of a leaf's buffer.
func (n *Node) Len() int {
	return len(n.text)
}

// isLeftChild reports whether n hangs off its parent's left link.
func (n *Node) isLeftChild() bool {
	return n.parent != nil && n.parent.left == n
}

// link makes left and right the children of n and records leftLen.
// Both children must be detached.
func (n *Node) link(left, right *Node, leftLen int) {
	n.left = left
	n.right = right
	n.leftLen = leftLen
	if left != nil {
		left.parent = n
	}
	if right != nil {
		right.parent = n
	}
}

// detach clears the back-reference from n to its parent. The parent's link
// is left for the caller to overwrite.
func (n *Node) detach() *Node {
	if n != nil {
		n.parent = nil
	}
	return n
}

// subtreeLen computes the byte length of the subtree rooted at n from the
// cached leftLen values, walking only the right spine.
func subtreeLen(n *Node) int {
	total := 0
	for n != nil {
		if n.IsLeaf() {
			return total + len(n.text)
		}
		total += n.leftLen
		n = n.right
	}
	return total
}

// Location identifies an absolute position as a leaf and an offset inside
// its buffer. It is valid only until the next structural operation.
type Location struct {
	Leaf   *Node
	Offset int
}
