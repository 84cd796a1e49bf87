package rope

import "fmt"

// Stats summarizes the shape of a rope's tree.
type Stats struct {
	Len         int // Total bytes
	Depth       int // Edges from the content node to the deepest leaf
	Leaves      int
	EmptyLeaves int
	Internal    int // Internal nodes below the root
}

// String formats the stats on one line.
func (s Stats) String() string {
	return fmt.Sprintf("len=%d depth=%d leaves=%d empty=%d internal=%d",
		s.Len, s.Depth, s.Leaves, s.EmptyLeaves, s.Internal)
}

// Stats walks the tree and reports its shape. A consumed rope reports
// zero values.
func (r *Rope) Stats() Stats {
	var s Stats
	if r.root == nil || r.root.left == nil {
		return s
	}
	s.Len = r.Len()

	type frame struct {
		n     *Node
		depth int
	}
	stack := []frame{{r.root.left, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s.Depth = max(s.Depth, f.depth)
		if f.n.IsLeaf() {
			s.Leaves++
			if len(f.n.text) == 0 {
				s.EmptyLeaves++
			}
			continue
		}
		s.Internal++
		if f.n.left != nil {
			stack = append(stack, frame{f.n.left, f.depth + 1})
		}
		if f.n.right != nil {
			stack = append(stack, frame{f.n.right, f.depth + 1})
		}
	}
	return s
}
