package consensus

import "gonum.org/v1/gonum/mat"

// Node is a merge tree node. Leaves carry the row index of a sample;
// internal nodes carry two children and the linkage distance at which they
// were merged.
type Node struct {
	// Index is the row index for a leaf and -1 for internal nodes.
	Index    int
	Left     *Node
	Right    *Node
	Distance float64

	// ClusterID is the label assigned when the active-cluster count first
	// reached K, or NoCluster for nodes merged after that point.
	ClusterID int

	// size is the number of leaves under the node.
	size int
	// step is the merge step that created an internal node.
	step int
}

func newLeaf(index int) *Node {
	return &Node{Index: index, ClusterID: NoCluster, size: 1}
}

func newInternal(left, right *Node, dist float64) *Node {
	return &Node{
		Index:     -1,
		Left:      left,
		Right:     right,
		Distance:  dist,
		ClusterID: NoCluster,
		size:      left.size + right.size,
	}
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// Size returns the number of leaves under the node.
func (n *Node) Size() int { return n.size }

// Leaves returns the leaf indices under n from left to right.
func (n *Node) Leaves() []int {
	out := make([]int, 0, n.size)
	return n.appendLeaves(out)
}

func (n *Node) appendLeaves(out []int) []int {
	if n.IsLeaf() {
		return append(out, n.Index)
	}
	out = n.Left.appendLeaves(out)
	return n.Right.appendLeaves(out)
}

// mirror reverses the leaf order under n by swapping children at every level.
func (n *Node) mirror() {
	if n.IsLeaf() {
		return
	}
	n.Left, n.Right = n.Right, n.Left
	n.Left.mirror()
	n.Right.mirror()
}

// Reorder orients the subtrees of root, bottom-up, so that leaves that end
// up adjacent across each merge are as similar as possible under sim. After
// it returns, root.Leaves() is the presentation order. Only the left/right
// orientation changes; the topology and merge distances are untouched.
func Reorder(root *Node, sim mat.Symmetric) {
	if root == nil || root.IsLeaf() {
		return
	}
	Reorder(root.Left, sim)
	Reorder(root.Right, sim)

	lFirst, lLast := root.Left.first(), root.Left.last()
	rFirst, rLast := root.Right.first(), root.Right.last()

	// Candidate boundaries: keep both, flip left, flip right, flip both.
	// Ties keep the earlier candidate, so an already good orientation stays.
	best, bestFlipL, bestFlipR := sim.At(lLast, rFirst), false, false
	if s := sim.At(lFirst, rFirst); s > best {
		best, bestFlipL, bestFlipR = s, true, false
	}
	if s := sim.At(lLast, rLast); s > best {
		best, bestFlipL, bestFlipR = s, false, true
	}
	if s := sim.At(lFirst, rLast); s > best {
		bestFlipL, bestFlipR = true, true
	}

	if bestFlipL {
		root.Left.mirror()
	}
	if bestFlipR {
		root.Right.mirror()
	}
}

func (n *Node) first() int {
	for !n.IsLeaf() {
		n = n.Left
	}
	return n.Index
}

func (n *Node) last() int {
	for !n.IsLeaf() {
		n = n.Right
	}
	return n.Index
}

// assignCluster labels n and every node below it.
func (n *Node) assignCluster(id int) {
	n.ClusterID = id
	if n.IsLeaf() {
		return
	}
	n.Left.assignCluster(id)
	n.Right.assignCluster(id)
}
