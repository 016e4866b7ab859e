package tab

// Branch names which child a cursor stepped through to reach its current
// position.
type Branch int

const (
	Left Branch = iota
	Right
)

// Cursor navigates the pane tree with a zipper-style path that records,
// for each step down, which branch was taken. It is built from a
// path-of-nodes (root..current inclusive) rather than a literal
// parent/sibling chain, and every navigation operation runs in O(depth).
type Cursor struct {
	path []*Node // path[0] is the tree root, path[len-1] is "here"
}

// NewCursor starts a cursor at the tree's root.
func NewCursor(root *Node) *Cursor {
	if root == nil {
		return &Cursor{}
	}
	return &Cursor{path: []*Node{root}}
}

// Node returns the node the cursor currently rests on.
func (c *Cursor) Node() *Node {
	if len(c.path) == 0 {
		return nil
	}
	return c.path[len(c.path)-1]
}

// GoLeft descends into the left child of the current node.
func (c *Cursor) GoLeft() bool {
	n := c.Node()
	if !n.isNode() {
		return false
	}
	c.path = append(c.path, n.Left)
	return true
}

// GoRight descends into the right child of the current node.
func (c *Cursor) GoRight() bool {
	n := c.Node()
	if !n.isNode() {
		return false
	}
	c.path = append(c.path, n.Right)
	return true
}

// GoUp moves to the parent of the current node.
func (c *Cursor) GoUp() bool {
	if len(c.path) <= 1 {
		return false
	}
	c.path = c.path[:len(c.path)-1]
	return true
}

// Depth is how many steps below the root the cursor currently sits.
func (c *Cursor) Depth() int { return len(c.path) - 1 }

// branchAt reports which side path[i] occupies in path[i-1].
func branchAt(path []*Node, i int) Branch {
	if path[i-1].Left == path[i] {
		return Left
	}
	return Right
}

// PreorderNext advances to the next node in preorder traversal, or returns
// false if the cursor is already at the last node.
func (c *Cursor) PreorderNext() bool {
	n := c.Node()
	if n.isNode() {
		return c.GoLeft()
	}
	// leaf: walk up until we can step into an unvisited right child
	for len(c.path) > 1 {
		branch := branchAt(c.path, len(c.path)-1)
		c.path = c.path[:len(c.path)-1]
		if branch == Left {
			return c.GoRight()
		}
	}
	return false
}

// PostorderNext advances to the next node in postorder traversal.
func (c *Cursor) PostorderNext() bool {
	for len(c.path) > 1 {
		branch := branchAt(c.path, len(c.path)-1)
		parent := c.path[len(c.path)-2]
		c.path = c.path[:len(c.path)-1]
		if branch == Left {
			c.path = append(c.path, parent.Right)
			return descendToLeftmostLeaf(c)
		}
		return true
	}
	return false
}

func descendToLeftmostLeaf(c *Cursor) bool {
	for c.Node().isNode() {
		c.GoLeft()
	}
	return true
}

// GoToNthLeaf resets the cursor to the root and descends to the nth leaf
// (0-indexed, preorder).
func (c *Cursor) GoToNthLeaf(root *Node, n int) bool {
	path := pathToLeaf(root, n)
	if path == nil {
		return false
	}
	c.path = path
	return true
}

// LeafIndex returns the preorder index of the current node, assuming it is
// a leaf; -1 if the cursor isn't on a leaf.
func (c *Cursor) LeafIndex(root *Node) int {
	n := c.Node()
	if !n.isLeaf() {
		return -1
	}
	idx := 0
	leaves := leavesPreorder(root, nil)
	for i, l := range leaves {
		if l == n {
			idx = i
			break
		}
	}
	return idx
}
