// Package tab implements the Tab and its binary pane-layout tree, the
// hardest subsystem in the mux: split/unsplit, resize propagation,
// cursor navigation, zoom and PaneNode serialization.
package tab

import (
	"github.com/loppo-llc/termmux/internal/pane"
)

// Direction is the axis a split divides.
type Direction int

const (
	Horizontal Direction = iota // side-by-side, divides columns
	Vertical                    // stacked, divides rows
)

// Split records the sizes of a Node's two children. The divider occupies
// one cell between them.
type Split struct {
	Direction Direction
	First     pane.TerminalSize
	Second    pane.TerminalSize
}

// Node is one point in the binary pane-layout tree. A Node is either:
//   - a leaf, when Pane != nil (Left == Right == nil, SplitInfo == nil)
//   - an internal node, when Left and Right are both non-nil and SplitInfo
//     describes how they divide the parent's space.
//
// The tree as a whole may also be Empty, represented by a nil *Node held
// by the owning Tab.
type Node struct {
	Pane      pane.Pane
	Left      *Node
	Right     *Node
	SplitInfo *Split
}

func leafNode(p pane.Pane) *Node { return &Node{Pane: p} }

func (n *Node) isLeaf() bool { return n != nil && n.Pane != nil }
func (n *Node) isNode() bool { return n != nil && n.Left != nil && n.Right != nil }

// countLeaves returns the number of leaves in the subtree rooted at n.
// Empty (n == nil) has zero leaves.
func countLeaves(n *Node) int {
	switch {
	case n == nil:
		return 0
	case n.isLeaf():
		return 1
	default:
		return countLeaves(n.Left) + countLeaves(n.Right)
	}
}

// leavesPreorder appends every leaf under n, in preorder (left-to-right)
// order, to out.
func leavesPreorder(n *Node, out []*Node) []*Node {
	switch {
	case n == nil:
		return out
	case n.isLeaf():
		return append(out, n)
	default:
		out = leavesPreorder(n.Left, out)
		out = leavesPreorder(n.Right, out)
		return out
	}
}

// pathToLeaf returns the chain of nodes from root down to and including
// the nth leaf (0-indexed, preorder), or nil if n is out of range.
func pathToLeaf(root *Node, leafIndex int) []*Node {
	var path []*Node
	counter := 0
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		path = append(path, n)
		if n.isLeaf() {
			if counter == leafIndex {
				return true
			}
			counter++
			path = path[:len(path)-1]
			return false
		}
		if walk(n.Left) {
			return true
		}
		path = path[:len(path)-1]
		path = append(path, n)
		if walk(n.Right) {
			return true
		}
		path = path[:len(path)-1]
		return false
	}
	if root == nil {
		return nil
	}
	if !walk(root) {
		return nil
	}
	return path
}

// internalNodes returns every internal (split) node under n, in preorder.
func internalNodes(n *Node, out []*Node) []*Node {
	if n == nil || n.isLeaf() {
		return out
	}
	out = append(out, n)
	out = internalNodes(n.Left, out)
	out = internalNodes(n.Right, out)
	return out
}

// minSize returns the minimum (cols, rows) the subtree rooted at n can be
// shrunk to: a leaf contributes (1,1); a Node contributes
// (max(l.x,r.x), l.y+r.y+1) for a Vertical split and
// (l.x+r.x+1, max(l.y,r.y)) for Horizontal.
func minSize(n *Node) (cols, rows int) {
	switch {
	case n == nil:
		return 0, 0
	case n.isLeaf():
		return 1, 1
	default:
		lc, lr := minSize(n.Left)
		rc, rr := minSize(n.Right)
		if n.SplitInfo.Direction == Vertical {
			c := lc
			if rc > c {
				c = rc
			}
			return c, lr + rr + 1
		}
		r := lr
		if rr > r {
			r = rr
		}
		return lc + rc + 1, r
	}
}
