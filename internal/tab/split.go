package tab

import (
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/pane"
)

// SizeSpec is either an absolute cell count or a percentage of the parent
// dimension less the one-cell divider.
type SizeSpec struct {
	Cells   int
	Percent int // 0 means "use Cells instead"
}

func CellsSize(n int) SizeSpec    { return SizeSpec{Cells: n} }
func PercentSize(p int) SizeSpec { return SizeSpec{Percent: p} }

// SplitRequest describes a requested split: direction, which side the
// new pane lands on, whether it targets the whole tab instead of one
// leaf, and the new side's size.
type SplitRequest struct {
	Direction     Direction
	TargetIsSecond bool
	TopLevel      bool
	Size          SizeSpec
}

// computeSplitSize derives the full Split describing both children from
// a parent size and a SplitRequest.
func computeSplitSize(parent pane.TerminalSize, req SplitRequest) (Split, error) {
	var dim int
	if req.Direction == Horizontal {
		dim = parent.Cols
	} else {
		dim = parent.Rows
	}

	var target int
	if req.Size.Percent > 0 {
		target = (dim - 1) * req.Size.Percent / 100
	} else {
		target = req.Size.Cells
	}
	if target < 1 {
		target = 1
	}

	remaining := dim - target - 1
	if remaining < 1 {
		return Split{}, &muxerr.NoSpace{}
	}

	var firstDim, secondDim int
	if req.TargetIsSecond {
		firstDim, secondDim = remaining, target
	} else {
		firstDim, secondDim = target, remaining
	}

	cellW, cellH := parent.CellPixelSize()

	first := parent
	second := parent
	if req.Direction == Horizontal {
		first.Cols = firstDim
		second.Cols = secondDim
		first.PixelWidth = int(float64(firstDim) * cellW)
		second.PixelWidth = int(float64(secondDim) * cellW)
	} else {
		first.Rows = firstDim
		second.Rows = secondDim
		first.PixelHeight = int(float64(firstDim) * cellH)
		second.PixelHeight = int(float64(secondDim) * cellH)
	}

	return Split{Direction: req.Direction, First: first, Second: second}, nil
}

// splitAndInsert splits the leaf at leafIndex (or, if req.TopLevel, the
// whole tree) into a Node holding the existing pane and newPane, sized
// per computeSplitSize. Returns the new root and the leaf index of the
// newly inserted pane.
func splitAndInsert(root *Node, leafIndex int, tabSize pane.TerminalSize, req SplitRequest, newPane pane.Pane) (newRoot *Node, insertedIndex int, err error) {
	if req.TopLevel {
		split, err := computeSplitSize(tabSize, req)
		if err != nil {
			return root, 0, err
		}
		var node *Node
		if req.TargetIsSecond {
			node = &Node{Left: root, Right: leafNode(newPane), SplitInfo: &split}
			return node, countLeaves(root), nil
		}
		node = &Node{Left: leafNode(newPane), Right: root, SplitInfo: &split}
		return node, 0, nil
	}

	path := pathToLeaf(root, leafIndex)
	if path == nil {
		return root, 0, &muxerr.InvalidIndex{Kind: "pane", Idx: leafIndex}
	}
	leaf := path[len(path)-1]
	parentSize := tabSize
	if len(path) >= 2 {
		parent := path[len(path)-2]
		if parent.Left == leaf {
			parentSize = parent.SplitInfo.First
		} else {
			parentSize = parent.SplitInfo.Second
		}
	}

	split, err := computeSplitSize(parentSize, req)
	if err != nil {
		return root, 0, err
	}

	existing := leafNode(leaf.Pane)
	fresh := leafNode(newPane)
	if req.TargetIsSecond {
		leaf.Pane = nil
		leaf.Left, leaf.Right = existing, fresh
	} else {
		leaf.Pane = nil
		leaf.Left, leaf.Right = fresh, existing
	}
	leaf.SplitInfo = &split

	// recompute inserted index: preorder index of `fresh`.
	leaves := leavesPreorder(root, nil)
	for i, l := range leaves {
		if l == fresh {
			return root, i, nil
		}
	}
	return root, leafIndex, nil
}

// unsplitLeaf removes the leaf at leafIndex and promotes its sibling
// into the parent's slot. Returns the new root (nil if the tree becomes
// empty) and whether the removal happened.
func unsplitLeaf(root *Node, leafIndex int) (newRoot *Node, removed bool) {
	path := pathToLeaf(root, leafIndex)
	if path == nil {
		return root, false
	}
	if len(path) == 1 {
		// leaf is the whole tree; removing it empties the tab.
		return nil, true
	}
	leaf := path[len(path)-1]
	parent := path[len(path)-2]
	var sibling *Node
	if parent.Left == leaf {
		sibling = parent.Right
	} else {
		sibling = parent.Left
	}
	if len(path) == 2 {
		// parent is the root; sibling becomes the new root.
		return sibling, true
	}
	grandparent := path[len(path)-3]
	if grandparent.Left == parent {
		grandparent.Left = sibling
	} else {
		grandparent.Right = sibling
	}
	return root, true
}
