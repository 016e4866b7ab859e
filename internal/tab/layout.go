package tab

import "github.com/loppo-llc/termmux/internal/pane"

// PositionedPane is a leaf's rendered placement within the tab.
type PositionedPane struct {
	Index  int
	Left   int
	Top    int
	Width  int
	Height int
	Pane   pane.Pane
	IsZoomed bool
	IsActive bool
}

// PositionedSplit is an internal divider's rendered placement.
type PositionedSplit struct {
	Index     int
	Left      int
	Top       int
	Direction Direction
	Size      int // length of the divider along the perpendicular axis
}

// iterPanes walks the tree computing each leaf's on-screen rectangle,
// given the tab's own top-left origin.
func iterPanes(root *Node, originLeft, originTop int, activeIndex int, out []PositionedPane) []PositionedPane {
	if root == nil {
		return out
	}
	if root.isLeaf() {
		dims := root.Pane.GetDimensions()
		idx := len(out)
		out = append(out, PositionedPane{
			Index:  idx,
			Left:   originLeft,
			Top:    originTop,
			Width:  dims.Cols,
			Height: dims.Rows,
			Pane:   root.Pane,
		})
		return out
	}
	out = iterPanes(root.Left, originLeft, originTop, activeIndex, out)
	if root.SplitInfo.Direction == Horizontal {
		rightLeft := originLeft + root.SplitInfo.First.Cols + 1
		out = iterPanes(root.Right, rightLeft, originTop, activeIndex, out)
	} else {
		rightTop := originTop + root.SplitInfo.First.Rows + 1
		out = iterPanes(root.Right, originLeft, rightTop, activeIndex, out)
	}
	return out
}

// iterSplits walks the tree computing each divider's on-screen position.
func iterSplits(root *Node, originLeft, originTop int, out []PositionedSplit) []PositionedSplit {
	if root == nil || root.isLeaf() {
		return out
	}
	idx := len(out)
	if root.SplitInfo.Direction == Horizontal {
		out = append(out, PositionedSplit{
			Index: idx, Left: originLeft + root.SplitInfo.First.Cols, Top: originTop,
			Direction: Horizontal, Size: root.SplitInfo.First.Rows,
		})
		out = iterSplits(root.Left, originLeft, originTop, out)
		out = iterSplits(root.Right, originLeft+root.SplitInfo.First.Cols+1, originTop, out)
	} else {
		out = append(out, PositionedSplit{
			Index: idx, Left: originLeft, Top: originTop + root.SplitInfo.First.Rows,
			Direction: Vertical, Size: root.SplitInfo.First.Cols,
		})
		out = iterSplits(root.Left, originLeft, originTop, out)
		out = iterSplits(root.Right, originLeft, originTop+root.SplitInfo.First.Rows+1, out)
	}
	return out
}

// NavDirection names a requested pane-to-pane movement.
type NavDirection int

const (
	NavNext NavDirection = iota
	NavPrev
	NavUp
	NavDown
	NavLeft
	NavRight
)

// navigate resolves the leaf index that activation in dir should move to,
// given the current active leaf and each leaf's rendered position. Next/Prev
// wrap around the preorder leaf sequence; the directional cases pick the
// geometrically nearest pane whose rectangle is adjacent on that side,
// breaking ties by most-recently-active.
func navigate(root *Node, positions []PositionedPane, activeIndex int, dir NavDirection, recency map[int]int) (int, bool) {
	n := len(positions)
	if n == 0 {
		return activeIndex, false
	}
	switch dir {
	case NavNext:
		return (activeIndex + 1) % n, true
	case NavPrev:
		return (activeIndex - 1 + n) % n, true
	}

	cur := positions[activeIndex]
	best := -1
	bestRecency := -1
	for i, p := range positions {
		if i == activeIndex {
			continue
		}
		if !isAdjacent(cur, p, dir) {
			continue
		}
		r := recency[i]
		if best == -1 || r > bestRecency {
			best = i
			bestRecency = r
		}
	}
	if best == -1 {
		return activeIndex, false
	}
	return best, true
}

func isAdjacent(cur, cand PositionedPane, dir NavDirection) bool {
	switch dir {
	case NavLeft:
		return cand.Left+cand.Width+1 == cur.Left && rangesOverlap(cur.Top, cur.Top+cur.Height, cand.Top, cand.Top+cand.Height)
	case NavRight:
		return cur.Left+cur.Width+1 == cand.Left && rangesOverlap(cur.Top, cur.Top+cur.Height, cand.Top, cand.Top+cand.Height)
	case NavUp:
		return cand.Top+cand.Height+1 == cur.Top && rangesOverlap(cur.Left, cur.Left+cur.Width, cand.Left, cand.Left+cand.Width)
	case NavDown:
		return cur.Top+cur.Height+1 == cand.Top && rangesOverlap(cur.Left, cur.Left+cur.Width, cand.Left, cand.Left+cand.Width)
	}
	return false
}

func rangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// removePaneIf removes every leaf for which pred returns true, promoting
// siblings as unsplitLeaf does, repeating until no more matches remain.
// Returns the new root and the panes removed, in the order removed.
func removePaneIf(root *Node, pred func(pane.Pane) bool) (*Node, []pane.Pane) {
	var removed []pane.Pane
	for {
		leaves := leavesPreorder(root, nil)
		idx := -1
		for i, l := range leaves {
			if pred(l.Pane) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return root, removed
		}
		removed = append(removed, leaves[idx].Pane)
		newRoot, ok := unsplitLeaf(root, idx)
		if !ok {
			return root, removed
		}
		root = newRoot
		if root == nil {
			return nil, removed
		}
	}
}
