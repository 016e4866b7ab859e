package tab

import "github.com/loppo-llc/termmux/internal/pane"

// applySizesFromSplits walks the tree top-down, pushing the already-decided
// split ratios (set by adjustColsSize/adjustRowsSize or left untouched by a
// zoom restore) out to PixelWidth/PixelHeight and to the perpendicular
// dimension each child must share with its parent, then returns having
// touched every node once.
func applySizesFromSplits(n *Node, size pane.TerminalSize) {
	if n == nil || n.isLeaf() {
		return
	}
	cellW, cellH := size.CellPixelSize()
	first := n.SplitInfo.First
	second := n.SplitInfo.Second
	if n.SplitInfo.Direction == Horizontal {
		first.Rows = size.Rows
		second.Rows = size.Rows
		first.PixelHeight = size.PixelHeight
		second.PixelHeight = size.PixelHeight
		first.PixelWidth = int(float64(first.Cols) * cellW)
		second.PixelWidth = int(float64(second.Cols) * cellW)
	} else {
		first.Cols = size.Cols
		second.Cols = size.Cols
		first.PixelWidth = size.PixelWidth
		second.PixelWidth = size.PixelWidth
		first.PixelHeight = int(float64(first.Rows) * cellH)
		second.PixelHeight = int(float64(second.Rows) * cellH)
	}
	n.SplitInfo.First = first
	n.SplitInfo.Second = second
	applySizesFromSplits(n.Left, first)
	applySizesFromSplits(n.Right, second)
}

// adjustColsSize distributes a change in column count through the tree.
// Horizontal splits divide columns, so they're the along-axis case: the
// delta moves one cell at a time, alternating starting with the left
// child, never pushing a child below its subtree's minimum. Vertical
// splits stack rows, so columns are their perpendicular axis: both
// children simply take the whole delta. Recurses into both children with
// whatever delta each one actually absorbed.
func adjustColsSize(n *Node, delta int) {
	if n == nil || n.isLeaf() || delta == 0 {
		return
	}
	if n.SplitInfo.Direction == Horizontal {
		minLeft, _ := minSize(n.Left)
		minRight, _ := minSize(n.Right)
		dLeft, dRight := distributeAlongAxis(delta, n.SplitInfo.First.Cols, n.SplitInfo.Second.Cols, minLeft, minRight)
		n.SplitInfo.First.Cols += dLeft
		n.SplitInfo.Second.Cols += dRight
		adjustColsSize(n.Left, dLeft)
		adjustColsSize(n.Right, dRight)
	} else {
		n.SplitInfo.First.Cols = clampMin1(n.SplitInfo.First.Cols + delta)
		n.SplitInfo.Second.Cols = clampMin1(n.SplitInfo.Second.Cols + delta)
		adjustColsSize(n.Left, delta)
		adjustColsSize(n.Right, delta)
	}
}

// adjustRowsSize is adjustColsSize's row-axis mirror: Vertical splits
// divide rows (along axis), Horizontal splits share rows uniformly
// (perpendicular axis).
func adjustRowsSize(n *Node, delta int) {
	if n == nil || n.isLeaf() || delta == 0 {
		return
	}
	if n.SplitInfo.Direction == Vertical {
		_, minLeft := minSize(n.Left)
		_, minRight := minSize(n.Right)
		dTop, dBottom := distributeAlongAxis(delta, n.SplitInfo.First.Rows, n.SplitInfo.Second.Rows, minLeft, minRight)
		n.SplitInfo.First.Rows += dTop
		n.SplitInfo.Second.Rows += dBottom
		adjustRowsSize(n.Left, dTop)
		adjustRowsSize(n.Right, dBottom)
	} else {
		n.SplitInfo.First.Rows = clampMin1(n.SplitInfo.First.Rows + delta)
		n.SplitInfo.Second.Rows = clampMin1(n.SplitInfo.Second.Rows + delta)
		adjustRowsSize(n.Left, delta)
		adjustRowsSize(n.Right, delta)
	}
}

func clampMin1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// distributeAlongAxis spends abs(delta) one-cell steps alternating between
// left and right, starting with left, skipping a side once a step would
// take it below its minimum and handing that step to the other side
// instead. Stops early once both sides are saturated. Returns how much
// each side actually absorbed.
func distributeAlongAxis(delta, curLeft, curRight, minLeft, minRight int) (dLeft, dRight int) {
	step := 1
	if delta < 0 {
		step = -1
	}
	left, right := curLeft, curRight
	leftTurn := true
	for i := 0; i < abs(delta); i++ {
		if leftTurn {
			if tryStep(&left, step, minLeft) {
				dLeft += step
			} else if tryStep(&right, step, minRight) {
				dRight += step
			} else {
				break
			}
		} else {
			if tryStep(&right, step, minRight) {
				dRight += step
			} else if tryStep(&left, step, minLeft) {
				dLeft += step
			} else {
				break
			}
		}
		leftTurn = !leftTurn
	}
	return dLeft, dRight
}

func tryStep(v *int, step, min int) bool {
	nv := *v + step
	if step < 0 && nv < min {
		return false
	}
	*v = nv
	return true
}

// resizeSplitBy nudges the divider at the internal node reached by path
// (root-relative index order, as returned by internalNodes) by delta cells
// along its own axis, growing one side and shrinking the other by one cell
// at a time so neither child drops below its minimum size.
func resizeSplitBy(root *Node, splitIndex int, delta int) bool {
	nodes := internalNodes(root, nil)
	if splitIndex < 0 || splitIndex >= len(nodes) {
		return false
	}
	target := nodes[splitIndex]
	moved := false
	step := 1
	if delta < 0 {
		step = -1
	}
	for i := 0; i < abs(delta); i++ {
		if !nudgeOnce(target, step) {
			break
		}
		moved = true
	}
	return moved
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// nudgeOnce grows First by step cells and shrinks Second by step cells
// along the split's own axis, refusing if either side would fall below its
// subtree's minimum size.
func nudgeOnce(n *Node, step int) bool {
	minFc, minFr := minSize(n.Left)
	minSc, minSr := minSize(n.Right)

	first := n.SplitInfo.First
	second := n.SplitInfo.Second
	cellW, cellH := first.CellPixelSize()

	if n.SplitInfo.Direction == Horizontal {
		newFirst := first.Cols + step
		newSecond := second.Cols - step
		if newFirst < minFc || newSecond < minSc {
			return false
		}
		first.Cols = newFirst
		second.Cols = newSecond
		first.PixelWidth = int(float64(newFirst) * cellW)
		second.PixelWidth = int(float64(newSecond) * cellW)
	} else {
		newFirst := first.Rows + step
		newSecond := second.Rows - step
		if newFirst < minFr || newSecond < minSr {
			return false
		}
		first.Rows = newFirst
		second.Rows = newSecond
		first.PixelHeight = int(float64(newFirst) * cellH)
		second.PixelHeight = int(float64(newSecond) * cellH)
	}
	n.SplitInfo.First = first
	n.SplitInfo.Second = second
	applySizesFromSplits(n.Left, first)
	applySizesFromSplits(n.Right, second)
	return true
}

// adjustPaneSize grows or shrinks the leaf at leafIndex by delta cells
// along axis dir by walking up to its parent split and nudging it.
func adjustPaneSize(root *Node, leafIndex int, dir Direction, delta int) bool {
	path := pathToLeaf(root, leafIndex)
	if path == nil {
		return false
	}
	for i := len(path) - 2; i >= 0; i-- {
		parent := path[i]
		if parent.SplitInfo.Direction != dir {
			continue
		}
		leaf := path[i+1]
		step := delta
		if parent.Right == leaf {
			step = -delta
		}
		nodes := internalNodes(root, nil)
		for idx, cand := range nodes {
			if cand == parent {
				return resizeSplitBy(root, idx, step)
			}
		}
	}
	return false
}
