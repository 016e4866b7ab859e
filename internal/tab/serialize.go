package tab

import (
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
)

// PaneEntry is the flat, serializable description of one leaf.
type PaneEntry struct {
	WindowID      id.WindowId
	TabID         id.TabId
	PaneID        id.PaneId
	Title         string
	Size          pane.TerminalSize
	WorkingDir    string
	IsActive      bool
	IsZoomed      bool
	Workspace     string
	Cursor        pane.StableCursorPosition
	PhysicalTop   int64
	TopRow        int
	LeftCol       int
	TTYName       string
}

// PaneNode is the serialized counterpart of Node: either Empty, a Split
// with two children and divider info, or a Leaf holding a PaneEntry.
type PaneNode struct {
	Split *PaneNodeSplit
	Leaf  *PaneEntry
}

// PaneNodeSplit is the serialized counterpart of Split, nesting two child
// PaneNodes.
type PaneNodeSplit struct {
	Direction Direction
	First     pane.TerminalSize
	Second    pane.TerminalSize
	Left      *PaneNode
	Right     *PaneNode
}

// codecPaneTree walks the in-memory tree producing its PaneNode mirror.
// activeLeaf/zoomedLeaf are preorder leaf indices (zoomedLeaf may be -1).
// makeEntry supplies the non-tree-shape fields (title, cwd, workspace, ...)
// for a given leaf's pane.
func codecPaneTree(root *Node, activeLeaf, zoomedLeaf int, makeEntry func(p pane.Pane, leafIndex int, isActive, isZoomed bool) PaneEntry) *PaneNode {
	idx := 0
	var walk func(n *Node) *PaneNode
	walk = func(n *Node) *PaneNode {
		if n == nil {
			return nil
		}
		if n.isLeaf() {
			leafIndex := idx
			idx++
			entry := makeEntry(n.Pane, leafIndex, leafIndex == activeLeaf, leafIndex == zoomedLeaf)
			return &PaneNode{Leaf: &entry}
		}
		left := walk(n.Left)
		right := walk(n.Right)
		return &PaneNode{Split: &PaneNodeSplit{
			Direction: n.SplitInfo.Direction,
			First:     n.SplitInfo.First,
			Second:    n.SplitInfo.Second,
			Left:      left,
			Right:     right,
		}}
	}
	return walk(root)
}

// buildFromPaneTree reverses codecPaneTree: it reconstructs the in-memory
// tree from a PaneNode, calling makePane(entry) to obtain a live pane
// handle for each leaf. It also reports which preorder leaf index was
// marked active/zoomed in the serialized form, so the caller can restore
// that state on the new Tab.
func buildFromPaneTree(node *PaneNode, makePane func(entry PaneEntry) (pane.Pane, error)) (root *Node, activeLeaf int, zoomedLeaf int, err error) {
	activeLeaf, zoomedLeaf = -1, -1
	idx := 0
	var walk func(n *PaneNode) (*Node, error)
	walk = func(n *PaneNode) (*Node, error) {
		if n == nil {
			return nil, nil
		}
		if n.Leaf != nil {
			leafIndex := idx
			idx++
			p, err := makePane(*n.Leaf)
			if err != nil {
				return nil, err
			}
			if n.Leaf.IsActive {
				activeLeaf = leafIndex
			}
			if n.Leaf.IsZoomed {
				zoomedLeaf = leafIndex
			}
			return leafNode(p), nil
		}
		left, err := walk(n.Split.Left)
		if err != nil {
			return nil, err
		}
		right, err := walk(n.Split.Right)
		if err != nil {
			return nil, err
		}
		split := Split{Direction: n.Split.Direction, First: n.Split.First, Second: n.Split.Second}
		return &Node{Left: left, Right: right, SplitInfo: &split}, nil
	}
	root, err = walk(node)
	return root, activeLeaf, zoomedLeaf, err
}
