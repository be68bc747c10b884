package graph

import (
	"fmt"
	"math"
	"strings"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// Side names one of a node's two structural child slots.
type Side int

const (
	// Down places the child below its parent.
	Down Side = iota
	// Right places the child to the right of its parent.
	Right
)

func (s Side) String() string {
	switch s {
	case Down:
		return "down"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// ParseSide parses "down" or "right".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "down":
		return Down, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Vec is a point or offset in the unscaled logical plane.
type Vec struct {
	X float64
	Y float64
}

// Add returns v+o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*f.
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// Len returns the Euclidean norm of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Placement is where the rendering layer should draw a node.
type Placement struct {
	Pos    Vec     // top-left, in view units (plane * global scale)
	Scale  float64 // effective scale * global scale
	Width  float64
	Height float64
}

// Index is a node's slot in the graph arena.
type Index int32

const none Index = -1

// Node is a visual element bound one-to-one to a remote buffer.
type Node struct {
	// Buffer is the identity of the bound remote buffer.
	Buffer engine.BufferID
	// Key is the persistence key (a workspace-relative path). Empty for
	// ephemeral nodes, which are never saved and never get children.
	Key string

	PlanePos    Vec
	ManualScale float64

	// ScaleRelToParent and PosRelToParent apply only while the node has a
	// parent. A zero ScaleRelToParent means unset.
	ScaleRelToParent float64
	PosRelToParent   *Vec

	// ContentHeight is the unscaled height of the node's content.
	ContentHeight float64

	// Rendered is the output of the last reposition.
	Rendered Placement

	index    Index
	parent   Index
	children [2]Index
}

// Ephemeral reports whether the node has no persistence key.
func (n *Node) Ephemeral() bool {
	return n.Key == ""
}

// IsChild reports whether the node currently has a parent.
func (n *Node) IsChild() bool {
	return n.parent != none
}

func (n *Node) String() string {
	if n.Ephemeral() {
		return fmt.Sprintf("#%d", n.Buffer)
	}
	return fmt.Sprintf("#%d(%s)", n.Buffer, n.Key)
}
