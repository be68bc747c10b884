// Package layout computes node scale and plane positions from the graph
// shape. It never talks to the engine; canvas feeds it content heights.
package layout

import (
	"github.com/Gaurav-Gosain/tessera/internal/graph"
)

// Params are the layout constants, normally taken from the [layout] config
// section.
type Params struct {
	// AutoShrink scales root nodes by their distance from the origin.
	AutoShrink bool
	// Origin is the reference offset; its norm is the distance at which a
	// node renders at its manual scale.
	Origin graph.Vec
	// TextWidth is a node's unscaled width.
	TextWidth float64
	// Gap separates a parent from its children, in unscaled units.
	Gap float64
	// LineHeight and MaxHeight turn a line count into a content height.
	LineHeight float64
	MaxHeight  float64
}

// DefaultParams mirrors the default [layout] section.
func DefaultParams() Params {
	return Params{
		AutoShrink: true,
		Origin:     graph.Vec{X: 500, Y: 40},
		TextWidth:  400,
		Gap:        6,
		LineHeight: 1,
		MaxHeight:  1000,
	}
}

// ReferenceDistance returns the norm of the origin offset.
func (p Params) ReferenceDistance() float64 {
	return p.Origin.Len()
}

// ContentHeight returns the unscaled height of a node showing lines lines,
// including its border.
func (p Params) ContentHeight(lines int) float64 {
	h := float64(lines)*p.LineHeight + 2
	if p.MaxHeight > 0 && h > p.MaxHeight {
		h = p.MaxHeight
	}
	return h
}

// Planner positions nodes of one graph.
type Planner struct {
	g *graph.Graph
	p Params
}

// New returns a planner for g.
func New(g *graph.Graph, p Params) *Planner {
	return &Planner{g: g, p: p}
}

// Params returns the planner's parameters.
func (l *Planner) Params() Params { return l.p }

// SetParams replaces the parameters, for example after a config reload.
func (l *Planner) SetParams(p Params) { l.p = p }

// EffectiveScale returns n's scale in the plane before the global view
// scale is applied.
func (l *Planner) EffectiveScale(n *graph.Node) float64 {
	if p := l.g.Parent(n); p != nil && n.ScaleRelToParent != 0 {
		return l.EffectiveScale(p) * n.ScaleRelToParent
	}
	if l.p.AutoShrink {
		if ref := l.p.ReferenceDistance(); ref > 0 {
			return n.ManualScale * n.PlanePos.Len() / ref
		}
	}
	return n.ManualScale
}

// Width returns n's plane width.
func (l *Planner) Width(n *graph.Node) float64 {
	return l.EffectiveScale(n) * l.p.TextWidth
}

// Height returns n's plane height. ContentHeight must be current.
func (l *Planner) Height(n *graph.Node) float64 {
	return l.EffectiveScale(n) * n.ContentHeight
}

// Reposition updates n's rendered placement, moves its children next to it
// and recurses. Callers start from a root so every child sees its parent's
// fresh position.
func (l *Planner) Reposition(n *graph.Node, global float64) {
	eff := l.EffectiveScale(n)
	n.Rendered = graph.Placement{
		Pos:    n.PlanePos.Scale(global),
		Scale:  eff * global,
		Width:  eff * l.p.TextWidth * global,
		Height: eff * n.ContentHeight * global,
	}

	gap := l.p.Gap * eff
	for _, side := range []graph.Side{graph.Down, graph.Right} {
		c := l.g.Child(n, side)
		if c == nil {
			continue
		}
		switch {
		case c.PosRelToParent != nil:
			c.PlanePos = n.PlanePos.Add(c.PosRelToParent.Scale(eff))
		case side == graph.Right:
			c.PlanePos = n.PlanePos.Add(graph.Vec{X: l.Width(n) + gap})
		default:
			c.PlanePos = n.PlanePos.Add(graph.Vec{Y: l.Height(n) + gap})
		}
		l.Reposition(c, global)
	}
}

// RepositionTree repositions the whole tree containing n.
func (l *Planner) RepositionTree(n *graph.Node, global float64) {
	l.Reposition(l.g.RootOf(n), global)
}

// RepositionAll repositions every tree.
func (l *Planner) RepositionAll(global float64) {
	for _, r := range l.g.Roots() {
		l.Reposition(r, global)
	}
}
