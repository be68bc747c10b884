package ui

import (
	"math"

	"github.com/Gaurav-Gosain/tessera/internal/graph"
)

// rect is a cell rectangle on screen.
type rect struct {
	X, Y, W, H int
}

func (r rect) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r rect) overlaps(w, h int) bool {
	return r.X+r.W > 0 && r.X < w && r.Y+r.H > 0 && r.Y < h
}

// Viewport maps placements, which are in zoomed plane units, to terminal
// cells. Pan is the zoomed-plane point shown in the top-left cell.
type Viewport struct {
	Pan        graph.Vec
	CellWidth  float64
	CellHeight float64
	Width      int
	Height     int
}

// Minimum box size in cells; smaller boxes cannot show a border and text.
const (
	minBoxWidth  = 4
	minBoxHeight = 3
)

// Rect returns the cells a placement covers.
func (v Viewport) Rect(p graph.Placement) rect {
	x, y := v.Cell(p.Pos)
	return rect{
		X: x,
		Y: y,
		W: max(int(math.Round(p.Width/v.CellWidth)), minBoxWidth),
		H: max(int(math.Round(p.Height/v.CellHeight)), minBoxHeight),
	}
}

// Cell returns the cell showing a zoomed-plane point.
func (v Viewport) Cell(p graph.Vec) (int, int) {
	return int(math.Floor((p.X - v.Pan.X) / v.CellWidth)),
		int(math.Floor((p.Y - v.Pan.Y) / v.CellHeight))
}

// Point returns the zoomed-plane point at the top-left of a cell.
func (v Viewport) Point(x, y int) graph.Vec {
	return graph.Vec{
		X: v.Pan.X + float64(x)*v.CellWidth,
		Y: v.Pan.Y + float64(y)*v.CellHeight,
	}
}

// PanBy moves the view by dx, dy cells.
func (v *Viewport) PanBy(dx, dy float64) {
	v.Pan = v.Pan.Add(graph.Vec{X: dx * v.CellWidth, Y: dy * v.CellHeight})
}

// ZoomAt keeps the point under cell x, y fixed while every placement is
// scaled by factor.
func (v *Viewport) ZoomAt(x, y int, factor float64) {
	under := v.Point(x, y)
	v.Pan = under.Scale(factor).Sub(graph.Vec{X: float64(x) * v.CellWidth, Y: float64(y) * v.CellHeight})
}

// Center pans so that p is in the middle of the view.
func (v *Viewport) Center(p graph.Placement) {
	mid := p.Pos.Add(graph.Vec{X: p.Width / 2, Y: p.Height / 2})
	v.Pan = mid.Sub(graph.Vec{
		X: float64(v.Width) * v.CellWidth / 2,
		Y: float64(v.Height) * v.CellHeight / 2,
	})
}

// Reveal pans the least amount that brings p's top-left corner, and as
// much of the rest as fits, into view.
func (v *Viewport) Reveal(p graph.Placement) {
	r := v.Rect(p)
	dx, dy := 0, 0
	switch {
	case r.X < 0:
		dx = r.X
	case r.X+r.W > v.Width:
		dx = min(r.X+r.W-v.Width, r.X)
	}
	switch {
	case r.Y < 0:
		dy = r.Y
	case r.Y+r.H > v.Height:
		dy = min(r.Y+r.H-v.Height, r.Y)
	}
	if dx != 0 || dy != 0 {
		v.PanBy(float64(dx), float64(dy))
	}
}
