package layout_test

import (
	"math"
	"testing"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
	"github.com/Gaurav-Gosain/tessera/internal/layout"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func newNode(t *testing.T, g *graph.Graph, id engine.BufferID, pos graph.Vec, scale float64) *graph.Node {
	t.Helper()
	n, err := g.Bind(id, "n.md", pos, scale)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// =============================================================================
// EffectiveScale
// =============================================================================

func TestEffectiveScale_RelativeChild(t *testing.T) {
	g := graph.New()
	pl := layout.New(g, layout.DefaultParams())

	n1 := newNode(t, g, 1, graph.Vec{X: 500, Y: 40}, 0.75)
	n2 := newNode(t, g, 2, graph.Vec{}, 1)
	if err := g.Attach(n1, graph.Right, n2); err != nil {
		t.Fatal(err)
	}
	n2.ScaleRelToParent = 0.75

	if got, want := pl.EffectiveScale(n2), 0.75*pl.EffectiveScale(n1); got != want {
		t.Errorf("EffectiveScale(N2) = %v, want exactly %v", got, want)
	}
}

func TestEffectiveScale_AutoShrink(t *testing.T) {
	tests := []struct {
		name  string
		auto  bool
		pos   graph.Vec
		scale float64
		want  float64
	}{
		{"at reference distance", true, graph.Vec{X: 500, Y: 40}, 0.75, 0.75},
		{"twice as far", true, graph.Vec{X: 1000, Y: 80}, 1, 2},
		{"origin", true, graph.Vec{}, 1, 0},
		{"disabled", false, graph.Vec{X: 1000, Y: 80}, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			p := layout.DefaultParams()
			p.AutoShrink = tt.auto
			n := newNode(t, g, 1, tt.pos, tt.scale)

			if got := layout.New(g, p).EffectiveScale(n); !near(got, tt.want) {
				t.Errorf("EffectiveScale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveScale_ChildWithoutRelativeScale(t *testing.T) {
	g := graph.New()
	p := layout.DefaultParams()
	p.AutoShrink = false
	pl := layout.New(g, p)

	parent := newNode(t, g, 1, graph.Vec{}, 2)
	child := newNode(t, g, 2, graph.Vec{}, 0.5)
	if err := g.Attach(parent, graph.Down, child); err != nil {
		t.Fatal(err)
	}
	if got := pl.EffectiveScale(child); got != 0.5 {
		t.Errorf("EffectiveScale = %v, want the manual scale 0.5", got)
	}
}

// =============================================================================
// Reposition
// =============================================================================

func TestReposition_PlacesChildren(t *testing.T) {
	g := graph.New()
	p := layout.DefaultParams()
	p.AutoShrink = false
	pl := layout.New(g, p)

	root := newNode(t, g, 1, graph.Vec{X: 10, Y: 20}, 1)
	root.ContentHeight = 30
	right := newNode(t, g, 2, graph.Vec{X: -999}, 1)
	down := newNode(t, g, 3, graph.Vec{X: -999}, 1)
	if err := g.Attach(root, graph.Right, right); err != nil {
		t.Fatal(err)
	}
	if err := g.Attach(root, graph.Down, down); err != nil {
		t.Fatal(err)
	}
	right.ScaleRelToParent = 0.5

	pl.Reposition(root, 2)

	if want := (graph.Vec{X: 10 + 400 + 6, Y: 20}); right.PlanePos != want {
		t.Errorf("right child at %v, want %v", right.PlanePos, want)
	}
	if want := (graph.Vec{X: 10, Y: 20 + 30 + 6}); down.PlanePos != want {
		t.Errorf("down child at %v, want %v", down.PlanePos, want)
	}

	if root.Rendered.Pos != (graph.Vec{X: 20, Y: 40}) {
		t.Errorf("root rendered at %v", root.Rendered.Pos)
	}
	if !near(right.Rendered.Scale, 1) {
		t.Errorf("right child rendered scale = %v, want 0.5*2", right.Rendered.Scale)
	}
	if !near(root.Rendered.Width, 800) || !near(root.Rendered.Height, 60) {
		t.Errorf("root extent = %vx%v", root.Rendered.Width, root.Rendered.Height)
	}
}

func TestReposition_GapScalesWithParent(t *testing.T) {
	g := graph.New()
	p := layout.DefaultParams()
	p.AutoShrink = false
	pl := layout.New(g, p)

	root := newNode(t, g, 1, graph.Vec{}, 0.5)
	child := newNode(t, g, 2, graph.Vec{}, 1)
	if err := g.Attach(root, graph.Right, child); err != nil {
		t.Fatal(err)
	}
	pl.RepositionTree(child, 1)

	if want := 0.5*400 + 0.5*6; !near(child.PlanePos.X, want) {
		t.Errorf("child x = %v, want %v", child.PlanePos.X, want)
	}
}

func TestReposition_RelativePosition(t *testing.T) {
	g := graph.New()
	p := layout.DefaultParams()
	p.AutoShrink = false
	pl := layout.New(g, p)

	root := newNode(t, g, 1, graph.Vec{X: 100, Y: 100}, 2)
	child := newNode(t, g, 2, graph.Vec{}, 1)
	if err := g.Attach(root, graph.Down, child); err != nil {
		t.Fatal(err)
	}
	child.PosRelToParent = &graph.Vec{X: 5, Y: -5}
	pl.RepositionAll(1)

	if want := (graph.Vec{X: 110, Y: 90}); child.PlanePos != want {
		t.Errorf("child at %v, want %v", child.PlanePos, want)
	}
}

func TestReposition_DeepChainTopDown(t *testing.T) {
	g := graph.New()
	p := layout.DefaultParams()
	p.AutoShrink = false
	pl := layout.New(g, p)

	var nodes []*graph.Node
	for i := 1; i <= 4; i++ {
		n := newNode(t, g, engine.BufferID(i), graph.Vec{}, 1)
		if len(nodes) > 0 {
			if err := g.Attach(nodes[len(nodes)-1], graph.Right, n); err != nil {
				t.Fatal(err)
			}
		}
		nodes = append(nodes, n)
	}
	pl.RepositionTree(nodes[3], 1)

	for i, n := range nodes {
		if want := float64(i) * 406; !near(n.PlanePos.X, want) {
			t.Errorf("node %d x = %v, want %v", i, n.PlanePos.X, want)
		}
	}
}

func TestContentHeight(t *testing.T) {
	p := layout.DefaultParams()
	p.MaxHeight = 10
	if got := p.ContentHeight(3); got != 5 {
		t.Errorf("ContentHeight(3) = %v, want 5", got)
	}
	if got := p.ContentHeight(100); got != 10 {
		t.Errorf("ContentHeight(100) = %v, want capped 10", got)
	}
}

func BenchmarkRepositionAll(b *testing.B) {
	g := graph.New()
	pl := layout.New(g, layout.DefaultParams())
	var prev *graph.Node
	for i := 1; i <= 200; i++ {
		n, _ := g.Bind(engine.BufferID(i), "n.md", graph.Vec{X: 500, Y: 40}, 1)
		if prev != nil && i%3 != 0 {
			_ = g.Attach(prev, graph.Side(i%2), n)
		}
		prev = n
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pl.RepositionAll(1)
	}
}
