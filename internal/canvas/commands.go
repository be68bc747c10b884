package canvas

import (
	"fmt"
	"math"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
)

// Direction is a jump direction on the canvas.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

func (d Direction) vec() graph.Vec {
	switch d {
	case Up:
		return graph.Vec{Y: -1}
	case Down:
		return graph.Vec{Y: 1}
	case Left:
		return graph.Vec{X: -1}
	default:
		return graph.Vec{X: 1}
	}
}

// allocator adapts the editor to graph.BufferAllocator, mapping keys to
// paths. The very first node reuses the engine's initial window.
type allocator struct{ s *Synchronizer }

func (a allocator) ListBuffers() ([]engine.BufferID, error) {
	return a.s.ed.ListBuffers()
}

func (a allocator) CreateBuffer(key string) (engine.BufferID, error) {
	path := key
	if key != "" && a.s.keys != nil {
		path = a.s.keys.Path(key)
	}
	if a.s.g.Len() == 0 && path != "" {
		return a.s.ed.EditInCurrentTab(path)
	}
	return a.s.ed.CreateBuffer(path)
}

func (a allocator) AdoptBuffer(id engine.BufferID) error {
	tabs, err := a.s.ed.ListTabs()
	if err != nil {
		return err
	}
	var tab engine.TabID
	wins := make(map[engine.TabID]int)
	for _, t := range tabs {
		wins[t.Tab]++
		if t.Buffer == id {
			tab = t.Tab
		}
	}
	// already alone in a tab of its own
	if tab != 0 && wins[tab] == 1 {
		return a.s.ed.SwitchToTab(tab)
	}
	return a.s.ed.AdoptBuffer(id)
}

// CreateNode creates a root node at pos in the plane. An unbound buffer is
// adopted as an ephemeral node when one exists.
func (s *Synchronizer) CreateNode(pos graph.Vec) (*graph.Node, error) {
	key := ""
	if s.keys != nil {
		key = s.keys.NextKey()
	}
	n, err := s.g.CreateNode(allocator{s}, key, pos, s.opts.StartingScale)
	if err != nil {
		return nil, err
	}
	logger.Debug("created node", "node", n, "pos", pos)
	if n.Ephemeral() {
		s.notify(fmt.Sprintf("adopted buffer %d as a non-persistent node", n.Buffer))
	}
	s.markDirty(n.Buffer)
	if s.opts.InputOnCreation != "" {
		if err := s.ed.Input(s.opts.InputOnCreation); err != nil {
			return n, err
		}
	}
	return n, nil
}

// CreateChild creates a node and attaches it as the current node's child
// on side.
func (s *Synchronizer) CreateChild(side graph.Side) (*graph.Node, error) {
	parent, err := s.currentNode()
	if err != nil {
		return nil, err
	}
	if parent == nil {
		s.notify("no current node")
		return nil, nil
	}
	if err := s.g.CheckSlot(parent, side); err != nil {
		return nil, s.refused(err)
	}

	child, err := s.CreateNode(parent.PlanePos)
	if err != nil {
		return nil, err
	}
	if err := s.g.Attach(parent, side, child); err != nil {
		return child, s.refused(err)
	}
	child.ScaleRelToParent = s.opts.ChildScale
	s.markDirty(parent.Buffer, child.Buffer)
	s.lay.RepositionTree(parent, s.global)
	return child, nil
}

// Reattach makes child the side child of parent. Refusals are reported as
// messages and leave the graph unchanged.
func (s *Synchronizer) Reattach(parent, child engine.BufferID, side graph.Side) error {
	p, c := s.g.Node(parent), s.g.Node(child)
	if p == nil || c == nil {
		return nil
	}
	oldParent := s.g.Parent(c)
	if err := s.g.Attach(p, side, c); err != nil {
		return s.refused(err)
	}
	c.ScaleRelToParent = s.opts.ChildScale
	s.markDirty(p.Buffer, c.Buffer)
	if oldParent != nil {
		s.markDirty(oldParent.Buffer)
	}
	s.lay.RepositionTree(p, s.global)
	return nil
}

// CatchChild attaches the previously visited node as the current node's
// child on side.
func (s *Synchronizer) CatchChild(side graph.Side) error {
	cur, err := s.currentNode()
	if err != nil || cur == nil {
		return err
	}
	prev, ok := s.hist.Previous()
	if !ok {
		s.notify("no previous node to catch")
		return nil
	}
	return s.Reattach(cur.Buffer, prev, side)
}

// DetachCurrent cuts the current node from its parent.
func (s *Synchronizer) DetachCurrent() error {
	cur, err := s.currentNode()
	if err != nil || cur == nil {
		return err
	}
	if p := s.g.Parent(cur); p != nil {
		s.markDirty(p.Buffer)
	}
	s.g.Detach(cur)
	s.markDirty(cur.Buffer)
	s.lay.Reposition(cur, s.global)
	return nil
}

// JumpToNeighbor focuses the structural neighbour of the current node:
// its parent going up or left, its down or right child otherwise. Without
// one, and when allowed, the nearest node inside the direction's 90 degree
// cone is used. No neighbour is a no-op.
func (s *Synchronizer) JumpToNeighbor(dir Direction) error {
	cur, err := s.currentNode()
	if err != nil || cur == nil {
		return err
	}
	var target *graph.Node
	switch dir {
	case Up, Left:
		target = s.g.Parent(cur)
	case Down:
		target = s.g.Child(cur, graph.Down)
	case Right:
		target = s.g.Child(cur, graph.Right)
	}
	if target == nil && s.opts.AllowDisconnectedJumps {
		target = s.nearestInCone(cur, dir)
	}
	if target == nil {
		return nil
	}
	return s.switchTo(target.Buffer)
}

func (s *Synchronizer) center(n *graph.Node) graph.Vec {
	return n.PlanePos.Add(graph.Vec{X: s.lay.Width(n) / 2, Y: s.lay.Height(n) / 2})
}

func (s *Synchronizer) nearestInCone(from *graph.Node, dir Direction) *graph.Node {
	origin, d := s.center(from), dir.vec()
	var (
		best     *graph.Node
		bestDist = math.Inf(1)
	)
	for _, n := range s.g.Nodes() {
		if n == from {
			continue
		}
		delta := s.center(n).Sub(origin)
		along := delta.X*d.X + delta.Y*d.Y
		across := math.Abs(delta.X*d.Y - delta.Y*d.X)
		if along <= 0 || across > along {
			continue
		}
		if dist := delta.Len(); dist < bestDist {
			best, bestDist = n, dist
		}
	}
	return best
}

// Focus switches to the node bound to id.
func (s *Synchronizer) Focus(id engine.BufferID) error {
	if !s.g.Has(id) {
		return nil
	}
	return s.switchTo(id)
}

// JumpBack returns to the previously visited node. The node left behind
// is deleted right away if it is empty.
func (s *Synchronizer) JumpBack() error {
	target, departed, ok := s.hist.JumpBack()
	if !ok {
		return nil
	}
	return s.jump(target, departed)
}

// JumpForward undoes a JumpBack.
func (s *Synchronizer) JumpForward() error {
	target, departed, ok := s.hist.JumpForward()
	if !ok {
		return nil
	}
	return s.jump(target, departed)
}

func (s *Synchronizer) jump(target, departed engine.BufferID) error {
	if err := s.switchTo(target); err != nil {
		return soft(err, "jump", "buffer", target)
	}
	n := s.g.Node(departed)
	if n == nil || departed == target {
		return nil
	}
	empty, err := s.ed.BufferIsEmpty(departed)
	if err != nil {
		return soft(err, "buffer emptiness", "buffer", departed)
	}
	if empty {
		return s.deleteNode(n)
	}
	return nil
}

// DeleteCurrent clears the current node and leaves it; the empty node is
// then deleted.
func (s *Synchronizer) DeleteCurrent() error {
	cur, err := s.currentNode()
	if err != nil || cur == nil {
		return err
	}
	if err := s.ed.ClearBuffer(cur.Buffer); err != nil {
		return err
	}
	if err := s.ed.Input("<Esc>"); err != nil {
		return err
	}
	if _, ok := s.hist.Previous(); !ok {
		return nil
	}
	return s.JumpBack()
}

// MoveNode places a node at pos in the plane. A child is cut from its
// parent, since children are placed by their parent.
func (s *Synchronizer) MoveNode(id engine.BufferID, pos graph.Vec) {
	n := s.g.Node(id)
	if n == nil {
		return
	}
	if p := s.g.Parent(n); p != nil {
		s.g.Detach(n)
		s.markDirty(p.Buffer)
	}
	n.PlanePos = pos
	s.markDirty(id)
	s.lay.Reposition(n, s.global)
}

// ScaleNode multiplies a node's size by factor: the relative scale of a
// child, the manual scale of a root.
func (s *Synchronizer) ScaleNode(id engine.BufferID, factor float64) {
	n := s.g.Node(id)
	if n == nil || factor <= 0 {
		return
	}
	if n.IsChild() && n.ScaleRelToParent != 0 {
		n.ScaleRelToParent *= factor
	} else {
		n.ManualScale *= factor
	}
	s.g.Walk(n, func(d *graph.Node) { s.markDirty(d.Buffer) })
	s.lay.RepositionTree(n, s.global)
}

// Zoom multiplies the view scale by factor.
func (s *Synchronizer) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	s.SetGlobalScale(s.global * factor)
}

// SetGlobalScale sets the view scale. Every placement changes, so the
// next tick is Full.
func (s *Synchronizer) SetGlobalScale(scale float64) {
	if scale <= 0 {
		return
	}
	s.global = scale
	s.sched.ForceFull()
	s.lay.RepositionAll(s.global)
}
