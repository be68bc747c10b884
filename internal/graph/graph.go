// Package graph holds the buffer graph: nodes bound to remote buffers,
// arranged in trees through at most one down and one right child each.
//
// Nodes live in an arena and link to each other by index. Every structural
// edit checks acyclicity before it commits, so walking parent links from any
// node always terminates.
package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// ErrRefused is wrapped by every RefusalError.
var ErrRefused = errors.New("refused")

// RefusalError reports a structural edit the graph declined. The graph is
// left unchanged.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string { return e.Reason }

func (e *RefusalError) Unwrap() error { return ErrRefused }

func refuse(format string, args ...any) error {
	return &RefusalError{Reason: fmt.Sprintf(format, args...)}
}

// BufferAllocator supplies remote buffers to CreateNode. engine.Editor
// callers usually wrap it to map persistence keys to paths.
type BufferAllocator interface {
	ListBuffers() ([]engine.BufferID, error)
	// CreateBuffer returns a fresh buffer for key ("" for an unnamed one).
	CreateBuffer(key string) (engine.BufferID, error)
	// AdoptBuffer gives an existing unbound buffer its own tab.
	AdoptBuffer(id engine.BufferID) error
}

// Graph is the set of live nodes and their parent/child links.
type Graph struct {
	nodes    []*Node
	free     []Index
	byBuffer map[engine.BufferID]Index
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{byBuffer: make(map[engine.BufferID]Index)}
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	return len(g.byBuffer)
}

// Has reports whether a node is bound to id.
func (g *Graph) Has(id engine.BufferID) bool {
	_, ok := g.byBuffer[id]
	return ok
}

// Node returns the node bound to id, or nil.
func (g *Graph) Node(id engine.BufferID) *Node {
	if i, ok := g.byBuffer[id]; ok {
		return g.nodes[i]
	}
	return nil
}

func (g *Graph) at(i Index) *Node {
	if i == none {
		return nil
	}
	return g.nodes[i]
}

// Nodes returns every live node ordered by buffer identity.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.byBuffer))
	for _, i := range g.byBuffer {
		out = append(out, g.nodes[i])
	}
	slices.SortFunc(out, func(a, b *Node) int { return int(a.Buffer) - int(b.Buffer) })
	return out
}

// Buffers returns the identities of every live node, sorted.
func (g *Graph) Buffers() []engine.BufferID {
	ids := make([]engine.BufferID, 0, len(g.byBuffer))
	for id := range g.byBuffer {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ByKey returns the node with the given persistence key, or nil.
func (g *Graph) ByKey(key string) *Node {
	if key == "" {
		return nil
	}
	for _, i := range g.byBuffer {
		if g.nodes[i].Key == key {
			return g.nodes[i]
		}
	}
	return nil
}

// Bind registers a node for an existing remote buffer.
func (g *Graph) Bind(id engine.BufferID, key string, pos Vec, scale float64) (*Node, error) {
	if g.Has(id) {
		return nil, fmt.Errorf("buffer %d is already bound", id)
	}
	n := &Node{
		Buffer:      id,
		Key:         key,
		PlanePos:    pos,
		ManualScale: scale,
		parent:      none,
		children:    [2]Index{none, none},
	}
	if k := len(g.free); k > 0 {
		n.index = g.free[k-1]
		g.free = g.free[:k-1]
		g.nodes[n.index] = n
	} else {
		n.index = Index(len(g.nodes))
		g.nodes = append(g.nodes, n)
	}
	g.byBuffer[id] = n.index
	return n, nil
}

// Unbound returns the buffers in ids that no node is bound to.
func (g *Graph) Unbound(ids []engine.BufferID) []engine.BufferID {
	var out []engine.BufferID
	for _, id := range ids {
		if !g.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// CreateNode binds a buffer to a new node. When a buffer already exists
// that no node is bound to, and the graph is not empty, that buffer is
// adopted and the node is ephemeral: it came from some action other than
// node creation and must not be persisted. Otherwise a fresh buffer is
// requested for key.
func (g *Graph) CreateNode(alloc BufferAllocator, key string, pos Vec, scale float64) (*Node, error) {
	ids, err := alloc.ListBuffers()
	if err != nil {
		return nil, err
	}
	if unbound := g.Unbound(ids); len(unbound) > 0 && g.Len() > 0 {
		id := unbound[0]
		if err := alloc.AdoptBuffer(id); err != nil {
			return nil, err
		}
		return g.Bind(id, "", pos, scale)
	}
	id, err := alloc.CreateBuffer(key)
	if err != nil {
		return nil, err
	}
	return g.Bind(id, key, pos, scale)
}

// Parent returns n's parent, or nil for a root.
func (g *Graph) Parent(n *Node) *Node {
	return g.at(n.parent)
}

// Child returns n's child on side, or nil.
func (g *Graph) Child(n *Node, side Side) *Node {
	return g.at(n.children[side])
}

// SideOf returns which slot of its parent n occupies.
func (g *Graph) SideOf(n *Node) (Side, bool) {
	p := g.at(n.parent)
	if p == nil {
		return 0, false
	}
	for _, s := range []Side{Down, Right} {
		if p.children[s] == n.index {
			return s, true
		}
	}
	return 0, false
}

// RootOf follows parent links to a node with no parent.
func (g *Graph) RootOf(n *Node) *Node {
	// attach refuses cycles, so Len() steps always suffice
	for steps := 0; n.parent != none && steps <= g.Len(); steps++ {
		n = g.nodes[n.parent]
	}
	return n
}

// Roots returns every node without a parent, ordered by buffer identity.
func (g *Graph) Roots() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.parent == none {
			out = append(out, n)
		}
	}
	return out
}

// isAncestorOrSelf reports whether a is n or lies on n's parent chain.
func (g *Graph) isAncestorOrSelf(a, n *Node) bool {
	for steps := 0; n != nil && steps <= g.Len(); steps++ {
		if n == a {
			return true
		}
		n = g.at(n.parent)
	}
	return false
}

// CheckSlot reports whether parent can take a child on side.
func (g *Graph) CheckSlot(parent *Node, side Side) error {
	if parent.Ephemeral() {
		return refuse("can't create children for non-persistent nodes")
	}
	if parent.children[side] != none {
		return refuse("%s child already exists", side)
	}
	return nil
}

// Attach makes child the side child of parent, detaching it from any
// previous parent first. It is refused when the slot is taken, when parent
// is ephemeral, or when child is parent or one of its ancestors: after
// cutting child loose its subtree has child as root, so the edge would close
// a cycle exactly when parent shares that root. Moving a node elsewhere in
// its own tree is therefore allowed when parent is outside its subtree.
func (g *Graph) Attach(parent *Node, side Side, child *Node) error {
	if parent == child {
		return refuse("can't attach a node to itself")
	}
	if err := g.CheckSlot(parent, side); err != nil {
		return err
	}
	if g.isAncestorOrSelf(child, parent) {
		return refuse("attaching %s under %s would create a cycle", child, parent)
	}
	g.Detach(child)
	parent.children[side] = child.index
	child.parent = parent.index
	return nil
}

// Detach cuts n from its parent. Relative scale and position are cleared
// since they only apply to children. Detaching a root does nothing.
func (g *Graph) Detach(n *Node) {
	p := g.at(n.parent)
	if p == nil {
		return
	}
	for s := range p.children {
		if p.children[s] == n.index {
			p.children[s] = none
		}
	}
	n.parent = none
	n.ScaleRelToParent = 0
	n.PosRelToParent = nil
}

// Remove unregisters n, detaching it from its parent and its children.
// Children become roots; they are not removed.
func (g *Graph) Remove(n *Node) {
	if g.Node(n.Buffer) != n {
		return
	}
	g.Detach(n)
	for s := range n.children {
		if c := g.at(n.children[s]); c != nil {
			g.Detach(c)
		}
	}
	delete(g.byBuffer, n.Buffer)
	g.nodes[n.index] = nil
	g.free = append(g.free, n.index)
	n.index = none
}

// Walk visits n and its descendants, parents before children, down before
// right.
func (g *Graph) Walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, s := range []Side{Down, Right} {
		if c := g.Child(n, s); c != nil {
			g.Walk(c, fn)
		}
	}
}

// Check verifies the structural invariants: links are symmetric, parent
// chains terminate, and ephemeral nodes have no children.
func (g *Graph) Check() error {
	for _, n := range g.Nodes() {
		if p := g.at(n.parent); p != nil {
			if _, ok := g.SideOf(n); !ok {
				return fmt.Errorf("%s names %s as parent but is not its child", n, p)
			}
		}
		for s, ci := range n.children {
			c := g.at(ci)
			if c == nil {
				continue
			}
			if n.Ephemeral() {
				return fmt.Errorf("ephemeral %s has a %s child", n, Side(s))
			}
			if c.parent != n.index {
				return fmt.Errorf("%s is the %s child of %s but links elsewhere", c, Side(s), n)
			}
		}
		steps := 0
		for m := n; m.parent != none; m = g.nodes[m.parent] {
			if steps++; steps > g.Len() {
				return fmt.Errorf("parent chain of %s does not terminate", n)
			}
		}
	}
	return nil
}
