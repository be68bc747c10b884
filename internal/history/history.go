// Package history tracks which nodes the user visited, for back/forward
// jumps.
package history

import (
	"slices"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// DefaultSize is the default cap on the back stack.
const DefaultSize = 10

// History is a capped back stack whose top is the current node, and a
// forward stack of nodes left by jumping back.
type History struct {
	size    int
	back    []engine.BufferID
	forward []engine.BufferID
}

// New returns an empty history keeping at most size back entries.
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{size: size}
}

// Current returns the top of the back stack.
func (h *History) Current() (engine.BufferID, bool) {
	if len(h.back) == 0 {
		return 0, false
	}
	return h.back[len(h.back)-1], true
}

// Previous returns the entry below the top of the back stack.
func (h *History) Previous() (engine.BufferID, bool) {
	if len(h.back) < 2 {
		return 0, false
	}
	return h.back[len(h.back)-2], true
}

// Back returns a copy of the back stack, oldest first.
func (h *History) Back() []engine.BufferID { return slices.Clone(h.back) }

// Forward returns a copy of the forward stack, oldest first.
func (h *History) Forward() []engine.BufferID { return slices.Clone(h.forward) }

// Record notes that id is now current. A change pushes id, evicting the
// oldest entry past the cap, and clears the forward stack.
func (h *History) Record(id engine.BufferID) bool {
	if cur, ok := h.Current(); ok && cur == id {
		return false
	}
	h.back = append(h.back, id)
	if over := len(h.back) - h.size; over > 0 {
		h.back = slices.Delete(h.back, 0, over)
	}
	h.forward = h.forward[:0]
	return true
}

// JumpBack pops the current entry onto the forward stack and returns the new
// top, which the caller should switch to, along with the departed entry.
// It does nothing when there is nowhere to go back to.
func (h *History) JumpBack() (target, departed engine.BufferID, ok bool) {
	if len(h.back) <= 1 {
		return 0, 0, false
	}
	departed = h.back[len(h.back)-1]
	h.back = h.back[:len(h.back)-1]
	h.forward = append(h.forward, departed)
	return h.back[len(h.back)-1], departed, true
}

// JumpForward moves the most recent forward entry back onto the back stack
// and returns it, along with the entry it replaces as current.
func (h *History) JumpForward() (target, departed engine.BufferID, ok bool) {
	if len(h.forward) == 0 {
		return 0, 0, false
	}
	departed, _ = h.Current()
	target = h.forward[len(h.forward)-1]
	h.forward = h.forward[:len(h.forward)-1]
	h.back = append(h.back, target)
	if over := len(h.back) - h.size; over > 0 {
		h.back = slices.Delete(h.back, 0, over)
	}
	return target, departed, true
}

// Purge removes id from both stacks. Entries left adjacent and equal are
// collapsed, since a jump between them would go nowhere.
func (h *History) Purge(id engine.BufferID) {
	drop := func(s []engine.BufferID) []engine.BufferID {
		s = slices.DeleteFunc(s, func(x engine.BufferID) bool { return x == id })
		return slices.Compact(s)
	}
	h.back = drop(h.back)
	h.forward = drop(h.forward)
}

// Len returns the sizes of the back and forward stacks.
func (h *History) Len() (back, forward int) {
	return len(h.back), len(h.forward)
}
