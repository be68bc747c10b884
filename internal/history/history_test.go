package history_test

import (
	"slices"
	"testing"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/history"
)

func ids(xs ...int) []engine.BufferID {
	out := make([]engine.BufferID, len(xs))
	for i, x := range xs {
		out[i] = engine.BufferID(x)
	}
	return out
}

// =============================================================================
// Record
// =============================================================================

func TestRecord_IgnoresRepeats(t *testing.T) {
	h := history.New(10)
	if !h.Record(1) {
		t.Error("first record should push")
	}
	if h.Record(1) {
		t.Error("recording the current node again should not push")
	}
	if back, _ := h.Len(); back != 1 {
		t.Errorf("back = %d, want 1", back)
	}
}

func TestRecord_Cap(t *testing.T) {
	h := history.New(10)
	for i := 1; i <= 25; i++ {
		h.Record(engine.BufferID(i))
		if back, _ := h.Len(); back > 10 {
			t.Fatalf("back grew to %d", back)
		}
	}
	if got, want := h.Back(), ids(16, 17, 18, 19, 20, 21, 22, 23, 24, 25); !slices.Equal(got, want) {
		t.Errorf("Back() = %v, want %v", got, want)
	}
}

func TestRecord_ClearsForward(t *testing.T) {
	h := history.New(10)
	h.Record(1)
	h.Record(2)
	h.Record(3)
	h.JumpBack()
	if _, fwd := h.Len(); fwd != 1 {
		t.Fatalf("forward = %d, want 1", fwd)
	}

	h.Record(4)
	if _, fwd := h.Len(); fwd != 0 {
		t.Errorf("forward = %d after a new branch, want 0", fwd)
	}
	if got := h.Back(); !slices.Equal(got, ids(1, 2, 4)) {
		t.Errorf("Back() = %v", got)
	}
}

// =============================================================================
// JumpBack / JumpForward
// =============================================================================

func TestJumpBack_NeedsTwoEntries(t *testing.T) {
	h := history.New(10)
	if _, _, ok := h.JumpBack(); ok {
		t.Error("JumpBack on empty history should be a no-op")
	}
	h.Record(1)
	if _, _, ok := h.JumpBack(); ok {
		t.Error("JumpBack with only the current node should be a no-op")
	}
	if _, _, ok := h.JumpForward(); ok {
		t.Error("JumpForward with empty forward stack should be a no-op")
	}
}

func TestJumpBackForward_RoundTrip(t *testing.T) {
	for depth := 2; depth <= 12; depth++ {
		h := history.New(10)
		for i := 1; i <= depth; i++ {
			h.Record(engine.BufferID(i))
		}
		before, _ := h.Current()

		target, departed, ok := h.JumpBack()
		if !ok {
			t.Fatalf("depth %d: JumpBack refused", depth)
		}
		if departed != before {
			t.Errorf("depth %d: departed = %d, want %d", depth, departed, before)
		}
		if cur, _ := h.Current(); cur != target {
			t.Errorf("depth %d: current %d != target %d", depth, cur, target)
		}

		// the tick records the node it lands on; that must not branch
		h.Record(target)

		target, _, ok = h.JumpForward()
		if !ok {
			t.Fatalf("depth %d: JumpForward refused", depth)
		}
		if target != before {
			t.Errorf("depth %d: round trip landed on %d, want %d", depth, target, before)
		}
	}
}

func TestJumpBack_Repeated(t *testing.T) {
	h := history.New(10)
	for _, id := range ids(1, 2, 3) {
		h.Record(id)
	}
	h.JumpBack()
	h.JumpBack()
	if cur, _ := h.Current(); cur != 1 {
		t.Errorf("current = %d, want 1", cur)
	}
	if got := h.Forward(); !slices.Equal(got, ids(3, 2)) {
		t.Errorf("Forward() = %v, want [3 2]", got)
	}
	h.JumpForward()
	h.JumpForward()
	if cur, _ := h.Current(); cur != 3 {
		t.Errorf("current = %d, want 3", cur)
	}
}

// =============================================================================
// Purge
// =============================================================================

func TestPurge(t *testing.T) {
	h := history.New(10)
	for _, id := range ids(1, 2, 3, 2, 4) {
		h.Record(id)
	}
	h.JumpBack()

	h.Purge(2)

	if got := h.Back(); !slices.Equal(got, ids(1, 3)) {
		t.Errorf("Back() = %v, want [1 3]", got)
	}
	if got := h.Forward(); !slices.Equal(got, ids(4)) {
		t.Errorf("Forward() = %v, want [4]", got)
	}
}

func TestPurge_CollapsesNeighbours(t *testing.T) {
	h := history.New(10)
	for _, id := range ids(1, 2, 1) {
		h.Record(id)
	}
	h.Purge(2)
	if got := h.Back(); !slices.Equal(got, ids(1)) {
		t.Errorf("Back() = %v, want [1]", got)
	}
	if prev, ok := h.Previous(); ok {
		t.Errorf("Previous() = %d, want none", prev)
	}
}

func BenchmarkRecord(b *testing.B) {
	h := history.New(10)
	for i := 0; i < b.N; i++ {
		h.Record(engine.BufferID(i % 17))
	}
}
