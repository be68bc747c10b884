// Package redraw decides, once per tick, which nodes must be queried and
// redrawn.
package redraw

import (
	"slices"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// Mode is the scope of one tick's redraw.
type Mode int

const (
	// Partial redraws a minimal set of nodes.
	Partial Mode = iota
	// Full redraws every live node.
	Full
)

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "partial"
}

// Reason names the rule that chose a plan.
type Reason int

const (
	ReasonIdle Reason = iota
	ReasonOverlay
	ReasonJump
	ReasonForced
)

func (r Reason) String() string {
	switch r {
	case ReasonOverlay:
		return "overlay"
	case ReasonJump:
		return "jump"
	case ReasonForced:
		return "forced"
	default:
		return "idle"
	}
}

// Input is what the scheduler needs to know about the tick being planned.
type Input struct {
	// Current is the post-reconciliation current node; HasCurrent is false
	// when the focused buffer is not bound to any node.
	Current    engine.BufferID
	HasCurrent bool
	// Overlays reports annotation overlays on any buffer.
	Overlays bool
	// Dirty lists nodes changed by structural edits since the last tick.
	Dirty []engine.BufferID
	// Live lists every node in the graph.
	Live []engine.BufferID
}

// Plan is the outcome for one tick.
type Plan struct {
	Mode   Mode
	Reason Reason
	// Nodes is the redraw set, sorted, restricted to live nodes.
	Nodes []engine.BufferID
}

// Scheduler holds the state carried between ticks. The zero value is not
// usable; call New.
type Scheduler struct {
	forceFull  bool
	prev       engine.BufferID
	hasPrev    bool
	lastReason Reason
}

// New returns a scheduler whose first plan is Full.
func New() *Scheduler {
	return &Scheduler{forceFull: true}
}

// ForceFull makes the next plan Full. Zoom, resize and config reloads call
// it since every placement changes.
func (s *Scheduler) ForceFull() {
	s.forceFull = true
}

// Forced reports whether the next plan will be Full regardless of input.
func (s *Scheduler) Forced() bool {
	return s.forceFull
}

// Plan runs the transition rules for one tick.
func (s *Scheduler) Plan(in Input) Plan {
	jumped := in.HasCurrent && s.hasPrev && in.Current != s.prev
	var p Plan

	switch {
	case in.Overlays:
		p = Plan{Mode: Full, Reason: ReasonOverlay}
	case jumped:
		p = Plan{Mode: Partial, Reason: ReasonJump, Nodes: []engine.BufferID{s.prev, in.Current}}
	case s.forceFull:
		p = Plan{Mode: Full, Reason: ReasonForced}
	default:
		p = Plan{Mode: Partial, Reason: ReasonIdle}
		if in.HasCurrent {
			p.Nodes = []engine.BufferID{in.Current}
		}
	}

	if p.Mode == Full {
		p.Nodes = slices.Clone(in.Live)
	} else {
		p.Nodes = append(p.Nodes, in.Dirty...)
	}
	p.Nodes = restrict(p.Nodes, in.Live)

	s.forceFull = in.Overlays
	if in.HasCurrent {
		s.prev, s.hasPrev = in.Current, true
	}
	s.lastReason = p.Reason
	return p
}

// NoteOverlays is called after a Full tick queried every node. Overlays
// found anywhere keep the next tick Full so labels on other nodes are
// tracked until they disappear.
func (s *Scheduler) NoteOverlays(found bool) {
	if found {
		s.forceFull = true
	}
}

// LastReason returns the rule that chose the most recent plan.
func (s *Scheduler) LastReason() Reason {
	return s.lastReason
}

func restrict(ids, live []engine.BufferID) []engine.BufferID {
	out := make([]engine.BufferID, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(live, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
