package canvas

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
	"github.com/Gaurav-Gosain/tessera/internal/redraw"
)

// Frame is the content of one redrawn node.
type Frame struct {
	Buffer engine.BufferID
	// Lines has annotation overlays substituted in.
	Lines []string
	Marks []engine.Extmark
	Folds []engine.Fold
	Signs []int

	// Current, and the fields below it, are set only for the focused node.
	Current      bool
	Mode         engine.Mode
	Cursor       engine.Position
	HasSelection bool
	SelStart     engine.Position
	SelEnd       engine.Position
}

// VisibleLines returns the number of lines shown once closed folds are
// collapsed to one line each.
func (f Frame) VisibleLines() int {
	n := len(f.Lines)
	for _, fold := range f.Folds {
		if fold.EndRow > fold.StartRow {
			n -= fold.EndRow - fold.StartRow
		}
	}
	return max(n, 1)
}

// Report is what one tick hands to the rendering layer.
type Report struct {
	// Skipped is set when the engine was blocking; nothing else is valid
	// except Mode.
	Skipped bool
	Mode    engine.Mode
	// CmdLine is the command line being typed, prefixed with its type.
	CmdLine string

	Current    engine.BufferID
	HasCurrent bool

	Plan   redraw.Plan
	Frames map[engine.BufferID]Frame
	// Placements holds every live node's placement, not only redrawn ones.
	Placements map[engine.BufferID]graph.Placement
	// Removed lists nodes deleted since the previous report.
	Removed []engine.BufferID
	// Unbound counts engine buffers no node is bound to.
	Unbound  int
	Messages []string
}

type snapshot struct {
	buffers []engine.BufferID
	live    map[engine.BufferID]bool
	current engine.BufferID
	tabs    []engine.TabInfo
	empty   map[engine.BufferID]bool
}

// Tick polls the engine, reconciles the graph, records history, plans the
// redraw, queries the redrawn nodes and lays them out. While the engine is
// blocking nothing is polled and the report is marked Skipped.
//
// Only errors wrapping engine.ErrUnavailable are returned in practice;
// everything else is healed or logged.
func (s *Synchronizer) Tick() (Report, error) {
	mode, err := s.ed.CurrentMode()
	if err != nil {
		return Report{}, err
	}
	if mode.Blocking {
		return Report{Skipped: true, Mode: mode}, nil
	}

	snap, err := s.poll()
	if err != nil {
		return Report{}, err
	}
	cur, err := s.reconcile(snap)
	if err != nil {
		return Report{}, err
	}

	node := s.g.Node(cur)
	if node != nil {
		s.hist.Record(cur)
	}

	var curMarks []engine.Extmark
	if node != nil {
		curMarks, err = s.ed.Extmarks(cur)
		if err = soft(err, "extmarks", "buffer", cur); err != nil {
			return Report{}, err
		}
	}

	overlays := hasAnnotations(curMarks)
	if !overlays {
		overlays, err = s.ed.HasOverlays()
		if err = soft(err, "overlays"); err != nil {
			return Report{}, err
		}
	}

	plan := s.sched.Plan(redraw.Input{
		Current:    cur,
		HasCurrent: node != nil,
		Overlays:   overlays,
		Dirty:      slices.Sorted(maps.Keys(s.dirty)),
		Live:       s.g.Buffers(),
	})
	clear(s.dirty)

	frames := make(map[engine.BufferID]Frame, len(plan.Nodes))
	found := false
	for _, id := range plan.Nodes {
		var marks []engine.Extmark
		if id == cur {
			marks = curMarks
		} else {
			marks, err = s.ed.Extmarks(id)
			if err = soft(err, "extmarks", "buffer", id); err != nil {
				return Report{}, err
			}
		}
		f, ok, err := s.frame(id, marks, id == cur, mode)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			continue
		}
		found = found || hasAnnotations(marks)
		frames[id] = f
		if n := s.g.Node(id); n != nil {
			n.ContentHeight = s.lay.Params().ContentHeight(f.VisibleLines())
		}
	}
	if plan.Mode == redraw.Full {
		s.sched.NoteOverlays(found)
		s.lay.RepositionAll(s.global)
	} else {
		roots := make(map[*graph.Node]bool)
		for _, id := range plan.Nodes {
			if n := s.g.Node(id); n != nil {
				roots[s.g.RootOf(n)] = true
			}
		}
		for r := range roots {
			s.lay.Reposition(r, s.global)
		}
	}

	placements := make(map[engine.BufferID]graph.Placement, s.g.Len())
	for _, n := range s.g.Nodes() {
		placements[n.Buffer] = n.Rendered
	}

	var cmdline string
	if strings.HasPrefix(mode.Name, "c") {
		cmdline, err = s.ed.CmdLine()
		if err = soft(err, "cmdline"); err != nil {
			return Report{}, err
		}
	}

	unbound := 0
	for _, id := range snap.buffers {
		if !s.g.Has(id) && !slices.Contains(s.removed, id) {
			unbound++
		}
	}

	r := Report{
		Mode:       mode,
		CmdLine:    cmdline,
		Current:    cur,
		HasCurrent: node != nil,
		Plan:       plan,
		Frames:     frames,
		Placements: placements,
		Removed:    s.removed,
		Unbound:    unbound,
		Messages:   s.messages,
	}
	s.removed, s.messages = nil, nil
	s.last = r
	return r, nil
}

// poll takes every read reconciliation depends on before anything is
// changed.
func (s *Synchronizer) poll() (snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if snap.buffers, err = s.ed.ListBuffers(); err != nil {
		return snap, err
	}
	snap.live = make(map[engine.BufferID]bool, len(snap.buffers))
	for _, id := range snap.buffers {
		snap.live[id] = true
	}
	if snap.current, err = s.ed.CurrentBuffer(); err != nil {
		return snap, err
	}
	if snap.tabs, err = s.ed.ListTabs(); err != nil {
		return snap, err
	}
	snap.empty = make(map[engine.BufferID]bool)
	for _, n := range s.g.Nodes() {
		if !snap.live[n.Buffer] {
			continue
		}
		empty, err := s.ed.BufferIsEmpty(n.Buffer)
		if err = soft(err, "buffer emptiness", "buffer", n.Buffer); err != nil {
			return snap, err
		}
		snap.empty[n.Buffer] = empty
	}
	return snap, nil
}

// frame queries the content of one node. ok is false when the buffer
// could not be read and the node should be skipped this tick.
func (s *Synchronizer) frame(id engine.BufferID, marks []engine.Extmark, current bool, mode engine.Mode) (Frame, bool, error) {
	lines, err := s.ed.BufferLines(id)
	if err != nil {
		return Frame{}, false, soft(err, "buffer lines", "buffer", id)
	}
	folds, err := s.ed.Folds(id)
	if err = soft(err, "folds", "buffer", id); err != nil {
		return Frame{}, false, err
	}
	signs, err := s.ed.Signs(id)
	if err = soft(err, "signs", "buffer", id); err != nil {
		return Frame{}, false, err
	}

	f := Frame{
		Buffer: id,
		Lines:  applyAnnotations(lines, marks),
		Marks:  marks,
		Folds:  folds,
		Signs:  signs,
	}
	if !current {
		return f, true, nil
	}

	f.Current = true
	f.Mode = mode
	if f.Cursor, err = s.ed.Cursor(); err != nil {
		return Frame{}, false, soft(err, "cursor")
	}
	if mode.Visual() {
		start, end, err := s.ed.Selection()
		if err != nil {
			return f, true, soft(err, "selection")
		}
		f.HasSelection, f.SelStart, f.SelEnd = true, start, end
	}
	return f, true, nil
}

func hasAnnotations(marks []engine.Extmark) bool {
	for _, m := range marks {
		if m.Annotation != "" {
			return true
		}
	}
	return false
}

// applyAnnotations draws each overlay over the character at its position.
// Overlays past the end of a line are appended.
func applyAnnotations(lines []string, marks []engine.Extmark) []string {
	if len(marks) == 0 {
		return lines
	}
	out := slices.Clone(lines)
	sorted := slices.Clone(marks)
	// right to left, so earlier byte offsets stay valid
	slices.SortFunc(sorted, func(a, b engine.Extmark) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return b.Col - a.Col
	})
	for _, m := range sorted {
		if m.Row < 0 || m.Row >= len(out) || m.Annotation == "" || m.Col < 0 {
			continue
		}
		line := out[m.Row]
		if m.Col >= len(line) {
			out[m.Row] = line + m.Annotation
			continue
		}
		col := m.Col
		for col > 0 && !utf8.RuneStart(line[col]) {
			col--
		}
		_, size := utf8.DecodeRuneInString(line[col:])
		out[m.Row] = line[:col] + m.Annotation + line[col+size:]
	}
	return out
}
