package ui

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gaurav-Gosain/tessera/internal/canvas"
	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// =============================================================================
// Compositor
// =============================================================================

func TestScreen_DrawClips(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		want []string
	}{
		{"inside", 2, 0, []string{"  abcdef  ", "          ", "          "}},
		{"left edge", -2, 1, []string{"          ", "cdef      ", "          "}},
		{"right edge", 7, 2, []string{"          ", "          ", "       abc"}},
		{"above", 0, -1, []string{"          ", "          ", "          "}},
		{"off screen", 12, 0, []string{"          ", "          ", "          "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScreen(10, 3)
			s.draw(tt.x, tt.y, []string{"abcdef"})
			for i, row := range s.rows {
				if got := ansi.Strip(row); got != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestScreen_LaterDrawCovers(t *testing.T) {
	s := newScreen(8, 1)
	s.draw(0, 0, []string{"aaaaaa"})
	s.draw(2, 0, []string{"bb"})
	if got := ansi.Strip(s.rows[0]); got != "aabbaa  " {
		t.Errorf("row = %q", got)
	}
}

func TestScreen_EmptyLinesSkipped(t *testing.T) {
	s := newScreen(4, 2)
	s.draw(0, 0, []string{"", "xy"})
	if got := ansi.Strip(s.String()); got != "    \nxy  " {
		t.Errorf("screen = %q", got)
	}
}

// =============================================================================
// Text helpers
// =============================================================================

func TestDisplayLines_CollapsesFolds(t *testing.T) {
	f := canvas.Frame{
		Lines: []string{"1", "2", "3", "4", "5", "6"},
		Folds: []engine.Fold{{StartRow: 2, EndRow: 4}},
	}
	got := displayLines(f)
	want := []displayLine{{row: 1, text: "1"}, {row: 2, text: "2", hidden: 2}, {row: 5, text: "5"}, {row: 6, text: "6"}}
	if len(got) != len(want) {
		t.Fatalf("displayLines = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(got) != f.VisibleLines() {
		t.Errorf("%d display lines, VisibleLines says %d", len(got), f.VisibleLines())
	}
}

func TestDisplayLines_Empty(t *testing.T) {
	if got := displayLines(canvas.Frame{}); len(got) != 1 || got[0].row != 1 {
		t.Errorf("displayLines of empty frame = %+v", got)
	}
}

func TestExpandTabs(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\tb", "a       b"},
		{"\tx", "        x"},
		{"12345678\ty", "12345678        y"},
		{"bell\a", "bell^G"},
	}
	for _, tt := range tests {
		if got := expandTabs(tt.in); got != tt.want {
			t.Errorf("expandTabs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCellOf(t *testing.T) {
	if got := cellOf("\tx", 1); got != 8 {
		t.Errorf("cellOf after tab = %d, want 8", got)
	}
	if got := cellOf("héllo", 3); got != 2 {
		t.Errorf("cellOf after two-byte rune = %d, want 2", got)
	}
	if got := cellAfter("héllo", 1); got != 2 {
		t.Errorf("cellAfter two-byte rune = %d, want 2", got)
	}
	if got := cellAfter("ab", 2); got != 3 {
		t.Errorf("cellAfter end of line = %d, want 3", got)
	}
}

// =============================================================================
// Node boxes
// =============================================================================

func stripAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = ansi.Strip(l)
	}
	return out
}

func TestRenderNode_Box(t *testing.T) {
	f := canvas.Frame{Lines: []string{"hello", "world"}}
	out := renderNode(f, rect{W: 12, H: 5}, nodeStyle{hue: 200, title: "n/1.md"}, 0, 5)

	want := []string{
		"╭─ n/1.md ─╮",
		"│hello     │",
		"│world     │",
		"│          │",
		"╰──────────╯",
	}
	got := stripAll(out)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
	for i, l := range out {
		if w := ansi.StringWidth(l); w != 12 {
			t.Errorf("row %d width %d", i, w)
		}
	}
}

func TestRenderNode_SignsAndFolds(t *testing.T) {
	f := canvas.Frame{
		Lines: []string{"a", "b", "c", "d"},
		Folds: []engine.Fold{{StartRow: 2, EndRow: 3}},
		Signs: []int{3},
	}
	got := stripAll(renderNode(f, rect{W: 24, H: 5}, nodeStyle{}, 0, 5))
	pad := strings.Repeat(" ", 20)
	if got[1] != "│ a"+pad+"│" {
		t.Errorf("row 1 = %q", got[1])
	}
	// the sign on row 3 is inside the fold and marks it
	if !strings.HasPrefix(got[2], "│▌+--  2 lines: b") {
		t.Errorf("fold row = %q", got[2])
	}
	if got[3] != "│ d"+pad+"│" {
		t.Errorf("row 3 = %q", got[3])
	}
}

func TestRenderNode_FollowsCursor(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = string(rune('a' + i))
	}
	f := canvas.Frame{Lines: lines, Current: true, Cursor: engine.Position{Row: 5}}
	got := stripAll(renderNode(f, rect{W: 6, H: 4}, nodeStyle{active: true}, 0, 4))
	if got[1] != "│d   │" || got[2] != "│e   │" {
		t.Errorf("visible rows = %q, %q; want d, e", got[1], got[2])
	}
}

func TestRenderNode_RowWindow(t *testing.T) {
	f := canvas.Frame{Lines: []string{"x", "y", "z"}}
	out := renderNode(f, rect{W: 6, H: 5}, nodeStyle{}, 2, 3)
	for i, l := range out {
		if (i == 2) != (l != "") {
			t.Errorf("row %d rendered = %v", i, l != "")
		}
	}
	if got := ansi.Strip(out[2]); got != "│y   │" {
		t.Errorf("row 2 = %q", got)
	}
}

func TestLineSpans(t *testing.T) {
	line := displayLine{row: 2, text: "abcdef"}
	tests := []struct {
		name     string
		mode     string
		from, to int
	}{
		{"charwise middle row", "v", 0, 6},
		{"linewise", "V", 0, 6},
		{"block", "\x16", 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := canvas.Frame{
				Current:      true,
				Mode:         engine.Mode{Name: tt.mode},
				HasSelection: true,
				SelStart:     engine.Position{Row: 1, Col: 1},
				SelEnd:       engine.Position{Row: 3, Col: 3},
			}
			spans := lineSpans(f, line, false, 0)
			if len(spans) != 1 || spans[0].from != tt.from || spans[0].to != tt.to {
				t.Errorf("spans = %+v, want [%d,%d)", spans, tt.from, tt.to)
			}
		})
	}

	f := canvas.Frame{
		Current:      true,
		Mode:         engine.Mode{Name: "v"},
		HasSelection: true,
		SelStart:     engine.Position{Row: 2, Col: 1},
		SelEnd:       engine.Position{Row: 2, Col: 3},
		Cursor:       engine.Position{Row: 2, Col: 3},
	}
	spans := lineSpans(f, line, true, 0)
	if len(spans) != 2 || spans[0].from != 1 || spans[0].to != 4 {
		t.Fatalf("selection span = %+v, want [1,4)", spans)
	}
	if spans[1].from != 3 || spans[1].to != 4 {
		t.Errorf("cursor span = %+v, want [3,4)", spans[1])
	}

	if spans := lineSpans(canvas.Frame{}, line, true, 0); spans != nil {
		t.Errorf("inactive node spans = %+v", spans)
	}
}

func TestStyleLine_Width(t *testing.T) {
	for _, text := range []string{"", "short", "a much longer line than fits", "tab\there"} {
		base := lipgloss.NewStyle()
		got := styleLine(text, 10, base, []span{{from: 2, to: 4, style: base.Bold(true)}})
		if w := ansi.StringWidth(got); w != 10 {
			t.Errorf("styleLine(%q) width %d", text, w)
		}
	}
}

func TestStatusLine(t *testing.T) {
	got := statusLine(60, engine.Mode{Name: "i"}, "notes/1.md", "saved", false, 2, 1.5)
	if w := ansi.StringWidth(got); w != 60 {
		t.Errorf("width = %d, want 60", w)
	}
	plain := ansi.Strip(got)
	for _, want := range []string{" I ", "notes/1.md", "saved", "2 unbound", "150%"} {
		if !strings.Contains(plain, want) {
			t.Errorf("status %q lacks %q", plain, want)
		}
	}

	narrow := statusLine(8, engine.Mode{Name: "n"}, "notes/1.md", "", false, 0, 1)
	if w := ansi.StringWidth(narrow); w > 8 {
		t.Errorf("narrow status width = %d", w)
	}
}

func BenchmarkRenderNode(b *testing.B) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = strings.Repeat("word ", 12)
	}
	f := canvas.Frame{Lines: lines, Current: true, Cursor: engine.Position{Row: 20, Col: 5}}
	r := rect{W: 42, H: 42}
	for b.Loop() {
		renderNode(f, r, nodeStyle{hue: 120, active: true}, 0, r.H)
	}
}
