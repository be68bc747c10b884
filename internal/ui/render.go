package ui

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/Gaurav-Gosain/tessera/internal/canvas"
	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/pool"
	"github.com/Gaurav-Gosain/tessera/internal/theme"
)

const tabStop = 8

// screen is a grid of styled rows that boxes are painted onto, later
// boxes covering earlier ones.
type screen struct {
	w, h int
	rows []string
}

func newScreen(w, h int) *screen {
	s := &screen{w: max(w, 0), h: max(h, 0)}
	s.rows = make([]string, s.h)
	blank := strings.Repeat(" ", s.w)
	for i := range s.rows {
		s.rows[i] = blank
	}
	return s
}

// draw paints lines with their top-left cell at x, y, clipping whatever
// falls outside the screen.
func (s *screen) draw(x, y int, lines []string) {
	for i, line := range lines {
		row := y + i
		if row < 0 || row >= s.h {
			continue
		}
		lw := ansi.StringWidth(line)
		left, right := 0, lw
		if x < 0 {
			left = -x
		}
		if x+lw > s.w {
			right = s.w - x
		}
		if left >= right {
			continue
		}
		seg := line
		if left > 0 || right < lw {
			seg = ansi.Cut(line, left, right)
		}
		start := max(x, 0)
		end := start + (right - left)
		s.rows[row] = ansi.Truncate(s.rows[row], start, "") + ansi.ResetStyle +
			seg + ansi.ResetStyle + ansi.TruncateLeft(s.rows[row], end, "")
	}
}

func (s *screen) String() string {
	return strings.Join(s.rows, "\n")
}

// displayLine is one visible row of a node: a buffer line, or a closed
// fold standing in for several.
type displayLine struct {
	row    int // 1-based buffer row
	text   string
	hidden int // lines folded away behind this one
}

// displayLines collapses closed folds to one line each.
func displayLines(f canvas.Frame) []displayLine {
	folds := slices.Clone(f.Folds)
	slices.SortFunc(folds, func(a, b engine.Fold) int { return a.StartRow - b.StartRow })

	out := make([]displayLine, 0, len(f.Lines))
	fi := 0
	for row := 1; row <= len(f.Lines); row++ {
		for fi < len(folds) && folds[fi].EndRow < row {
			fi++
		}
		if fi < len(folds) && folds[fi].StartRow == row && folds[fi].EndRow > row {
			end := min(folds[fi].EndRow, len(f.Lines))
			out = append(out, displayLine{row: row, text: f.Lines[row-1], hidden: end - row})
			row = end
			continue
		}
		out = append(out, displayLine{row: row, text: f.Lines[row-1]})
	}
	if len(out) == 0 {
		out = append(out, displayLine{row: 1})
	}
	return out
}

// expandTabs replaces tabs with spaces up to the next tab stop and control
// characters with their caret form.
func expandTabs(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return s
	}
	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	col := 0
	for _, r := range s {
		switch {
		case r == '\t':
			n := tabStop - col%tabStop
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case r < 0x20:
			b.WriteByte('^')
			b.WriteRune(r + '@')
			col += 2
		case r == 0x7f:
			b.WriteString("^?")
			col += 2
		default:
			b.WriteRune(r)
			col += ansi.StringWidth(string(r))
		}
	}
	return b.String()
}

// cellOf returns the cell a byte column starts at.
func cellOf(line string, byteCol int) int {
	byteCol = min(max(byteCol, 0), len(line))
	return ansi.StringWidth(expandTabs(line[:byteCol]))
}

// cellAfter returns the cell just past the character at byteCol.
func cellAfter(line string, byteCol int) int {
	if byteCol >= len(line) {
		return cellOf(line, byteCol) + 1
	}
	_, size := utf8.DecodeRuneInString(line[byteCol:])
	return cellOf(line, byteCol+size)
}

// span is a cell range drawn with a style other than the line's base.
type span struct {
	from, to int
	style    lipgloss.Style
}

// styleLine pads or cuts text to width cells and renders it with base,
// overridden by spans. Later spans win where they overlap.
func styleLine(text string, width int, base lipgloss.Style, spans []span) string {
	text = expandTabs(text)
	if w := ansi.StringWidth(text); w < width {
		text += strings.Repeat(" ", width-w)
	} else if w > width {
		text = ansi.Truncate(text, width, "")
	}

	cuts := []int{0, width}
	for _, sp := range spans {
		cuts = append(cuts, min(max(sp.from, 0), width), min(max(sp.to, 0), width))
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		style := base
		for _, sp := range spans {
			if sp.from <= lo && hi <= sp.to {
				style = sp.style
			}
		}
		b.WriteString(style.Render(ansi.Cut(text, lo, hi)))
	}
	return b.String()
}

// nodeStyle is how a node box is decorated.
type nodeStyle struct {
	hue    int
	active bool
	title  string
}

// renderNode draws a frame into a box of r's size. Only rows top to
// bottom-1 are rendered; the others are left empty, which draw skips.
func renderNode(f canvas.Frame, r rect, st nodeStyle, top, bottom int) []string {
	border := theme.Border()
	borderColor := theme.NodeBorder(st.hue)
	if st.active {
		borderColor = theme.NodeBorderActive(st.hue)
	}
	bs := lipgloss.NewStyle().Foreground(borderColor)
	text := lipgloss.NewStyle().Foreground(theme.NodeText(st.hue))
	if !st.active {
		text = lipgloss.NewStyle().Foreground(theme.NodeTextDim(st.hue))
	}

	innerW, innerH := r.W-2, r.H-2
	top, bottom = max(top, 0), min(bottom, r.H)
	out := make([]string, r.H)
	if top >= bottom {
		return out
	}
	if top == 0 {
		out[0] = topBorder(border, bs, innerW, st.title)
	}
	if bottom == r.H {
		out[r.H-1] = bs.Render(border.BottomLeft + strings.Repeat(border.Bottom, innerW) + border.BottomRight)
	}

	gutter := 0
	if len(f.Signs) > 0 && innerW > 2 {
		gutter = 1
	}
	textW := innerW - gutter

	lines := displayLines(f)
	cursorIdx := -1
	if f.Current {
		cursorIdx = slices.IndexFunc(lines, func(l displayLine) bool {
			return f.Cursor.Row >= l.row && f.Cursor.Row <= l.row+l.hidden
		})
	}
	offset := 0
	if cursorIdx >= innerH {
		offset = cursorIdx - innerH + 1
	}

	signStyle := lipgloss.NewStyle().Foreground(theme.Sign())
	foldStyle := lipgloss.NewStyle().Foreground(theme.FoldMarker(st.hue))
	b := pool.GetStringBuilder()
	defer pool.PutStringBuilder(b)
	for i := max(top-1, 0); i < min(bottom-1, innerH); i++ {
		b.Reset()
		b.WriteString(bs.Render(border.Left))
		idx := offset + i
		switch {
		case idx >= len(lines):
			b.WriteString(strings.Repeat(" ", innerW))
		default:
			l := lines[idx]
			if gutter > 0 {
				if hasSign(f.Signs, l.row, l.row+l.hidden) {
					b.WriteString(signStyle.Render("▌"))
				} else {
					b.WriteString(" ")
				}
			}
			if l.hidden > 0 {
				label := fmt.Sprintf("+--%3d lines: %s", l.hidden+1, strings.TrimSpace(l.text))
				b.WriteString(styleLine(label, textW, foldStyle, nil))
			} else {
				b.WriteString(styleLine(l.text, textW, text, lineSpans(f, l, idx == cursorIdx, st.hue)))
			}
		}
		b.WriteString(bs.Render(border.Right))
		out[i+1] = b.String()
	}
	return out
}

func topBorder(border lipgloss.Border, bs lipgloss.Style, innerW int, title string) string {
	fill := strings.Repeat(border.Top, innerW)
	if title != "" && innerW > 4 {
		label := " " + ansi.Truncate(title, innerW-4, "…") + " "
		rest := innerW - 1 - ansi.StringWidth(label)
		fill = border.Top + label + strings.Repeat(border.Top, max(rest, 0))
	}
	return bs.Render(border.TopLeft + fill + border.TopRight)
}

func hasSign(signs []int, from, to int) bool {
	i, _ := slices.BinarySearch(signs, from)
	return i < len(signs) && signs[i] <= to
}

// lineSpans returns the selection and cursor highlights of one line of
// the current node.
func lineSpans(f canvas.Frame, l displayLine, cursorLine bool, hue int) []span {
	if !f.Current {
		return nil
	}
	var spans []span
	if f.HasSelection && l.row >= f.SelStart.Row && l.row <= f.SelEnd.Row {
		bg, fg := theme.Selection(hue)
		sel := lipgloss.NewStyle().Background(bg).Foreground(fg)
		from, to := 0, max(ansi.StringWidth(expandTabs(l.text)), 1)
		switch f.Mode.Name {
		case "V":
		case "\x16":
			a, b := cellOf(l.text, f.SelStart.Col), cellAfter(l.text, f.SelEnd.Col)
			from, to = min(a, b), max(a, b)
		default:
			if l.row == f.SelStart.Row {
				from = cellOf(l.text, f.SelStart.Col)
			}
			if l.row == f.SelEnd.Row {
				to = cellAfter(l.text, f.SelEnd.Col)
			}
		}
		spans = append(spans, span{from: from, to: to, style: sel})
	}
	if cursorLine {
		bg, fg := theme.Cursor(hue)
		cur := lipgloss.NewStyle().Background(bg).Foreground(fg)
		c := cellOf(l.text, f.Cursor.Col)
		spans = append(spans, span{from: c, to: c + 1, style: cur})
	}
	return spans
}

// statusLine renders the bottom bar.
func statusLine(width int, mode engine.Mode, node, message string, warn bool, unbound int, zoom float64) string {
	bar := lipgloss.NewStyle().Background(theme.StatusBg()).Foreground(theme.StatusFg())

	name := mode.Name
	if name == "\x16" {
		name = "^V"
	}
	if name == "" {
		name = "-"
	}
	badge := lipgloss.NewStyle().
		Background(theme.StatusMode(mode.Name)).
		Foreground(lipgloss.Color("0")).
		Bold(true).
		Render(fmt.Sprintf(" %s ", strings.ToUpper(name)))

	right := fmt.Sprintf(" %3.0f%% ", zoom*100)
	if unbound > 0 {
		right = lipgloss.NewStyle().Background(theme.StatusBg()).Foreground(theme.StatusWarning()).
			Render(fmt.Sprintf(" %d unbound ", unbound)) + bar.Render(right)
	} else {
		right = bar.Render(right)
	}

	left := badge + bar.Render(" "+node+" ")
	if message != "" {
		c := theme.StatusMessage()
		if warn {
			c = theme.StatusWarning()
		}
		left += lipgloss.NewStyle().Background(theme.StatusBg()).Foreground(c).Render(message)
	}

	room := width - ansi.StringWidth(right)
	if room < 0 {
		return ansi.Truncate(left, width, "")
	}
	left = ansi.Truncate(left, room, "…")
	gap := room - ansi.StringWidth(left)
	return left + bar.Render(strings.Repeat(" ", gap)) + right
}
