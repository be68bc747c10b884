// Package enginetest provides an in-memory engine.Editor for tests.
//
// The fake models buffers, tabs and windows the way neovim does closely
// enough to exercise reconciliation: tabs own windows, windows show buffers,
// exactly one window is current, closing a tab's last window closes the tab.
package enginetest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

type buffer struct {
	id       engine.BufferID
	name     string
	lines    []string
	extmarks []engine.Extmark
	folds    []engine.Fold
	signs    []int
}

type window struct {
	id  engine.WindowID
	buf engine.BufferID
}

type tab struct {
	id   engine.TabID
	wins []*window
}

// Fake is a scriptable engine.Editor. The zero value is not usable; call New.
type Fake struct {
	buffers map[engine.BufferID]*buffer
	tabs    []*tab
	curTab  engine.TabID
	curWin  engine.WindowID

	mode        engine.Mode
	cursor      engine.Position
	selStart    engine.Position
	selEnd      engine.Position
	cmdline     string
	unavailable bool

	nextBuf engine.BufferID
	nextTab engine.TabID
	nextWin engine.WindowID

	// Files records paths written or deleted through the editor.
	Files map[string]bool
	// Inputs records every Input call.
	Inputs []string
	// Calls counts calls per method name.
	Calls map[string]int
	// Queried counts per-buffer content queries (lines, extmarks, folds, signs).
	Queried map[engine.BufferID]int
}

var _ engine.Editor = (*Fake)(nil)

// New returns a fake that starts like a fresh engine: one tab, one window,
// one empty unnamed buffer.
func New() *Fake {
	f := &Fake{
		buffers: make(map[engine.BufferID]*buffer),
		mode:    engine.Mode{Name: "n"},
		cursor:  engine.Position{Row: 1},
		Files:   make(map[string]bool),
		Calls:   make(map[string]int),
		Queried: make(map[engine.BufferID]int),
	}
	b := f.newBuffer("")
	f.newTab(b.id)
	return f
}

func (f *Fake) call(name string) error {
	f.Calls[name]++
	if f.unavailable {
		return engine.Unavailable(name, fmt.Errorf("fake engine stopped"))
	}
	return nil
}

func (f *Fake) newBuffer(name string) *buffer {
	f.nextBuf++
	b := &buffer{id: f.nextBuf, name: name, lines: []string{""}}
	b.load()
	f.buffers[b.id] = b
	return b
}

// load picks up existing file content, like :edit.
func (b *buffer) load() {
	if b.name == "" {
		return
	}
	if data, err := os.ReadFile(b.name); err == nil && len(data) > 0 {
		b.lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}
}

func (f *Fake) newTab(buf engine.BufferID) *tab {
	f.nextTab++
	f.nextWin++
	t := &tab{id: f.nextTab, wins: []*window{{id: f.nextWin, buf: buf}}}
	f.tabs = append(f.tabs, t)
	f.curTab, f.curWin = t.id, f.nextWin
	return t
}

func (f *Fake) tab(id engine.TabID) *tab {
	for _, t := range f.tabs {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (f *Fake) currentWindow() *window {
	if t := f.tab(f.curTab); t != nil {
		for _, w := range t.wins {
			if w.id == f.curWin {
				return w
			}
		}
	}
	return nil
}

func (f *Fake) buffer(id engine.BufferID) (*buffer, error) {
	b, ok := f.buffers[id]
	if !ok {
		return nil, fmt.Errorf("invalid buffer id: %d", id)
	}
	return b, nil
}

// =============================================================================
// engine.Editor
// =============================================================================

func (f *Fake) ListBuffers() ([]engine.BufferID, error) {
	if err := f.call("ListBuffers"); err != nil {
		return nil, err
	}
	ids := make([]engine.BufferID, 0, len(f.buffers))
	for id := range f.buffers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *Fake) BufferLines(id engine.BufferID) ([]string, error) {
	if err := f.call("BufferLines"); err != nil {
		return nil, err
	}
	b, err := f.buffer(id)
	if err != nil {
		return nil, err
	}
	f.Queried[id]++
	return slices.Clone(b.lines), nil
}

func (f *Fake) BufferIsEmpty(id engine.BufferID) (bool, error) {
	if err := f.call("BufferIsEmpty"); err != nil {
		return false, err
	}
	b, err := f.buffer(id)
	if err != nil {
		return false, err
	}
	return engine.IsBlank(b.lines), nil
}

func (f *Fake) CurrentBuffer() (engine.BufferID, error) {
	if err := f.call("CurrentBuffer"); err != nil {
		return 0, err
	}
	w := f.currentWindow()
	if w == nil {
		return 0, fmt.Errorf("no current window")
	}
	return w.buf, nil
}

func (f *Fake) CurrentMode() (engine.Mode, error) {
	if err := f.call("CurrentMode"); err != nil {
		return engine.Mode{}, err
	}
	return f.mode, nil
}

func (f *Fake) CmdLine() (string, error) {
	if err := f.call("CmdLine"); err != nil {
		return "", err
	}
	return f.cmdline, nil
}

func (f *Fake) Cursor() (engine.Position, error) {
	if err := f.call("Cursor"); err != nil {
		return engine.Position{}, err
	}
	return f.cursor, nil
}

func (f *Fake) Selection() (engine.Position, engine.Position, error) {
	if err := f.call("Selection"); err != nil {
		return engine.Position{}, engine.Position{}, err
	}
	s, e := f.selStart, f.selEnd
	if e.Before(s) {
		s, e = e, s
	}
	return s, e, nil
}

func (f *Fake) Extmarks(id engine.BufferID) ([]engine.Extmark, error) {
	if err := f.call("Extmarks"); err != nil {
		return nil, err
	}
	b, err := f.buffer(id)
	if err != nil {
		return nil, err
	}
	f.Queried[id]++
	return slices.Clone(b.extmarks), nil
}

func (f *Fake) HasOverlays() (bool, error) {
	if err := f.call("HasOverlays"); err != nil {
		return false, err
	}
	for _, b := range f.buffers {
		for _, m := range b.extmarks {
			if m.Annotation != "" {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *Fake) Folds(id engine.BufferID) ([]engine.Fold, error) {
	if err := f.call("Folds"); err != nil {
		return nil, err
	}
	b, err := f.buffer(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(b.folds), nil
}

func (f *Fake) Signs(id engine.BufferID) ([]int, error) {
	if err := f.call("Signs"); err != nil {
		return nil, err
	}
	b, err := f.buffer(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(b.signs), nil
}

func (f *Fake) bufferNamed(path string) *buffer {
	if path == "" {
		return nil
	}
	for _, b := range f.buffers {
		if b.name == path {
			return b
		}
	}
	return nil
}

func (f *Fake) CreateBuffer(path string) (engine.BufferID, error) {
	if err := f.call("CreateBuffer"); err != nil {
		return 0, err
	}
	b := f.bufferNamed(path)
	if b == nil {
		b = f.newBuffer(path)
	}
	f.newTab(b.id)
	return b.id, nil
}

func (f *Fake) EditInCurrentTab(path string) (engine.BufferID, error) {
	if err := f.call("EditInCurrentTab"); err != nil {
		return 0, err
	}
	w := f.currentWindow()
	if w == nil {
		return 0, fmt.Errorf("no current window")
	}
	if cur := f.buffers[w.buf]; cur != nil && cur.name == "" && engine.IsBlank(cur.lines) {
		cur.name = path
		cur.load()
		return cur.id, nil
	}
	b := f.bufferNamed(path)
	if b == nil {
		b = f.newBuffer(path)
	}
	w.buf = b.id
	return b.id, nil
}

func (f *Fake) AdoptBuffer(id engine.BufferID) error {
	if err := f.call("AdoptBuffer"); err != nil {
		return err
	}
	if _, err := f.buffer(id); err != nil {
		return err
	}
	f.newTab(id)
	return nil
}

func (f *Fake) WriteBuffer(id engine.BufferID) error {
	if err := f.call("WriteBuffer"); err != nil {
		return err
	}
	b, err := f.buffer(id)
	if err != nil {
		return err
	}
	if b.name == "" {
		return fmt.Errorf("E32: No file name")
	}
	if filepath.IsAbs(b.name) {
		if err := os.MkdirAll(filepath.Dir(b.name), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(b.name, []byte(strings.Join(b.lines, "\n")+"\n"), 0o644); err != nil {
			return err
		}
	}
	f.Files[b.name] = true
	return nil
}

func (f *Fake) ClearBuffer(id engine.BufferID) error {
	if err := f.call("ClearBuffer"); err != nil {
		return err
	}
	b, err := f.buffer(id)
	if err != nil {
		return err
	}
	b.lines = []string{""}
	return nil
}

func (f *Fake) DeleteBuffer(id engine.BufferID) error {
	if err := f.call("DeleteBuffer"); err != nil {
		return err
	}
	if _, err := f.buffer(id); err != nil {
		return err
	}
	delete(f.buffers, id)
	for _, t := range slices.Clone(f.tabs) {
		for _, w := range slices.Clone(t.wins) {
			if w.buf == id {
				f.closeWindow(w.id)
			}
		}
	}
	return nil
}

func (f *Fake) DeleteFile(path string) error {
	if err := f.call("DeleteFile"); err != nil {
		return err
	}
	if filepath.IsAbs(path) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	f.Files[path] = false
	return nil
}

func (f *Fake) ListTabs() ([]engine.TabInfo, error) {
	if err := f.call("ListTabs"); err != nil {
		return nil, err
	}
	var infos []engine.TabInfo
	for _, t := range f.tabs {
		for _, w := range t.wins {
			infos = append(infos, engine.TabInfo{Tab: t.id, Window: w.id, Buffer: w.buf})
		}
	}
	return infos, nil
}

func (f *Fake) SwitchToTab(id engine.TabID) error {
	if err := f.call("SwitchToTab"); err != nil {
		return err
	}
	t := f.tab(id)
	if t == nil {
		return fmt.Errorf("invalid tabpage id: %d", id)
	}
	f.curTab, f.curWin = t.id, t.wins[0].id
	return nil
}

func (f *Fake) CloseWindow(id engine.WindowID) error {
	if err := f.call("CloseWindow"); err != nil {
		return err
	}
	if !f.closeWindow(id) {
		return fmt.Errorf("invalid window id: %d", id)
	}
	return nil
}

func (f *Fake) closeWindow(id engine.WindowID) bool {
	for ti, t := range f.tabs {
		for wi, w := range t.wins {
			if w.id != id {
				continue
			}
			t.wins = slices.Delete(t.wins, wi, wi+1)
			if len(t.wins) == 0 {
				f.tabs = slices.Delete(f.tabs, ti, ti+1)
			}
			if f.curWin == id {
				f.refocus(ti)
			}
			return true
		}
	}
	return false
}

// refocus picks a new current window after the current one closed,
// preferring the same tab and then the tab before it.
func (f *Fake) refocus(tabIndex int) {
	if len(f.tabs) == 0 {
		// the engine never runs without a window
		b := f.newBuffer("")
		f.newTab(b.id)
		return
	}
	if t := f.tab(f.curTab); t != nil {
		f.curWin = t.wins[0].id
		return
	}
	i := min(max(tabIndex-1, 0), len(f.tabs)-1)
	f.curTab, f.curWin = f.tabs[i].id, f.tabs[i].wins[0].id
}

func (f *Fake) Input(keys string) error {
	if err := f.call("Input"); err != nil {
		return err
	}
	f.Inputs = append(f.Inputs, keys)
	return nil
}

func (f *Fake) Close() error {
	f.unavailable = true
	return nil
}

// =============================================================================
// Scripting helpers
// =============================================================================

// SetLines replaces a buffer's content.
func (f *Fake) SetLines(id engine.BufferID, lines ...string) {
	if len(lines) == 0 {
		lines = []string{""}
	}
	f.buffers[id].lines = lines
}

// Lines returns a buffer's content without counting as a query.
func (f *Fake) Lines(id engine.BufferID) []string {
	if b, ok := f.buffers[id]; ok {
		return slices.Clone(b.lines)
	}
	return nil
}

// SetExtmarks replaces the annotation overlays shown on a buffer.
func (f *Fake) SetExtmarks(id engine.BufferID, marks ...engine.Extmark) {
	f.buffers[id].extmarks = marks
}

// SetFolds replaces a buffer's closed folds.
func (f *Fake) SetFolds(id engine.BufferID, folds ...engine.Fold) {
	f.buffers[id].folds = folds
}

// SetSigns replaces a buffer's sign rows.
func (f *Fake) SetSigns(id engine.BufferID, rows ...int) {
	f.buffers[id].signs = rows
}

// SetMode sets the mode reported by CurrentMode.
func (f *Fake) SetMode(m engine.Mode) {
	f.mode = m
}

// SetCmdLine sets the command line reported by CmdLine.
func (f *Fake) SetCmdLine(line string) {
	f.cmdline = line
}

// SetCursor sets the reported cursor position.
func (f *Fake) SetCursor(p engine.Position) {
	f.cursor = p
}

// SetSelection sets the reported visual selection bounds.
func (f *Fake) SetSelection(start, end engine.Position) {
	f.selStart, f.selEnd = start, end
}

// Stop makes every subsequent call fail with engine.ErrUnavailable.
func (f *Fake) Stop() {
	f.unavailable = true
}

// Exists reports whether the buffer is still loaded.
func (f *Fake) Exists(id engine.BufferID) bool {
	_, ok := f.buffers[id]
	return ok
}

// Name returns the path a buffer was opened with.
func (f *Fake) Name(id engine.BufferID) string {
	if b, ok := f.buffers[id]; ok {
		return b.name
	}
	return ""
}

// Split opens a new unnamed buffer in a second window of the current tab,
// like :new, and focuses it.
func (f *Fake) Split() engine.BufferID {
	b := f.newBuffer("")
	t := f.tab(f.curTab)
	f.nextWin++
	t.wins = append(t.wins, &window{id: f.nextWin, buf: b.id})
	f.curWin = f.nextWin
	return b.id
}

// SplitShowing opens a second window of the current tab showing an
// existing buffer and focuses it.
func (f *Fake) SplitShowing(id engine.BufferID) {
	t := f.tab(f.curTab)
	f.nextWin++
	t.wins = append(t.wins, &window{id: f.nextWin, buf: id})
	f.curWin = f.nextWin
}

// HiddenBuffer creates a buffer with no window, like a plugin scratch
// buffer or :badd.
func (f *Fake) HiddenBuffer(lines ...string) engine.BufferID {
	b := f.newBuffer("")
	if len(lines) > 0 {
		b.lines = lines
	}
	return b.id
}

// EditHere replaces the current window's buffer with a new unnamed one,
// like :enew, leaving the old buffer hidden.
func (f *Fake) EditHere() engine.BufferID {
	b := f.newBuffer("")
	f.currentWindow().buf = b.id
	return b.id
}

// Focus makes the first window showing id current.
func (f *Fake) Focus(id engine.BufferID) {
	for _, t := range f.tabs {
		for _, w := range t.wins {
			if w.buf == id {
				f.curTab, f.curWin = t.id, w.id
				return
			}
		}
	}
}

// CloseTabOf closes every window showing id without wiping the buffer,
// like :tabclose.
func (f *Fake) CloseTabOf(id engine.BufferID) {
	for _, t := range slices.Clone(f.tabs) {
		for _, w := range slices.Clone(t.wins) {
			if w.buf == id {
				f.closeWindow(w.id)
			}
		}
	}
}

// Wipe removes a buffer as if the user ran :bwipeout on it.
func (f *Fake) Wipe(id engine.BufferID) {
	f.CloseTabOf(id)
	delete(f.buffers, id)
}

// WindowsOf returns the windows displaying id.
func (f *Fake) WindowsOf(id engine.BufferID) []engine.WindowID {
	var wins []engine.WindowID
	for _, t := range f.tabs {
		for _, w := range t.wins {
			if w.buf == id {
				wins = append(wins, w.id)
			}
		}
	}
	return wins
}

// TabCount returns the number of open tabs.
func (f *Fake) TabCount() int {
	return len(f.tabs)
}

// WindowCount returns the number of windows in the tab showing id.
func (f *Fake) WindowCount(id engine.BufferID) int {
	for _, t := range f.tabs {
		for _, w := range t.wins {
			if w.buf == id {
				return len(t.wins)
			}
		}
	}
	return 0
}

// BufferIDs returns every live buffer, sorted.
func (f *Fake) BufferIDs() []engine.BufferID {
	ids := make([]engine.BufferID, 0, len(f.buffers))
	for id := range f.buffers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResetCounters clears Calls and Queried.
func (f *Fake) ResetCounters() {
	f.Calls = make(map[string]int)
	f.Queried = make(map[engine.BufferID]int)
}
