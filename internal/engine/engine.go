// Package engine defines the contract tessera consumes from the external
// modal editing engine, plus a neovim msgpack-RPC implementation of it.
//
// Every call is a synchronous round trip. Callers must treat ErrUnavailable
// as fatal: there is no meaningful state without the engine.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable reports that the engine process has exited or the
// connection to it was lost.
var ErrUnavailable = errors.New("engine unavailable")

// BufferID identifies a remote buffer. It is stable for the buffer's lifetime.
type BufferID int

// TabID identifies a remote tab page.
type TabID int

// WindowID identifies a remote window.
type WindowID int

// Mode is the engine's current input mode.
type Mode struct {
	// Name is the engine's mode code: "n", "i", "v", "V", "\x16" (block), ...
	Name string
	// Blocking is set while the engine waits for more input to finish a
	// command (operator pending, a multi-key mapping, a prompt).
	Blocking bool
}

// Visual reports whether the mode carries a selection.
func (m Mode) Visual() bool {
	switch m.Name {
	case "v", "V", "\x16":
		return true
	}
	return false
}

// Position is a cursor location: 1-based row, 0-based byte column.
type Position struct {
	Row int
	Col int
}

// Before reports whether p sorts before o.
func (p Position) Before(o Position) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Col < o.Col)
}

// Extmark is an inline annotation overlay (for example a jump label)
// drawn over buffer text at a 0-based row and column.
type Extmark struct {
	Row        int
	Col        int
	Annotation string
}

// Fold is a closed fold spanning 1-based rows StartRow..EndRow.
type Fold struct {
	StartRow int
	EndRow   int
}

// TabInfo describes one window of the engine's tab/window topology.
// A tab with several windows yields several entries.
type TabInfo struct {
	Tab    TabID
	Window WindowID
	Buffer BufferID
}

// Editor is the synchronous client surface of the external engine.
type Editor interface {
	ListBuffers() ([]BufferID, error)
	BufferLines(id BufferID) ([]string, error)
	BufferIsEmpty(id BufferID) (bool, error)

	CurrentBuffer() (BufferID, error)
	CurrentMode() (Mode, error)
	// CmdLine returns the command line being typed, prefixed with its type
	// (":", "/", ...), or "" outside command-line mode.
	CmdLine() (string, error)
	Cursor() (Position, error)
	// Selection returns the visual selection bounds ordered start <= end.
	Selection() (start, end Position, err error)

	Extmarks(id BufferID) ([]Extmark, error)
	Folds(id BufferID) ([]Fold, error)
	Signs(id BufferID) ([]int, error)
	// HasOverlays reports whether any loaded buffer carries an annotation
	// overlay.
	HasOverlays() (bool, error)

	// CreateBuffer opens path (or an unnamed buffer when path is "") alone
	// in a new tab and makes it current.
	CreateBuffer(path string) (BufferID, error)
	// EditInCurrentTab opens path in the current window, reusing the
	// window's buffer when it is empty and unnamed.
	EditInCurrentTab(path string) (BufferID, error)
	// AdoptBuffer shows an existing buffer alone in a new tab.
	AdoptBuffer(id BufferID) error
	WriteBuffer(id BufferID) error
	// ClearBuffer replaces a buffer's content with a single empty line.
	ClearBuffer(id BufferID) error
	DeleteBuffer(id BufferID) error
	DeleteFile(path string) error

	ListTabs() ([]TabInfo, error)
	SwitchToTab(id TabID) error
	CloseWindow(id WindowID) error

	// Input feeds keys, in the engine's key notation, as if typed.
	Input(keys string) error

	Close() error
}

// IsBlank reports whether buffer content counts as empty: no lines, or a
// single whitespace-only line.
func IsBlank(lines []string) bool {
	switch len(lines) {
	case 0:
		return true
	case 1:
		return strings.TrimSpace(lines[0]) == ""
	}
	return false
}

// EscapeKeys makes literal text safe to pass to Editor.Input.
func EscapeKeys(text string) string {
	return strings.ReplaceAll(text, "<", "<lt>")
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
