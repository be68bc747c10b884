package ui

import (
	"fmt"
	"strings"
	"unicode"

	tea "charm.land/bubbletea/v2"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// nvimNames maps bubbletea key codes to the names nvim uses inside <...>.
var nvimNames = map[rune]string{
	tea.KeyEnter:     "CR",
	tea.KeyTab:       "Tab",
	tea.KeyBackspace: "BS",
	tea.KeyEscape:    "Esc",
	tea.KeySpace:     "Space",
	tea.KeyDelete:    "Del",
	tea.KeyInsert:    "Insert",
	tea.KeyPgUp:      "PageUp",
	tea.KeyPgDown:    "PageDown",
	tea.KeyUp:        "Up",
	tea.KeyDown:      "Down",
	tea.KeyLeft:      "Left",
	tea.KeyRight:     "Right",
	tea.KeyHome:      "Home",
	tea.KeyEnd:       "End",
	tea.KeyF1:        "F1",
	tea.KeyF2:        "F2",
	tea.KeyF3:        "F3",
	tea.KeyF4:        "F4",
	tea.KeyF5:        "F5",
	tea.KeyF6:        "F6",
	tea.KeyF7:        "F7",
	tea.KeyF8:        "F8",
	tea.KeyF9:        "F9",
	tea.KeyF10:       "F10",
	tea.KeyF11:       "F11",
	tea.KeyF12:       "F12",
}

// nvimKey converts a key press to nvim key notation. It returns "" for
// keys nvim has no notation for.
func nvimKey(msg tea.KeyPressMsg) string {
	k := msg.Key()

	var prefix strings.Builder
	if k.Mod&tea.ModCtrl != 0 {
		prefix.WriteString("C-")
	}
	if k.Mod&(tea.ModAlt|tea.ModMeta) != 0 {
		prefix.WriteString("M-")
	}
	if k.Mod&tea.ModSuper != 0 {
		prefix.WriteString("D-")
	}

	if name, ok := nvimNames[k.Code]; ok {
		if k.Mod&tea.ModShift != 0 {
			prefix.WriteString("S-")
		}
		return fmt.Sprintf("<%s%s>", prefix.String(), name)
	}

	if prefix.Len() == 0 {
		// Plain typing: Text already carries shift and keyboard layout.
		if k.Text != "" {
			return engine.EscapeKeys(k.Text)
		}
		if unicode.IsPrint(k.Code) {
			if k.Mod&tea.ModShift != 0 {
				return engine.EscapeKeys(string(unicode.ToUpper(k.Code)))
			}
			return engine.EscapeKeys(string(k.Code))
		}
		return ""
	}

	if !unicode.IsPrint(k.Code) {
		return ""
	}
	ch := k.Code
	if k.Mod&tea.ModShift != 0 {
		switch {
		case k.ShiftedCode != 0:
			ch = k.ShiftedCode
		case unicode.IsLetter(ch):
			ch = unicode.ToUpper(ch)
		default:
			prefix.WriteString("S-")
		}
	}
	name := string(ch)
	switch ch {
	case '<':
		name = "lt"
	case '\\':
		name = "Bslash"
	case '|':
		name = "Bar"
	}
	return fmt.Sprintf("<%s%s>", prefix.String(), name)
}
