package ui

import (
	"slices"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/Gaurav-Gosain/tessera/internal/config"
)

func TestNvimKey(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyPressMsg
		want string
	}{
		{"letter", tea.KeyPressMsg{Code: 'a', Text: "a"}, "a"},
		{"capital", tea.KeyPressMsg{Code: 'a', Text: "A", Mod: tea.ModShift}, "A"},
		{"less than", tea.KeyPressMsg{Code: '<', Text: "<"}, "<lt>"},
		{"unicode", tea.KeyPressMsg{Code: 'é', Text: "é"}, "é"},
		{"enter", tea.KeyPressMsg{Code: tea.KeyEnter}, "<CR>"},
		{"escape", tea.KeyPressMsg{Code: tea.KeyEscape}, "<Esc>"},
		{"backspace", tea.KeyPressMsg{Code: tea.KeyBackspace}, "<BS>"},
		{"space", tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}, "<Space>"},
		{"shift tab", tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}, "<S-Tab>"},
		{"ctrl up", tea.KeyPressMsg{Code: tea.KeyUp, Mod: tea.ModCtrl}, "<C-Up>"},
		{"f5", tea.KeyPressMsg{Code: tea.KeyF5}, "<F5>"},
		{"ctrl letter", tea.KeyPressMsg{Code: 'x', Mod: tea.ModCtrl}, "<C-x>"},
		{"alt letter", tea.KeyPressMsg{Code: 'x', Mod: tea.ModAlt}, "<M-x>"},
		{"alt shift letter", tea.KeyPressMsg{Code: 'j', Mod: tea.ModAlt | tea.ModShift}, "<M-J>"},
		{"ctrl alt", tea.KeyPressMsg{Code: 'w', Mod: tea.ModCtrl | tea.ModAlt}, "<C-M-w>"},
		{"ctrl backslash", tea.KeyPressMsg{Code: '\\', Mod: tea.ModCtrl}, "<C-Bslash>"},
		{"alt bar", tea.KeyPressMsg{Code: '|', Mod: tea.ModAlt}, "<M-Bar>"},
		{"ctrl less than", tea.KeyPressMsg{Code: '<', Mod: tea.ModCtrl}, "<C-lt>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nvimKey(tt.msg); got != tt.want {
				t.Errorf("nvimKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeystrokes_LegacyShiftedAlt(t *testing.T) {
	registry := config.NewKeybindRegistry(config.DefaultConfig())

	// alt+shift+j as a terminal without key disambiguation reports it
	msg := tea.KeyPressMsg{Code: 'J', Text: "J", Mod: tea.ModAlt}
	found := slices.ContainsFunc(keystrokes(msg), func(ks string) bool {
		return registry.GetAction(ks) == "create_child_down"
	})
	if !found {
		t.Errorf("keystrokes %v do not reach create_child_down", keystrokes(msg))
	}
}

func TestKeystrokes_Plain(t *testing.T) {
	msg := tea.KeyPressMsg{Code: 'n', Mod: tea.ModAlt}
	if got := keystrokes(msg); len(got) != 1 {
		t.Errorf("keystrokes = %v, want one", got)
	}
}

func BenchmarkNvimKey(b *testing.B) {
	msg := tea.KeyPressMsg{Code: 'j', Mod: tea.ModAlt | tea.ModShift}
	for b.Loop() {
		nvimKey(msg)
	}
}
