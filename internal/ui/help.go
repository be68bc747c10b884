package ui

import (
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/Gaurav-Gosain/tessera/internal/config"
	"github.com/Gaurav-Gosain/tessera/internal/theme"
)

// renderHelp renders every keybinding section as one table, section
// titles on their own rows.
func renderHelp(registry *config.KeybindRegistry) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.HelpTableHeader()).
		Padding(0, 1)
	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.HelpBorder()).
		Padding(0, 1)
	keyStyle := lipgloss.NewStyle().
		Foreground(theme.HelpKeyBadge()).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	rows := [][]string{}
	titles := map[int]bool{}
	for _, section := range config.GetKeybindings(registry) {
		titles[len(rows)] = true
		rows = append(rows, []string{section.Title, ""})
		for _, b := range section.Bindings {
			rows = append(rows, []string{b.Key, b.Description})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.HelpGray())).
		Headers("Keys", "Action").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case titles[row]:
				return sectionStyle
			case col == 0:
				return keyStyle
			}
			return cellStyle
		})
	return t.Render()
}

// drawCentered paints block in the middle of s, cut to fit.
func drawCentered(s *screen, block string) {
	lines := strings.Split(block, "\n")
	if len(lines) > s.h {
		lines = lines[:s.h]
	}
	w := lipgloss.Width(block)
	s.draw((s.w-w)/2, (s.h-len(lines))/2, lines)
}
