// Package theme derives node colors from group hues and holds the fixed
// colors of the status bar, help overlay and CLI tables.
package theme

import (
	"fmt"
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette holds the lightness settings node colors are derived with.
type Palette struct {
	NonPersistentHue int
	BorderLightness  float64
	ActiveLightness  float64
	TextLightness    float64
	BorderStyle      string
}

// DefaultPalette matches the default appearance config.
func DefaultPalette() Palette {
	return Palette{
		NonPersistentHue: 341,
		BorderLightness:  0.35,
		ActiveLightness:  0.7,
		TextLightness:    0.85,
		BorderStyle:      "rounded",
	}
}

var current = DefaultPalette()

// Initialize sets the palette. Call it at startup and after a config
// reload.
func Initialize(p Palette) {
	current = p
}

// Current returns the active palette.
func Current() Palette {
	return current
}

// SignHue is the hue of sign column markers.
const SignHue = 289

func hsl(hue int, s, l float64) color.Color {
	return colorful.Hsl(float64(hue%360), s, l).Clamped()
}

// NodeHue returns the hue a node is drawn with: its group hue, or the
// non-persistent hue for an ephemeral node.
func NodeHue(groupHue int, ephemeral bool) int {
	if ephemeral {
		return current.NonPersistentHue
	}
	return groupHue
}

// Node border colors
func NodeBorder(hue int) color.Color {
	return hsl(hue, 1, current.BorderLightness)
}

func NodeBorderActive(hue int) color.Color {
	return hsl(hue, 1, current.ActiveLightness)
}

func NodeText(hue int) color.Color {
	return hsl(hue, 0.3, current.TextLightness)
}

func NodeTextDim(hue int) color.Color {
	return hsl(hue, 0.2, current.TextLightness*0.6)
}

// Selection and cursor colors for the current node
func Selection(hue int) (bg color.Color, fg color.Color) {
	return hsl(hue, 1, 0.23), lipgloss.Color("15")
}

func Cursor(hue int) (bg color.Color, fg color.Color) {
	return hsl(hue, 1, current.ActiveLightness), lipgloss.Color("0")
}

func Sign() color.Color {
	return hsl(SignHue, 1, 0.38)
}

func FoldMarker(hue int) color.Color {
	return hsl(hue, 0.5, current.BorderLightness)
}

// Border returns the lipgloss border named by the palette.
func Border() lipgloss.Border {
	switch current.BorderStyle {
	case "normal":
		return lipgloss.NormalBorder()
	case "thick":
		return lipgloss.ThickBorder()
	case "double":
		return lipgloss.DoubleBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

// Status bar colors
func StatusBg() color.Color {
	return lipgloss.Color("#1a1a2e")
}

func StatusFg() color.Color {
	return lipgloss.Color("#c0c0d0")
}

func StatusMode(mode string) color.Color {
	switch mode {
	case "i", "ic", "ix":
		return lipgloss.Color("#AAFFAA")
	case "v", "V", "\x16":
		return lipgloss.Color("#FFD580")
	case "c", "cv":
		return lipgloss.Color("#AFFFFF")
	default:
		return lipgloss.Color("#8080a0")
	}
}

func StatusMessage() color.Color {
	return lipgloss.Color("11")
}

func StatusWarning() color.Color {
	return lipgloss.Color("#FF6B6B")
}

// Help overlay colors
func HelpKeyBadge() color.Color {
	return lipgloss.Color("5")
}

func HelpGray() color.Color {
	return lipgloss.Color("8")
}

func HelpBorder() color.Color {
	return lipgloss.Color("14")
}

func HelpTableHeader() color.Color {
	return lipgloss.Color("12")
}

// CLI table colors
func CLITableHeader() color.Color {
	return lipgloss.Color("12")
}

func CLITableBorder() color.Color {
	return lipgloss.Color("8")
}

func CLITableTitle() color.Color {
	return lipgloss.Color("11")
}

func CLITableDim() color.Color {
	return lipgloss.Color("8")
}

func CLITableWarn() color.Color {
	return lipgloss.Color("9")
}

// ColorToString converts a color.Color to a hex string
func ColorToString(c color.Color) string {
	if c == nil {
		return "#000000"
	}
	r, g, b, _ := c.RGBA()
	// RGBA returns values in range 0-65535, convert to 0-255
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
	return fmt.Sprintf("#%02x%02x%02x", r8, g8, b8)
}
