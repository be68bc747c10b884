// Package config loads the user configuration, maps keys to actions and
// watches the config file for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// Package-level logger
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "config",
})

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l.WithPrefix("config")
}

const (
	appName        = "tessera"
	configFileName = "config.toml"
)

// Tick timing
const (
	// TickInterval is how often the UI polls the engine when idle.
	TickInterval = 50 * time.Millisecond
	// InputTickDelay is how soon after forwarding a key the UI polls again.
	InputTickDelay = 5 * time.Millisecond
)

// UserConfig is the on-disk configuration.
type UserConfig struct {
	Layout      LayoutConfig      `toml:"layout"`
	Navigation  NavigationConfig  `toml:"navigation"`
	Engine      EngineConfig      `toml:"engine"`
	View        ViewConfig        `toml:"view"`
	Appearance  AppearanceConfig  `toml:"appearance"`
	Workspace   WorkspaceConfig   `toml:"workspace"`
	Keybindings KeybindingsConfig `toml:"keybindings"`
}

// LayoutConfig controls node sizes and placement in the plane.
type LayoutConfig struct {
	AutoShrink         bool       `toml:"auto_shrink"`
	TextWidth          float64    `toml:"text_width"`
	TextMaxHeight      float64    `toml:"text_max_height"`
	LineHeight         float64    `toml:"line_height"`
	InitialPosition    [2]float64 `toml:"initial_position"`
	Gap                float64    `toml:"gap"`
	StartingScale      float64    `toml:"starting_scale"`
	ChildRelativeScale float64    `toml:"child_relative_scale"`
}

// NavigationConfig controls history and neighbour jumps.
type NavigationConfig struct {
	HistorySize            int  `toml:"history_size"`
	AllowDisconnectedJumps bool `toml:"allow_disconnected_jumps"`
}

// EngineConfig says how to reach the editor engine.
type EngineConfig struct {
	Command []string `toml:"command"`
	// Address of a running engine to attach to instead of starting one.
	Address         string `toml:"address"`
	InputOnCreation string `toml:"input_on_creation"`
	// HopKeys and BookmarkJumpKeys are typed into the engine by the hop
	// and bookmark_jump actions. Empty disables the action.
	HopKeys          string `toml:"hop_keys"`
	BookmarkJumpKeys string `toml:"bookmark_jump_keys"`
}

// DefaultHopKeys starts a leap.nvim jump across every window.
const DefaultHopKeys = `<Esc>:lua require('leap').leap { target_windows = vim.api.nvim_list_wins() }<CR>`

// DefaultBookmarkJumpKeys opens the location on a bookmark list line
// ("file|line ...") under the cursor.
const DefaultBookmarkJumpKeys = `<Home>"fyt|f|<Right>"lyiw:buffer<Space><C-r>f<CR>:<C-r>l<CR>`

// ViewConfig controls how plane units map to terminal cells.
type ViewConfig struct {
	ZoomStep   float64 `toml:"zoom_step"`
	PanStep    float64 `toml:"pan_step"`
	CellWidth  float64 `toml:"cell_width"`
	CellHeight float64 `toml:"cell_height"`
}

// AppearanceConfig controls node colors.
type AppearanceConfig struct {
	NonPersistentHue int     `toml:"non_persistent_hue"`
	BorderLightness  float64 `toml:"border_lightness"`
	ActiveLightness  float64 `toml:"active_lightness"`
	TextLightness    float64 `toml:"text_lightness"`
	BorderStyle      string  `toml:"border_style"`
}

// WorkspaceConfig selects where notes live.
type WorkspaceConfig struct {
	Dir   string `toml:"dir"`
	Group string `toml:"group"`
}

// KeybindingsConfig maps actions to keys, by section.
type KeybindingsConfig struct {
	Navigation map[string][]string `toml:"navigation"`
	Nodes      map[string][]string `toml:"nodes"`
	View       map[string][]string `toml:"view"`
	System     map[string][]string `toml:"system"`
}

func (k KeybindingsConfig) sections() []map[string][]string {
	return []map[string][]string{k.Navigation, k.Nodes, k.View, k.System}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *UserConfig {
	return &UserConfig{
		Layout: LayoutConfig{
			AutoShrink:         true,
			TextWidth:          400,
			TextMaxHeight:      1000,
			LineHeight:         1,
			InitialPosition:    [2]float64{500, 40},
			Gap:                6,
			StartingScale:      0.75,
			ChildRelativeScale: 1,
		},
		Navigation: NavigationConfig{
			HistorySize:            10,
			AllowDisconnectedJumps: true,
		},
		Engine: EngineConfig{
			Command:          []string{"nvim", "--embed"},
			InputOnCreation:  "",
			HopKeys:          DefaultHopKeys,
			BookmarkJumpKeys: DefaultBookmarkJumpKeys,
		},
		View: ViewConfig{
			ZoomStep:   1.25,
			PanStep:    8,
			CellWidth:  7.5,
			CellHeight: 0.75,
		},
		Appearance: AppearanceConfig{
			NonPersistentHue: 341,
			BorderLightness:  0.35,
			ActiveLightness:  0.7,
			TextLightness:    0.85,
			BorderStyle:      "rounded",
		},
		Workspace: WorkspaceConfig{
			Dir:   filepath.Join(xdg.DataHome, appName, "workspace"),
			Group: "notes",
		},
		Keybindings: KeybindingsConfig{
			Navigation: map[string][]string{
				"jump_up":       {"ctrl+k"},
				"jump_down":     {"ctrl+j"},
				"jump_left":     {"ctrl+h"},
				"jump_right":    {"ctrl+l"},
				"jump_back":     {"ctrl+left"},
				"jump_forward":  {"ctrl+right"},
				"hop":           {"alt+t"},
				"bookmark_jump": {"alt+b"},
			},
			Nodes: map[string][]string{
				"create_node":        {"alt+n"},
				"create_child_down":  {"alt+shift+j"},
				"create_child_right": {"alt+shift+l"},
				"catch_child_down":   {"ctrl+alt+j"},
				"catch_child_right":  {"ctrl+alt+l"},
				"detach_node":        {"alt+d"},
				"delete_node":        {"ctrl+w"},
				"grow_node":          {"alt+i"},
				"shrink_node":        {"alt+u"},
			},
			View: map[string][]string{
				"zoom_in":    {"ctrl+o"},
				"zoom_out":   {"ctrl+y"},
				"zoom_reset": {"alt+0"},
				"pan_up":     {"alt+up"},
				"pan_down":   {"alt+down"},
				"pan_left":   {"alt+left"},
				"pan_right":  {"alt+right"},
				"center":     {"alt+c"},
			},
			System: map[string][]string{
				"save":        {"ctrl+s"},
				"toggle_help": {"f1"},
				"quit":        {"ctrl+q"},
			},
		},
	}
}

// GetConfigPath returns the path of the config file.
func GetConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appName, configFileName))
}

// LoadUserConfig loads the config file, writing the default one first if
// none exists.
func LoadUserConfig() (*UserConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("could not determine config path: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info("writing default config", "path", path)
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file. Settings and keybindings missing from the
// file keep their defaults.
func LoadFrom(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	// keybinding sections replace the defaults wholesale when decoded, so
	// decode them separately and merge per action
	defaults := cfg.Keybindings
	cfg.Keybindings = KeybindingsConfig{}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Keybindings = mergeKeybindings(defaults, cfg.Keybindings)
	cfg.Validate()
	return cfg, nil
}

func mergeKeybindings(defaults, user KeybindingsConfig) KeybindingsConfig {
	merge := func(def, usr map[string][]string) map[string][]string {
		out := make(map[string][]string, len(def))
		for action, keys := range def {
			out[action] = keys
		}
		for action, keys := range usr {
			out[action] = keys
		}
		return out
	}
	return KeybindingsConfig{
		Navigation: merge(defaults.Navigation, user.Navigation),
		Nodes:      merge(defaults.Nodes, user.Nodes),
		View:       merge(defaults.View, user.View),
		System:     merge(defaults.System, user.System),
	}
}

// Validate replaces out-of-range values with defaults and drops keys that
// do not parse.
func (c *UserConfig) Validate() {
	def := DefaultConfig()
	if c.Layout.TextWidth <= 0 {
		c.Layout.TextWidth = def.Layout.TextWidth
	}
	if c.Layout.TextMaxHeight <= 0 {
		c.Layout.TextMaxHeight = def.Layout.TextMaxHeight
	}
	if c.Layout.LineHeight <= 0 {
		c.Layout.LineHeight = def.Layout.LineHeight
	}
	if c.Layout.Gap < 0 {
		c.Layout.Gap = def.Layout.Gap
	}
	if c.Layout.StartingScale <= 0 {
		c.Layout.StartingScale = def.Layout.StartingScale
	}
	if c.Layout.ChildRelativeScale <= 0 {
		c.Layout.ChildRelativeScale = def.Layout.ChildRelativeScale
	}
	if c.Layout.InitialPosition == [2]float64{} && c.Layout.AutoShrink {
		// auto-shrink measures distance from the initial position
		logger.Warn("initial_position at the origin disables auto_shrink")
		c.Layout.AutoShrink = false
	}
	if c.Navigation.HistorySize <= 0 {
		c.Navigation.HistorySize = def.Navigation.HistorySize
	}
	if len(c.Engine.Command) == 0 {
		c.Engine.Command = def.Engine.Command
	}
	if c.View.ZoomStep <= 1 {
		c.View.ZoomStep = def.View.ZoomStep
	}
	if c.View.PanStep <= 0 {
		c.View.PanStep = def.View.PanStep
	}
	if c.View.CellWidth <= 0 {
		c.View.CellWidth = def.View.CellWidth
	}
	if c.View.CellHeight <= 0 {
		c.View.CellHeight = def.View.CellHeight
	}
	if c.Appearance.NonPersistentHue < 0 || c.Appearance.NonPersistentHue >= 360 {
		c.Appearance.NonPersistentHue = def.Appearance.NonPersistentHue
	}
	unit := func(v *float64, fallback float64) {
		if *v <= 0 || *v > 1 {
			*v = fallback
		}
	}
	unit(&c.Appearance.BorderLightness, def.Appearance.BorderLightness)
	unit(&c.Appearance.ActiveLightness, def.Appearance.ActiveLightness)
	unit(&c.Appearance.TextLightness, def.Appearance.TextLightness)
	if c.Appearance.BorderStyle == "" {
		c.Appearance.BorderStyle = def.Appearance.BorderStyle
	}
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = def.Workspace.Dir
	}
	if c.Workspace.Group == "" {
		c.Workspace.Group = def.Workspace.Group
	}

	n := NewKeyNormalizer()
	for _, section := range c.Keybindings.sections() {
		for action, keys := range section {
			valid := keys[:0:0]
			for _, k := range keys {
				if ok, reason := n.ValidateKey(k); !ok {
					logger.Warn("ignoring invalid key", "action", action, "key", k, "reason", reason)
					continue
				}
				valid = append(valid, k)
			}
			section[action] = valid
		}
	}
}

// WriteDefault writes the default configuration to path with a header.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("# tessera configuration\n")
	buf.WriteString("# Keybindings map an action to a list of keys; multiple keys may\n")
	buf.WriteString("# be bound to the same action. Keys not bound here go to the editor.\n")
	buf.WriteString("#\n")
	buf.WriteString("# Configuration location: " + path + "\n\n")

	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	buf.Write(data)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
