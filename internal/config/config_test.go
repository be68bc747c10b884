package config_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Gaurav-Gosain/tessera/internal/config"
)

// =============================================================================
// Default Configuration Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if !cfg.Layout.AutoShrink {
		t.Error("Expected auto_shrink on by default")
	}
	if cfg.Layout.InitialPosition != [2]float64{500, 40} {
		t.Errorf("initial_position = %v", cfg.Layout.InitialPosition)
	}
	if cfg.Navigation.HistorySize != 10 {
		t.Errorf("history_size = %d, want 10", cfg.Navigation.HistorySize)
	}
	if cfg.Appearance.NonPersistentHue != 341 {
		t.Errorf("non_persistent_hue = %d", cfg.Appearance.NonPersistentHue)
	}
	if len(cfg.Engine.Command) == 0 {
		t.Error("Expected a default engine command")
	}
	if cfg.Engine.HopKeys == "" || cfg.Engine.BookmarkJumpKeys == "" {
		t.Error("Expected default hop and bookmark jump keys")
	}
}

func TestDefaultKeybindings(t *testing.T) {
	cfg := config.DefaultConfig()

	nav := cfg.Keybindings.Navigation
	if nav == nil {
		t.Fatal("Navigation keybindings are nil")
	}

	requiredActions := []string{
		"jump_up",
		"jump_down",
		"jump_back",
		"jump_forward",
		"hop",
		"bookmark_jump",
	}

	for _, action := range requiredActions {
		keys, ok := nav[action]
		if !ok {
			t.Errorf("Expected %s keybinding to exist", action)
			continue
		}
		if len(keys) == 0 {
			t.Errorf("Expected %s to have at least one key bound", action)
		}
	}
}

func TestDefaultKeybindings_NoConflicts(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)
	normalizer := config.NewKeyNormalizer()

	seen := make(map[string]string)
	for _, section := range config.Sections {
		for _, action := range section.Actions {
			keys := registry.GetKeys(action)
			if len(keys) == 0 {
				t.Errorf("default config leaves %s unbound", action)
			}
			for _, k := range keys {
				canon := normalizer.NormalizeKey(k)[0]
				if other, ok := seen[canon]; ok {
					t.Errorf("%q bound to both %s and %s", k, other, action)
				}
				seen[canon] = action
			}
		}
	}
}

// =============================================================================
// Loading Tests
// =============================================================================

func TestLoadFrom_MergesKeybindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[layout]
text_width = 300
auto_shrink = false

[keybindings.view]
zoom_in = ["ctrl+="]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Layout.TextWidth != 300 || cfg.Layout.AutoShrink {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.Gap != 6 {
		t.Errorf("unset gap = %v, want default 6", cfg.Layout.Gap)
	}
	if got := cfg.Keybindings.View["zoom_in"]; !slices.Equal(got, []string{"ctrl+="}) {
		t.Errorf("zoom_in = %v", got)
	}
	if got := cfg.Keybindings.View["zoom_out"]; len(got) == 0 {
		t.Error("unset zoom_out lost its default")
	}
	if got := cfg.Keybindings.Navigation["jump_back"]; len(got) == 0 {
		t.Error("unset section lost its defaults")
	}
}

func TestLoadFrom_Validates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[layout]
text_width = -1
starting_scale = 0

[navigation]
history_size = 0

[appearance]
non_persistent_hue = 400
border_lightness = 3.0

[keybindings.system]
quit = ["ctrl+q", "bogus+q", ""]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	def := config.DefaultConfig()

	if cfg.Layout.TextWidth != def.Layout.TextWidth || cfg.Layout.StartingScale != def.Layout.StartingScale {
		t.Errorf("layout not repaired: %+v", cfg.Layout)
	}
	if cfg.Navigation.HistorySize != def.Navigation.HistorySize {
		t.Errorf("history_size = %d", cfg.Navigation.HistorySize)
	}
	if cfg.Appearance.NonPersistentHue != 341 || cfg.Appearance.BorderLightness != def.Appearance.BorderLightness {
		t.Errorf("appearance not repaired: %+v", cfg.Appearance)
	}
	if got := cfg.Keybindings.System["quit"]; !slices.Equal(got, []string{"ctrl+q"}) {
		t.Errorf("quit = %v, want invalid keys dropped", got)
	}
}

func TestLoadFrom_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[layout\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(path); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	def := config.DefaultConfig()
	if cfg.Layout != def.Layout || cfg.Navigation != def.Navigation || cfg.View != def.View {
		t.Errorf("loaded %+v, want defaults", cfg)
	}
	if !slices.Equal(cfg.Keybindings.Nodes["create_child_down"], def.Keybindings.Nodes["create_child_down"]) {
		t.Error("keybindings did not survive the round trip")
	}
}

// =============================================================================
// Watch Tests
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := config.Watch(ctx, path)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := os.WriteFile(path, []byte("[layout]\ntext_width = 123\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-reloads:
		if r.Err != nil {
			t.Fatalf("reload error: %v", r.Err)
		}
		if r.Config.Layout.TextWidth != 123 {
			t.Errorf("text_width = %v, want 123", r.Config.Layout.TextWidth)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing the config")
	}

	cancel()
	for range reloads {
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads, err := config.Watch(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-reloads:
		t.Errorf("unexpected reload: %+v", r)
	case <-time.After(300 * time.Millisecond):
	}
}

// =============================================================================
// KeybindRegistry Tests
// =============================================================================

func TestKeybindRegistry_GetKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	keys := registry.GetKeys("create_node")
	if len(keys) == 0 {
		t.Error("Expected create_node to have keys")
	}
}

func TestKeybindRegistry_GetAction(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	keys := registry.GetKeys("create_child_down")
	if len(keys) == 0 {
		t.Skip("No keys bound to create_child_down")
	}

	action := registry.GetAction(keys[0])
	if action != "create_child_down" {
		t.Errorf("Expected action 'create_child_down', got %q", action)
	}
}

func TestKeybindRegistry_GetActionNormalizes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keybindings.System["save"] = []string{"Ctrl+S", "escape"}
	registry := config.NewKeybindRegistry(cfg)

	for _, key := range []string{"ctrl+s", "CTRL+s", "esc", "escape"} {
		if got := registry.GetAction(key); got != "save" {
			t.Errorf("GetAction(%q) = %q, want save", key, got)
		}
	}
}

func TestKeybindRegistry_FirstBindingWins(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keybindings.Navigation["jump_back"] = []string{"ctrl+s"}
	registry := config.NewKeybindRegistry(cfg)

	if got := registry.GetAction("ctrl+s"); got != "jump_back" {
		t.Errorf("GetAction = %q, want the navigation binding", got)
	}
	if keys := registry.GetKeys("save"); len(keys) != 0 {
		t.Errorf("save keeps conflicting key %v", keys)
	}
}

func TestKeybindRegistry_GetKeysForDisplay(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	if got := registry.GetKeysForDisplay("jump_back"); got != "Ctrl+←" {
		t.Errorf("display = %q, want %q", got, "Ctrl+←")
	}
	if got := registry.GetKeysForDisplay("nonexistent_action"); got != "" {
		t.Errorf("display for unknown action = %q", got)
	}
}

func TestKeybindRegistry_UnknownAction(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	keys := registry.GetKeys("nonexistent_action")
	if len(keys) != 0 {
		t.Errorf("Expected empty keys for nonexistent action, got %v", keys)
	}
}

func TestKeybindRegistry_UnknownKey(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	action := registry.GetAction("ctrl+shift+alt+super+hyper+x")
	if action != "" {
		t.Errorf("Expected empty action for unbound key, got %q", action)
	}
	if action := registry.GetAction("j"); action != "" {
		t.Errorf("plain editor key mapped to %q", action)
	}
}

func TestGetKeybindings(t *testing.T) {
	sections := config.GetKeybindings(nil)
	if len(sections) < len(config.Sections) {
		t.Fatalf("got %d sections", len(sections))
	}
	if sections[0].Title != "NAVIGATION" || len(sections[0].Bindings) == 0 {
		t.Errorf("first section = %+v", sections[0])
	}
}

// =============================================================================
// Key Normalizer Tests
// =============================================================================

func TestKeyNormalizer(t *testing.T) {
	normalizer := config.NewKeyNormalizer()

	tests := []struct {
		input    string
		expected string
	}{
		{"ctrl+a", "ctrl+a"},
		{"Ctrl+A", "ctrl+a"},
		{"CTRL+A", "ctrl+a"},
		{"shift+alt+j", "alt+shift+j"},
		{"alt+ctrl+left", "ctrl+alt+left"},
		{"return", "return"},
		{"return", "enter"},
		{"escape", "escape"},
		{"enter", "enter"},
		{"esc", "esc"},
		{"F1", "f1"},
		{"ctrl++", "ctrl++"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := normalizer.NormalizeKey(tc.input)
			if len(got) == 0 {
				t.Errorf("NormalizeKey(%q) returned empty slice", tc.input)
				return
			}
			if !slices.Contains(got, tc.expected) {
				t.Errorf("NormalizeKey(%q) = %v, want to contain %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestKeyNormalizer_CaseOfBareLetters(t *testing.T) {
	normalizer := config.NewKeyNormalizer()
	if got := normalizer.NormalizeKey("J")[0]; got != "J" {
		t.Errorf("bare capital = %q, want it kept", got)
	}
}

func TestKeyNormalizer_ValidateKey(t *testing.T) {
	normalizer := config.NewKeyNormalizer()

	tests := []struct {
		input   string
		isValid bool
	}{
		{"ctrl+a", true},
		{"n", true},
		{"enter", true},
		{"esc", true},
		{"tab", true},
		{"alt+shift+j", true},
		{"hyperdrive+j", false},
		{"ctrl+", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			valid, _ := normalizer.ValidateKey(tc.input)
			if valid != tc.isValid {
				t.Errorf("ValidateKey(%q) = %v, want %v", tc.input, valid, tc.isValid)
			}
		})
	}
}

// =============================================================================
// Action Descriptions Tests
// =============================================================================

func TestActionDescriptions(t *testing.T) {
	for _, section := range config.Sections {
		for _, action := range section.Actions {
			desc, ok := config.ActionDescriptions[action]
			if !ok {
				t.Errorf("Expected description for action %q", action)
				continue
			}
			if desc == "" {
				t.Errorf("Description for %q should not be empty", action)
			}
		}
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkKeybindRegistry_GetAction(b *testing.B) {
	cfg := config.DefaultConfig()
	registry := config.NewKeybindRegistry(cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.GetAction("ctrl+j")
	}
}

func BenchmarkNormalizeKey(b *testing.B) {
	normalizer := config.NewKeyNormalizer()
	keys := []string{"ctrl+a", "Ctrl+Shift+B", "alt+1", "return"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = normalizer.NormalizeKey(keys[i%len(keys)])
	}
}
