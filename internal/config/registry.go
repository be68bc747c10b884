package config

import (
	"slices"
	"strings"
)

// ActionDescriptions maps every action to its help text.
var ActionDescriptions = map[string]string{
	// Navigation
	"jump_up":       "Jump to parent",
	"jump_down":     "Jump to down child",
	"jump_left":     "Jump to parent",
	"jump_right":    "Jump to right child",
	"jump_back":     "Jump back",
	"jump_forward":  "Jump forward",
	"hop":           "Hop to any visible text",
	"bookmark_jump": "Open bookmark under cursor",

	// Nodes
	"create_node":        "New node under the cursor",
	"create_child_down":  "New child below",
	"create_child_right": "New child to the right",
	"catch_child_down":   "Attach previous node below",
	"catch_child_right":  "Attach previous node to the right",
	"detach_node":        "Detach from parent",
	"delete_node":        "Delete node",
	"grow_node":          "Grow node",
	"shrink_node":        "Shrink node",

	// View
	"zoom_in":    "Zoom in",
	"zoom_out":   "Zoom out",
	"zoom_reset": "Reset zoom",
	"pan_up":     "Pan up",
	"pan_down":   "Pan down",
	"pan_left":   "Pan left",
	"pan_right":  "Pan right",
	"center":     "Center on current node",

	// System
	"save":        "Save all notes",
	"toggle_help": "Toggle help",
	"quit":        "Save and quit",
}

// KeybindRegistry looks up actions by key and keys by action.
type KeybindRegistry struct {
	actionToKeys map[string][]string
	keyToAction  map[string]string
	normalizer   *KeyNormalizer
}

// NewKeybindRegistry builds a registry from every keybinding section of
// cfg. A key bound to two actions keeps the first in section order.
func NewKeybindRegistry(cfg *UserConfig) *KeybindRegistry {
	r := &KeybindRegistry{
		actionToKeys: make(map[string][]string),
		keyToAction:  make(map[string]string),
		normalizer:   NewKeyNormalizer(),
	}
	for _, section := range cfg.Keybindings.sections() {
		actions := make([]string, 0, len(section))
		for action := range section {
			actions = append(actions, action)
		}
		slices.Sort(actions)
		for _, action := range actions {
			for _, key := range section[action] {
				r.bind(action, key)
			}
		}
	}
	return r
}

func (r *KeybindRegistry) bind(action, key string) {
	variants := r.normalizer.NormalizeKey(key)
	if len(variants) == 0 {
		return
	}
	if prev, taken := r.keyToAction[variants[0]]; taken && prev != action {
		logger.Warn("key bound twice, keeping first", "key", key, "action", prev, "ignored", action)
		return
	}
	r.actionToKeys[action] = append(r.actionToKeys[action], key)
	for _, v := range variants {
		r.keyToAction[v] = action
	}
}

// GetKeys returns the keys bound to action.
func (r *KeybindRegistry) GetKeys(action string) []string {
	return r.actionToKeys[action]
}

// GetAction returns the action bound to key, or "".
func (r *KeybindRegistry) GetAction(key string) string {
	variants := r.normalizer.NormalizeKey(key)
	if len(variants) == 0 {
		return ""
	}
	return r.keyToAction[variants[0]]
}

// GetKeysForDisplay returns the keys bound to action formatted for help
// text, or "" when none are.
func (r *KeybindRegistry) GetKeysForDisplay(action string) string {
	keys := r.actionToKeys[action]
	if len(keys) == 0 {
		return ""
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = displayKey(k)
	}
	return strings.Join(out, ", ")
}

// Actions returns every bound action, sorted.
func (r *KeybindRegistry) Actions() []string {
	out := make([]string, 0, len(r.actionToKeys))
	for a := range r.actionToKeys {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

func displayKey(key string) string {
	parts := strings.Split(key, "+")
	for i, p := range parts {
		switch p {
		case "ctrl":
			parts[i] = "Ctrl"
		case "alt":
			parts[i] = "Alt"
		case "shift":
			parts[i] = "Shift"
		case "left":
			parts[i] = "←"
		case "right":
			parts[i] = "→"
		case "up":
			parts[i] = "↑"
		case "down":
			parts[i] = "↓"
		default:
			if len(p) == 1 {
				parts[i] = strings.ToUpper(p)
			} else {
				parts[i] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
	}
	return strings.Join(parts, "+")
}

// =============================================================================
// Key normalization
// =============================================================================

var modifierOrder = []string{"ctrl", "alt", "shift", "meta", "hyper", "super"}

var keyAliases = map[string][]string{
	"enter":    {"return"},
	"return":   {"enter"},
	"esc":      {"escape"},
	"escape":   {"esc"},
	"del":      {"delete"},
	"delete":   {"del"},
	"pgup":     {"pageup"},
	"pageup":   {"pgup"},
	"pgdown":   {"pagedown"},
	"pagedown": {"pgdown"},
	"space":    {" "},
}

// KeyNormalizer brings key strings into one canonical spelling.
type KeyNormalizer struct {
	modifiers map[string]string
}

// NewKeyNormalizer returns a normalizer.
func NewKeyNormalizer() *KeyNormalizer {
	return &KeyNormalizer{modifiers: map[string]string{
		"ctrl":    "ctrl",
		"control": "ctrl",
		"c":       "ctrl",
		"alt":     "alt",
		"opt":     "alt",
		"option":  "alt",
		"a":       "alt",
		"m":       "alt",
		"shift":   "shift",
		"s":       "shift",
		"meta":    "meta",
		"hyper":   "hyper",
		"super":   "super",
		"cmd":     "super",
	}}
}

// NormalizeKey returns the canonical form of key first, followed by
// aliases of the same key. Modifiers are lowercased and ordered ctrl, alt,
// shift, meta, hyper, super. An empty or malformed key yields nil.
func (n *KeyNormalizer) NormalizeKey(key string) []string {
	mods, base, ok := n.split(key)
	if !ok {
		return nil
	}
	prefix := ""
	for _, m := range modifierOrder {
		if mods[m] {
			prefix += m + "+"
		}
	}
	out := []string{prefix + base}
	for _, alias := range keyAliases[base] {
		out = append(out, prefix+alias)
	}
	return out
}

func (n *KeyNormalizer) split(key string) (map[string]bool, string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, "", false
	}
	// "+" alone and "ctrl++" name the plus key itself
	if key == "+" {
		return map[string]bool{}, "+", true
	}
	parts := strings.Split(key, "+")
	if strings.HasSuffix(key, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}
	base := parts[len(parts)-1]
	if base == "" {
		return nil, "", false
	}
	if len(base) > 1 {
		base = strings.ToLower(base)
	}
	mods := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		m, ok := n.modifiers[strings.ToLower(p)]
		if !ok {
			return nil, "", false
		}
		mods[m] = true
	}
	// a capital letter under a modifier is the same key as its lowercase
	if len(base) == 1 && len(mods) > 0 {
		base = strings.ToLower(base)
	}
	return mods, base, true
}

// ValidateKey reports whether key parses, with a reason when it does not.
func (n *KeyNormalizer) ValidateKey(key string) (bool, string) {
	if strings.TrimSpace(key) == "" {
		return false, "empty key"
	}
	if _, _, ok := n.split(key); !ok {
		return false, "unknown modifier or missing key"
	}
	return true, ""
}
