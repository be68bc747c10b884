package config

// Keybinding represents a single keybinding entry
type Keybinding struct {
	Key         string
	Description string
}

// KeybindingSection represents a section of related keybindings
type KeybindingSection struct {
	Title    string
	Bindings []Keybinding
}

// Sections lists the configurable actions by help section, in display
// order.
var Sections = []struct {
	Title   string
	Actions []string
}{
	{
		Title: "NAVIGATION",
		Actions: []string{
			"jump_up", "jump_down", "jump_left", "jump_right",
			"jump_back", "jump_forward", "hop", "bookmark_jump",
		},
	},
	{
		Title: "NODES",
		Actions: []string{
			"create_node", "create_child_down", "create_child_right",
			"catch_child_down", "catch_child_right", "detach_node",
			"delete_node", "grow_node", "shrink_node",
		},
	},
	{
		Title: "VIEW",
		Actions: []string{
			"zoom_in", "zoom_out", "zoom_reset",
			"pan_up", "pan_down", "pan_left", "pan_right", "center",
		},
	},
	{
		Title:   "SYSTEM",
		Actions: []string{"save", "toggle_help", "quit"},
	},
}

// GetKeybindings returns all keybinding sections for the help overlay.
// If registry is nil, the default bindings are shown.
func GetKeybindings(registry *KeybindRegistry) []KeybindingSection {
	if registry == nil {
		registry = NewKeybindRegistry(DefaultConfig())
	}

	sections := []KeybindingSection{}
	for _, s := range Sections {
		section := KeybindingSection{Title: s.Title}
		for _, action := range s.Actions {
			addBinding(&section, registry, action, ActionDescriptions[action])
		}
		if len(section.Bindings) > 0 {
			sections = append(sections, section)
		}
	}
	return append(sections, getStaticHelpSections()...)
}

// addBinding adds a keybinding to a section if the action has keys configured
func addBinding(section *KeybindingSection, registry *KeybindRegistry, action, description string) {
	keys := registry.GetKeysForDisplay(action)
	if keys != "" {
		section.Bindings = append(section.Bindings, Keybinding{
			Key:         keys,
			Description: description,
		})
	}
}

// getStaticHelpSections returns help sections that don't depend on the
// keybinding config
func getStaticHelpSections() []KeybindingSection {
	return []KeybindingSection{
		{
			Title: "MOUSE",
			Bindings: []Keybinding{
				{"Click node", "Focus node"},
				{"Click canvas", "New node there"},
				{"Wheel", "Zoom"},
				{"Shift+Wheel", "Grow/shrink node under pointer"},
				{"Drag node", "Move node (detaches it)"},
			},
		},
		{
			Title: "EDITING",
			Bindings: []Keybinding{
				{"Any other key", "Sent to the editor"},
			},
		},
	}
}
