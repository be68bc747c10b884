// Package main implements tessera, a spatial canvas of notes edited through
// a shared neovim instance. Every note is a buffer; buffers are laid out as
// boxes on an infinite plane and linked into trees.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/Gaurav-Gosain/tessera/internal/config"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
	"github.com/Gaurav-Gosain/tessera/internal/theme"
	"github.com/Gaurav-Gosain/tessera/internal/workspace"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Global flags
var (
	debugMode   bool
	groupName   string
	nvimAddress string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tessera [dir]",
		Short: "Spatial notes on top of neovim",
		Long: `tessera - spatial notes on top of neovim

Notes are neovim buffers drawn as boxes on an infinite plane. Boxes can be
attached below or to the right of each other to form trees, and the layout
follows their content as you type.`,
		Example: `  # Open the default workspace
  tessera

  # Open a workspace directory, adding new notes to the "ideas" group
  tessera ~/notes --group ideas

  # Attach to a running neovim
  tessera --nvim /tmp/nvim.sock

  # Edit configuration
  tessera config edit`,
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd.Context(), firstArg(args))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&groupName, "group", "", "Group new notes are created in")
	rootCmd.Flags().StringVar(&nvimAddress, "nvim", "", "Address of a running neovim to attach to")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tessera configuration",
		Long:  `Manage the tessera configuration file and settings`,
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfigPath()
		},
	}

	configEditCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		Long: `Open the tessera configuration file in your default editor

The editor is determined by checking $EDITOR, $VISUAL, or common editors
like nvim, vim, vi and nano in that order. A running tessera picks up the
saved file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigFile()
		},
	}

	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		Long: `Reset the tessera configuration file to default settings

This will overwrite your existing configuration after confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigToDefaults()
		},
	}

	configCmd.AddCommand(configPathCmd, configEditCmd, configResetCmd)

	keybindsCmd := &cobra.Command{
		Use:     "keybinds",
		Aliases: []string{"keys", "kb"},
		Short:   "View keybinding configuration",
	}

	keybindsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all keybindings",
		Long:  `Display all configured keybindings in a formatted table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listKeybindings()
		},
	}

	keybindsCmd.AddCommand(keybindsListCmd)

	workspaceCmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Inspect a workspace without starting neovim",
	}

	workspaceTreeCmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the persisted note trees",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := printWorkspaceTree(cmd.Context(), firstArg(args))
			return err
		},
	}

	workspaceCheckCmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Report links that would be dropped on load",
		Long: `Report persisted parent links that cannot be restored

Exits with a non-zero status when any link would be dropped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dropped, err := printWorkspaceTree(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			if len(dropped) > 0 {
				return fmt.Errorf("%d link(s) would be dropped", len(dropped))
			}
			return nil
		},
	}

	workspaceCmd.AddCommand(workspaceTreeCmd, workspaceCheckCmd)

	rootCmd.AddCommand(configCmd, keybindsCmd, workspaceCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s\nBy: %s", version, commit, date, builtBy)),
	); err != nil {
		os.Exit(1)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printConfigPath() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}
	fmt.Println(path)
	return nil
}

// editConfigFile opens the config file in $EDITOR
func editConfigFile() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("Config file doesn't exist, creating default at: %s\n", configPath)
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("could not create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nvim", "vim", "vi", "nano"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Please set $EDITOR environment variable")
	}

	cmd := exec.Command(editor, configPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// resetConfigToDefaults resets the configuration file to default settings
func resetConfigToDefaults() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Warning: This will overwrite your existing configuration at:\n")
		fmt.Printf("  %s\n\n", configPath)
		fmt.Printf("Are you sure you want to reset to defaults? (yes/no): ")

		var response string
		_, _ = fmt.Scanln(&response)
		response = strings.ToLower(strings.TrimSpace(response))

		if response != "yes" && response != "y" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	if err := config.WriteDefault(configPath); err != nil {
		return err
	}

	fmt.Printf("Configuration reset to defaults\n")
	fmt.Printf("  Location: %s\n", configPath)
	fmt.Println("\nYou can customize it with: tessera config edit")
	return nil
}

// listKeybindings prints all configured keybindings in a pretty table
func listKeybindings() error {
	userConfig, err := config.LoadUserConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintln(os.Stderr, "Using default keybindings...")
		userConfig = config.DefaultConfig()
	}

	printKeybindingsTable(config.NewKeybindRegistry(userConfig))
	return nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.CLITableTitle())
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(theme.CLITableHeader()).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	noteStyle    = lipgloss.NewStyle().Foreground(theme.CLITableDim()).Italic(true)
	warnStyle    = lipgloss.NewStyle().Foreground(theme.CLITableWarn())
)

// printKeybindingsTable prints keybindings in a pretty table format
func printKeybindingsTable(registry *config.KeybindRegistry) {
	fmt.Println()
	fmt.Println(titleStyle.Render("tessera Keybindings"))
	fmt.Println()

	for _, section := range config.Sections {
		rows := [][]string{}
		for _, action := range section.Actions {
			keys := registry.GetKeys(action)
			if len(keys) == 0 {
				continue
			}
			desc := config.ActionDescriptions[action]
			if desc == "" {
				desc = strings.ReplaceAll(action, "_", " ")
			}
			rows = append(rows, []string{strings.Join(keys, ", "), desc})
		}
		if len(rows) == 0 {
			continue
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(theme.CLITableBorder())).
			Headers("Keys", "Action").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})

		fmt.Println(sectionStyle.Render(section.Title))
		fmt.Println(t.Render())
		fmt.Println()
	}

	fmt.Println(noteStyle.Render("Keys without a binding here are sent to neovim."))
	fmt.Println()
}

// openWorkspace opens dir, or the configured workspace when dir is empty.
func openWorkspace(dir string) (*workspace.Workspace, error) {
	if dir != "" {
		return workspace.Open(dir, "")
	}
	cfg, err := config.LoadUserConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	return workspace.Open(cfg.Workspace.Dir, cfg.Workspace.Group)
}

// printWorkspaceTree prints every persisted tree, root first, and the
// links that would not survive a load.
func printWorkspaceTree(ctx context.Context, dir string) ([]workspace.Dropped, error) {
	ws, err := openWorkspace(dir)
	if err != nil {
		return nil, err
	}
	state, err := ws.Load(ctx)
	if err != nil {
		return nil, err
	}
	g, dropped := workspace.Check(state.Records)

	fmt.Println(titleStyle.Render(ws.Dir()))
	for _, root := range g.Roots() {
		printTree(ws, g, root, "", "")
	}
	if g.Len() == 0 {
		fmt.Println(noteStyle.Render("  (no notes)"))
	}
	if len(dropped) > 0 {
		fmt.Println()
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d dropped link(s):", len(dropped))))
		for _, d := range dropped {
			fmt.Println("  " + d.String())
		}
	}
	return dropped, nil
}

func printTree(ws *workspace.Workspace, g *graph.Graph, n *graph.Node, indent, label string) {
	hue, ok := ws.Hue(n.Key)
	if !ok {
		hue = workspace.NameToHue(workspace.GroupOf(n.Key))
	}
	style := lipgloss.NewStyle().Foreground(theme.NodeText(hue))
	fmt.Printf("%s%s%s\n", indent, label, style.Render(n.Key))

	for _, side := range []graph.Side{graph.Down, graph.Right} {
		if c := g.Child(n, side); c != nil {
			printTree(ws, g, c, indent+"  ", side.String()+": ")
		}
	}
}
