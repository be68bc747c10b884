package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/Gaurav-Gosain/tessera/internal/canvas"
	"github.com/Gaurav-Gosain/tessera/internal/config"
	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/ui"
	"github.com/Gaurav-Gosain/tessera/internal/workspace"
)

// filterMouseMotion drops motion events that neither move the pointer to a
// new cell nor drag a node.
func filterMouseMotion(model tea.Model, msg tea.Msg) tea.Msg {
	motion, ok := msg.(tea.MouseMotionMsg)
	if !ok {
		return msg
	}
	m, ok := model.(*ui.Model)
	if !ok || m.WantsMotion(motion.Mouse()) {
		return msg
	}
	return nil
}

// setupLogging points every package logger at the log file. The terminal
// belongs to the canvas, so nothing is logged to stderr while it runs.
func setupLogging() (io.Closer, error) {
	path, err := xdg.StateFile(filepath.Join("tessera", "tessera.log"))
	if err != nil {
		return nil, fmt.Errorf("could not determine log path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	level := log.InfoLevel
	if debugMode {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		ReportCaller:    debugMode,
		Level:           level,
	})
	log.SetDefault(logger)
	canvas.SetLogger(logger)
	config.SetLogger(logger)
	engine.SetLogger(logger)
	workspace.SetLogger(logger)
	ui.SetLogger(logger)

	if debugMode {
		fmt.Printf("Debug mode enabled, logging to %s\n", path)
	}
	return f, nil
}

// nvimConfig builds the engine parameters from the config file and the
// --nvim flag.
func nvimConfig(cfg *config.UserConfig) engine.NvimConfig {
	nc := engine.DefaultNvimConfig()
	if len(cfg.Engine.Command) > 0 {
		nc.Command = cfg.Engine.Command[0]
		nc.Args = cfg.Engine.Command[1:]
	}
	nc.Address = cfg.Engine.Address
	if nvimAddress != "" {
		nc.Address = nvimAddress
	}
	return nc
}

func runLocal(ctx context.Context, dir string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tessera needs a terminal on stdout")
	}

	logFile, err := setupLogging()
	if err != nil {
		return err
	}
	defer logFile.Close()

	userConfig, err := config.LoadUserConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		userConfig = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws, err := workspace.Open(dirOr(dir, userConfig.Workspace.Dir), groupOr(groupName, userConfig.Workspace.Group))
	if err != nil {
		return err
	}
	state, err := ws.Load(ctx)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	nvim, err := engine.StartNvim(ctx, nvimConfig(userConfig))
	if err != nil {
		return err
	}
	defer func() {
		if err := nvim.Close(); err != nil {
			log.Debug("closing nvim", "err", err)
		}
	}()

	syncer := canvas.New(nvim, ws, ui.CanvasOptions(userConfig))
	dropped, err := syncer.Restore(state)
	if err != nil {
		return fmt.Errorf("restore workspace: %w", err)
	}
	for _, d := range dropped {
		log.Warn("dropped link", "link", d.String())
	}

	var reloads <-chan config.Reload
	if path, err := config.GetConfigPath(); err == nil {
		if reloads, err = config.Watch(ctx, path); err != nil {
			log.Warn("config reload disabled", "err", err)
		}
	}

	model := ui.New(ui.Options{
		Editor:    nvim,
		Sync:      syncer,
		Workspace: ws,
		Config:    userConfig,
		Reloads:   reloads,
	})

	p := tea.NewProgram(
		model,
		tea.WithoutSignalHandler(),
		tea.WithFilter(filterMouseMotion),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			p.Send(tea.QuitMsg{})
		case <-ctx.Done():
		}
	}()

	_, runErr := p.Run()

	// the layout is saved even when the engine went away; buffers only
	// when it can still be asked for them
	if engineErr := model.Err(); engineErr != nil {
		if err := ws.Save(context.Background(), syncer.Snapshot()); err != nil {
			log.Error("save workspace", "err", err)
		}
		return fmt.Errorf("neovim went away: %w", engineErr)
	}
	if err := model.Save(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save: %v\n", err)
	}

	if runErr != nil {
		return fmt.Errorf("program error: %w", runErr)
	}
	return nil
}

func dirOr(dir, fallback string) string {
	if dir != "" {
		return dir
	}
	return fallback
}

func groupOr(group, fallback string) string {
	if g := strings.TrimSpace(group); g != "" {
		return g
	}
	return fallback
}
