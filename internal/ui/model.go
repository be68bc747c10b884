// Package ui is the bubbletea frontend: it drives the synchronizer's tick,
// forwards typing to the engine, draws nodes where the layout places them
// and maps mouse gestures to canvas commands.
package ui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"
	"unicode"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"

	"github.com/Gaurav-Gosain/tessera/internal/canvas"
	"github.com/Gaurav-Gosain/tessera/internal/config"
	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
	"github.com/Gaurav-Gosain/tessera/internal/layout"
	"github.com/Gaurav-Gosain/tessera/internal/redraw"
	"github.com/Gaurav-Gosain/tessera/internal/theme"
	"github.com/Gaurav-Gosain/tessera/internal/workspace"
)

// Package-level logger
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "ui",
})

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l.WithPrefix("ui")
}

const (
	messageTTL = 4 * time.Second
	minZoom    = 0.05
	maxZoom    = 8
)

// tickMsg drives the synchronizer. Ticks from a superseded schedule carry
// an old generation and are dropped.
type tickMsg struct {
	gen int
}

type reloadMsg config.Reload

// Options wire a Model.
type Options struct {
	Editor engine.Editor
	Sync   *canvas.Synchronizer
	// Workspace is nil when running without persistence.
	Workspace *workspace.Workspace
	Config    *config.UserConfig
	// Reloads, when set, streams config file changes.
	Reloads <-chan config.Reload
}

type dragState struct {
	id    engine.BufferID
	grab  graph.Vec // pointer offset from the node's top-left, zoomed units
	moved bool
}

// Model is the bubbletea model of the canvas.
type Model struct {
	ed       engine.Editor
	sync     *canvas.Synchronizer
	ws       *workspace.Workspace
	cfg      *config.UserConfig
	registry *config.KeybindRegistry
	reloads  <-chan config.Reload

	view   Viewport
	report canvas.Report
	frames map[engine.BufferID]canvas.Frame

	lastCurrent engine.BufferID
	centered    bool

	pointerX, pointerY int
	hasPointer         bool
	drag               *dragState

	message   string
	warn      bool
	messageAt time.Time

	showHelp bool
	tickGen  int
	err      error
}

var _ tea.Model = (*Model)(nil)

// New returns a model over an already restored synchronizer.
func New(opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := &Model{
		ed:      opts.Editor,
		sync:    opts.Sync,
		ws:      opts.Workspace,
		reloads: opts.Reloads,
		frames:  make(map[engine.BufferID]canvas.Frame),
	}
	m.applyConfig(cfg)
	return m
}

// CanvasOptions translates the user config into synchronizer options.
func CanvasOptions(cfg *config.UserConfig) canvas.Options {
	return canvas.Options{
		Layout: layout.Params{
			AutoShrink: cfg.Layout.AutoShrink,
			Origin:     graph.Vec{X: cfg.Layout.InitialPosition[0], Y: cfg.Layout.InitialPosition[1]},
			TextWidth:  cfg.Layout.TextWidth,
			Gap:        cfg.Layout.Gap,
			LineHeight: cfg.Layout.LineHeight,
			MaxHeight:  cfg.Layout.TextMaxHeight,
		},
		HistorySize:            cfg.Navigation.HistorySize,
		AllowDisconnectedJumps: cfg.Navigation.AllowDisconnectedJumps,
		StartingScale:          cfg.Layout.StartingScale,
		ChildScale:             cfg.Layout.ChildRelativeScale,
		InputOnCreation:        cfg.Engine.InputOnCreation,
	}
}

// Palette translates the appearance config into a theme palette.
func Palette(cfg *config.UserConfig) theme.Palette {
	return theme.Palette{
		NonPersistentHue: cfg.Appearance.NonPersistentHue,
		BorderLightness:  cfg.Appearance.BorderLightness,
		ActiveLightness:  cfg.Appearance.ActiveLightness,
		TextLightness:    cfg.Appearance.TextLightness,
		BorderStyle:      cfg.Appearance.BorderStyle,
	}
}

func (m *Model) applyConfig(cfg *config.UserConfig) {
	first := m.cfg == nil
	m.cfg = cfg
	m.registry = config.NewKeybindRegistry(cfg)
	theme.Initialize(Palette(cfg))
	m.view.CellWidth = cfg.View.CellWidth
	m.view.CellHeight = cfg.View.CellHeight
	if !first {
		m.sync.Configure(CanvasOptions(cfg))
	}
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Init starts ticking and, when configured, listening for config changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleTick(0), waitReload(m.reloads))
}

func (m *Model) scheduleTick(d time.Duration) tea.Cmd {
	m.tickGen++
	gen := m.tickGen
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func waitReload(ch <-chan config.Reload) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return reloadMsg(r)
	}
}

// Update handles one message to completion.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.gen != m.tickGen {
			return m, nil
		}
		if err := m.tick(); err != nil {
			return m, m.fail(err)
		}
		return m, m.scheduleTick(config.TickInterval)

	case reloadMsg:
		if msg.Err != nil {
			m.notify(fmt.Sprintf("config: %v", msg.Err), true)
		} else {
			m.applyConfig(msg.Config)
			m.notify("config reloaded", false)
		}
		return m, tea.Batch(waitReload(m.reloads), m.scheduleTick(0))

	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-1, 0)
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)

	case tea.MouseClickMsg:
		return m, m.handleClick(msg.Mouse())

	case tea.MouseMotionMsg:
		m.handleMotion(msg.Mouse())
		return m, nil

	case tea.MouseReleaseMsg:
		if m.drag != nil && m.drag.moved {
			m.drag = nil
			return m, m.scheduleTick(config.InputTickDelay)
		}
		m.drag = nil
		return m, nil

	case tea.MouseWheelMsg:
		m.handleWheel(msg.Mouse())
		return m, nil
	}
	return m, nil
}

// tick runs one synchronizer tick and folds its report into the frame
// cache.
func (m *Model) tick() error {
	r, err := m.sync.Tick()
	if err != nil {
		return err
	}
	if r.Skipped {
		m.report.Mode, m.report.CmdLine = r.Mode, ""
		return nil
	}

	if r.Plan.Mode == redraw.Full {
		clear(m.frames)
	}
	for _, id := range r.Removed {
		delete(m.frames, id)
	}
	maps.Copy(m.frames, r.Frames)
	maps.DeleteFunc(m.frames, func(id engine.BufferID, _ canvas.Frame) bool {
		_, ok := r.Placements[id]
		return !ok
	})
	m.report = r

	for _, msg := range r.Messages {
		m.notify(msg, false)
	}

	if r.HasCurrent && m.view.Width > 0 {
		p := r.Placements[r.Current]
		switch {
		case !m.centered:
			m.view.Center(p)
			m.centered = true
		case r.Current != m.lastCurrent:
			m.view.Reveal(p)
		}
		m.lastCurrent = r.Current
	}
	return nil
}

// fail ends the session when the engine is gone and otherwise shows err.
func (m *Model) fail(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrUnavailable) {
		logger.Error("engine unavailable", "err", err)
		m.err = err
		return tea.Quit
	}
	logger.Warn("command failed", "err", err)
	m.notify(err.Error(), true)
	return nil
}

func (m *Model) notify(msg string, warn bool) {
	m.message, m.warn, m.messageAt = msg, warn, time.Now()
}

// Save writes every durable buffer and the workspace metadata. Metadata is
// written even when a buffer fails to save.
func (m *Model) Save(ctx context.Context) error {
	bufErr := m.sync.SaveBuffers()
	if m.ws == nil {
		return bufErr
	}
	return errors.Join(bufErr, m.ws.Save(ctx, m.sync.Snapshot()))
}

// refreshPlacements picks up layout changes made between ticks.
func (m *Model) refreshPlacements() {
	if m.report.Placements == nil {
		m.report.Placements = make(map[engine.BufferID]graph.Placement)
	}
	for _, n := range m.sync.Graph().Nodes() {
		m.report.Placements[n.Buffer] = n.Rendered
	}
}

// =============================================================================
// Keyboard
// =============================================================================

// keystrokes returns the names a key press may be bound under. Legacy
// terminals report alt+J where the binding says alt+shift+j.
func keystrokes(msg tea.KeyPressMsg) []string {
	out := []string{msg.Keystroke()}
	k := msg.Key()
	if k.Mod&tea.ModShift == 0 && unicode.IsUpper(k.Code) {
		shifted := msg
		shifted.Code = unicode.ToLower(k.Code)
		shifted.Mod |= tea.ModShift
		shifted.Text = ""
		out = append(out, shifted.Keystroke())
	}
	return out
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.showHelp && msg.Key().Code == tea.KeyEscape {
		m.showHelp = false
		return nil
	}
	for _, ks := range keystrokes(msg) {
		if action := m.registry.GetAction(ks); action != "" {
			return m.runAction(action)
		}
	}
	keys := nvimKey(msg)
	if keys == "" {
		return nil
	}
	if err := m.ed.Input(keys); err != nil {
		return m.fail(err)
	}
	return m.scheduleTick(config.InputTickDelay)
}

func (m *Model) runAction(action string) tea.Cmd {
	step := m.cfg.View.ZoomStep
	pan := m.cfg.View.PanStep
	cx, cy := m.view.Width/2, m.view.Height/2

	var err error
	switch action {
	case "jump_up":
		err = m.sync.JumpToNeighbor(canvas.Up)
	case "jump_down":
		err = m.sync.JumpToNeighbor(canvas.Down)
	case "jump_left":
		err = m.sync.JumpToNeighbor(canvas.Left)
	case "jump_right":
		err = m.sync.JumpToNeighbor(canvas.Right)
	case "jump_back":
		err = m.sync.JumpBack()
	case "jump_forward":
		err = m.sync.JumpForward()
	case "hop":
		return m.typeKeys(m.cfg.Engine.HopKeys)
	case "bookmark_jump":
		return m.typeKeys(m.cfg.Engine.BookmarkJumpKeys)

	case "create_node":
		x, y := cx, cy
		if m.hasPointer {
			x, y = m.pointerX, m.pointerY
		}
		_, err = m.sync.CreateNode(m.planeAt(x, y))
	case "create_child_down":
		_, err = m.sync.CreateChild(graph.Down)
	case "create_child_right":
		_, err = m.sync.CreateChild(graph.Right)
	case "catch_child_down":
		err = m.sync.CatchChild(graph.Down)
	case "catch_child_right":
		err = m.sync.CatchChild(graph.Right)
	case "detach_node":
		err = m.sync.DetachCurrent()
	case "delete_node":
		err = m.sync.DeleteCurrent()
	case "grow_node":
		m.scaleCurrent(step)
	case "shrink_node":
		m.scaleCurrent(1 / step)

	case "zoom_in":
		m.zoom(cx, cy, step)
	case "zoom_out":
		m.zoom(cx, cy, 1/step)
	case "zoom_reset":
		m.zoom(cx, cy, 1/m.sync.GlobalScale())
	case "pan_up":
		m.view.PanBy(0, -pan/2)
	case "pan_down":
		m.view.PanBy(0, pan/2)
	case "pan_left":
		m.view.PanBy(-pan, 0)
	case "pan_right":
		m.view.PanBy(pan, 0)
	case "center":
		if m.report.HasCurrent {
			m.view.Center(m.report.Placements[m.report.Current])
		}
		return nil

	case "save":
		if err := m.Save(context.Background()); err != nil {
			return m.fail(err)
		}
		m.notify("saved", false)
		return nil
	case "toggle_help":
		m.showHelp = !m.showHelp
		return nil
	case "quit":
		return tea.Quit
	}
	if err != nil {
		return m.fail(err)
	}
	m.refreshPlacements()
	return m.scheduleTick(config.InputTickDelay)
}

// typeKeys feeds a configured key sequence to the engine. The tick after
// it picks up whatever the keys did.
func (m *Model) typeKeys(keys string) tea.Cmd {
	if keys == "" {
		return nil
	}
	if err := m.ed.Input(keys); err != nil {
		return m.fail(err)
	}
	return m.scheduleTick(config.InputTickDelay)
}

func (m *Model) scaleCurrent(factor float64) {
	if m.report.HasCurrent {
		m.sync.ScaleNode(m.report.Current, factor)
	}
}

// zoom scales the whole view by factor around cell x, y, within the zoom
// limits.
func (m *Model) zoom(x, y int, factor float64) {
	g := m.sync.GlobalScale()
	target := min(max(g*factor, minZoom), maxZoom)
	if target == g {
		return
	}
	factor = target / g
	m.sync.Zoom(factor)
	m.view.ZoomAt(x, y, factor)
}

// planeAt returns the unscaled plane point under cell x, y.
func (m *Model) planeAt(x, y int) graph.Vec {
	return m.view.Point(x, y).Scale(1 / m.sync.GlobalScale())
}

// =============================================================================
// Mouse
// =============================================================================

// drawOrder lists the nodes back to front: by buffer, current last.
func (m *Model) drawOrder() []engine.BufferID {
	ids := slices.Sorted(maps.Keys(m.report.Placements))
	if m.report.HasCurrent {
		if i := slices.Index(ids, m.report.Current); i >= 0 {
			ids = append(slices.Delete(ids, i, i+1), m.report.Current)
		}
	}
	return ids
}

// nodeAt returns the topmost node covering cell x, y.
func (m *Model) nodeAt(x, y int) (engine.BufferID, bool) {
	order := m.drawOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if m.view.Rect(m.report.Placements[order[i]]).contains(x, y) {
			return order[i], true
		}
	}
	return 0, false
}

func (m *Model) trackPointer(mouse tea.Mouse) {
	m.pointerX, m.pointerY, m.hasPointer = mouse.X, mouse.Y, true
}

func (m *Model) handleClick(mouse tea.Mouse) tea.Cmd {
	m.trackPointer(mouse)
	if m.showHelp {
		m.showHelp = false
		return nil
	}
	if mouse.Button != tea.MouseLeft || mouse.Y >= m.view.Height {
		return nil
	}

	id, ok := m.nodeAt(mouse.X, mouse.Y)
	if !ok {
		_, err := m.sync.CreateNode(m.planeAt(mouse.X, mouse.Y))
		if err != nil {
			return m.fail(err)
		}
		m.refreshPlacements()
		return m.scheduleTick(config.InputTickDelay)
	}

	p := m.report.Placements[id]
	m.drag = &dragState{id: id, grab: m.view.Point(mouse.X, mouse.Y).Sub(p.Pos)}
	if m.report.HasCurrent && id == m.report.Current {
		return nil
	}
	if err := m.sync.Focus(id); err != nil {
		return m.fail(err)
	}
	return m.scheduleTick(config.InputTickDelay)
}

// WantsMotion reports whether a motion event carries anything new: the
// pointer changed cell or a node is being dragged.
func (m *Model) WantsMotion(mouse tea.Mouse) bool {
	return m.drag != nil || !m.hasPointer || mouse.X != m.pointerX || mouse.Y != m.pointerY
}

func (m *Model) handleMotion(mouse tea.Mouse) {
	moved := !m.hasPointer || mouse.X != m.pointerX || mouse.Y != m.pointerY
	m.trackPointer(mouse)
	if m.drag == nil || !moved {
		return
	}
	m.drag.moved = true
	pos := m.view.Point(mouse.X, mouse.Y).Sub(m.drag.grab)
	m.sync.MoveNode(m.drag.id, pos.Scale(1/m.sync.GlobalScale()))
	m.refreshPlacements()
}

func (m *Model) handleWheel(mouse tea.Mouse) {
	m.trackPointer(mouse)
	step := m.cfg.View.ZoomStep
	factor := 0.0
	switch mouse.Button {
	case tea.MouseWheelUp:
		factor = step
	case tea.MouseWheelDown:
		factor = 1 / step
	case tea.MouseWheelLeft:
		m.view.PanBy(-m.cfg.View.PanStep/2, 0)
		return
	case tea.MouseWheelRight:
		m.view.PanBy(m.cfg.View.PanStep/2, 0)
		return
	default:
		return
	}

	if mouse.Mod&tea.ModShift != 0 {
		if id, ok := m.nodeAt(mouse.X, mouse.Y); ok {
			m.sync.ScaleNode(id, factor)
			m.refreshPlacements()
		}
		return
	}
	m.zoom(mouse.X, mouse.Y, factor)
	m.refreshPlacements()
}

// =============================================================================
// View
// =============================================================================

// View renders the canvas and the status bar.
func (m *Model) View() tea.View {
	var view tea.View
	view.SetContent(m.render())
	view.AltScreen = true
	view.MouseMode = tea.MouseModeAllMotion
	return view
}

func (m *Model) render() string {
	s := newScreen(m.view.Width, m.view.Height)
	for _, id := range m.drawOrder() {
		r := m.view.Rect(m.report.Placements[id])
		if !r.overlaps(s.w, s.h) {
			continue
		}
		f := m.frames[id]
		f.Current = m.report.HasCurrent && id == m.report.Current
		s.draw(r.X, r.Y, renderNode(f, r, m.nodeStyle(id, f.Current), -r.Y, s.h-r.Y))
	}
	if m.showHelp {
		drawCentered(s, renderHelp(m.registry))
	}

	message, warn := m.statusMessage()
	status := statusLine(m.view.Width, m.report.Mode, m.currentLabel(), message, warn,
		m.report.Unbound, m.sync.GlobalScale())
	if s.h == 0 {
		return status
	}
	return s.String() + "\n" + status
}

// statusMessage echoes the command line being typed, or else the latest
// notification until it expires.
func (m *Model) statusMessage() (string, bool) {
	if m.report.CmdLine != "" {
		return m.report.CmdLine, false
	}
	if time.Since(m.messageAt) > messageTTL {
		return "", false
	}
	return m.message, m.warn
}

func (m *Model) nodeStyle(id engine.BufferID, active bool) nodeStyle {
	st := nodeStyle{active: active, title: fmt.Sprintf("#%d", id)}
	n := m.sync.Graph().Node(id)
	if n == nil {
		st.hue = theme.NodeHue(0, true)
		return st
	}
	if n.Ephemeral() {
		st.hue = theme.NodeHue(0, true)
		return st
	}
	st.title = n.Key
	hue, ok := 0, false
	if m.ws != nil {
		hue, ok = m.ws.Hue(n.Key)
	}
	if !ok {
		hue = workspace.NameToHue(workspace.GroupOf(n.Key))
	}
	st.hue = theme.NodeHue(hue, false)
	return st
}

func (m *Model) currentLabel() string {
	if !m.report.HasCurrent {
		return "no node"
	}
	if n := m.sync.Graph().Node(m.report.Current); n != nil && !n.Ephemeral() {
		return n.Key
	}
	return fmt.Sprintf("#%d", m.report.Current)
}
