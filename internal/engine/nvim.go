package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/neovim/go-client/nvim"
)

// Package-level logger
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "engine",
})

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l.WithPrefix("engine")
}

// NvimConfig holds the parameters for reaching a neovim instance.
type NvimConfig struct {
	Command string   // Executable for an embedded instance (default: "nvim")
	Args    []string // Arguments for an embedded instance; must include --embed
	Address string   // Socket or host:port of a running instance; overrides Command
	Width   int      // Grid width reported when attaching as a UI
	Height  int      // Grid height reported when attaching as a UI
}

// DefaultNvimConfig returns the configuration for an embedded headless nvim.
func DefaultNvimConfig() NvimConfig {
	return NvimConfig{
		Command: "nvim",
		Args:    []string{"--embed", "--headless"},
		Width:   80,
		Height:  100,
	}
}

// Nvim is an Editor backed by a neovim process over msgpack-RPC.
type Nvim struct {
	v *nvim.Nvim
}

var _ Editor = (*Nvim)(nil)

// StartNvim embeds a child nvim or dials a running one and attaches to it
// as a UI, so that window-scoped plugins (jump labels) see a real grid.
func StartNvim(ctx context.Context, cfg NvimConfig) (*Nvim, error) {
	var (
		v   *nvim.Nvim
		err error
	)
	if cfg.Address != "" {
		logger.Info("dialing nvim", "address", cfg.Address)
		v, err = nvim.Dial(cfg.Address, nvim.DialContext(ctx))
	} else {
		command := cfg.Command
		if command == "" {
			command = "nvim"
		}
		args := cfg.Args
		if !slices.Contains(args, "--embed") {
			args = append([]string{"--embed"}, args...)
		}
		logger.Info("embedding nvim", "command", command, "args", args)
		v, err = nvim.NewChildProcess(
			nvim.ChildProcessContext(ctx),
			nvim.ChildProcessCommand(command),
			nvim.ChildProcessArgs(args...),
		)
	}
	if err != nil {
		return nil, Unavailable("start nvim", err)
	}

	// Grid updates are not consumed; only the attachment matters.
	if err := v.RegisterHandler("redraw", func(...[]interface{}) {}); err != nil {
		_ = v.Close()
		return nil, fmt.Errorf("register redraw handler: %w", err)
	}
	width, height := cfg.Width, cfg.Height
	if width <= 0 || height <= 0 {
		width, height = 80, 100
	}
	if err := v.AttachUI(width, height, map[string]interface{}{"rgb": true}); err != nil {
		_ = v.Close()
		return nil, Unavailable("attach ui", err)
	}

	return &Nvim{v: v}, nil
}

// wrap classifies transport failures as ErrUnavailable and leaves API
// errors (bad buffer number, failed write) as ordinary errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) {
		return Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (n *Nvim) ListBuffers() ([]BufferID, error) {
	bufs, err := n.v.Buffers()
	if err != nil {
		return nil, wrap("list buffers", err)
	}
	ids := make([]BufferID, 0, len(bufs))
	for _, b := range bufs {
		ids = append(ids, BufferID(b))
	}
	return ids, nil
}

func (n *Nvim) BufferLines(id BufferID) ([]string, error) {
	raw, err := n.v.BufferLines(nvim.Buffer(id), 0, -1, true)
	if err != nil {
		return nil, wrap("buffer lines", err)
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return lines, nil
}

func (n *Nvim) BufferIsEmpty(id BufferID) (bool, error) {
	count, err := n.v.BufferLineCount(nvim.Buffer(id))
	if err != nil {
		return false, wrap("buffer line count", err)
	}
	if count > 1 {
		return false, nil
	}
	lines, err := n.BufferLines(id)
	if err != nil {
		return false, err
	}
	return IsBlank(lines), nil
}

func (n *Nvim) CurrentBuffer() (BufferID, error) {
	b, err := n.v.CurrentBuffer()
	if err != nil {
		return 0, wrap("current buffer", err)
	}
	return BufferID(b), nil
}

func (n *Nvim) CurrentMode() (Mode, error) {
	m, err := n.v.Mode()
	if err != nil {
		return Mode{}, wrap("mode", err)
	}
	return Mode{Name: m.Mode, Blocking: m.Blocking}, nil
}

func (n *Nvim) CmdLine() (string, error) {
	var line string
	if err := n.v.Eval(`getcmdtype() .. getcmdline()`, &line); err != nil {
		return "", wrap("cmdline", err)
	}
	return line, nil
}

func (n *Nvim) Cursor() (Position, error) {
	w, err := n.v.CurrentWindow()
	if err != nil {
		return Position{}, wrap("current window", err)
	}
	pos, err := n.v.WindowCursor(w)
	if err != nil {
		return Position{}, wrap("window cursor", err)
	}
	return Position{Row: pos[0], Col: pos[1]}, nil
}

func (n *Nvim) Selection() (Position, Position, error) {
	// getpos() yields [bufnum, lnum, col, off] with a 1-based col.
	var v, dot []int
	if err := n.v.Eval(`getpos("v")`, &v); err != nil {
		return Position{}, Position{}, wrap("selection start", err)
	}
	if err := n.v.Eval(`getpos(".")`, &dot); err != nil {
		return Position{}, Position{}, wrap("selection end", err)
	}
	if len(v) < 3 || len(dot) < 3 {
		return Position{}, Position{}, fmt.Errorf("selection: malformed getpos result")
	}
	start := Position{Row: v[1], Col: v[2] - 1}
	end := Position{Row: dot[1], Col: dot[2] - 1}
	if end.Before(start) {
		start, end = end, start
	}
	return start, end, nil
}

const extmarksLua = `
local buf = ...
local out = {}
for _, m in ipairs(vim.api.nvim_buf_get_extmarks(buf, -1, 0, -1, {details = true})) do
  local vt = m[4] and m[4].virt_text
  if vt and vt[1] and vt[1][2] ~= "Cursor" then
    table.insert(out, {row = m[2], col = m[3], text = vt[1][1]})
  end
end
return out
`

type luaExtmark struct {
	Row  int    `msgpack:"row"`
	Col  int    `msgpack:"col"`
	Text string `msgpack:"text"`
}

func (n *Nvim) Extmarks(id BufferID) ([]Extmark, error) {
	var raw []luaExtmark
	if err := n.v.ExecLua(extmarksLua, &raw, int(id)); err != nil {
		return nil, wrap("extmarks", err)
	}
	marks := make([]Extmark, 0, len(raw))
	for _, m := range raw {
		marks = append(marks, Extmark{Row: m.Row, Col: m.Col, Annotation: m.Text})
	}
	return marks, nil
}

const overlaysLua = `
for _, buf in ipairs(vim.api.nvim_list_bufs()) do
  if vim.api.nvim_buf_is_loaded(buf) then
    for _, m in ipairs(vim.api.nvim_buf_get_extmarks(buf, -1, 0, -1, {details = true})) do
      local vt = m[4] and m[4].virt_text
      if vt and vt[1] and vt[1][2] ~= "Cursor" and vt[1][1] ~= "" then
        return true
      end
    end
  end
end
return false
`

func (n *Nvim) HasOverlays() (bool, error) {
	var found bool
	if err := n.v.ExecLua(overlaysLua, &found); err != nil {
		return false, wrap("overlays", err)
	}
	return found, nil
}

const foldsLua = `
local buf = ...
local win = vim.fn.bufwinid(buf)
if win == -1 then return {} end
return vim.api.nvim_win_call(win, function()
  local folds, lnum, last = {}, 1, vim.fn.line('$')
  while lnum <= last do
    local s = vim.fn.foldclosed(lnum)
    if s ~= -1 then
      local e = vim.fn.foldclosedend(lnum)
      table.insert(folds, {s, e})
      lnum = e + 1
    else
      lnum = lnum + 1
    end
  end
  return folds
end)
`

func (n *Nvim) Folds(id BufferID) ([]Fold, error) {
	var raw [][]int
	if err := n.v.ExecLua(foldsLua, &raw, int(id)); err != nil {
		return nil, wrap("folds", err)
	}
	folds := make([]Fold, 0, len(raw))
	for _, f := range raw {
		if len(f) != 2 {
			continue
		}
		folds = append(folds, Fold{StartRow: f[0], EndRow: f[1]})
	}
	return folds, nil
}

const signsLua = `
local buf = ...
local rows = {}
for _, placed in ipairs(vim.fn.sign_getplaced(buf, {group = '*'})) do
  for _, s in ipairs(placed.signs) do
    table.insert(rows, s.lnum)
  end
end
return rows
`

func (n *Nvim) Signs(id BufferID) ([]int, error) {
	var rows []int
	if err := n.v.ExecLua(signsLua, &rows, int(id)); err != nil {
		return nil, wrap("signs", err)
	}
	slices.Sort(rows)
	return slices.Compact(rows), nil
}

func (n *Nvim) escapePath(path string) (string, error) {
	var escaped string
	if err := n.v.Call("fnameescape", &escaped, path); err != nil {
		return "", wrap("fnameescape", err)
	}
	return escaped, nil
}

func (n *Nvim) CreateBuffer(path string) (BufferID, error) {
	cmd := "tabnew"
	if path != "" {
		escaped, err := n.escapePath(path)
		if err != nil {
			return 0, err
		}
		cmd += " " + escaped
	}
	if err := n.v.Command(cmd); err != nil {
		return 0, wrap("tabnew", err)
	}
	return n.CurrentBuffer()
}

func (n *Nvim) EditInCurrentTab(path string) (BufferID, error) {
	escaped, err := n.escapePath(path)
	if err != nil {
		return 0, err
	}
	if err := n.v.Command("edit " + escaped); err != nil {
		return 0, wrap("edit", err)
	}
	return n.CurrentBuffer()
}

func (n *Nvim) AdoptBuffer(id BufferID) error {
	if err := n.v.Command("tabnew"); err != nil {
		return wrap("tabnew", err)
	}
	if err := n.v.Command(fmt.Sprintf("buffer %d", id)); err != nil {
		return wrap("buffer", err)
	}
	// drop the scratch buffer tabnew created
	if err := n.v.Command("bwipeout! #"); err != nil {
		return wrap("bwipeout alternate", err)
	}
	return nil
}

func (n *Nvim) WriteBuffer(id BufferID) error {
	err := n.v.ExecLua(`vim.api.nvim_buf_call(..., function() vim.cmd('silent write') end)`, nil, int(id))
	return wrap("write buffer", err)
}

func (n *Nvim) ClearBuffer(id BufferID) error {
	return wrap("clear buffer", n.v.SetBufferLines(nvim.Buffer(id), 0, -1, true, [][]byte{}))
}

func (n *Nvim) DeleteBuffer(id BufferID) error {
	return wrap("bwipeout", n.v.Command(fmt.Sprintf("bwipeout! %d", id)))
}

func (n *Nvim) DeleteFile(path string) error {
	var rc int
	if err := n.v.Call("delete", &rc, path); err != nil {
		return wrap("delete file", err)
	}
	if rc != 0 {
		return fmt.Errorf("delete file %s: engine returned %d", path, rc)
	}
	return nil
}

func (n *Nvim) ListTabs() ([]TabInfo, error) {
	tabs, err := n.v.Tabpages()
	if err != nil {
		return nil, wrap("list tabpages", err)
	}
	var infos []TabInfo
	for _, t := range tabs {
		wins, err := n.v.TabpageWindows(t)
		if err != nil {
			return nil, wrap("tabpage windows", err)
		}
		for _, w := range wins {
			b, err := n.v.WindowBuffer(w)
			if err != nil {
				return nil, wrap("window buffer", err)
			}
			infos = append(infos, TabInfo{Tab: TabID(t), Window: WindowID(w), Buffer: BufferID(b)})
		}
	}
	return infos, nil
}

func (n *Nvim) SwitchToTab(id TabID) error {
	return wrap("set current tabpage", n.v.SetCurrentTabpage(nvim.Tabpage(id)))
}

func (n *Nvim) CloseWindow(id WindowID) error {
	return wrap("close window", n.v.CloseWindow(nvim.Window(id), true))
}

func (n *Nvim) Input(keys string) error {
	_, err := n.v.Input(keys)
	return wrap("input", err)
}

func (n *Nvim) Close() error {
	return n.v.Close()
}
