// Package canvas keeps the buffer graph, the navigation history and the
// engine's buffers, tabs and windows consistent, one tick at a time.
//
// A Synchronizer is not safe for concurrent use. The UI runs every command
// and every tick to completion before handling the next event.
package canvas

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
	"github.com/Gaurav-Gosain/tessera/internal/history"
	"github.com/Gaurav-Gosain/tessera/internal/layout"
	"github.com/Gaurav-Gosain/tessera/internal/redraw"
)

// Package-level logger
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "canvas",
})

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l.WithPrefix("canvas")
}

// Keys hands out persistence keys for new nodes and maps keys to the
// paths the engine opens. workspace.Workspace implements it.
type Keys interface {
	NextKey() string
	Path(key string) string
}

// Options configure a Synchronizer.
type Options struct {
	Layout layout.Params
	// HistorySize caps the back stack.
	HistorySize int
	// AllowDisconnectedJumps lets JumpToNeighbor fall back to the nearest
	// node in the requested direction.
	AllowDisconnectedJumps bool
	// StartingScale is the manual scale of new root nodes.
	StartingScale float64
	// ChildScale is the relative scale of new children.
	ChildScale float64
	// InputOnCreation is fed to the engine after a node is created, in the
	// engine's key notation.
	InputOnCreation string
}

// DefaultOptions returns the options matching the default config.
func DefaultOptions() Options {
	return Options{
		Layout:                 layout.DefaultParams(),
		HistorySize:            history.DefaultSize,
		AllowDisconnectedJumps: true,
		StartingScale:          0.75,
		ChildScale:             1,
	}
}

// Synchronizer owns the graph and history and drives the engine.
type Synchronizer struct {
	ed    engine.Editor
	keys  Keys
	opts  Options
	g     *graph.Graph
	lay   *layout.Planner
	hist  *history.History
	sched *redraw.Scheduler

	global   float64
	dirty    map[engine.BufferID]bool
	removed  []engine.BufferID
	messages []string
	last     Report
}

// New returns a Synchronizer driving ed. keys may be nil, in which case
// every node is ephemeral.
func New(ed engine.Editor, keys Keys, opts Options) *Synchronizer {
	if opts.StartingScale <= 0 {
		opts.StartingScale = 1
	}
	if opts.ChildScale <= 0 {
		opts.ChildScale = 1
	}
	g := graph.New()
	return &Synchronizer{
		ed:     ed,
		keys:   keys,
		opts:   opts,
		g:      g,
		lay:    layout.New(g, opts.Layout),
		hist:   history.New(opts.HistorySize),
		sched:  redraw.New(),
		global: 1,
		dirty:  make(map[engine.BufferID]bool),
	}
}

// Graph exposes the graph for read-only inspection.
func (s *Synchronizer) Graph() *graph.Graph { return s.g }

// History exposes the navigation history for read-only inspection.
func (s *Synchronizer) History() *history.History { return s.hist }

// Layout exposes the layout planner.
func (s *Synchronizer) Layout() *layout.Planner { return s.lay }

// GlobalScale returns the view scale.
func (s *Synchronizer) GlobalScale() float64 { return s.global }

// Options returns the current options.
func (s *Synchronizer) Options() Options { return s.opts }

// Configure applies new options, for example after a config reload. The
// history keeps its entries.
func (s *Synchronizer) Configure(opts Options) {
	if opts.StartingScale <= 0 {
		opts.StartingScale = 1
	}
	if opts.ChildScale <= 0 {
		opts.ChildScale = 1
	}
	s.opts = opts
	s.lay.SetParams(opts.Layout)
	s.sched.ForceFull()
}

// ForceFull makes the next tick redraw every node.
func (s *Synchronizer) ForceFull() { s.sched.ForceFull() }

// LastReport returns the report of the most recent tick that was not
// skipped.
func (s *Synchronizer) LastReport() Report { return s.last }

// notify queues a message for the next report.
func (s *Synchronizer) notify(msg string) {
	s.messages = append(s.messages, msg)
}

// refused reports a graph refusal to the user. Other errors pass through.
func (s *Synchronizer) refused(err error) error {
	var refusal *graph.RefusalError
	if errors.As(err, &refusal) {
		logger.Debug("refused", "reason", refusal.Reason)
		s.notify(refusal.Reason)
		return nil
	}
	return err
}

// soft logs err and swallows it unless the engine is gone. Used where an
// engine call failing leaves the graph consistent anyway.
func soft(err error, msg string, keyvals ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrUnavailable) {
		return err
	}
	logger.Warn(msg, append(keyvals, "err", err)...)
	return nil
}

func (s *Synchronizer) markDirty(ids ...engine.BufferID) {
	for _, id := range ids {
		s.dirty[id] = true
	}
}

// currentNode returns the node bound to the engine's current buffer.
func (s *Synchronizer) currentNode() (*graph.Node, error) {
	id, err := s.ed.CurrentBuffer()
	if err != nil {
		return nil, err
	}
	return s.g.Node(id), nil
}

// forget drops n from the graph and the history without touching the
// engine. Its children become roots.
func (s *Synchronizer) forget(n *graph.Node) {
	for _, side := range []graph.Side{graph.Down, graph.Right} {
		if c := s.g.Child(n, side); c != nil {
			s.markDirty(c.Buffer)
		}
	}
	s.g.Remove(n)
	s.hist.Purge(n.Buffer)
	delete(s.dirty, n.Buffer)
	s.removed = append(s.removed, n.Buffer)
}

// deleteNode removes an empty, non-current node and discards its buffer
// and, for a durable node, its file.
func (s *Synchronizer) deleteNode(n *graph.Node) error {
	id, key := n.Buffer, n.Key
	s.forget(n)
	logger.Debug("deleting empty node", "buffer", id, "key", key)

	if err := soft(s.ed.DeleteBuffer(id), "could not wipe buffer", "buffer", id); err != nil {
		return err
	}
	if key != "" && s.keys != nil {
		path := s.keys.Path(key)
		if _, err := os.Stat(path); err == nil {
			return soft(s.ed.DeleteFile(path), "could not delete note file", "path", path)
		}
	}
	return nil
}

// switchTo focuses id through its tab, never by switching buffers in the
// current window.
func (s *Synchronizer) switchTo(id engine.BufferID) error {
	tabs, err := s.ed.ListTabs()
	if err != nil {
		return err
	}
	for _, t := range tabs {
		if t.Buffer == id {
			return s.ed.SwitchToTab(t.Tab)
		}
	}
	logger.Warn("node has no tab, adopting", "buffer", id)
	return s.ed.AdoptBuffer(id)
}
