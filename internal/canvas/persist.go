package canvas

import (
	"errors"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/workspace"
)

// Restore opens every persisted note and rebuilds the trees. Records are
// opened in order, so the last one ends up current. Links the graph
// refuses are dropped and returned. An empty workspace gets one fresh node
// at the layout origin.
func (s *Synchronizer) Restore(state workspace.State) ([]workspace.Dropped, error) {
	if state.Meta.GlobalScale > 0 {
		s.global = state.Meta.GlobalScale
	}
	if len(state.Records) == 0 {
		_, err := s.CreateNode(s.opts.Layout.Origin)
		return nil, err
	}

	alloc := allocator{s}
	for _, rec := range state.Records {
		if s.g.ByKey(rec.Key) != nil {
			continue
		}
		id, err := alloc.CreateBuffer(rec.Key)
		if err != nil {
			return nil, err
		}
		pos, scale := rec.Seed()
		if _, err := s.g.Bind(id, rec.Key, pos, scale); err != nil {
			logger.Warn("note opened twice", "key", rec.Key, "buffer", id, "err", err)
		}
	}

	dropped := workspace.Link(s.g, state.Records)
	for _, d := range dropped {
		s.notify("dropped link " + d.String())
	}
	s.sched.ForceFull()
	s.lay.RepositionAll(s.global)
	logger.Info("restored canvas", "nodes", s.g.Len(), "dropped", len(dropped))
	return dropped, nil
}

// Snapshot returns the persistable state: every durable node, the active
// node and the view scale.
func (s *Synchronizer) Snapshot() workspace.State {
	var state workspace.State
	for _, n := range s.g.Nodes() {
		if n.Ephemeral() {
			continue
		}
		side, _ := s.g.SideOf(n)
		state.Records = append(state.Records, workspace.FromNode(n, s.g.Parent(n), side))
	}
	if s.last.HasCurrent {
		if n := s.g.Node(s.last.Current); n != nil && !n.Ephemeral() {
			state.Meta.Active = n.Key
		}
	}
	state.Meta.GlobalScale = s.global
	return state
}

// SaveBuffers writes every durable node's buffer to its file. It keeps
// going past individual failures unless the engine is gone.
func (s *Synchronizer) SaveBuffers() error {
	var errs []error
	for _, n := range s.g.Nodes() {
		if n.Ephemeral() {
			continue
		}
		if err := s.ed.WriteBuffer(n.Buffer); err != nil {
			if errors.Is(err, engine.ErrUnavailable) {
				return err
			}
			logger.Warn("could not save note", "key", n.Key, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
