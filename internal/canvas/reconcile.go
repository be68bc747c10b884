package canvas

import (
	"github.com/Gaurav-Gosain/tessera/internal/engine"
)

// reconcile brings the graph and the engine back to one node per buffer,
// one tab per node and one window per tab, and returns the buffer that is
// current afterwards.
func (s *Synchronizer) reconcile(snap snapshot) (engine.BufferID, error) {
	mutated := false

	for _, n := range s.g.Nodes() {
		if !snap.live[n.Buffer] {
			logger.Warn("buffer vanished, dropping node", "buffer", n.Buffer, "key", n.Key)
			s.forget(n)
		}
	}

	// deferred deletion: the node being edited is kept even when empty
	for _, n := range s.g.Nodes() {
		if n.Buffer == snap.current || !snap.empty[n.Buffer] {
			continue
		}
		if err := s.deleteNode(n); err != nil {
			return 0, err
		}
		mutated = true
	}

	tabs := snap.tabs
	if mutated {
		var err error
		if tabs, err = s.ed.ListTabs(); err != nil {
			return 0, err
		}
	}

	healed, owned, err := s.healTabs(tabs, snap.current)
	if err != nil {
		return 0, err
	}
	mutated = mutated || healed

	for _, n := range s.g.Nodes() {
		if owned[n.Buffer] {
			continue
		}
		logger.Warn("node lost its window, adopting into a new tab", "buffer", n.Buffer)
		if err := soft(s.ed.AdoptBuffer(n.Buffer), "adopt orphan", "buffer", n.Buffer); err != nil {
			return 0, err
		}
		mutated = true
	}

	cur := snap.current
	if mutated {
		if cur, err = s.ed.CurrentBuffer(); err != nil {
			return 0, err
		}
	}

	// focus stays on the node the user was on; a hidden or unbound buffer
	// sends it back to the last visited node
	want := snap.current
	if !s.g.Has(want) {
		want, _ = s.hist.Current()
	}
	if s.g.Has(want) && cur != want {
		logger.Debug("refocusing", "from", cur, "to", want)
		if err := soft(s.switchTo(want), "refocus", "buffer", want); err != nil {
			return 0, err
		}
		if cur, err = s.ed.CurrentBuffer(); err != nil {
			return 0, err
		}
	}
	return cur, nil
}

// healTabs closes every window that breaks the one-window-per-node-tab
// binding. In each tab the window showing a node not yet seen in an
// earlier tab is kept, preferring the current buffer; other windows in
// that tab are closed, and so are windows repeating an already placed
// node. Tabs showing only unbound buffers are left alone. owned reports
// the nodes that kept a window.
func (s *Synchronizer) healTabs(tabs []engine.TabInfo, current engine.BufferID) (healed bool, owned map[engine.BufferID]bool, err error) {
	var order []engine.TabID
	byTab := make(map[engine.TabID][]engine.TabInfo)
	for _, t := range tabs {
		if _, ok := byTab[t.Tab]; !ok {
			order = append(order, t.Tab)
		}
		byTab[t.Tab] = append(byTab[t.Tab], t)
	}

	owned = make(map[engine.BufferID]bool)
	closeWin := func(w engine.TabInfo, why string) error {
		logger.Warn("closing extra window", "tab", w.Tab, "window", w.Window, "buffer", w.Buffer, "reason", why)
		healed = true
		return soft(s.ed.CloseWindow(w.Window), "close window", "window", w.Window)
	}

	for _, tab := range order {
		wins := byTab[tab]
		owner := -1
		for i, w := range wins {
			if !s.g.Has(w.Buffer) || owned[w.Buffer] {
				continue
			}
			if owner < 0 || (wins[owner].Buffer != current && w.Buffer == current) {
				owner = i
			}
		}

		if owner < 0 {
			for _, w := range wins {
				if s.g.Has(w.Buffer) {
					if err := closeWin(w, "node already has a tab"); err != nil {
						return healed, owned, err
					}
				}
			}
			continue
		}

		owned[wins[owner].Buffer] = true
		for i, w := range wins {
			if i == owner {
				continue
			}
			if err := closeWin(w, "tab belongs to another node"); err != nil {
				return healed, owned, err
			}
		}
	}
	return healed, owned, nil
}
