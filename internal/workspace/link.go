package workspace

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Gaurav-Gosain/tessera/internal/engine"
	"github.com/Gaurav-Gosain/tessera/internal/graph"
)

// Dropped is a persisted parent link that could not be restored.
type Dropped struct {
	Key    string
	Parent string
	Reason string
}

func (d Dropped) String() string {
	return fmt.Sprintf("%s -> %s: %s", d.Key, d.Parent, d.Reason)
}

// FromNode converts a durable node to its record. parent is the node's
// parent or nil.
func FromNode(n, parent *graph.Node, side graph.Side) Record {
	rec := Record{
		Key:         n.Key,
		PlanePos:    [2]float64{n.PlanePos.X, n.PlanePos.Y},
		ManualScale: n.ManualScale,
	}
	if parent == nil {
		return rec
	}
	rec.Parent = parent.Key
	rec.Side = side.String()
	if n.ScaleRelToParent != 0 {
		s := n.ScaleRelToParent
		rec.ScaleRelToParent = &s
	}
	if n.PosRelToParent != nil {
		rec.PosRelToParent = &[2]float64{n.PosRelToParent.X, n.PosRelToParent.Y}
	}
	return rec
}

// Seed is the unlinked part of a record: where the node sits and how big
// it is.
func (r Record) Seed() (graph.Vec, float64) {
	scale := r.ManualScale
	if scale <= 0 {
		scale = 1
	}
	return graph.Vec{X: r.PlanePos[0], Y: r.PlanePos[1]}, scale
}

// Link restores the parent links of records onto nodes already bound in g.
// Links are attached in key order; one the graph refuses (a cycle, an
// occupied side, a missing or ephemeral parent) is dropped and the child
// stays a root. Corrupt links never abort the restore.
func Link(g *graph.Graph, records []Record) []Dropped {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int { return strings.Compare(a.Key, b.Key) })

	var dropped []Dropped
	for _, rec := range sorted {
		if rec.Parent == "" {
			continue
		}
		drop := func(reason string) {
			dropped = append(dropped, Dropped{Key: rec.Key, Parent: rec.Parent, Reason: reason})
			logger.Warn("dropping persisted link", "note", rec.Key, "parent", rec.Parent, "reason", reason)
		}

		child := g.ByKey(rec.Key)
		if child == nil {
			continue
		}
		parent := g.ByKey(rec.Parent)
		if parent == nil {
			drop("parent not found")
			continue
		}
		side := graph.Right
		if rec.Side != "" {
			s, err := graph.ParseSide(rec.Side)
			if err != nil {
				drop(err.Error())
				continue
			}
			side = s
		}
		if err := g.Attach(parent, side, child); err != nil {
			var refusal *graph.RefusalError
			if errors.As(err, &refusal) {
				drop(refusal.Reason)
				continue
			}
			drop(err.Error())
			continue
		}
		if rec.ScaleRelToParent != nil {
			child.ScaleRelToParent = *rec.ScaleRelToParent
		}
		if rec.PosRelToParent != nil {
			child.PosRelToParent = &graph.Vec{X: rec.PosRelToParent[0], Y: rec.PosRelToParent[1]}
		}
	}
	return dropped
}

// Check links records into a scratch graph and reports what Link would
// drop, without an engine.
func Check(records []Record) (*graph.Graph, []Dropped) {
	g := graph.New()
	for i, rec := range records {
		pos, scale := rec.Seed()
		if _, err := g.Bind(engine.BufferID(i+1), rec.Key, pos, scale); err != nil {
			continue
		}
	}
	return g, Link(g, records)
}
