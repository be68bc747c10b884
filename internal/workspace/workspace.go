// Package workspace persists the canvas: node metadata in a diskv store
// under <dir>/.tessera, node content as numbered markdown files in group
// subdirectories.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
)

// Package-level logger
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "workspace",
})

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	logger = l.WithPrefix("workspace")
}

const (
	metaDir  = ".tessera"
	metaKey  = "workspace"
	metaExt  = ".json"
	noteExt  = ".md"
	keySep   = "/"
	dirPerm  = 0o755
	fallback = "notes"
)

// Record is the persisted form of one durable node. Key is the node's
// workspace-relative file name, "group/N.md".
type Record struct {
	Key              string      `json:"-"`
	PlanePos         [2]float64  `json:"plane_pos"`
	ManualScale      float64     `json:"manual_scale"`
	ScaleRelToParent *float64    `json:"scale_rel_to_parent,omitempty"`
	PosRelToParent   *[2]float64 `json:"pos_rel_to_parent,omitempty"`
	Parent           string      `json:"parent_filename,omitempty"`
	Side             string      `json:"side,omitempty"`
}

// Group is the persisted metadata of a group directory.
type Group struct {
	Hue int `json:"hue"`
}

// Meta is the workspace-wide metadata.
type Meta struct {
	ID          uuid.UUID        `json:"id"`
	Active      string           `json:"active_text,omitempty"`
	GlobalScale float64          `json:"global_scale"`
	Groups      map[string]Group `json:"groups"`
}

// State is everything Load returns and Save takes.
type State struct {
	Meta    Meta
	Records []Record
}

// Workspace is an opened workspace directory.
type Workspace struct {
	dir     string
	group   string
	d       *diskv.Diskv
	lastNum map[string]int
	meta    Meta
}

// Open opens (creating if needed) the workspace at dir. New notes go to
// group.
func Open(dir, group string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve %s: %w", dir, err)
	}
	if group == "" {
		group = fallback
	}
	if strings.ContainsAny(group, `/\`) || strings.HasPrefix(group, ".") {
		return nil, fmt.Errorf("workspace: invalid group name %q", group)
	}
	if err := os.MkdirAll(filepath.Join(abs, metaDir), dirPerm); err != nil {
		return nil, fmt.Errorf("workspace: ensure %s: %w", abs, err)
	}

	return &Workspace{
		dir:   abs,
		group: group,
		d: diskv.New(diskv.Options{
			BasePath:          filepath.Join(abs, metaDir),
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
		}),
		lastNum: make(map[string]int),
	}, nil
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, keySep)
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + metaExt,
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	name := strings.TrimSuffix(pathKey.FileName, metaExt)
	return strings.Join(append(slices.Clone(pathKey.Path), name), keySep)
}

// Dir returns the workspace's absolute root.
func (w *Workspace) Dir() string { return w.dir }

// Group returns the group new notes are created in.
func (w *Workspace) Group() string { return w.group }

// Path maps a key to the absolute path of its note file.
func (w *Workspace) Path(key string) string {
	return filepath.Join(w.dir, filepath.FromSlash(key))
}

// Key maps an absolute note path back to its key. ok is false for paths
// outside the workspace.
func (w *Workspace) Key(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// GroupOf returns the group part of a key.
func GroupOf(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return ""
}

// noteNumber parses "group/N.md" into N.
func noteNumber(key string) (int, bool) {
	base := strings.TrimSuffix(key[strings.LastIndex(key, keySep)+1:], noteExt)
	n, err := strconv.Atoi(base)
	if err != nil || n <= 0 || !strings.HasSuffix(key, noteExt) {
		return 0, false
	}
	return n, true
}

// EnsureGroup creates group's directory and assigns it a hue the first
// time it is seen.
func (w *Workspace) EnsureGroup(group string) (int, error) {
	if err := os.MkdirAll(filepath.Join(w.dir, group), dirPerm); err != nil {
		return 0, fmt.Errorf("workspace: ensure group %s: %w", group, err)
	}
	if w.meta.Groups == nil {
		w.meta.Groups = make(map[string]Group)
	}
	g, ok := w.meta.Groups[group]
	if !ok {
		g = Group{Hue: NameToHue(group)}
		w.meta.Groups[group] = g
	}
	return g.Hue, nil
}

// Hue returns the hue of the group key belongs to.
func (w *Workspace) Hue(key string) (int, bool) {
	g, ok := w.meta.Groups[GroupOf(key)]
	return g.Hue, ok
}

// NextKey returns a fresh key in the current group.
func (w *Workspace) NextKey() string {
	if _, err := w.EnsureGroup(w.group); err != nil {
		logger.Warn("could not create group directory", "group", w.group, "err", err)
	}
	w.lastNum[w.group]++
	return fmt.Sprintf("%s/%d%s", w.group, w.lastNum[w.group], noteExt)
}

func (w *Workspace) noteKey(key string) {
	if n, ok := noteNumber(key); ok {
		g := GroupOf(key)
		w.lastNum[g] = max(w.lastNum[g], n)
	}
}

// Load reads the workspace. Records are sorted by key with the active
// note last, so restoring them in order leaves it current. Records whose
// note file is gone are skipped.
func (w *Workspace) Load(ctx context.Context) (State, error) {
	meta, err := w.readMeta()
	if err != nil {
		return State{}, err
	}
	w.meta = meta
	if _, err := w.EnsureGroup(w.group); err != nil {
		return State{}, err
	}

	var records []Record
	for key := range w.d.Keys(ctx.Done()) {
		if key == metaKey {
			continue
		}
		rec, err := w.readRecord(key)
		if err != nil {
			logger.Warn("skipping unreadable record", "key", key, "err", err)
			continue
		}
		if _, err := os.Stat(w.Path(key)); err != nil {
			logger.Warn("skipping record without a note file", "key", key)
			continue
		}
		if _, ok := w.meta.Groups[GroupOf(key)]; !ok {
			if _, err := w.EnsureGroup(GroupOf(key)); err != nil {
				return State{}, err
			}
		}
		w.noteKey(key)
		records = append(records, rec)
	}
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	w.scanNotes()

	slices.SortFunc(records, func(a, b Record) int {
		switch {
		case a.Key == w.meta.Active:
			return 1
		case b.Key == w.meta.Active:
			return -1
		}
		return strings.Compare(a.Key, b.Key)
	})
	logger.Info("loaded workspace", "dir", w.dir, "id", w.meta.ID, "notes", len(records))
	return State{Meta: w.meta, Records: records}, nil
}

// scanNotes counts note files without metadata toward the next key, so new
// notes never overwrite them.
func (w *Workspace) scanNotes() {
	for g := range w.meta.Groups {
		entries, err := os.ReadDir(filepath.Join(w.dir, g))
		if err != nil {
			continue
		}
		for _, e := range entries {
			key := g + keySep + e.Name()
			if !w.d.Has(key) {
				if _, ok := noteNumber(key); ok {
					logger.Warn("note file has no metadata", "key", key)
				}
			}
			w.noteKey(key)
		}
	}
}

func (w *Workspace) readMeta() (Meta, error) {
	meta := Meta{GlobalScale: 1}
	if w.d.Has(metaKey) {
		data, err := w.d.Read(metaKey)
		if err != nil {
			return Meta{}, fmt.Errorf("workspace: read metadata: %w", err)
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return Meta{}, fmt.Errorf("workspace: decode metadata: %w", err)
		}
	}
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
		logger.Info("new workspace", "dir", w.dir, "id", meta.ID)
	}
	if meta.GlobalScale <= 0 {
		meta.GlobalScale = 1
	}
	if meta.Groups == nil {
		meta.Groups = make(map[string]Group)
	}
	return meta, nil
}

func (w *Workspace) readRecord(key string) (Record, error) {
	data, err := w.d.Read(key)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	rec.Key = key
	return rec, nil
}

// Save replaces the stored metadata with s. Records no longer present are
// erased; note files are left to the engine.
func (w *Workspace) Save(ctx context.Context, s State) error {
	keep := make(map[string]bool, len(s.Records))
	for _, rec := range s.Records {
		if rec.Key == "" || rec.Key == metaKey {
			return fmt.Errorf("workspace: invalid record key %q", rec.Key)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("workspace: encode %s: %w", rec.Key, err)
		}
		if err := w.d.Write(rec.Key, data); err != nil {
			return fmt.Errorf("workspace: write %s: %w", rec.Key, err)
		}
		keep[rec.Key] = true
		w.noteKey(rec.Key)
	}

	var stale []string
	for key := range w.d.Keys(ctx.Done()) {
		if key != metaKey && !keep[key] {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		if err := w.d.Erase(key); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("workspace: erase %s: %w", key, err)
		}
	}

	meta := s.Meta
	if meta.ID == uuid.Nil {
		meta.ID = w.meta.ID
	}
	if meta.Groups == nil {
		meta.Groups = w.meta.Groups
	}
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("workspace: encode metadata: %w", err)
	}
	if err := w.d.Write(metaKey, data); err != nil {
		return fmt.Errorf("workspace: write metadata: %w", err)
	}
	w.meta = meta
	logger.Debug("saved workspace", "notes", len(s.Records), "erased", len(stale))
	return nil
}

// Meta returns the metadata as last loaded or saved.
func (w *Workspace) Meta() Meta { return w.meta }
