package mirror

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one path recorded in a Snapshot. Directories are recorded with a
// zero size.
type Entry struct {
	Path    string         `json:"path"`
	Kind    transport.Kind `json:"kind"`
	Size    int64          `json:"size"`
	ModTime time.Time      `json:"mod_time"`
}

// Snapshot maps relative paths to entries for a single tree root. Subtrees
// that could not be listed are kept in Unreadable rather than silently
// looking empty.
type Snapshot struct {
	Root       string           `json:"root"`
	Entries    map[string]Entry `json:"entries"`
	Unreadable []string         `json:"unreadable,omitempty"`
}

func NewSnapshot(root string) *Snapshot {
	return &Snapshot{
		Root:    root,
		Entries: make(map[string]Entry),
	}
}

func (s *Snapshot) Add(e Entry) {
	if e.Kind == transport.KindDir {
		e.Size = 0
	}
	s.Entries[e.Path] = e
}

func (s *Snapshot) Get(p string) (Entry, bool) {
	e, ok := s.Entries[p]
	return e, ok
}

func (s *Snapshot) Len() int {
	return len(s.Entries)
}

// Paths returns every recorded path in lexical order, which puts each
// directory before its children.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sizes returns the path -> size view used for diffing.
func (s *Snapshot) Sizes() map[string]int64 {
	sizes := make(map[string]int64, len(s.Entries))
	for p, e := range s.Entries {
		sizes[p] = e.Size
	}
	return sizes
}

func (s *Snapshot) markUnreadable(p string) {
	s.Unreadable = append(s.Unreadable, p)
}

// Reachable reports whether p lies outside every subtree that failed to list.
func (s *Snapshot) Reachable(p string) bool {
	for _, u := range s.Unreadable {
		if u == "." || p == u || strings.HasPrefix(p, u+"/") {
			return false
		}
	}
	return true
}

type EnumerateOpts struct {
	// Ignore holds doublestar patterns matched against relative paths. A
	// matching directory is skipped together with everything below it.
	Ignore []string
	Logger *slog.Logger
}

func (o EnumerateOpts) ignored(rel string) bool {
	for _, pattern := range o.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Enumerate walks fsys depth first and records every file and directory
// under its root. A missing root yields an empty snapshot. A directory that
// cannot be listed is logged and recorded as unreadable, and the walk goes
// on. The only error returned is cancellation of ctx.
func Enumerate(ctx context.Context, fsys transport.Filesystem, opts EnumerateOpts) (*Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap := NewSnapshot(fsys.String())

	state, root, err := transport.Probe(fsys, ".")
	switch {
	case state == transport.Absent:
		logger.Warn("root does not exist", "root", fsys.String())
		return snap, nil
	case state == transport.Unknown:
		logger.Error("cannot stat root", "root", fsys.String(), "error", err)
		snap.markUnreadable(".")
		return snap, nil
	case !root.IsDir():
		logger.Error("root is not a directory", "root", fsys.String(), "kind", root.Kind)
		snap.markUnreadable(".")
		return snap, nil
	}

	pending := []string{"."}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := fsys.List(dir)
		if err != nil {
			logger.Error("list failed, subtree skipped", "root", fsys.String(), "path", dir, "error", err)
			snap.markUnreadable(dir)
			continue
		}

		for _, e := range entries {
			rel := path.Join(dir, e.Name)
			if opts.ignored(rel) {
				logger.Debug("ignored", "root", fsys.String(), "path", rel)
				continue
			}

			switch e.Kind {
			case transport.KindDir:
				snap.Add(Entry{Path: rel, Kind: transport.KindDir, ModTime: e.ModTime})
				pending = append(pending, rel)
			case transport.KindFile:
				snap.Add(Entry{Path: rel, Kind: transport.KindFile, Size: e.Size, ModTime: e.ModTime})
			default:
				logger.Debug("skipping special file", "root", fsys.String(), "path", rel)
			}
		}
	}

	return snap, nil
}
