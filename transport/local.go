package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Local is a Filesystem over a local directory tree.
type Local struct {
	fs   billy.Filesystem
	root string
}

func NewLocal(root string) *Local {
	return &Local{
		fs:   osfs.New(root),
		root: root,
	}
}

// NewLocalFS wraps an arbitrary billy filesystem. Timestamp updates only
// work if fsys implements billy.Change.
func NewLocalFS(fsys billy.Filesystem) *Local {
	return &Local{fs: fsys}
}

func (l *Local) name(p string) string {
	if p == "" || p == "." {
		return string(filepath.Separator)
	}
	return filepath.FromSlash(p)
}

func (l *Local) List(p string) ([]DirEntry, error) {
	infos, err := l.fs.ReadDir(l.name(p))
	if err != nil {
		return nil, fmt.Errorf("local: readdir %q: %w", p, err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(info))
	}
	return entries, nil
}

func (l *Local) Stat(p string) (DirEntry, error) {
	info, err := l.fs.Stat(l.name(p))
	if err != nil {
		return DirEntry{}, fmt.Errorf("local: stat %q: %w", p, err)
	}
	entry := entryFromInfo(info)
	entry.Name = p
	return entry, nil
}

func (l *Local) Open(p string) (io.ReadCloser, error) {
	f, err := l.fs.Open(l.name(p))
	if err != nil {
		return nil, fmt.Errorf("local: open %q: %w", p, err)
	}
	return f, nil
}

func (l *Local) Create(p string) (io.WriteCloser, error) {
	f, err := l.fs.Create(l.name(p))
	if err != nil {
		return nil, fmt.Errorf("local: create %q: %w", p, err)
	}
	return f, nil
}

func (l *Local) MkdirAll(p string) error {
	err := l.fs.MkdirAll(l.name(p), 0o755)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.EEXIST):
		return fmt.Errorf("local: mkdir %q: %w", p, ErrTypeConflict)
	default:
		return fmt.Errorf("local: mkdir %q: %w", p, err)
	}
}

func (l *Local) Remove(p string) error {
	if err := l.fs.Remove(l.name(p)); err != nil {
		return fmt.Errorf("local: remove %q: %w", p, err)
	}
	return nil
}

// RemoveDir removes an empty directory. Non-empty directories are left
// alone and reported as an error.
func (l *Local) RemoveDir(p string) error {
	entry, err := l.Stat(p)
	if err != nil {
		return err
	}
	if !entry.IsDir() {
		return fmt.Errorf("local: rmdir %q: %w", p, ErrTypeConflict)
	}
	if err := l.fs.Remove(l.name(p)); err != nil {
		return fmt.Errorf("local: rmdir %q: %w", p, err)
	}
	return nil
}

func (l *Local) Chtimes(p string, atime, mtime time.Time) error {
	if ch, ok := l.fs.(billy.Change); ok {
		err := ch.Chtimes(l.name(p), atime, mtime)
		if err == nil {
			return nil
		}
		if !errors.Is(err, billy.ErrNotSupported) {
			return fmt.Errorf("local: chtimes %q: %w", p, err)
		}
	}

	if l.root == "" {
		return fmt.Errorf("local: chtimes %q: %w", p, ErrUnsupported)
	}
	if err := os.Chtimes(filepath.Join(l.root, filepath.FromSlash(p)), atime, mtime); err != nil {
		return fmt.Errorf("local: chtimes %q: %w", p, err)
	}
	return nil
}

func (l *Local) String() string {
	return "file://" + filepath.ToSlash(l.root)
}
