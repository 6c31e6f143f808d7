package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/stretchr/testify/require"
)

var errListDenied = errors.New("permission denied")

func writeFile(t *testing.T, root, rel, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
}

func writeFileAt(t *testing.T, root, rel, data string, mtime time.Time) {
	t.Helper()
	writeFile(t, root, rel, data)
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func exists(root, rel string) bool {
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func enumerate(t *testing.T, fsys transport.Filesystem) *Snapshot {
	t.Helper()
	snap, err := Enumerate(context.Background(), fsys, EnumerateOpts{})
	require.NoError(t, err)
	return snap
}

// unlistable fails List for the given directories.
type unlistable struct {
	transport.Filesystem
	dirs map[string]bool
}

func (u *unlistable) List(p string) ([]transport.DirEntry, error) {
	if u.dirs[p] {
		return nil, errListDenied
	}
	return u.Filesystem.List(p)
}

// fakeSession serves a local directory as the server tree.
type fakeSession struct {
	transport.Filesystem
	closed *atomic.Int32
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

type dialCounter struct {
	dials  atomic.Int32
	closed atomic.Int32
	err    error
	fs     func() transport.Filesystem
}

func (d *dialCounter) Dial(ctx context.Context) (Session, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return &fakeSession{Filesystem: d.fs(), closed: &d.closed}, nil
}

func localDialer(root string) *dialCounter {
	return &dialCounter{fs: func() transport.Filesystem { return transport.NewLocal(root) }}
}
