package transport

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
}

func TestLocal_ListAndStat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "0123456789")
	writeFile(t, root, "dir/b.txt", "hello")

	l := NewLocal(root)

	entries, err := l.List(".")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, KindFile, entries[0].Kind)
	assert.EqualValues(t, 10, entries[0].Size)
	assert.Equal(t, "dir", entries[1].Name)
	assert.Equal(t, KindDir, entries[1].Kind)
	assert.EqualValues(t, 0, entries[1].Size)

	entry, err := l.Stat("dir/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "dir/b.txt", entry.Name)
	assert.EqualValues(t, 5, entry.Size)

	_, err = l.Stat("missing")
	assert.True(t, IsNotExist(err))
}

func TestLocal_CreateOpen(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root)

	w, err := l.Create("file.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "abc")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := l.Open("file.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestLocal_MkdirAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "foo", "x")
	l := NewLocal(root)

	require.NoError(t, l.MkdirAll("a/b/c"))
	entry, err := l.Stat("a/b")
	require.NoError(t, err)
	assert.True(t, entry.IsDir())

	require.NoError(t, l.MkdirAll("a/b/c"), "existing directory is not an error")

	err = l.MkdirAll("foo/bar")
	assert.ErrorIs(t, err, ErrTypeConflict)
}

func TestLocal_RemoveDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "full/file.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))
	l := NewLocal(root)

	require.NoError(t, l.RemoveDir("empty"))
	_, err := l.Stat("empty")
	assert.True(t, IsNotExist(err))

	assert.Error(t, l.RemoveDir("full"), "non-empty directories are not removed")
	_, err = l.Stat("full/file.txt")
	assert.NoError(t, err)

	assert.ErrorIs(t, l.RemoveDir("full/file.txt"), ErrTypeConflict)
}

func TestLocal_Chtimes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")
	l := NewLocal(root)

	mtime := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, l.Chtimes("a.txt", mtime, mtime))

	entry, err := l.Stat("a.txt")
	require.NoError(t, err)
	assert.True(t, entry.ModTime.Equal(mtime), "got %v", entry.ModTime)
}

func TestLocal_MissingRoot(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "nope"))
	_, err := l.Stat(".")
	assert.True(t, IsNotExist(err))
}
