package transport

import (
	"errors"
	"io/fs"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirs is an in-memory tree of kinds keyed by absolute path.
type fakeDirs struct {
	kinds    map[string]Kind
	statErr  map[string]error
	mkdirs   []string
	raceOn   string
	raceKind Kind
}

func newFakeDirs() *fakeDirs {
	return &fakeDirs{
		kinds:   map[string]Kind{"/": KindDir},
		statErr: map[string]error{},
	}
}

func (f *fakeDirs) Stat(p string) (DirEntry, error) {
	if err, ok := f.statErr[p]; ok {
		return DirEntry{}, err
	}
	kind, ok := f.kinds[p]
	if !ok {
		return DirEntry{}, fs.ErrNotExist
	}
	return DirEntry{Name: path.Base(p), Kind: kind}, nil
}

func (f *fakeDirs) Mkdir(p string) error {
	if p == f.raceOn {
		// another writer got there first
		f.kinds[p] = f.raceKind
		return errors.New("failure")
	}
	if _, ok := f.kinds[p]; ok {
		return errors.New("failure")
	}
	f.kinds[p] = KindDir
	f.mkdirs = append(f.mkdirs, p)
	return nil
}

func TestMakeDirs_CreatesMissingAncestorsInOrder(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/srv"] = KindDir

	require.NoError(t, MakeDirs(d, "/srv/a/b/c"))
	assert.Equal(t, []string{"/srv/a", "/srv/a/b", "/srv/a/b/c"}, d.mkdirs)
}

func TestMakeDirs_ExistingDirectoryIsNoop(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/srv"] = KindDir

	require.NoError(t, MakeDirs(d, "/srv"))
	assert.Empty(t, d.mkdirs)
}

func TestMakeDirs_FileInTheWay(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/srv"] = KindDir
	d.kinds["/srv/foo"] = KindFile

	err := MakeDirs(d, "/srv/foo")
	assert.ErrorIs(t, err, ErrTypeConflict)

	err = MakeDirs(d, "/srv/foo/bar")
	assert.ErrorIs(t, err, ErrTypeConflict)
	assert.Empty(t, d.mkdirs)
}

func TestMakeDirs_ConcurrentCreateIsSuccess(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/srv"] = KindDir
	d.raceOn = "/srv/a"
	d.raceKind = KindDir

	require.NoError(t, MakeDirs(d, "/srv/a/b"))
	assert.Equal(t, []string{"/srv/a/b"}, d.mkdirs)
}

func TestMakeDirs_ConcurrentCreateOfFileIsConflict(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/srv"] = KindDir
	d.raceOn = "/srv/a"
	d.raceKind = KindFile

	assert.ErrorIs(t, MakeDirs(d, "/srv/a"), ErrTypeConflict)
}

func TestMakeDirs_UnknownStateIsError(t *testing.T) {
	d := newFakeDirs()
	boom := errors.New("connection reset")
	d.statErr["/srv"] = boom

	err := MakeDirs(d, "/srv/a")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTypeConflict)
	assert.Empty(t, d.mkdirs)
}

func TestProbe(t *testing.T) {
	d := newFakeDirs()
	d.kinds["/f"] = KindFile
	d.statErr["/bad"] = errors.New("permission denied")

	state, entry, err := Probe(d, "/f")
	assert.Equal(t, Exists, state)
	assert.Equal(t, KindFile, entry.Kind)
	assert.NoError(t, err)

	state, _, err = Probe(d, "/missing")
	assert.Equal(t, Absent, state)
	assert.NoError(t, err)

	state, _, err = Probe(d, "/bad")
	assert.Equal(t, Unknown, state)
	assert.Error(t, err)
}
