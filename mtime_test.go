package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTimes struct {
	calls int
	atime time.Time
	mtime time.Time
	err   error
}

func (r *recordingTimes) Chtimes(p string, atime, mtime time.Time) error {
	r.calls++
	r.atime, r.mtime = atime, mtime
	return r.err
}

func TestApplyModTime(t *testing.T) {
	rec := &recordingTimes{}
	mtime := time.Unix(1_700_000_000, 0)

	require.NoError(t, ApplyModTime(rec, "a.txt", mtime))
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, mtime, rec.atime)
	assert.Equal(t, mtime, rec.mtime)
}

func TestApplyModTime_Invalid(t *testing.T) {
	for _, mtime := range []time.Time{{}, time.Unix(0, 0), time.Unix(-10, 0)} {
		rec := &recordingTimes{}
		err := ApplyModTime(rec, "a.txt", mtime)
		assert.ErrorIs(t, err, ErrInvalidModTime)
		assert.Zero(t, rec.calls)
	}
}

func TestApplyModTime_Failure(t *testing.T) {
	cause := errors.New("read-only")
	rec := &recordingTimes{err: cause}

	err := ApplyModTime(rec, "a.txt", time.Unix(1_700_000_000, 0))
	assert.ErrorIs(t, err, cause)
}

func TestApplyModTime_Local(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	mtime := time.Unix(1_500_000_000, 0)

	require.NoError(t, ApplyModTime(transport.NewLocal(root), "a.txt", mtime))

	info, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, mtime.Unix(), info.ModTime().Unix())
}
