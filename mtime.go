package mirror

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidModTime = errors.New("invalid modification time")

type timeSetter interface {
	Chtimes(path string, atime, mtime time.Time) error
}

// ApplyModTime sets both access and modification time of p to mtime. A zero
// or pre-epoch mtime is refused with ErrInvalidModTime and nothing is
// touched. Callers treat every error from here as a warning.
func ApplyModTime(fsys timeSetter, p string, mtime time.Time) error {
	if mtime.IsZero() || mtime.Unix() <= 0 {
		return fmt.Errorf("%w %v for %s", ErrInvalidModTime, mtime.Unix(), p)
	}
	if err := fsys.Chtimes(p, mtime, mtime); err != nil {
		return fmt.Errorf("set mtime on %s: %w", p, err)
	}
	return nil
}
