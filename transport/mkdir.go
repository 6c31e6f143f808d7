package transport

import (
	"fmt"
	"path"
)

// Existence is the outcome of probing a path: it is there, it is not, or
// the probe itself failed and nothing can be concluded.
type Existence uint8

const (
	Absent Existence = iota
	Exists
	Unknown
)

func (e Existence) String() string {
	switch e {
	case Absent:
		return "absent"
	case Exists:
		return "exists"
	default:
		return "unknown"
	}
}

type Statter interface {
	Stat(path string) (DirEntry, error)
}

// Probe stats p and classifies the result. The error is only set for
// Unknown.
func Probe(s Statter, p string) (Existence, DirEntry, error) {
	entry, err := s.Stat(p)
	switch {
	case err == nil:
		return Exists, entry, nil
	case IsNotExist(err):
		return Absent, DirEntry{}, nil
	default:
		return Unknown, DirEntry{}, err
	}
}

// DirMaker creates a single directory level.
type DirMaker interface {
	Statter
	Mkdir(path string) error
}

// MakeDirs creates dir and every missing ancestor, one level at a time. An
// existing directory is success; an existing non-directory anywhere on the
// way is ErrTypeConflict. A Mkdir that fails because someone else created
// the directory in the meantime is also success.
func MakeDirs(m DirMaker, dir string) error {
	dir = path.Clean(dir)

	state, entry, err := Probe(m, dir)
	switch state {
	case Exists:
		if entry.Kind != KindDir {
			return fmt.Errorf("%s is a %s, not a dir: %w", dir, entry.Kind, ErrTypeConflict)
		}
		return nil
	case Unknown:
		return fmt.Errorf("stat %s: %w", dir, err)
	}

	if parent := path.Dir(dir); parent != dir {
		if err := MakeDirs(m, parent); err != nil {
			return err
		}
	}

	if err := m.Mkdir(dir); err != nil {
		state, entry, _ := Probe(m, dir)
		if state == Exists {
			if entry.Kind == KindDir {
				return nil
			}
			return fmt.Errorf("%s is a %s, not a dir: %w", dir, entry.Kind, ErrTypeConflict)
		}
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
