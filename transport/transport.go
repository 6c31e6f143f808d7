package transport

import (
	"errors"
	"io"
	"io/fs"
	"time"
)

var (
	// ErrTypeConflict is returned when a path exists with a kind other than
	// the one an operation requires (a file where a directory is needed, or
	// the reverse).
	ErrTypeConflict = errors.New("type conflict")
	ErrUnsupported  = errors.New("operation not supported")
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "file":
		*k = KindFile
	case "dir":
		*k = KindDir
	default:
		*k = KindUnknown
	}
	return nil
}

// DirEntry is the metadata both backends report for a path. Name is the
// base name when returned from List and the requested path from Stat.
type DirEntry struct {
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func (d DirEntry) IsDir() bool {
	return d.Kind == KindDir
}

// Filesystem is a rooted tree addressed by forward-slash relative paths.
// "." names the root itself.
type Filesystem interface {
	List(path string) ([]DirEntry, error)
	Stat(path string) (DirEntry, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string) error
	Remove(path string) error
	RemoveDir(path string) error
	Chtimes(path string, atime, mtime time.Time) error
	String() string
}

func entryFromInfo(info fs.FileInfo) DirEntry {
	kind := KindUnknown
	switch {
	case info.IsDir():
		kind = KindDir
	case info.Mode().IsRegular():
		kind = KindFile
	}
	size := info.Size()
	if kind == KindDir {
		size = 0
	}
	return DirEntry{
		Name:    info.Name(),
		Kind:    kind,
		Size:    size,
		ModTime: info.ModTime(),
	}
}

// IsNotExist reports whether err means the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
