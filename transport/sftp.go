package transport

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/pkg/sftp"
)

// SFTP is a Filesystem rooted at a directory on an SFTP server. It does not
// own the client; closing it is up to whoever opened the connection.
type SFTP struct {
	client *sftp.Client
	root   string
	logger *slog.Logger
}

func NewSFTP(client *sftp.Client, root string, logger *slog.Logger) *SFTP {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = "."
	}
	return &SFTP{
		client: client,
		root:   path.Clean(root),
		logger: logger,
	}
}

func (s *SFTP) abs(p string) string {
	return path.Join(s.root, p)
}

func (s *SFTP) List(p string) ([]DirEntry, error) {
	infos, err := s.client.ReadDir(s.abs(p))
	if err != nil {
		return nil, fmt.Errorf("sftp: readdir %q: %w", s.abs(p), err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(info))
	}
	return entries, nil
}

func (s *SFTP) Stat(p string) (DirEntry, error) {
	info, err := s.client.Stat(s.abs(p))
	if err != nil {
		return DirEntry{}, fmt.Errorf("sftp: stat %q: %w", s.abs(p), err)
	}
	entry := entryFromInfo(info)
	entry.Name = p
	return entry, nil
}

func (s *SFTP) Open(p string) (io.ReadCloser, error) {
	f, err := s.client.Open(s.abs(p))
	if err != nil {
		return nil, fmt.Errorf("sftp: open %q: %w", s.abs(p), err)
	}
	return f, nil
}

func (s *SFTP) Create(p string) (io.WriteCloser, error) {
	f, err := s.client.Create(s.abs(p))
	if err != nil {
		return nil, fmt.Errorf("sftp: create %q: %w", s.abs(p), err)
	}
	return f, nil
}

// MkdirAll creates p and its missing ancestors, including the root itself.
func (s *SFTP) MkdirAll(p string) error {
	return MakeDirs(&sftpDirs{client: s.client, logger: s.logger}, s.abs(p))
}

func (s *SFTP) Remove(p string) error {
	if err := s.client.Remove(s.abs(p)); err != nil {
		return fmt.Errorf("sftp: remove %q: %w", s.abs(p), err)
	}
	return nil
}

func (s *SFTP) RemoveDir(p string) error {
	if err := s.client.RemoveDirectory(s.abs(p)); err != nil {
		return fmt.Errorf("sftp: rmdir %q: %w", s.abs(p), err)
	}
	return nil
}

func (s *SFTP) Chtimes(p string, atime, mtime time.Time) error {
	if err := s.client.Chtimes(s.abs(p), atime, mtime); err != nil {
		return fmt.Errorf("sftp: chtimes %q: %w", s.abs(p), err)
	}
	return nil
}

func (s *SFTP) String() string {
	return "sftp:" + s.root
}

// sftpDirs addresses the server by absolute path so MakeDirs can climb above
// the root when the root itself is missing.
type sftpDirs struct {
	client *sftp.Client
	logger *slog.Logger
}

func (d *sftpDirs) Stat(p string) (DirEntry, error) {
	info, err := d.client.Stat(p)
	if err != nil {
		return DirEntry{}, err
	}
	return entryFromInfo(info), nil
}

func (d *sftpDirs) Mkdir(p string) error {
	if err := d.client.Mkdir(p); err != nil {
		return err
	}
	d.logger.Info("create dir", "side", "server", "path", p)
	return nil
}
