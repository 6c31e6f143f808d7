package mirror

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrNoCredentials        = errors.New("no password or key provided for SFTP authentication")
	ErrAmbiguousCredentials = errors.New("both password and key provided for SFTP authentication, pick one")
)

type SyncMode string

const (
	Bidirectional      SyncMode = "bidirectional"
	ClientToServerOnly SyncMode = "client-to-server"
)

// ParseSyncMode also accepts the numeric menu choices 1 and 2.
func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "bidirectional", "default":
		return Bidirectional, nil
	case "2", "client-to-server", "oneside", "backup":
		return ClientToServerOnly, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q", s)
	}
}

type Credentials struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" yaml:"port"`
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password,omitempty"`
	KeyPath       string `mapstructure:"key_path" yaml:"key_path,omitempty"`
	KeyPassphrase string `mapstructure:"key_passphrase" yaml:"key_passphrase,omitempty"`
	KnownHosts    string `mapstructure:"known_hosts" yaml:"known_hosts,omitempty"`
	UseSSHConfig  bool   `mapstructure:"use_ssh_config" yaml:"use_ssh_config,omitempty"`
}

type Config struct {
	ServerRoot  string      `mapstructure:"server_root" yaml:"server_root"`
	ClientRoot  string      `mapstructure:"client_root" yaml:"client_root"`
	SyncMode    SyncMode    `mapstructure:"sync_mode" yaml:"sync_mode"`
	Ignore      []string    `mapstructure:"ignore" yaml:"ignore,omitempty"`
	Credentials Credentials `mapstructure:"credentials" yaml:"credentials"`
	Path        string      `mapstructure:"-" yaml:"-"`
}

// Validate normalises the configuration and checks everything that can be
// checked without touching the network.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerRoot) == "" {
		return errors.New("server_root is required")
	}
	c.ServerRoot = path.Clean(filepath.ToSlash(strings.TrimSpace(c.ServerRoot)))

	if strings.TrimSpace(c.ClientRoot) == "" {
		return errors.New("client_root is required")
	}
	clientRoot, err := ResolvePath(c.ClientRoot)
	if err != nil {
		return fmt.Errorf("client_root: %w", err)
	}
	c.ClientRoot = clientRoot

	mode, err := ParseSyncMode(string(c.SyncMode))
	if err != nil {
		return err
	}
	c.SyncMode = mode

	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	return c.Credentials.Validate()
}

func (c *Credentials) Validate() error {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		return errors.New("credentials.host is required")
	}
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("credentials.port %d out of range", c.Port)
	}
	if c.Username == "" && !c.UseSSHConfig {
		return errors.New("credentials.username is required")
	}

	switch {
	case c.Password != "" && c.KeyPath != "":
		return ErrAmbiguousCredentials
	case c.Password == "" && c.KeyPath == "":
		return ErrNoCredentials
	}

	if c.KeyPath != "" {
		keyPath, err := ResolvePath(c.KeyPath)
		if err != nil {
			return fmt.Errorf("credentials.key_path: %w", err)
		}
		c.KeyPath = keyPath
	}
	if c.KnownHosts != "" {
		knownHosts, err := ResolvePath(c.KnownHosts)
		if err != nil {
			return fmt.Errorf("credentials.known_hosts: %w", err)
		}
		c.KnownHosts = knownHosts
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Ignore = append([]string(nil), c.Ignore...)
	if out.Credentials.Password != "" {
		out.Credentials.Password = "********"
	}
	if out.Credentials.KeyPassphrase != "" {
		out.Credentials.KeyPassphrase = "********"
	}
	return &out
}

// ResolvePath expands a leading ~ and returns a clean absolute path.
func ResolvePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("path cannot be empty")
	}

	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("failed to retrieve home directory")
		}
		p = strings.Replace(p, "~", home, 1)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
