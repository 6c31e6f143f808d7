package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/alexhunt7/ssher"
	"github.com/b1naryth1ef/mirror/transport"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 30 * time.Second

// Session is one live connection to the server tree. Close is idempotent.
type Session interface {
	transport.Filesystem
	Close() error
}

// Dialer opens a new Session.
type Dialer func(ctx context.Context) (Session, error)

func authMethod(creds Credentials) (ssh.AuthMethod, error) {
	switch {
	case creds.Password != "" && creds.KeyPath != "":
		return nil, ErrAmbiguousCredentials
	case creds.Password != "":
		return ssh.Password(creds.Password), nil
	case creds.KeyPath != "":
		pem, err := os.ReadFile(creds.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", creds.KeyPath, err)
		}

		var signer ssh.Signer
		if creds.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(creds.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(pem)
		}
		if err != nil {
			return nil, fmt.Errorf("parse key %s: %w", creds.KeyPath, err)
		}
		return ssh.PublicKeys(signer), nil
	default:
		return nil, ErrNoCredentials
	}
}

func hostKeyCallback(creds Credentials, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if creds.KnownHosts == "" {
		logger.Warn("host key not verified, set credentials.known_hosts to verify it", "host", creds.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(creds.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", creds.KnownHosts, err)
	}
	return callback, nil
}

// OpenSSH authenticates with exactly one credential form. With
// UseSSHConfig the host is treated as an ssh_config alias and its HostName,
// Port and User apply.
func OpenSSH(ctx context.Context, creds Credentials, logger *slog.Logger) (*ssh.Client, error) {
	auth, err := authMethod(creds)
	if err != nil {
		return nil, err
	}

	hostKey, err := hostKeyCallback(creds, logger)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	}
	hostPort := net.JoinHostPort(creds.Host, strconv.Itoa(creds.Port))

	if creds.UseSSHConfig {
		sshConfig, resolved, err := ssher.ClientConfig(creds.Host, "")
		if err != nil {
			return nil, fmt.Errorf("resolve ssh_config alias %s: %w", creds.Host, err)
		}
		hostPort = resolved
		if config.User == "" {
			config.User = sshConfig.User
		}
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", hostPort, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, hostPort, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", hostPort, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type sftpSession struct {
	*transport.SFTP

	ssh  *ssh.Client
	sftp *sftp.Client

	once sync.Once
	err  error
}

func (s *sftpSession) Close() error {
	s.once.Do(func() {
		s.err = errors.Join(s.sftp.Close(), s.ssh.Close())
	})
	return s.err
}

// Connect opens an SSH connection and an SFTP session on it, rooted at
// root. The connection is closed again if the SFTP subsystem fails to start.
func Connect(ctx context.Context, creds Credentials, root string, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sshClient, err := OpenSSH(ctx, creds, logger)
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}

	logger.Debug("connected", "host", creds.Host, "root", root)
	return &sftpSession{
		SFTP: transport.NewSFTP(sftpClient, root, logger),
		ssh:  sshClient,
		sftp: sftpClient,
	}, nil
}

// SFTPDialer returns a Dialer for the server described by cfg.
func SFTPDialer(cfg *Config, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Session, error) {
		return Connect(ctx, cfg.Credentials, cfg.ServerRoot, logger)
	}
}
