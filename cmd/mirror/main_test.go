package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b1naryth1ef/mirror"
	"github.com/b1naryth1ef/mirror/transport"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	items := []mirror.PlanItem{
		{Path: "dir", Kind: transport.KindDir},
		{Path: "dir/a.txt", Kind: transport.KindFile, Size: 2048},
		{Path: "ghost", Err: errors.New("gone")},
	}

	for input, want := range map[string]bool{
		"y\n":   true,
		" y \n": true,
		"Y\n":   false,
		"yes\n": false,
		"\n":    false,
		"":      false,
	} {
		var out bytes.Buffer
		ok, err := newPrompt(strings.NewReader(input), &out).Confirm(mirror.SideServer, items)
		require.NoError(t, err, input)
		assert.Equal(t, want, ok, input)

		assert.Contains(t, out.String(), "[D] dir\n")
		assert.Contains(t, out.String(), "[F] dir/a.txt | 2.0 kB\n")
		assert.Contains(t, out.String(), "[?] ghost\n")
		assert.Contains(t, out.String(), "Are you sure want to remove files in above?")
	}
}

func TestSplitRemote(t *testing.T) {
	user, host, dir := splitRemote("alice@example.com:/srv/data")
	assert.Equal(t, "alice", user)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/srv/data", dir)

	user, host, dir = splitRemote("backup")
	assert.Empty(t, user)
	assert.Equal(t, "backup", host)
	assert.Empty(t, dir)
}

func TestProgressLine(t *testing.T) {
	var out bytes.Buffer
	fn := progressLine(&out)

	fn("a.txt", 0, 10)
	fn("a.txt", 10, 10)

	assert.Contains(t, out.String(), "a.txt 0 B / 10 B (0%)")
	assert.True(t, strings.HasSuffix(out.String(), "a.txt 10 B / 10 B (100%)\n"))
}

func testFlags(t *testing.T) *flag.FlagSet {
	t.Helper()
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	addConfigFlags(flags)
	return flags
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	clientRoot := filepath.Join(dir, "local")
	configPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
server_root: /srv/data
client_root: `+clientRoot+`
sync_mode: backup
ignore: ["**/*.tmp"]
credentials:
  host: example.com
  username: alice
  password: from-file
`), 0o644))

	t.Setenv("MIRROR_CREDENTIALS_PASSWORD", "from-env")

	flags := testFlags(t)
	require.NoError(t, flags.Parse([]string{"--config", configPath, "--port", "2222"}))

	cfg, err := loadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, configPath, cfg.Path)
	assert.Equal(t, "/srv/data", cfg.ServerRoot)
	assert.Equal(t, clientRoot, cfg.ClientRoot)
	assert.Equal(t, mirror.ClientToServerOnly, cfg.SyncMode)
	assert.Equal(t, []string{"**/*.tmp"}, cfg.Ignore)
	assert.Equal(t, "example.com", cfg.Credentials.Host)
	assert.Equal(t, 2222, cfg.Credentials.Port)
	assert.Equal(t, "from-env", cfg.Credentials.Password)
}

func TestLoadConfig_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("server_root: /srv\n"), 0o644))

	flags := testFlags(t)
	require.NoError(t, flags.Parse([]string{"--config", configPath}))

	_, err := loadConfig(flags)
	assert.Error(t, err)
}
