package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"fintrack/internal/chat"
	"fintrack/internal/config"
	"fintrack/internal/datadir"
)

func newKey(t *testing.T, comment string) (gossh.PublicKey, string) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(gossh.MarshalAuthorizedKey(key))) + " " + comment
	return key, line
}

type stubAsker struct{}

func (stubAsker) Ask(context.Context, string) (*chat.Reply, error) {
	return &chat.Reply{Answer: "ok"}, nil
}

func TestAuthorizedKeys_AddListRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "authorized_keys")

	created, err := InitKeys(path)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = InitKeys(path)
	require.NoError(t, err)
	assert.False(t, created)

	first, firstLine := newKey(t, "alice@laptop")
	_, secondLine := newKey(t, "bob@desktop")
	require.NoError(t, AddAuthorizedKey(path, firstLine))
	require.NoError(t, AddAuthorizedKey(path, secondLine+"\n"))

	entries, err := ListAuthorizedKeys(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice@laptop", entries[0].Comment)
	assert.Equal(t, gossh.FingerprintSHA256(first), entries[0].Fingerprint)

	require.NoError(t, RemoveAuthorizedKey(path, entries[0].Fingerprint))
	entries, err = ListAuthorizedKeys(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob@desktop", entries[0].Comment)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# fintrack authorized SSH keys\n"))

	assert.Error(t, RemoveAuthorizedKey(path, entries[0].Fingerprint+"x"))
}

func TestAddAuthorizedKey_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	assert.Error(t, AddAuthorizedKey(path, "ssh-ed25519 not-a-key"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadAuthorizedKeys_MissingFile(t *testing.T) {
	keys, err := LoadAuthorizedKeys(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestIsAuthorized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	known, line := newKey(t, "")
	stranger, _ := newKey(t, "")
	require.NoError(t, AddAuthorizedKey(path, line))

	keys, err := LoadAuthorizedKeys(path)
	require.NoError(t, err)
	assert.True(t, isAuthorized(known, keys))
	assert.False(t, isAuthorized(stranger, keys))
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ListenAddr:         "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "ssh_host_key"),
		AuthorizedKeysPath: filepath.Join(dir, "authorized_keys"),
		Asker:              stubAsker{},
	}

	_, err := NewServer(cfg)
	assert.Error(t, err, "no authorized keys")

	_, line := newKey(t, "alice")
	require.NoError(t, AddAuthorizedKey(cfg.AuthorizedKeysPath, line))

	server, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", server.Addr)

	cfg.Asker = nil
	_, err = NewServer(cfg)
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	t.Setenv(datadir.EnvVar, t.TempDir())
	dd, err := datadir.New("")
	require.NoError(t, err)

	cfg := ResolvePaths(config.SSHConfig{HostKeyPath: "/etc/fintrack/host_key"}, dd)
	assert.Equal(t, "/etc/fintrack/host_key", cfg.HostKeyPath)
	assert.Equal(t, filepath.Join(dd.Root(), "authorized_keys"), cfg.AuthorizedKeysPath)
}
