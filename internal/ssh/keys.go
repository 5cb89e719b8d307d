package ssh

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmssh "github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"

	"fintrack/internal/config"
	"fintrack/internal/datadir"
)

// KeyEntry represents an authorized public key with metadata
type KeyEntry struct {
	PublicKey   charmssh.PublicKey
	Comment     string
	Fingerprint string
}

// ResolvePaths fills in the default host key and authorized_keys
// locations under the data directory.
func ResolvePaths(cfg config.SSHConfig, dd *datadir.DataDir) config.SSHConfig {
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = dd.FilePath("ssh_host_key")
	}
	if cfg.AuthorizedKeysPath == "" {
		cfg.AuthorizedKeysPath = dd.FilePath("authorized_keys")
	}
	return cfg
}

// LoadAuthorizedKeys loads SSH public keys from an authorized_keys file.
// A missing file yields no keys.
func LoadAuthorizedKeys(path string) ([]charmssh.PublicKey, error) {
	entries, err := ListAuthorizedKeys(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	keys := make([]charmssh.PublicKey, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.PublicKey)
	}
	return keys, nil
}

// ListAuthorizedKeys returns all authorized keys with fingerprints.
// Unparseable lines are skipped.
func ListAuthorizedKeys(path string) ([]KeyEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	var entries []KeyEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pubKey, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}

		entries = append(entries, KeyEntry{
			PublicKey:   pubKey,
			Comment:     comment,
			Fingerprint: gossh.FingerprintSHA256(pubKey),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading authorized keys: %w", err)
	}
	return entries, nil
}

// AddAuthorizedKey appends a public key to the authorized_keys file
func AddAuthorizedKey(path string, keyData string) error {
	keyData = strings.TrimSpace(keyData)
	if _, _, _, _, err := gossh.ParseAuthorizedKey([]byte(keyData)); err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(keyData + "\n"); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}

// RemoveAuthorizedKey removes a key by fingerprint from the authorized_keys file
func RemoveAuthorizedKey(path string, fingerprint string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open authorized keys: %w", err)
	}

	var lines []string
	found := false
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			pubKey, _, _, _, err := gossh.ParseAuthorizedKey([]byte(trimmed))
			if err == nil && gossh.FingerprintSHA256(pubKey) == fingerprint {
				found = true
				continue
			}
		}
		lines = append(lines, line)
	}

	if !found {
		return fmt.Errorf("key with fingerprint %s not found", fingerprint)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
}

// InitKeys creates an empty authorized_keys file if none exists. It
// reports whether the file was created.
func InitKeys(authorizedKeysPath string) (bool, error) {
	if _, err := os.Stat(authorizedKeysPath); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(authorizedKeysPath), 0700); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(authorizedKeysPath, []byte("# fintrack authorized SSH keys\n"), 0600); err != nil {
		return false, fmt.Errorf("failed to create authorized_keys: %w", err)
	}
	return true, nil
}
