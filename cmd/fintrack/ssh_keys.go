package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	internalssh "fintrack/internal/ssh"

	"github.com/spf13/cobra"
)

var sshKeysPath string

var sshKeysCmd = &cobra.Command{
	Use:   "ssh-keys",
	Short: "Manage SSH authorized keys",
	Long: `Add, list, and remove SSH public keys allowed to open the terminal
client over SSH (ssh.enabled in the config).`,
}

var sshKeysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized SSH public keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath()
		if err != nil {
			return err
		}
		entries, err := internalssh.ListAuthorizedKeys(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No authorized keys found.")
			fmt.Fprintln(out, "Add one with: fintrack ssh-keys add <key-file-or-string>")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINGERPRINT\tCOMMENT")
		for _, entry := range entries {
			comment := entry.Comment
			if comment == "" {
				comment = "(no comment)"
			}
			fmt.Fprintf(w, "%s\t%s\n", entry.Fingerprint, comment)
		}
		return w.Flush()
	},
}

var sshKeysAddCmd = &cobra.Command{
	Use:   "add <key-file-or-string>",
	Short: "Add an SSH public key",
	Long: `Add an SSH public key to the authorized keys list.
The argument can be a path to a public key file (e.g., ~/.ssh/id_ed25519.pub)
or the key string itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath()
		if err != nil {
			return err
		}

		keyData := args[0]
		if _, err := os.Stat(keyData); err == nil {
			data, err := os.ReadFile(keyData)
			if err != nil {
				return fmt.Errorf("failed to read key file: %w", err)
			}
			keyData = strings.TrimSpace(string(data))
		}

		if err := internalssh.AddAuthorizedKey(path, keyData); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "SSH public key added to %s\n", path)
		return nil
	},
}

var sshKeysRemoveCmd = &cobra.Command{
	Use:   "remove <fingerprint>",
	Short: "Remove an SSH public key by fingerprint",
	Long: `Remove an SSH public key from the authorized keys list.
Use 'fintrack ssh-keys list' to find the fingerprint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath()
		if err != nil {
			return err
		}
		if err := internalssh.RemoveAuthorizedKey(path, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "SSH public key removed.")
		return nil
	},
}

func init() {
	sshKeysCmd.PersistentFlags().StringVar(&sshKeysPath, "authorized-keys", "", "path to authorized_keys file (default: from config, else {data_dir}/authorized_keys)")

	sshKeysCmd.AddCommand(sshKeysListCmd)
	sshKeysCmd.AddCommand(sshKeysAddCmd)
	sshKeysCmd.AddCommand(sshKeysRemoveCmd)
}

// authorizedKeysPath resolves the flag, then the config, then the data directory default.
func authorizedKeysPath() (string, error) {
	if sshKeysPath != "" {
		return sshKeysPath, nil
	}
	cfg, dd, err := loadConfig()
	if err != nil {
		return "", err
	}
	if dd == nil {
		return "", fmt.Errorf("could not resolve data directory; pass --authorized-keys")
	}
	return internalssh.ResolvePaths(cfg.SSH, dd).AuthorizedKeysPath, nil
}
