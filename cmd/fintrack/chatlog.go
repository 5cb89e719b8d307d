package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"fintrack/internal/chatlog"

	"github.com/spf13/cobra"
)

var (
	recentLimit int
	pruneDays   int
)

var chatlogCmd = &cobra.Command{
	Use:   "chatlog",
	Short: "Inspect and maintain the chat log",
}

var chatlogRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSQLChatLog()
		if err != nil {
			return err
		}
		defer store.Close()

		exchanges, err := store.Recent(cmd.Context(), recentLimit)
		if err != nil {
			return err
		}
		if len(exchanges) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No exchanges recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tGROUNDED\tQUESTION\tANSWER")
		for _, ex := range exchanges {
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n",
				ex.Timestamp.Local().Format(time.DateTime), ex.Grounded,
				preview(ex.UserMessage, 40), preview(ex.BotResponse, 60))
		}
		return w.Flush()
	},
}

var chatlogPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete exchanges older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		days := cfg.ChatLog.RetentionDays
		if cmd.Flags().Changed("days") {
			days = pruneDays
		}
		if days <= 0 {
			return fmt.Errorf("retention is disabled; pass --days")
		}

		store, err := openSQLChatLog()
		if err != nil {
			return err
		}
		defer store.Close()

		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.Prune(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d exchanges older than %d days\n", n, days)
		return nil
	},
}

var chatlogBackupCmd = &cobra.Command{
	Use:   "backup <destination>",
	Short: "Write a consistent snapshot of a SQLite chat log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSQLChatLog()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		if err := store.Backup(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chat log backed up to %s\n", args[0])
		return nil
	},
}

func init() {
	chatlogRecentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 20, "number of exchanges to show")
	chatlogPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "delete exchanges older than this many days (default: chat_log.retention_days)")

	chatlogCmd.AddCommand(chatlogRecentCmd)
	chatlogCmd.AddCommand(chatlogPruneCmd)
	chatlogCmd.AddCommand(chatlogBackupCmd)
}

// openSQLChatLog opens the configured chat log for maintenance.
func openSQLChatLog() (*chatlog.SQLStore, error) {
	cfg, dd, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.ChatLog.Enabled {
		return nil, fmt.Errorf("chat log is disabled in %s", cfgFile)
	}
	dsn, err := chatLogDSN(cfg.ChatLog, dd)
	if err != nil {
		return nil, err
	}
	return chatlog.OpenSQL(cfg.ChatLog.Driver, dsn)
}
