package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/chat"

	"github.com/spf13/cobra"
)

var (
	askTopK    int
	askSources bool
	askTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question without starting the server",
	Long: `Index the configured document in-process, answer one question and exit.
Exchanges asked from the command line are not written to the chat log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if askTopK > 0 {
			cfg.Retrieval.TopK = askTopK
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
		defer cancel()

		svc, err := chat.New(ctx, cfg, nil)
		if err != nil {
			return err
		}
		if err := svc.Bootstrap(ctx, cfg.Document); err != nil {
			return fmt.Errorf("failed to index %s: %w", cfg.Document.Path, err)
		}

		reply, err := svc.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, reply.Answer)
		if askSources && reply.Grounded {
			for _, src := range reply.Sources {
				fmt.Fprintf(out, "\n[offset %d, score %.3f]\n%s\n", src.Offset, src.Score, src.Text)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (overrides config)")
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "print the chunks the answer is grounded on")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "overall time limit")
}
