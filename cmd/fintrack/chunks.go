package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"fintrack/internal/config"
	"fintrack/internal/rag/chunker"
	"fintrack/internal/rag/document"

	"github.com/spf13/cobra"
)

var (
	chunkSize    int
	chunkOverlap int
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "Show how a document is split into chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := document.Load(args[0])
		if err != nil {
			return err
		}

		chunks, err := chunker.Split(text, chunkSize, chunkOverlap)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tOFFSET\tEND\tRUNES\tPREVIEW")
		for _, c := range chunks {
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n", c.Index, c.Offset, c.End(), c.End()-c.Offset, preview(c.Text, 40))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d chunks\n", len(chunks))
		return nil
	},
}

func init() {
	defaults := config.Default().Document
	chunksCmd.Flags().IntVar(&chunkSize, "size", defaults.ChunkSize, "chunk size in characters")
	chunksCmd.Flags().IntVar(&chunkOverlap, "overlap", defaults.Overlap, "characters shared by neighbouring chunks")
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
