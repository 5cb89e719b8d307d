package main

import (
	"fmt"
	"log"

	"fintrack/internal/config"
	"fintrack/internal/tui"

	"github.com/spf13/cobra"
)

var chatURL string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the terminal chat client",
	Long: `Launch a BubbleTea terminal UI that connects to a running server over
WebSocket. Unless --url is given, the port is read from the config file.

Key bindings:
  Enter       Send question
  PgUp/PgDn   Scroll history
  Esc/Ctrl+C  Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := chatURL
		if !cmd.Flags().Changed("url") {
			url = gatewayURLFromConfig(cfgFile)
		}
		return tui.Run(url)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatURL, "url", "", "gateway WebSocket URL (default derived from config port)")
}

// gatewayURLFromConfig reads only the port from the config file, falling
// back to the default port when the file cannot be read.
func gatewayURLFromConfig(path string) string {
	port := config.Default().Port
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("Warning: could not read config %s: %v (using port %d)", path, err, port)
	} else {
		port = cfg.Port
	}
	return fmt.Sprintf("ws://localhost:%d/ws", port)
}
