package tui

import tea "github.com/charmbracelet/bubbletea"

// GatewayClient abstracts the connection between the TUI and the gateway.
type GatewayClient interface {
	ConnectCmd() tea.Cmd
	ListenCmd() tea.Cmd
	ReconnectCmd(attempt int) tea.Cmd
	IsConnected() bool
	Close()
	// Ask sends a question and returns the request id its reply will carry.
	Ask(text string) (string, error)
}
