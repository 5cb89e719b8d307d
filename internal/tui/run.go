package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal chat client against the gateway websocket at url.
func Run(url string) error {
	client := NewWSClient(url)
	defer client.Close()

	p := tea.NewProgram(
		NewModel(ModelConfig{Client: client, GatewayURL: url}),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
