package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the TUI styling definitions
type Styles struct {
	Title          lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemText     lipgloss.Style
	Refusal        lipgloss.Style
	Sources        lipgloss.Style
	Error          lipgloss.Style

	StatusBar          lipgloss.Style
	StatusConnected    lipgloss.Style
	StatusDisconnected lipgloss.Style

	InputStyle lipgloss.Style
}

// NewStyles creates the style set using the given renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),

		UserLabel: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		AssistantLabel: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		SystemText: r.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245")),
		Refusal: r.NewStyle().
			Foreground(lipgloss.Color("214")),
		Sources: r.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),

		StatusBar: r.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		StatusConnected: r.NewStyle().
			Foreground(lipgloss.Color("42")).
			Background(lipgloss.Color("236")),
		StatusDisconnected: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Background(lipgloss.Color("236")),

		InputStyle: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")),
	}
}
