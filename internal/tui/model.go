package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ModelConfig holds the configuration for creating a new TUI model
type ModelConfig struct {
	Client     GatewayClient
	GatewayURL string
	Renderer   *lipgloss.Renderer // nil uses the local terminal
}

type entry struct {
	role     string // "user", "assistant", "system", "error"
	text     string
	grounded bool
	sources  string
}

// Model is the root BubbleTea model
type Model struct {
	config ModelConfig
	client GatewayClient
	styles Styles

	viewport viewport.Model
	input    textarea.Model
	entries  []entry

	width            int
	height           int
	connected        bool
	reconnectAttempt int
	serverPhase      string
	pending          map[string]string // requestID -> question
}

// NewModel creates the root TUI model
func NewModel(config ModelConfig) Model {
	r := config.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	ti := textarea.New()
	ti.Placeholder = "Ask about your finances... (Enter to send, Ctrl+C to quit)"
	ti.ShowLineNumbers = false
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.CharLimit = 2000
	ti.Focus()

	return Model{
		config:   config,
		client:   config.Client,
		styles:   NewStyles(r),
		viewport: viewport.New(80, 20),
		input:    ti,
		pending:  make(map[string]string),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.client.ConnectCmd())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit()
			m.refresh()
			return m, nil
		}

	case ConnectedMsg:
		m.connected = true
		m.reconnectAttempt = 0
		m.addEntry(entry{role: "system", text: "Connected to " + m.config.GatewayURL})
		cmds = append(cmds, m.client.ListenCmd())

	case DisconnectedMsg:
		m.connected = false
		if msg.Err != nil {
			m.addEntry(entry{role: "system", text: "Disconnected: " + msg.Err.Error()})
		}
		m.reconnectAttempt++
		cmds = append(cmds, m.client.ReconnectCmd(m.reconnectAttempt))

	case ServerInfoMsg:
		m.serverPhase = msg.Phase
		if msg.Phase != "ready" {
			m.addEntry(entry{role: "system", text: fmt.Sprintf("Server %s is %s; answers may fail until the index is ready.", msg.Version, msg.Phase)})
		}
		cmds = append(cmds, m.client.ListenCmd())

	case AnswerMsg:
		delete(m.pending, msg.RequestID)
		m.addEntry(entry{role: "assistant", text: msg.Text, grounded: msg.Grounded || msg.Greeting, sources: formatSources(msg)})
		cmds = append(cmds, m.client.ListenCmd())

	case ErrorMsg:
		delete(m.pending, msg.RequestID)
		m.addEntry(entry{role: "error", text: msg.Message})
		cmds = append(cmds, m.client.ListenCmd())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.refresh()
	return m, tea.Batch(cmds...)
}

// submit sends the input box contents as a question.
func (m *Model) submit() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	m.input.Reset()
	m.addEntry(entry{role: "user", text: text})

	if !m.connected {
		m.addEntry(entry{role: "error", text: "not connected"})
		return
	}
	id, err := m.client.Ask(text)
	if err != nil {
		m.addEntry(entry{role: "error", text: err.Error()})
		return
	}
	m.pending[id] = text
}

func (m *Model) addEntry(e entry) {
	m.entries = append(m.entries, e)
}

func (m *Model) updateLayout() {
	inputHeight := m.input.Height() + 2 // border
	m.input.SetWidth(max(m.width-2, 10))
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-inputHeight-2, 3) // title + status bar
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch e.role {
		case "user":
			sb.WriteString(m.styles.UserLabel.Render("You: ") + e.text)
		case "assistant":
			text := e.text
			if !e.grounded {
				text = m.styles.Refusal.Render(text)
			}
			sb.WriteString(m.styles.AssistantLabel.Render("Advisor: ") + text)
			if e.sources != "" {
				sb.WriteString("\n" + m.styles.Sources.Render(e.sources))
			}
		case "error":
			sb.WriteString(m.styles.Error.Render("Error: ") + e.text)
		default:
			sb.WriteString(m.styles.SystemText.Render(e.text))
		}
	}

	content := sb.String()
	if m.viewport.Width > 0 {
		content = lipgloss.NewStyle().Width(m.viewport.Width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// View renders the model
func (m Model) View() string {
	title := m.styles.Title.Render("fintrack advisor")

	state := m.styles.StatusDisconnected.Render("● disconnected")
	if m.connected {
		state = m.styles.StatusConnected.Render("● connected")
	}
	status := state
	if len(m.pending) > 0 {
		status += fmt.Sprintf("  thinking (%d)", len(m.pending))
	}
	if m.serverPhase != "" && m.serverPhase != "ready" {
		status += "  index: " + m.serverPhase
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		m.styles.InputStyle.Render(m.input.View()),
		m.styles.StatusBar.Render(status),
	)
}

func formatSources(msg AnswerMsg) string {
	if len(msg.Sources) == 0 || !msg.Grounded {
		return ""
	}
	parts := make([]string, 0, len(msg.Sources))
	for _, s := range msg.Sources {
		parts = append(parts, fmt.Sprintf("@%d (%.2f)", s.Offset, s.Score))
	}
	return "sources: " + strings.Join(parts, ", ")
}
