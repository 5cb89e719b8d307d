package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/pkg/protocol"
)

type fakeClient struct {
	asked     []string
	askErr    error
	connected bool
}

func (f *fakeClient) ConnectCmd() tea.Cmd { return func() tea.Msg { return ConnectedMsg{} } }
func (f *fakeClient) ListenCmd() tea.Cmd { return nil }
func (f *fakeClient) ReconnectCmd(int) tea.Cmd { return func() tea.Msg { return ConnectedMsg{} } }
func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Close() {}
func (f *fakeClient) Ask(text string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	f.asked = append(f.asked, text)
	return "req-" + text, nil
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func newTestModel(t *testing.T, client *fakeClient) Model {
	m := NewModel(ModelConfig{Client: client, GatewayURL: "ws://localhost:8000/ws"})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return update(t, m, ConnectedMsg{})
}

func typeText(t *testing.T, m Model, text string) Model {
	for _, r := range text {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_AskAndAnswer(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(t, client)

	m = typeText(t, m, "How much should I save?")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"How much should I save?"}, client.asked)
	assert.Empty(t, m.input.Value())
	assert.Len(t, m.pending, 1)
	assert.Contains(t, m.View(), "thinking")

	m = update(t, m, AnswerMsg{
		RequestID: "req-How much should I save?",
		Text:      "Save at least 20% of your income.",
		Grounded:  true,
		Sources:   []protocol.Source{{Offset: 104, Score: 0.32}},
	})
	assert.Empty(t, m.pending)

	last := m.entries[len(m.entries)-1]
	assert.Equal(t, "assistant", last.role)
	assert.Equal(t, "sources: @104 (0.32)", last.sources)
	assert.Contains(t, m.viewport.View(), "20%")
}

func TestModel_BlankInputIgnored(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(t, client)
	before := len(m.entries)

	m = typeText(t, m, "   ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, client.asked)
	assert.Len(t, m.entries, before)
}

func TestModel_SendFailureShowsError(t *testing.T) {
	client := &fakeClient{askErr: errors.New("not connected")}
	m := newTestModel(t, client)

	m = typeText(t, m, "hi")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	last := m.entries[len(m.entries)-1]
	assert.Equal(t, "error", last.role)
	assert.Equal(t, "not connected", last.text)
}

func TestModel_DisconnectSchedulesReconnect(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	next, cmd := m.Update(DisconnectedMsg{Err: errors.New("connection reset")})
	m = next.(Model)

	assert.False(t, m.connected)
	assert.Equal(t, 1, m.reconnectAttempt)
	assert.NotNil(t, cmd)
	assert.True(t, strings.Contains(m.View(), "disconnected"))
}

func TestModel_ServerInfoNotReady(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m = update(t, m, ServerInfoMsg{Version: "dev", Phase: "initializing"})

	assert.Equal(t, "initializing", m.serverPhase)
	assert.Contains(t, m.View(), "index: initializing")
}

func TestFormatSources_RefusalHasNone(t *testing.T) {
	assert.Empty(t, formatSources(AnswerMsg{Grounded: false, Sources: []protocol.Source{{Offset: 1}}}))
}
