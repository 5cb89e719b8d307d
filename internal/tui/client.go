package tui

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"fintrack/internal/version"
	"fintrack/pkg/protocol"
)

// WSClient manages the WebSocket connection to the gateway
type WSClient struct {
	url       string
	conn      *websocket.Conn
	inbox     chan tea.Msg
	connected bool
	mu        sync.RWMutex
	writeMu   sync.Mutex
	done      chan struct{}
}

// NewWSClient creates a new WebSocket client
func NewWSClient(url string) *WSClient {
	return &WSClient{
		url:   url,
		inbox: make(chan tea.Msg, 64),
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection
func (c *WSClient) Connect() error {
	header := map[string][]string{"User-Agent": {version.UserAgent()}}
	conn, _, err := websocket.DefaultDialer.Dial(c.url, header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump(conn)
	return nil
}

// ConnectCmd returns a tea.Cmd that connects to the gateway
func (c *WSClient) ConnectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := c.Connect(); err != nil {
			return DisconnectedMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// ListenCmd returns a tea.Cmd that blocks until the next message arrives on the inbox.
func (c *WSClient) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.inbox:
			return msg
		case <-c.done:
			return nil
		}
	}
}

// ReconnectCmd returns a tea.Cmd that reconnects with backoff
func (c *WSClient) ReconnectCmd(attempt int) tea.Cmd {
	return func() tea.Msg {
		// Exponential backoff: 1s, 2s, 4s, 8s, 16s, 30s max
		delay := time.Duration(1<<uint(min(attempt, 5))) * time.Second
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-c.done:
			return nil
		}

		if err := c.Connect(); err != nil {
			return DisconnectedMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// IsConnected returns the connection status
func (c *WSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close gracefully disconnects
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}

	if c.conn != nil {
		c.writeMu.Lock()
		c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// Ask sends a question to the gateway
func (c *WSClient) Ask(text string) (string, error) {
	requestID := fmt.Sprintf("ask_%d", time.Now().UnixNano())
	err := c.send(&protocol.Question{
		BaseMessage: protocol.NewBase(protocol.TypeQuestion),
		RequestID:   requestID,
		Text:        text,
	})
	return requestID, err
}

func (c *WSClient) send(msg interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readPump turns gateway messages into tea messages until the connection drops.
func (c *WSClient) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.connected = false
			}
			c.mu.Unlock()

			select {
			case <-c.done:
			default:
				c.deliver(DisconnectedMsg{Err: err})
			}
			return
		}

		parsed, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		if msg := toTeaMsg(parsed); msg != nil {
			c.deliver(msg)
		}
	}
}

func (c *WSClient) deliver(msg tea.Msg) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}

func toTeaMsg(parsed interface{}) tea.Msg {
	switch m := parsed.(type) {
	case *protocol.ServerInfo:
		return ServerInfoMsg{Version: m.Version, Phase: m.Phase, Document: m.Document, Chunks: m.Chunks}
	case *protocol.Answer:
		return AnswerMsg{RequestID: m.RequestID, Text: m.Text, Grounded: m.Grounded, Greeting: m.Greeting, Sources: m.Sources}
	case *protocol.ErrorResponse:
		return ErrorMsg{RequestID: m.RequestID, Code: m.Code, Message: m.Message}
	default:
		return nil
	}
}
