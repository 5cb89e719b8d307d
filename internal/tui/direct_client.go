package tui

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fintrack/internal/chat"
	"fintrack/pkg/protocol"
)

// Asker answers questions in-process.
type Asker interface {
	Ask(ctx context.Context, question string) (*chat.Reply, error)
}

// DirectClient implements GatewayClient by calling the chat service
// directly, without a WebSocket round trip. Used by the SSH server.
type DirectClient struct {
	asker   Asker
	timeout time.Duration

	inbox    chan tea.Msg
	done     chan struct{}
	mu       sync.Mutex // guards closed and inflight.Add
	closed   bool
	seq      atomic.Uint64
	inflight sync.WaitGroup
}

// NewDirectClient creates a client that answers with asker. Each question
// is bounded by timeout; zero means two minutes.
func NewDirectClient(asker Asker, timeout time.Duration) *DirectClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DirectClient{
		asker:   asker,
		timeout: timeout,
		inbox:   make(chan tea.Msg, 16),
		done:    make(chan struct{}),
	}
}

func (c *DirectClient) ConnectCmd() tea.Cmd {
	return func() tea.Msg { return ConnectedMsg{} }
}

func (c *DirectClient) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.inbox:
			return msg
		case <-c.done:
			return nil
		}
	}
}

func (c *DirectClient) ReconnectCmd(int) tea.Cmd {
	return c.ConnectCmd()
}

func (c *DirectClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close stops delivery and waits for in-flight questions to finish.
func (c *DirectClient) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	c.mu.Unlock()
	c.inflight.Wait()
}

// Ask answers text in the background; the reply arrives through ListenCmd.
func (c *DirectClient) Ask(text string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", fmt.Errorf("client closed")
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	requestID := fmt.Sprintf("direct_%d", c.seq.Add(1))
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		reply, err := c.asker.Ask(ctx, text)
		if err != nil {
			code, message := chat.ErrorCode(err)
			c.deliver(ErrorMsg{RequestID: requestID, Code: code, Message: message})
			return
		}

		sources := make([]protocol.Source, 0, len(reply.Sources))
		for _, s := range reply.Sources {
			sources = append(sources, protocol.Source{Offset: s.Offset, Score: s.Score})
		}
		c.deliver(AnswerMsg{
			RequestID: requestID,
			Text:      reply.Answer,
			Grounded:  reply.Grounded,
			Greeting:  reply.Greeting,
			Sources:   sources,
		})
	}()

	return requestID, nil
}

func (c *DirectClient) deliver(msg tea.Msg) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}
