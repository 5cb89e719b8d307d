package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fintrack/internal/version"
	"fintrack/pkg/protocol"
)

const (
	wsReadLimit = 64 << 10

	// maxInflightQuestions bounds concurrent questions per connection.
	// Questions over the limit are answered with CodeTooManyQuestions.
	maxInflightQuestions = 2
)

// handleWebSocket upgrades the connection and starts the client's read and
// write loops.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	client := &Client{
		ID:   fmt.Sprintf("client_%d", time.Now().UnixNano()),
		Conn: conn,
		Send: make(chan []byte, 64),
		done: make(chan struct{}),
	}

	g.clientMu.Lock()
	g.clients[client.ID] = client
	g.clientMu.Unlock()

	log.Printf("Client connected: %s", client.ID)

	st := g.chat.Pipeline().Status()
	g.sendToClient(client, &protocol.ServerInfo{
		BaseMessage: protocol.NewBase(protocol.TypeServerInfo),
		Version:     version.Info(),
		Phase:       string(st.Phase),
		Document:    st.Document,
		Chunks:      st.Chunks,
	})

	go g.handleClientWrite(client)
	go g.handleClientRead(g.ctx, client)
}

// handleClientRead handles incoming messages from a WebSocket client.
// Questions still in flight are cancelled when the connection closes.
func (g *Gateway) handleClientRead(ctx context.Context, client *Client) {
	ctx, cancel := context.WithCancel(ctx)
	inflight := make(chan struct{}, maxInflightQuestions)

	defer func() {
		cancel()
		g.clientMu.Lock()
		delete(g.clients, client.ID)
		g.clientMu.Unlock()

		close(client.done)
		client.Conn.Close()
		log.Printf("Client disconnected: %s", client.ID)
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Client %s closed connection normally", client.ID)
			} else {
				log.Printf("WebSocket read error from %s: %v", client.ID, err)
			}
			return
		}

		parsed, err := protocol.ParseMessage(message)
		if err != nil {
			log.Printf("Failed to parse message from %s: %v", client.ID, err)
			g.sendToClient(client, &protocol.ErrorResponse{
				BaseMessage: protocol.NewBase(protocol.TypeError),
				Code:        protocol.CodeBadRequest,
				Message:     "malformed message",
			})
			continue
		}

		switch msg := parsed.(type) {
		case *protocol.Question:
			select {
			case inflight <- struct{}{}:
			default:
				g.sendToClient(client, &protocol.ErrorResponse{
					BaseMessage: protocol.NewBase(protocol.TypeError),
					RequestID:   msg.RequestID,
					Code:        protocol.CodeTooManyQuestions,
					Message:     fmt.Sprintf("at most %d questions may be pending", maxInflightQuestions),
				})
				continue
			}
			go func() {
				defer func() { <-inflight }()
				g.handleQuestion(ctx, client, msg)
			}()
		case *protocol.HealthCheck:
			g.sendToClient(client, &protocol.HealthCheck{
				BaseMessage: protocol.NewBase(protocol.TypeHealthCheck),
				Status:      string(g.chat.Pipeline().Status().Phase),
			})
		default:
			log.Printf("Unhandled message type from %s: %T", client.ID, msg)
		}
	}
}

// handleQuestion answers one question and sends the reply or an error.
func (g *Gateway) handleQuestion(ctx context.Context, client *Client, q *protocol.Question) {
	reply, err := g.chat.Ask(ctx, q.Text)
	if err != nil {
		_, code, message := classifyError(err)
		if code == protocol.CodeInternal || code == protocol.CodeBackendUnavailable {
			log.Printf("WebSocket question from %s failed: %v", client.ID, err)
		}
		g.sendToClient(client, &protocol.ErrorResponse{
			BaseMessage: protocol.NewBase(protocol.TypeError),
			RequestID:   q.RequestID,
			Code:        code,
			Message:     message,
		})
		return
	}

	g.sendToClient(client, &protocol.Answer{
		BaseMessage: protocol.NewBase(protocol.TypeAnswer),
		RequestID:   q.RequestID,
		Text:        reply.Answer,
		Grounded:    reply.Grounded,
		Greeting:    reply.Greeting,
		Sources:     toSources(reply.Sources),
	})
}

// handleClientWrite handles outgoing messages to a WebSocket client
func (g *Gateway) handleClientWrite(client *Client) {
	defer client.Conn.Close()

	for {
		select {
		case message := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-client.done:
			client.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

// sendToClient queues a protocol message for a WebSocket client (non-blocking)
func (g *Gateway) sendToClient(client *Client, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message for client %s: %v", client.ID, err)
		return
	}

	select {
	case <-client.done:
	case client.Send <- data:
	default:
		log.Printf("Client %s send buffer full, dropping message", client.ID)
	}
}
