// Package ssh serves the terminal chat client over SSH. Sessions answer
// questions in-process, so no WebSocket round trip to the gateway is made.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	charmssh "github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishbubbletea "github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"

	"fintrack/internal/tui"
)

// Config holds configuration for the SSH server
type Config struct {
	ListenAddr         string
	HostKeyPath        string // generated on first start when missing
	AuthorizedKeysPath string
	Asker              tui.Asker
}

// NewServer creates a Wish SSH server that serves the TUI. At least one
// authorized key is required; the server never accepts anonymous sessions.
func NewServer(config Config) (*charmssh.Server, error) {
	if config.ListenAddr == "" {
		config.ListenAddr = ":2222"
	}
	if config.HostKeyPath == "" {
		return nil, fmt.Errorf("ssh host key path is required")
	}
	if config.Asker == nil {
		return nil, fmt.Errorf("ssh server needs a chat service")
	}

	authorizedKeys, err := LoadAuthorizedKeys(config.AuthorizedKeysPath)
	if err != nil {
		return nil, err
	}
	if len(authorizedKeys) == 0 {
		return nil, fmt.Errorf("no authorized keys in %s; add one with 'fintrack ssh-keys add'", config.AuthorizedKeysPath)
	}
	log.Printf("[SSH] Loaded %d authorized keys", len(authorizedKeys))

	handler := func(sess charmssh.Session) (tea.Model, []tea.ProgramOption) {
		return sessionHandler(sess, config.Asker)
	}

	server, err := wish.NewServer(
		wish.WithAddress(config.ListenAddr),
		wish.WithHostKeyPath(config.HostKeyPath),
		wish.WithPublicKeyAuth(func(ctx charmssh.Context, key charmssh.PublicKey) bool {
			ok := isAuthorized(key, authorizedKeys)
			if ok {
				log.Printf("[SSH] Public key accepted for user: %s", ctx.User())
			} else {
				log.Printf("[SSH] Public key rejected for user: %s", ctx.User())
			}
			return ok
		}),
		wish.WithMiddleware(
			wishbubbletea.Middleware(handler),
			activeterm.Middleware(),
			logging.Middleware(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	return server, nil
}

// Run serves until ctx is cancelled, then closes the server.
func Run(ctx context.Context, server *charmssh.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SSH] Listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("[SSH] Shutting down")
		if err := server.Close(); err != nil {
			log.Printf("[SSH] Close error: %v", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, charmssh.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// sessionHandler creates a TUI model for each SSH session
func sessionHandler(sess charmssh.Session, asker tui.Asker) (tea.Model, []tea.ProgramOption) {
	client := tui.NewDirectClient(asker, 0)
	go func() {
		<-sess.Context().Done()
		client.Close()
	}()

	// Styles must be rendered for the connecting terminal, not ours.
	model := tui.NewModel(tui.ModelConfig{
		Client:     client,
		GatewayURL: "ssh (in-process)",
		Renderer:   wishbubbletea.MakeRenderer(sess),
	})
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

func isAuthorized(key charmssh.PublicKey, authorizedKeys []charmssh.PublicKey) bool {
	for _, authKey := range authorizedKeys {
		if charmssh.KeysEqual(key, authKey) {
			return true
		}
	}
	return false
}
