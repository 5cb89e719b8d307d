package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"fintrack/internal/chat"
	"fintrack/internal/config"
	"fintrack/internal/maintenance"
	"fintrack/internal/middleware"
	"fintrack/internal/monitoring"
)

// Gateway serves the chat API over HTTP and websocket.
type Gateway struct {
	config    *config.Config
	chat      *chat.Service
	scheduler *maintenance.Scheduler // nil when the chat log is disabled

	rateLimitMiddleware *middleware.RateLimitMiddleware
	metrics             *monitoring.Collector

	// WebSocket handling
	upgrader websocket.Upgrader
	clients  map[string]*Client
	clientMu sync.RWMutex
	ctx      context.Context // lifecycle context for websocket goroutines

	startedAt time.Time
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	done chan struct{}
}

// New creates a gateway. scheduler may be nil.
func New(cfg *config.Config, svc *chat.Service, scheduler *maintenance.Scheduler) *Gateway {
	g := &Gateway{
		config:              cfg,
		chat:                svc,
		scheduler:           scheduler,
		rateLimitMiddleware: middleware.NewRateLimitMiddleware(cfg.RateLimiting),
		clients:             make(map[string]*Client),
		ctx:                 context.Background(),
		startedAt:           time.Now(),
	}
	g.metrics = monitoring.NewCollector(svc.Metrics(), svc.Pipeline().Status, g.ClientCount)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// checkOrigin admits non-browser clients and the configured browser origins.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origins := g.config.CORS.AllowedOrigins
	return slices.Contains(origins, "*") || slices.Contains(origins, origin)
}

// Handler returns the routed HTTP handler.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(mux.CORSMethodMiddleware(r))
	r.Use(middleware.CORS(g.config.CORS.AllowedOrigins))
	r.Use(middleware.Logging)

	limited := g.rateLimitMiddleware.Wrap

	// Chat endpoints are rate limited; probes and metrics are not.
	r.Handle("/chat", limited(http.HandlerFunc(g.handleChat))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/api/ask", limited(http.HandlerFunc(g.handleAsk))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/ws", limited(http.HandlerFunc(g.handleWebSocket))).Methods(http.MethodGet)
	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", g.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", g.metrics.HandlePrometheus).Methods(http.MethodGet)
	r.HandleFunc("/metrics/json", g.metrics.HandleJSON).Methods(http.MethodGet)

	return r
}

// Start listens on the configured port and serves until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", g.config.Port, err)
	}
	return g.Serve(ctx, ln)
}

// Serve bootstraps the index in the background and serves on ln until ctx
// is cancelled. Requests arriving before the index is ready get 503.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	// HTTP request contexts end when the handler returns, which is right after
	// a websocket upgrade; websocket goroutines use the gateway's instead.
	g.ctx = ctx

	server := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := g.chat.Bootstrap(ctx, g.config.Document); err != nil {
			log.Printf("[Gateway] Index bootstrap failed: %v", err)
		}
	}()

	if g.scheduler != nil {
		if err := g.scheduler.Start(); err != nil {
			log.Printf("WARNING: Failed to start maintenance scheduler: %v", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.Printf("Gateway started on %s", ln.Addr())

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		log.Printf("HTTP server error: %v", err)
	}

	log.Println("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	g.closeClients()

	if g.scheduler != nil {
		g.scheduler.Stop()
	}
	g.rateLimitMiddleware.Stop()

	return err
}

// ClientCount returns the number of connected websocket clients.
func (g *Gateway) ClientCount() int {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()
	return len(g.clients)
}

func (g *Gateway) closeClients() {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()
	for _, c := range g.clients {
		c.Conn.Close()
	}
}
