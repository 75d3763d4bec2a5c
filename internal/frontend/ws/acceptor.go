package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/config"
)

// SessionHandler processes one connected WebSocket session.
// Implementations own the message loop for a single client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor serves the WebSocket endpoint and dispatches each upgraded
// connection to a SessionHandler on its own goroutine.
type Acceptor struct {
	cfg      config.WSConfig
	handler  SessionHandler
	logger   *zap.Logger
	upgrader websocket.Upgrader

	server *http.Server
	wg     sync.WaitGroup
	quit   chan struct{}
	mu     sync.Mutex
}

// NewAcceptor creates a WebSocket acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.WSConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins; tokens
			// carried in the join payload authenticate the user.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// ListenAndServe starts the HTTP listener serving WebSocket upgrades
// until Stop is called. This method blocks.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	mux := http.NewServeMux()
	mux.Handle("/", a)

	a.mu.Lock()
	a.server = &http.Server{
		Addr:    a.cfg.Addr(),
		Handler: mux,
	}
	srv := a.server
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", a.cfg.Addr()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket endpoint: %w", err)
	}
	return nil
}

// ServeHTTP upgrades an HTTP request and runs the session handler,
// making the acceptor mountable on any mux.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("upgrading connection",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	a.wg.Add(1)
	go a.handleConn(ws)
}

// handleConn processes a single upgraded connection.
func (a *Acceptor) handleConn(raw *websocket.Conn) {
	defer a.wg.Done()
	start := time.Now()

	conn := NewConn(raw, a.cfg)
	addr := conn.RemoteAddr()
	a.logger.Info("client connected",
		zap.String("remote_addr", addr),
	)
	defer func() {
		_ = conn.Close()
		a.logger.Info("client disconnected",
			zap.String("remote_addr", addr),
			zap.Duration("session_duration", time.Since(start)),
		)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the session when the acceptor shuts down. Closing the
	// connection unblocks the handler's read loop.
	go func() {
		select {
		case <-a.quit:
			cancel()
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Info("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
		)
	}
}

// Stop shuts down the listener and waits for in-flight sessions to
// finish their cleanup.
//
// Postcondition: All session goroutines have returned.
func (a *Acceptor) Stop() {
	close(a.quit)

	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	a.wg.Wait()
}
