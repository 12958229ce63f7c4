package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

// BrowserServer is a local loopback websocket server a companion browser
// extension connects to, forwarding DOM interaction events for browser_event
// rows. Each accepted connection is served independently on its own
// handler goroutine; a second connection does not displace the first.
type BrowserServer struct {
	addr     string
	maxSize  int64
	inbox    *Inbox
	clock    Clock
	logger   *slog.Logger
	upgrader websocket.Upgrader

	srv *http.Server
}

// NewBrowserServer builds a server bound to ip:port. maxSize bounds a
// single inbound message (a guard against a misbehaving extension sending
// an unbounded DOM snapshot).
func NewBrowserServer(ip string, port, maxSize int, inbox *Inbox, clock Clock, logger *slog.Logger) *BrowserServer {
	return &BrowserServer{
		addr:    fmt.Sprintf("%s:%d", ip, port),
		maxSize: int64(maxSize),
		inbox:   inbox,
		clock:   clock,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves until ctx is canceled.
func (b *BrowserServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handle)

	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("capture: browser websocket listen %s: %w", b.addr, err)
	}

	b.srv = &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- b.srv.Serve(listener) }()

	select {
	case <-ctx.Done():
		b.srv.Close()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (b *BrowserServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("browser websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// Announce idle mode when the handler exits, before the connection closes.
	defer conn.WriteJSON(map[string]string{"type": "SET_MODE", "mode": "idle"})
	conn.SetReadLimit(b.maxSize)

	// SET_MODE announces capture mode to the extension so it starts
	// forwarding DOM events rather than sitting idle.
	if err := conn.WriteJSON(map[string]string{"type": "SET_MODE", "mode": "record"}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ts := b.clock.NowSeconds()
		b.inbox.Push(NewBrowserEvent(ts, message))
	}
}
