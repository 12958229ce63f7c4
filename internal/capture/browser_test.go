package capture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/actiontrace/capture/internal/logging"
)

func TestBrowserServerForwardsMessagesToInbox(t *testing.T) {
	inbox := NewInbox()
	port := 18765
	srv := NewBrowserServer("127.0.0.1", port, 1<<20, inbox, NewClock(), logging.L("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	addr := fmt.Sprintf("ws://127.0.0.1:%d/", port)

	var conn *websocket.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(addr, nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial browser server: %v", err)
	}
	defer conn.Close()

	// First frame is the server's SET_MODE announcement.
	var mode map[string]string
	if err := conn.ReadJSON(&mode); err != nil {
		t.Fatalf("read SET_MODE: %v", err)
	}
	if mode["type"] != "SET_MODE" || mode["mode"] != "record" {
		t.Fatalf("unexpected SET_MODE payload: %+v", mode)
	}

	payload := []byte(`{"event":"click"}`)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write message: %v", err)
	}

	evt, ok := popWithTimeout(inbox, time.Second)
	if !ok {
		t.Fatal("expected a browser event to arrive in the inbox")
	}
	be, ok := evt.(*BrowserEvent)
	if !ok {
		t.Fatalf("expected *BrowserEvent, got %T", evt)
	}
	if string(be.Message) != string(payload) {
		t.Fatalf("expected message %q, got %q", payload, be.Message)
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func popWithTimeout(ib *Inbox, timeout time.Duration) (Event, bool) {
	type result struct {
		evt Event
		ok  bool
	}
	done := make(chan result, 1)
	go func() {
		evt, ok := ib.Pop()
		done <- result{evt, ok}
	}()
	select {
	case r := <-done:
		return r.evt, r.ok
	case <-time.After(timeout):
		return nil, false
	}
}
