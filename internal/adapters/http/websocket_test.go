package http_test

import (
	"net"
	"strings"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
)

// The API keeps serving when NATS is down, so the relay can be handed a
// nil connection. The client must get an error frame and a clean close,
// not a dropped connection.
func TestWebSocketWithoutEventFeed(t *testing.T) {
	app := setupApp(makeDeps()) // deps.NATS stays nil

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer app.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws"

	var conn *fastws.Conn
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn, _, err = fastws.DefaultDialer.Dial(url, nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if !strings.Contains(string(msg), "event feed unavailable") {
		t.Fatalf("message = %s, want event feed unavailable error", msg)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close after the error frame")
	}
}
