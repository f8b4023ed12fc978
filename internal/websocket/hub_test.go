package websocket

import (
	"encoding/json"
	"sort"
	"testing"
	"time"
)

func testClient(userID, role string) *Client {
	return &Client{UserID: userID, UserRole: role, send: make(chan []byte, 4)}
}

func TestBroadcastToUserTargetsOneClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := testClient("user-a", "operator")
	b := testClient("user-b", "operator")
	h.register <- a
	h.register <- b

	h.BroadcastToUser("user-a", map[string]string{"type": "sync"})

	select {
	case data := <-a.send:
		var msg map[string]string
		if err := json.Unmarshal(data, &msg); err != nil || msg["type"] != "sync" {
			t.Fatalf("unexpected payload: %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("targeted client never received the payload")
	}

	select {
	case data := <-b.send:
		t.Fatalf("payload leaked to another user: %s", data)
	default:
	}
}

func TestBroadcastToUserDisconnectsOnFullBuffer(t *testing.T) {
	h := NewHub()
	go h.Run()

	// Zero-capacity send buffer with no reader: delivery must fall through
	// to the disconnect path
	h.register <- &Client{UserID: "user-a", UserRole: "operator", send: make(chan []byte)}

	h.BroadcastToUser("user-a", map[string]string{"type": "sync"})

	deadline := time.After(time.Second)
	for h.IsUserConnected("user-a") {
		select {
		case <-deadline:
			t.Fatal("client with a full buffer was not disconnected")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestOnConnectHookFires(t *testing.T) {
	h := NewHub()
	connected := make(chan string, 1)
	h.OnConnect(func(userID string) { connected <- userID })
	go h.Run()

	h.register <- testClient("user-a", "operator")

	select {
	case id := <-connected:
		if id != "user-a" {
			t.Fatalf("connect hook fired for %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("connect hook never fired")
	}
}

func TestConnectedClientIDs(t *testing.T) {
	h := NewHub()
	go h.Run()

	h.register <- testClient("user-a", "operator")
	h.register <- testClient("user-b", "admin")

	deadline := time.After(time.Second)
	for h.ClientCount() != 2 {
		select {
		case <-deadline:
			t.Fatal("registrations never applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ids := h.ConnectedClientIDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "user-a" || ids[1] != "user-b" {
		t.Fatalf("connected ids = %v", ids)
	}
}
