package spectator

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomz197/platformer/internal/protocol"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func waitCount(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("count = %d, want %d", h.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	m, err := protocol.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestWSSpectatorReceivesMapThenUpdates(t *testing.T) {
	hub := NewHub(2, quietLogger())
	defer hub.Close()
	srv := httptest.NewServer(NewWSHandler(hub, quietLogger()))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	defer conn.Close()
	waitCount(t, hub, 1)

	hub.Publish(sampleSnapshot(300))
	if m := readMessage(t, conn); m.MessageType() != protocol.TypeMap {
		t.Fatalf("first message = %s", m.MessageType())
	}
	m := readMessage(t, conn)
	u, ok := m.(*protocol.PlayerUpdate)
	if !ok || u.Player1.Score != 300 {
		t.Fatalf("second message = %+v", m)
	}

	hub.Publish(sampleSnapshot(310))
	if m := readMessage(t, conn); m.MessageType() != protocol.TypePlayerUpdate {
		t.Errorf("unchanged map was resent: %s", m.MessageType())
	}
}

func TestWSSpectatorLimit(t *testing.T) {
	hub := NewHub(1, quietLogger())
	defer hub.Close()
	srv := httptest.NewServer(NewWSHandler(hub, quietLogger()))
	defer srv.Close()

	first := dialWS(t, srv.URL)
	defer first.Close()
	waitCount(t, hub, 1)

	second := dialWS(t, srv.URL)
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Errorf("err = %v, want try-again-later close", err)
	}
	if hub.Count() != 1 {
		t.Errorf("count = %d", hub.Count())
	}
}

func TestWSSpectatorLeaving(t *testing.T) {
	hub := NewHub(2, quietLogger())
	defer hub.Close()
	srv := httptest.NewServer(NewWSHandler(hub, quietLogger()))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	waitCount(t, hub, 1)
	conn.Close()
	waitCount(t, hub, 0)
}
