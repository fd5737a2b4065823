package spectator

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	readLimit  = 512 // Spectators send nothing but control frames
)

// WSHandler upgrades requests into WebSocket spectators. Each receives a
// MAP message whenever the layout changes and a PLAYER_UPDATE per
// snapshot, one JSON message per frame.
type WSHandler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a handler publishing from hub.
func NewWSHandler(hub *Hub, logger *log.Logger) *WSHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WSHandler{
		hub:    hub,
		logger: logger.WithPrefix("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	sub, err := h.hub.Subscribe(&wsSink{conn: conn})
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "spectator limit reached")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}
	h.logger.Info("spectator connected", "id", sub.ID, "remote", r.RemoteAddr)
	defer h.logger.Info("spectator left", "id", sub.ID)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer h.hub.Unsubscribe(sub.ID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sub.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.hub.Unsubscribe(sub.ID)
				<-sub.Done()
				return
			}
		}
	}
}

// wsSink is written only from its subscription's delivery goroutine.
type wsSink struct {
	conn    *websocket.Conn
	sent    bool
	lastMap world.Matrix
}

func (s *wsSink) Deliver(snap Snapshot) error {
	if !s.sent || snap.Matrix != s.lastMap {
		if err := s.write(protocol.NewMapMessage(snap.Matrix)); err != nil {
			return err
		}
		s.sent = true
		s.lastMap = snap.Matrix
	}
	u := snap.Update
	return s.write(&u)
}

func (s *wsSink) write(m protocol.Message) error {
	line, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(line, "\n")); err != nil {
		return fmt.Errorf("write %s: %w", m.MessageType(), err)
	}
	return nil
}
