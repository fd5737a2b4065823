package server

import (
	"context"
	"fmt"
	"net"

	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/protocol"
)

// Serve accepts player connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info("listening", "addr", ln.Addr(), "wire", s.wire)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(conn)
	}
}

// serveConn binds one connection to a client handle. The handle's pump is
// the only writer; this goroutine is the only reader.
func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	h, err := s.RegisterClient(remote)
	if err != nil {
		s.logger.Warn("rejecting client", "remote", remote, "err", err)
		conn.Close()
		return
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		if err := h.Pump(conn); err != nil {
			s.logger.Debug("write failed", "id", h.ID, "err", err)
		}
		conn.Close()
	}()

	err = network.ReadCommands(conn, s.wire,
		func(cmd protocol.Command) { s.SendCommand(h.ID, cmd) },
		func(text string, err error) { s.logger.Debug("bad command", "id", h.ID, "text", text, "err", err) },
	)
	s.logger.Debug("read ended", "id", h.ID, "err", err)

	h.Close()
	<-pumped
	s.UnregisterClient(h.ID)
}
