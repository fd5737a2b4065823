package spectator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"golang.org/x/sync/errgroup"
)

// WSPath is where the WebSocket spectator endpoint is mounted.
const WSPath = "/spectate"

const shutdownGrace = 5 * time.Second

// ServeOptions selects the spectator front ends. An empty address disables
// that front end.
type ServeOptions struct {
	SSHAddr     string
	HostKeyPath string
	WSAddr      string
}

// Serve runs the enabled front ends on hub until ctx is cancelled.
func Serve(ctx context.Context, hub *Hub, opts ServeOptions, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	g, ctx := errgroup.WithContext(ctx)

	if opts.SSHAddr != "" {
		s, err := NewSSHServer(opts.SSHAddr, opts.HostKeyPath, hub, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			logger.Info("ssh spectators", "addr", opts.SSHAddr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				return fmt.Errorf("ssh spectators: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return shutdown(s.Shutdown)
		})
	}

	if opts.WSAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(WSPath, NewWSHandler(hub, logger))
		s := &http.Server{Addr: opts.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			logger.Info("websocket spectators", "addr", opts.WSAddr, "path", WSPath)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket spectators: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return shutdown(s.Shutdown)
		})
	}

	return g.Wait()
}

func shutdown(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := fn(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
