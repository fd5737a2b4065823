package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomz197/platformer/internal/config"
	loopcfg "github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/loop/server"
	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/spectator"
	"github.com/tomz197/platformer/internal/world"
)

const defaultAddr = "127.0.0.1:5000"

func main() {
	logger := config.NewLogger(os.Stderr)
	if err := config.Load(); err != nil {
		logger.Fatal("failed to load .env", "err", err)
	}
	logger = config.NewLogger(os.Stderr)

	addr := config.GetEnv("PLATFORMER_ADDR", defaultAddr)
	wire, err := network.ParseWire(config.GetEnv("PLATFORMER_WIRE", "json"))
	if err != nil {
		logger.Fatal("bad wire", "err", err)
	}
	layout := world.DefaultMap()
	if path := config.GetEnv("PLATFORMER_MAP", ""); path != "" {
		if layout, err = readLayout(path); err != nil {
			logger.Fatal("bad map", "path", path, "err", err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("listen", "addr", addr, "err", err)
	}

	hub := spectator.NewHub(loopcfg.MaxSpectators, logger)
	srv := server.NewServer(server.Options{
		Map:    layout,
		Seed:   time.Now().UnixNano(),
		Wire:   wire,
		Hub:    hub,
		Logger: logger,
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancelRun := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		srv.Run(gctx)
		return nil
	})
	g.Go(func() error { return srv.Serve(gctx, ln) })
	g.Go(func() error {
		return spectator.Serve(gctx, hub, spectator.ServeOptions{
			SSHAddr:     config.GetEnv("SPECTATOR_SSH_ADDR", ""),
			HostKeyPath: config.GetEnv("SSH_HOST_KEY", ""),
			WSAddr:      config.GetEnv("SPECTATOR_WS_ADDR", ""),
		}, logger)
	})

	select {
	case <-sigCtx.Done():
	case <-gctx.Done():
	}
	logger.Info("shutting down", "clients", srv.Clients())

	// Notify players and wait for them to disconnect
	srv.Shutdown(config.GetEnvDuration("SHUTDOWN_TIMEOUT", loopcfg.ShutdownTimeout))
	cancelRun()
	hub.Close()

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("server stopped")
}

func readLayout(path string) (world.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return world.Matrix{}, err
	}
	defer f.Close()
	return world.ReadLayout(f)
}
