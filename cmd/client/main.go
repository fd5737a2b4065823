package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tomz197/platformer/internal/config"
	"github.com/tomz197/platformer/internal/input"
	"github.com/tomz197/platformer/internal/loop/client"
	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/spectator"
	"github.com/tomz197/platformer/internal/world"
)

const (
	defaultAddr    = "127.0.0.1:5000"
	defaultLogFile = "platformer-client.log"
)

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	addr := config.GetEnv("PLATFORMER_ADDR", defaultAddr)
	wire, err := network.ParseWire(config.GetEnv("PLATFORMER_WIRE", "json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the game; logs go to a file.
	logFile, err := os.OpenFile(config.GetEnv("PLATFORMER_LOG_FILE", defaultLogFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := config.NewLogger(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := network.Dial(ctx, addr, wire, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach host: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}

	c := client.NewClient(client.ClientOptions{
		Map:    world.DefaultMap(),
		Seed:   time.Now().UnixNano(),
		Uplink: conn,
		Out:    os.Stdout,
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Losing the host is not fatal; the client keeps playing offline.
		if err := conn.Run(gctx, c); err != nil {
			logger.Warn("host link lost", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return c.Run(gctx, input.StartStream(bufio.NewReader(os.Stdin)))
	})
	g.Go(func() error {
		return spectator.Serve(gctx, c.Hub(), spectator.ServeOptions{
			SSHAddr:     config.GetEnv("SPECTATOR_SSH_ADDR", ""),
			HostKeyPath: config.GetEnv("SSH_HOST_KEY", ""),
			WSAddr:      config.GetEnv("SPECTATOR_WS_ADDR", ""),
		}, logger)
	})

	err = g.Wait()
	_ = term.Restore(fd, oldState)
	if err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}
