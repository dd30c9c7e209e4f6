package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/server"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatrelay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	config, err := server.LoadConfig()
	if err != nil {
		return exitConfig, err
	}

	logging.InitLogger(config.Log.Level, config.Log.Format)
	logger := logging.Logger

	hub := chat.NewHub(logger)
	mux := server.SetupRoutes(server.NewHandlers(hub, config, logger))
	httpServer := server.CreateServer(config.Port, mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
		return exitOK, nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	code := exitOK
	if err := server.ShutdownServer(httpServer, config.ShutdownTimeout); err != nil {
		code = exitRuntime
	}
	if err := hub.Shutdown(config.ShutdownTimeout); err != nil {
		return exitRuntime, fmt.Errorf("hub shutdown: %w", err)
	}
	return code, nil
}
