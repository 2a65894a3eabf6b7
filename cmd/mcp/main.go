package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/docqa-assistant/internal/adapters/mcp"
	"github.com/kirillkom/docqa-assistant/internal/bootstrap"
	"github.com/kirillkom/docqa-assistant/internal/config"
	"github.com/kirillkom/docqa-assistant/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg := config.Load()
	// stdout carries the protocol, so logs go to stderr.
	logger := logging.NewTextLogger(serviceName, cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.Sessions, app.Translation, logger)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
