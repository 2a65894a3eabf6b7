package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/docqa-assistant/internal/adapters/cli"
	"github.com/kirillkom/docqa-assistant/internal/bootstrap"
	"github.com/kirillkom/docqa-assistant/internal/config"
	"github.com/kirillkom/docqa-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// Interactive runs keep stdout for answers.
	logger := logging.NewTextLogger("docqa", cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "docqa", logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cli.Deps{
		Sessions: app.Sessions,
		Admin:    app.Translation,
		Validate: cfg.Validate,
	})
	root.SetOut(os.Stdout)
	err = root.ExecuteContext(ctx)
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
