package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zroster/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zroster"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := cli.LoadConfig(cli.DefaultEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zroster: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := cli.New(cfg, version).Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "zroster: %v\n", err)
		}
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}
