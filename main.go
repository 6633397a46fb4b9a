package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soocke/gamewatch-go/app"
	"github.com/soocke/gamewatch-go/config"
	"github.com/soocke/gamewatch-go/debug"
)

func main() {
	configPath := flag.String("config", "", "runtime config file (defaults to the per-user location)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		NewLogger(slog.LevelInfo).Error("config load failed", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	if cfg.Debug {
		debug.StartRuntimeLogger(10*time.Second, logger)
		debug.StartRSSLogger(10*time.Second, logger)
	}

	container, err := app.BuildContainer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := app.NewRunner(container).Run(ctx); err != nil {
		logger.Error("observation aborted", "error", err)
		os.Exit(1)
	}
}
