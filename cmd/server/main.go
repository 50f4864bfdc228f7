package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/config"
	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/room"
	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	hub := ws.NewHub(cfg.OriginAllowlist, logger.Named("ws"))
	rooms := room.NewRegistry(cfg.Rules.RoomOptions(), hub, logger.Named("registry"))
	hub.Bind(rooms)

	e := ws.NewServer(hub, cfg.OriginAllowlist, logger.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("rules", cfg.RulesFile))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	rooms.Close()
}
