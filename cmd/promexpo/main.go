package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vvikramc/promexpo/internal/config"
	"github.com/vvikramc/promexpo/internal/logging"
	"github.com/vvikramc/promexpo/pkg/api"
	"github.com/vvikramc/promexpo/pkg/storage"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting promexpo",
		zap.String("version", version),
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("storage_path", cfg.Storage.Path),
		zap.Bool("wal", cfg.Storage.EnableWAL))

	// Opening the store also replays any WAL left by an unclean shutdown.
	store, err := storage.NewStorage(cfg.ToStorageConfig())
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	server := api.NewServer(cfg.Server.ListenAddr, store, logger)

	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
