package main

import (
	"os"
	"os/signal"
	"syscall"

	"ledger-service/internal/config"
	"ledger-service/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on system env vars")
	}

	cfg := config.Load()

	errCh := make(chan error, 1)
	go func() {
		// Blocks until the server exits.
		server.NewLedgerRestServer(cfg, logger)
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("ledger service shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Fatal("ledger service failed", zap.Error(err))
		}
	}
}
