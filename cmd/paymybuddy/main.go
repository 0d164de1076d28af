package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Evgen-Mutagen/paymybuddy/internal/app"
	"github.com/Evgen-Mutagen/paymybuddy/internal/util/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := app.NewConfigFromFlags()

	if err := logger.Init(cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	logger.Log.Info("Connecting to database and applying migrations...")
	application, err := app.New(cfg, logger.Log)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Server stopped")
}
