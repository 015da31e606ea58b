package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/nammaspot/parkgo/docs"
	"github.com/nammaspot/parkgo/internal/app"
	"github.com/nammaspot/parkgo/internal/config"
	"github.com/nammaspot/parkgo/internal/logger"
)

// @title ParkGo API
// @version 1.0
// @description Parking slot reservation: selection, payment, tickets and gate verification.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey OperatorJWT
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
