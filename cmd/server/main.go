package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/healthgrid/govai/internal/config"
	"github.com/healthgrid/govai/internal/server"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg := config.LoadOrDefault(cfgPath)

	srv, err := server.NewServer(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to initialize server", zap.Error(err))
	}

	r := srv.SetupRouter()
	log.Info("starting server", zap.String("port", cfg.Server.Port), zap.String("provider", cfg.LLM.Provider))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
