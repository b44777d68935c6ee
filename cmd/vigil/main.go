package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/vigil-dev/vigil/db"
	"github.com/vigil-dev/vigil/internal/auth"
	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/engine"
	"github.com/vigil-dev/vigil/internal/handlers"
	"github.com/vigil-dev/vigil/internal/live"
	"github.com/vigil-dev/vigil/internal/logging"
	"github.com/vigil-dev/vigil/internal/notify"
	"github.com/vigil-dev/vigil/internal/router"
	"github.com/vigil-dev/vigil/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT: %v", err)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.CronSecret == "" {
		log.Fatal("CRON_SECRET is not set")
	}

	st := store.New(db.DB)
	dispatcher := notify.NewDispatcher(cfg, logger)
	coordinator := engine.NewCoordinator(st, engine.NewProber(), dispatcher, logger, cfg.Engine.Concurrency)
	coordinator.Broadcast = live.BroadcastRefresh

	handlers.Store = st
	handlers.MinInterval = cfg.MinInterval
	handlers.InitCron(coordinator, cfg.CronSecret, cfg.Engine.TriggerTimeout())

	r := router.NewRouter()

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
