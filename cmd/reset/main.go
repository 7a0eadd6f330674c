package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tweestoelen/internal/app"
	"tweestoelen/internal/config"
	"tweestoelen/internal/logger"
)

// reset wipes every photo record and blob. It refuses to run without
// RESET_CONFIRM=yes.
func main() {
	_ = godotenv.Load()

	if os.Getenv("RESET_CONFIRM") != "yes" {
		log.Fatal("refusing to reset: set RESET_CONFIRM=yes")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	l := logger.Init(cfg.AppEnv)

	backend, err := app.Connect(cfg, l, nil)
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := backend.Service.Reset(ctx); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	log.Printf("reset completed: backend=%s storage=%s bucket=%s", cfg.Backend, cfg.StorageType, cfg.StorageBucket)
}
