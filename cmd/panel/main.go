package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/solidhost/panel/internal/panel/app"
)

func main() {
	// Best effort: a missing .env just means config comes from the real
	// environment.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
