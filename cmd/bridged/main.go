// Package main runs the bridge daemon: the witness relay engines, the
// settlement payment service and the REST API that fronts them.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/salvi-network/salvi-bridge/internal/app/runtime"
)

func main() {
	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	app, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("bridge init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("bridge run failed: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Printf("bridge shutdown: %v", err)
	}
}
