package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notra-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("✗ %v", err)
		stop()
		os.Exit(1)
	}
}
