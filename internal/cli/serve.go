package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"notra-backend/internal/chatui"
	"notra-backend/internal/config"
	"notra-backend/internal/handlers"
	"notra-backend/internal/router"
	"notra-backend/internal/services"
)

type serveOptions struct {
	Port string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat bridge and web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "override PORT")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	log.Println("🚀 Starting Notra Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	log.Printf("✓ Environment variables loaded (env=%s)", cfg.Env)
	if cfg.IsProduction() && cfg.FrontendURL == "*" {
		log.Println("WARNING: FRONTEND_URL is \"*\" in production, any origin may call the API")
	}

	// ──── Step 2: Initialize Providers ────
	registry, err := services.NewRegistry(cfg)
	if err != nil {
		return fmt.Errorf("provider initialization failed: %w", err)
	}
	defer registry.Close()

	for _, p := range registry.List() {
		if err := p.Validate(); err != nil {
			log.Printf("✗ %s (%s) unavailable: %v", p.ID(), p.UpstreamModel(), err)
			continue
		}
		log.Printf("✓ %s → %s (streaming=%t)", p.ID(), p.UpstreamModel(), p.SupportsIncrementalStreaming())
	}
	log.Printf("✓ Default provider: %s", registry.Default().ID())

	// ──── Step 3: Start HTTP Server ────
	chatHandler := handlers.NewChatHandler(registry, cfg.UpstreamTimeout)
	r := router.New(chatHandler, chatui.Handler(), cfg.FrontendURL)

	// Streamed answers may run up to the upstream timeout.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// Graceful shutdown
	var wg conc.WaitGroup
	wg.Go(func() {
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("✗ Shutdown: %v", err)
		}
	})

	log.Printf("✓ Notra ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/chat", cfg.Port)

	err = server.ListenAndServe()
	stop()
	wg.Wait()

	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
