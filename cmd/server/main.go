package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"

	"github.com/pilothq/sessiondock/internal/api"
	"github.com/pilothq/sessiondock/internal/artifacts"
	"github.com/pilothq/sessiondock/internal/config"
	"github.com/pilothq/sessiondock/internal/provision"
	"github.com/pilothq/sessiondock/internal/ratelimit"
	"github.com/pilothq/sessiondock/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Starting sessiondock...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.HasCredentials() {
		log.Println("⚠ Provisioning credentials not set; session creation will fail until they are")
	}
	log.Println("✓ Config loaded")

	// The playwright driver is installed once and shared by every
	// session's CDP connection.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		log.Fatalf("Failed to install playwright driver: %v", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		log.Fatalf("Failed to start playwright driver: %v", err)
	}
	log.Println("✓ Automation engine ready")

	store := artifacts.NewStore()
	factory := provision.NewClient(pw)
	mgr := session.NewManager(factory, store, cfg.MaxSessions)
	log.Printf("✓ Session manager initialized (default id %s, max %d sessions)", mgr.DefaultID(), cfg.MaxSessions)

	limiter := ratelimit.NewLimiter(60, 10)
	handler := api.NewHandler(mgr, store, cfg)
	router := handler.SetupRoutes(limiter)
	log.Println("✓ HTTP routes configured")

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	mgr.Shutdown(ctx)

	if err := pw.Stop(); err != nil {
		log.Printf("Engine stop: %v", err)
	}

	log.Println("✓ Stopped cleanly")
}
