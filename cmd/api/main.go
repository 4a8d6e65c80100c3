package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kbsnetwork/server/internal/auth"
	"github.com/kbsnetwork/server/internal/config"
	"github.com/kbsnetwork/server/internal/db"
	httphandler "github.com/kbsnetwork/server/internal/http"
	"github.com/kbsnetwork/server/internal/http/handlers"
	"github.com/kbsnetwork/server/internal/repo"
	"github.com/pressly/goose/v3"
	_ "github.com/lib/pq"
)

// sessionSweepInterval is how often expired session rows are removed. The
// auth gate rejects stale sessions on its own, so the cadence only bounds
// table growth.
const sessionSweepInterval = time.Hour

func main() {
	// Load .env from CWD (env vars override)
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context for startup operations
	ctx := context.Background()

	// Open database connection
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	contactRepo := repo.NewContactRepo(database)
	adminRepo := repo.NewAdminRepo(database)
	sessionRepo := repo.NewSessionRepo(database)

	// Initialize auth service and bootstrap the default admin account
	authService := auth.NewAuthService(adminRepo, sessionRepo)
	if err := authService.EnsureDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure default admin: %v", err)
	}

	// Initialize handlers
	contactsHandler := handlers.NewContactsHandler(contactRepo)
	authHandler := handlers.NewAuthHandler(authService, cfg.IsProduction())
	adminHandler := handlers.NewAdminHandler(contactRepo)

	// Create router
	router := httphandler.NewRouter(contactsHandler, authHandler, adminHandler, sessionRepo, adminRepo)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Sweep expired sessions in the background
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, authService)

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// sweepSessions periodically removes expired session rows.
func sweepSessions(ctx context.Context, authService *auth.AuthService) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.SweepExpiredSessions(ctx); err != nil {
				log.Printf("Session sweep failed: %v", err)
			}
		}
	}
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// Resolve migration dir so it works from the module root or repo root
	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		migrationDir = "server/internal/db/migrations"
	}
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}

	absDir, _ := filepath.Abs(migrationDir)
	log.Printf("Running migrations from %s", absDir)

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
