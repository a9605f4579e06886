// PropiedadesArquisis web frontend
//
// This is the main entry point for the property-browsing frontend.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/g11-iic2173/frontend-iic2173-g11/config"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/backend"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/purchase"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/session"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/web"
)

func main() {
	log.Println("Starting PropiedadesArquisis frontend...")

	// Load configuration (.env is optional)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.Load()
	log.Printf("Configuration loaded: Port=%s, BackendURL=%s", cfg.Server.Port, cfg.Backend.BaseURL)

	// Validate required configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.AuthURL, cfg.Backend.Timeout)
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.CookieName, cfg.Session.MaxAge)

	// Service Layer
	purchaseService := purchase.NewService(client)

	// View Layer
	handler := web.NewHandler(
		client, // implements domain.AuthClient
		client, // implements domain.PropertyClient
		client, // implements domain.WalletClient
		purchaseService,
		sessions,
	)
	router := web.SetupRouter(handler, sessions, cfg.Server.GinMode)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

// validateConfig checks that required configuration values are set.
func validateConfig(cfg *config.Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.Session.Secret == "" {
		log.Println("Warning: SESSION_SECRET not set, sessions reset on restart")
	}
	return nil
}
