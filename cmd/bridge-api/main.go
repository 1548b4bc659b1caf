package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewdesk/bridge-api/internal/bridge"
	"github.com/crewdesk/bridge-api/internal/config"
	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/events"
	"github.com/crewdesk/bridge-api/internal/handlers"
	authmw "github.com/crewdesk/bridge-api/internal/middleware"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/crewdesk/bridge-api/internal/tools"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	apiKeyService := services.NewAPIKeyService(db, cfg.RateLimitWindow, cfg.RateLimitMax)
	usageService := services.NewUsageService(db)

	hub := events.NewHub()
	go hub.Run()

	registry := tools.NewRegistry()
	registerBuiltinTools(registry, cfg.BridgeURL)

	toolsHandler := handlers.NewToolsHandler(apiKeyService, userService, usageService, registry, hub)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService, hub)
	usageHandler := handlers.NewUsageHandler(usageService)
	eventsHandler := handlers.NewEventsHandler(hub)
	bridgeStatusHandler := handlers.NewBridgeStatusHandler(cfg.BridgeURL)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	// machine surface: bearer API key, validated inside the handler
	api.Post("/tools", toolsHandler.Execute)

	// operator surface: JWT sessions minted by the companion web app
	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Get("/keys", apiKeyHandler.List)
	protected.Post("/keys", apiKeyHandler.Create)
	protected.Delete("/keys/:keyId", apiKeyHandler.Revoke)

	protected.Get("/usage", usageHandler.List)
	protected.Get("/events", eventsHandler.Connect)
	protected.Get("/bridge/status", bridgeStatusHandler.Status)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

func registerBuiltinTools(registry *tools.Registry, bridgeURL string) {
	registry.Register("ping", "", func(ctx context.Context, inv tools.Invocation) (any, error) {
		return map[string]any{"pong": true, "time": time.Now().UTC().Format(time.RFC3339)}, nil
	})

	registry.Register("bridge.status", "read", func(ctx context.Context, inv tools.Invocation) (any, error) {
		return map[string]any{
			"url":       bridgeURL,
			"reachable": bridge.DetectBridge(ctx, bridgeURL),
		}, nil
	})
}
