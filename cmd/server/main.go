package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"lexconsul-backend/internal/config"
	"lexconsul-backend/internal/database"
	"lexconsul-backend/internal/handlers"
	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/navigation"
	"lexconsul-backend/internal/repository"
	"lexconsul-backend/internal/router"
	"lexconsul-backend/internal/services"
	"lexconsul-backend/internal/session"
	"lexconsul-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting LexConsul Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Redis Clients (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(cfg.RedisURL, cfg.StoreBackend == "redis")
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		log.Println("✓ Redis connected")
	}

	// ──── Step 3: Open Persistence Backend ────
	kv, err := openKV(cfg, redisClients)
	if err != nil {
		log.Fatalf("✗ Store backend %q failed: %v", cfg.StoreBackend, err)
	}
	sealer, err := repository.NewSealer(cfg.StoreEncryptionKey)
	if err != nil {
		log.Fatalf("✗ Store encryption key invalid: %v", err)
	}
	store := repository.NewStore(kv, sealer)
	defer store.Close()
	if cfg.StoreEncryptionKey != "" {
		log.Printf("✓ Store ready (%s, sealed)", cfg.StoreBackend)
	} else {
		log.Printf("✓ Store ready (%s)", cfg.StoreBackend)
	}

	// ──── Step 4: Initialize Gemini Client ────
	generator, err := services.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, cfg.GeminiRequestsPerMin)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer generator.Close()
	log.Printf("✓ Gemini client initialized (chat: %s, suggestions: %s)", cfg.GeminiChatModel, cfg.GeminiSuggestModel)

	// ──── Initialize Services ────
	advisory := services.NewAdvisoryService(generator, services.AdvisoryConfig{
		ChatModel:    cfg.GeminiChatModel,
		SuggestModel: cfg.GeminiSuggestModel,
		Timeout:      cfg.AdvisoryTimeout,
	})
	alerts, err := services.NewAlertCatalogue()
	if err != nil {
		log.Fatalf("✗ Alert catalogue invalid: %v", err)
	}
	searchService := services.NewSearchService(store, advisory)
	fileExtractService := services.NewFileExtractService(cfg.MaxUploadMB)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	// ──── Step 5: Start WebSocket Hub ────
	var pubsubClient *redis.Client
	if redisClients != nil {
		pubsubClient = redisClients.PubSub
	}
	wsHub := websocket.NewHub(pubsubClient, jwtAuth)
	defer wsHub.Close()
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Session Registry & Navigation ────
	nav := navigation.NewManager()
	registry := session.NewRegistry(store, advisory, nav.Online, wsHub)
	nav.OnCloseSpecialty(registry.CancelSurface)

	janitorCtx, stopJanitors := context.WithCancel(context.Background())
	defer stopJanitors()
	go registry.RunJanitor(janitorCtx, cfg.SurfaceIdleTTL/2, cfg.SurfaceIdleTTL)
	go nav.RunJanitor(janitorCtx, cfg.SurfaceIdleTTL/2, cfg.SurfaceIdleTTL)
	log.Printf("✓ Idle surfaces swept after %s", cfg.SurfaceIdleTTL)

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Device:     handlers.NewDeviceHandler(jwtAuth),
		Navigation: handlers.NewNavigationHandler(nav, store, alerts),
		Chat:       handlers.NewChatHandler(registry, store),
		Settings:   handlers.NewSettingsHandler(store, alerts),
		Search:     handlers.NewSearchHandler(searchService, nav),
		Analysis:   handlers.NewAnalysisHandler(registry, fileExtractService),
	}

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, h, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Chat and analysis requests block on the advisory call.
		WriteTimeout: cfg.AdvisoryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ LexConsul Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
