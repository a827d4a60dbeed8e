package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/database"
	"chatrelay/internal/handlers"
	"chatrelay/internal/logging"
	"chatrelay/internal/metrics"
	"chatrelay/internal/middleware"
	"chatrelay/internal/repository"
	"chatrelay/internal/router"
	"chatrelay/internal/selector"
	"chatrelay/internal/services"
	"chatrelay/internal/websocket"
	"chatrelay/migrations"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.Init(os.Stderr, cfg.LogLevel)
	logging.Info("🚀 Starting chat relay...")
	logging.Info("✓ Environment variables loaded", "env", cfg.Env)

	mode, err := selector.ParseMode(cfg.Mode)
	if err != nil {
		logging.Fatal("✗ Invalid CHAT_MODE", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize Model Backend ────
	var backend services.Backend
	switch cfg.Backend {
	case "huggingface":
		backend = services.NewHuggingFaceClient(cfg.HFAPIToken, cfg.ProbeInput, &http.Client{})
	case "gemini":
		geminiService, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ProbeInput)
		if err != nil {
			logging.Fatal("✗ Gemini client initialization failed", "err", err)
		}
		defer geminiService.Close()
		backend = geminiService
	default:
		logging.Fatal("✗ Unknown CHAT_BACKEND", "backend", cfg.Backend)
	}
	logging.Info("✓ Model backend initialized", "backend", backend.Name(), "candidates", len(cfg.Candidates()))

	// ──── Step 3: Optional Redis ────
	var bus services.EventBus = services.NewLocalEventBus()
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logging.Fatal("✗ Redis connection failed", "err", err)
		}
		defer redisClient.Close()
		bus = services.NewRedisEventBus(redisClient)
		logging.Info("✓ Redis connected; endpoint events are shared")
	}

	// ──── Step 4: Optional PostgreSQL ────
	var (
		store  services.ProbeStore
		probes handlers.ProbeLister
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal("✗ PostgreSQL connection failed", "err", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
			logging.Fatal("✗ Database migration failed", "err", err)
		}
		probeRepo := repository.NewProbeRepo(pool)
		store = probeRepo
		probes = probeRepo
		logging.Info("✓ PostgreSQL connected; probe history enabled")
	}

	// ──── Step 5: Endpoint Selector ────
	recorder := metrics.NewRecorder()
	monitor := services.NewEndpointMonitor(store, bus, recorder)
	sel, err := selector.New(mode, cfg.Candidates(), backend,
		selector.WithProbeTimeout(cfg.ProbeTimeout),
		selector.WithObserver(monitor),
	)
	if err != nil {
		logging.Fatal("✗ Endpoint selector initialization failed", "err", err)
	}
	chatService := services.NewChatService(backend, sel, cfg.ChatTimeout, recorder)

	if mode == selector.ModeStatic {
		endpoint, err := sel.Resolve(ctx)
		switch {
		case err == nil:
			logging.Info("✓ Endpoint selected at startup", "model", chatService.Status().Model, "endpoint", endpoint)
		case errors.Is(err, selector.ErrNoneAvailable):
			logging.Warn("✗ No endpoint answered at startup; replies will report unavailability until reprobed")
		default:
			logging.Fatal("✗ Startup probing aborted", "err", err)
		}
	}
	logging.Info("✓ Endpoint selector ready", "mode", mode)

	// ──── Step 6: Handlers and WebSocket Hub ────
	chatHandler := handlers.NewChatHandler(chatService)

	var (
		jwtAuth      *middleware.JWTAuth
		adminHandler *handlers.AdminHandler
	)
	if cfg.JWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
		adminHandler = handlers.NewAdminHandler(chatService, probes)
		logging.Info("✓ Admin routes enabled")
	}

	var chatLimiter *middleware.RateLimiter
	if cfg.ChatRatePerMinute > 0 {
		chatLimiter = middleware.NewRateLimiter(cfg.ChatRatePerMinute, time.Minute)
		defer chatLimiter.Stop()
	}

	wsHub := websocket.NewHub(chatService, bus, chatLimiter)
	if err := wsHub.Start(ctx); err != nil {
		logging.Fatal("✗ WebSocket hub failed to subscribe to endpoint events", "err", err)
	}
	logging.Info("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, chatLimiter, chatHandler, adminHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A lazy turn may wait on a full probe cycle, so responses are
		// bounded by PROBE_TIMEOUT and CHAT_TIMEOUT instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Hijacked WebSocket connections are not tracked by Shutdown.
	server.RegisterOnShutdown(wsHub.Close)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logging.Fatal("✗ Failed to listen", "addr", server.Addr, "err", err)
	}

	logging.Info(fmt.Sprintf("✓ Chat relay ready on http://localhost:%s", cfg.Port))
	logging.Info(fmt.Sprintf("  API: http://localhost:%s/api/v1", cfg.Port))
	logging.Info(fmt.Sprintf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port))

	if err := serve(ctx, server, ln, shutdownTimeout); err != nil {
		logging.Error("Server error", "err", err)
	}
	monitor.Close()
	logging.Info("✓ Shutdown complete")
}
