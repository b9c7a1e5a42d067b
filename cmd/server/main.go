package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"careconnect-backend/internal/config"
	"careconnect-backend/internal/database"
	"careconnect-backend/internal/router"
	"careconnect-backend/internal/services"
	"careconnect-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	logger.Info("🚀 Starting CareConnect Backend...")
	logger.Info("✓ Environment variables loaded", zap.String("env", cfg.Env), zap.String("model", cfg.ModelName))

	ctx := context.Background()

	// ──── Step 2: Initialize Gemini Client ────
	// Without it the server still starts; chat connections are told the
	// service is unavailable.
	var generator websocket.Generator
	geminiService, err := services.NewGeminiService(ctx, cfg, logger)
	if err != nil {
		logger.Error("✗ Gemini client initialization failed, chat unavailable", zap.Error(err))
	} else {
		defer geminiService.Close()
		generator = geminiService
		logger.Info("✓ Gemini client initialized")
	}

	// ──── Step 3: Initialize Session Events (optional Redis) ────
	var events services.EventPublisher = services.NopEventPublisher{}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("✗ Redis connection failed, session events disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			events = services.NewRedisEventPublisher(redisClient, cfg.EventsChannel, logger)
			logger.Info("✓ Redis connected", zap.String("channel", cfg.EventsChannel))
		}
	}

	// ──── Step 4: Start WebSocket Hub ────
	hub := websocket.NewHub(logger)
	chatHandler := websocket.NewChatHandler(generator, hub, events, cfg, logger)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(chatHandler, cfg.AllowedOrigins, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := hub.Shutdown(ctx); err != nil {
			logger.Warn("WebSocket connections did not close in time", zap.Error(err))
		}
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("HTTP server shutdown failed", zap.Error(err))
		}
		close(idle)
	}()

	logger.Info(fmt.Sprintf("✓ CareConnect Backend ready on http://localhost:%s", cfg.Port))
	logger.Info(fmt.Sprintf("  WS:  ws://localhost:%s%s", cfg.Port, router.ChatPath))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}
	<-idle
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
