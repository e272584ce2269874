package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"gemini-relay/internal/config"
	"gemini-relay/internal/handlers"
	"gemini-relay/internal/logging"
	"gemini-relay/internal/metrics"
	"gemini-relay/internal/router"
	"gemini-relay/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	logger.Info().Str("env", cfg.Env).Msg("✓ Environment variables loaded")

	if !cfg.HasGeminiKey() {
		logger.Warn().Msg("⚠ GEMINI_API_KEY is not set; /api/chat will answer 500 until it is configured in .env")
	}

	// ──── Step 2: Tracing & Metrics ────
	shutdownTracing, err := metrics.InitTracing(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Tracing initialization failed")
	}
	m := metrics.New()

	// ──── Step 3: Initialize Gemini Client ────
	settings := services.DefaultSettings(cfg.GeminiModel)
	var generator services.Generator = services.NewGeminiService(nil, cfg.GeminiBaseURL, cfg.GeminiAPIKey, settings)

	if cfg.GeminiTransport == config.TransportSDK && cfg.HasGeminiKey() {
		var opts []option.ClientOption
		if cfg.GeminiSDKEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GeminiSDKEndpoint))
		}
		sdk, err := services.NewGeminiSDKService(context.Background(), cfg.GeminiAPIKey, settings, opts...)
		if err != nil {
			logger.Fatal().Err(err).Msg("✗ Gemini client initialization failed")
		}
		defer sdk.Close()
		generator = sdk
	}
	logger.Info().Str("transport", cfg.GeminiTransport).Msg("✓ Gemini client initialized")

	// ──── Step 4: Start HTTP Server ────
	r := router.New(
		handlers.NewChatHandler(cfg, generator, m, logger),
		handlers.NewHealthHandler(cfg),
		m,
		cfg.StaticDir,
		logger,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	drained := make(chan struct{})
	go func() {
		defer close(drained)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Msgf("✅ Server started: http://localhost:%d", cfg.Port)
	logger.Info().Msgf("🤖 Model: %s", cfg.GeminiModel)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("Server error")
	}
	<-drained

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		logger.Error().Err(err).Msg("tracing shutdown failed")
	}
}
