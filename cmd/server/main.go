// Package main provides the HTTP API server for the course eligibility engine.
// It serves the quiz, eligibility checks and ranked recommendations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/app"
	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/handlers"
	"course-eligibility-engine/internal/utils"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start application", zap.Error(err))
	}
	defer application.Close()

	server := &Server{
		matcher: application.Matcher,
		health:  handlers.NewHealthHandlerFromApp(application),
		logger:  utils.Component(logger, "server"),
	}
	if runs := application.Results(); runs != nil {
		server.runs = runs
	}

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Course Eligibility Engine API Server",
		zap.String("addr", addr),
		zap.String("health", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
