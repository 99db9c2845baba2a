// cmd/api/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MereWhiplash/doctor-finder/internal/api"
	"github.com/MereWhiplash/doctor-finder/internal/app"
	"github.com/MereWhiplash/doctor-finder/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	var cfg config.Config
	cfg.RegisterFlags(flag.CommandLine)

	// Server flags
	addr := flag.String("addr", config.Env("DF_ADDR", ":8080"), "Server address")

	// Rate limiting flags
	rateLimit := flag.Int("rate-limit", config.EnvInt("DF_RATE_LIMIT", 100), "Requests per minute per IP (0 to disable)")

	// CORS flags
	corsOrigins := flag.String("cors-origins", config.Env("DF_CORS_ORIGINS", ""), "Comma-separated list of allowed CORS origins (empty to disable)")

	// Metrics flags
	enableMetrics := flag.Bool("metrics", config.EnvBool("DF_METRICS", true), "Expose Prometheus metrics on /metrics")

	flag.Parse()

	logger := slog.New(api.NewLogHandler(config.NewHandler(os.Stderr, cfg.LogFormat, cfg.LogLevel)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Embeds the whole roster; the server does not start until this succeeds
	a, err := app.Start(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	var metrics *api.Metrics
	if *enableMetrics {
		metrics = api.NewMetrics()
	}

	handlers := api.NewHandlers(a.Service, metrics, logger)

	// Setup router
	r := chi.NewRouter()

	// Core middleware
	r.Use(api.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(api.MaxBodySize)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}

	// Rate limiting (if enabled)
	if *rateLimit > 0 {
		limiter := api.NewRateLimiter(*rateLimit, time.Minute)
		r.Use(limiter.Middleware)
	}

	// CORS (if enabled)
	if *corsOrigins != "" {
		origins := strings.Split(*corsOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		r.Use(api.CORSMiddleware(origins))
	}

	api.Routes(r, handlers, metrics)

	// Create server
	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	go func() {
		<-ctx.Done()

		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}

		close(done)
	}()

	// Start server
	logger.Info("starting API server", "addr", *addr, "doctors", a.Service.Size())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	<-done
	fmt.Println("Server stopped")
}
