// cmd/shim/main.go
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/doctor-finder/internal/client"
	"github.com/MereWhiplash/doctor-finder/internal/config"
	"github.com/MereWhiplash/doctor-finder/internal/tools"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	apiURL := flag.String("api-url", config.Env("DF_API_URL", ""), "Doctor finder API URL (required)")
	flag.Parse()

	if *apiURL == "" {
		log.Fatal("API URL required: use --api-url or DF_API_URL environment variable")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Create API client
	apiClient := client.New(*apiURL)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	if health, err := apiClient.Health(healthCtx); err != nil {
		logger.Warn("API not reachable yet", "url", *apiURL, "error", err)
	} else {
		logger.Info("connected to API", "url", *apiURL, "doctors", health.Doctors)
	}
	healthCancel()

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "doctor-finder",
		Version: "1.0.0",
	}, nil)

	// Register tools
	tools.Register(server, apiClient)

	// Start server with stdio transport
	logger.Info("starting doctor finder shim")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}
