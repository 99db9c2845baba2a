package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/doctor-finder/internal/app"
	"github.com/MereWhiplash/doctor-finder/internal/config"
	"github.com/MereWhiplash/doctor-finder/internal/tools"
)

// version is set by goreleaser via ldflags
var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	var cfg config.Config
	cfg.RegisterFlags(flag.CommandLine)
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("df-server %s\n", version)
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr
	logger := slog.New(config.NewHandler(os.Stderr, cfg.LogFormat, cfg.LogLevel))
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Start(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "doctor-finder",
		Version: version,
	}, nil)

	// Register tools
	tools.Register(server, a.Service)

	// Start server with stdio transport
	logger.Info("starting doctor finder MCP server", "doctors", a.Service.Size())
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}
