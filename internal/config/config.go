// Package config collects the settings shared by every binary.
// Values come from flags, falling back to DF_* environment variables,
// which may in turn be loaded from a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/MereWhiplash/doctor-finder/internal/embedder"
	"github.com/MereWhiplash/doctor-finder/internal/roster"
	"github.com/MereWhiplash/doctor-finder/internal/storage"
)

// Config holds the roster, embedder and cache settings
type Config struct {
	RosterPath  string
	RosterSheet string
	Workers     int

	Embedder embedder.Config
	// Storage.Driver empty disables the embedding cache
	Storage storage.Config

	LogLevel  string
	LogFormat string
}

// LoadDotEnv loads the given .env files (default ".env") into the
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Env returns the environment variable key, or fallback when unset or empty
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns key parsed as an int, or fallback when unset or invalid
func EnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// EnvBool returns key parsed as a bool, or fallback when unset or invalid
func EnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// RegisterFlags binds the shared settings to fs, defaulting each flag to
// its environment variable.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	// Roster
	fs.StringVar(&c.RosterPath, "roster", Env("DF_ROSTER", "doctors.xlsx"), "Doctor roster (.xlsx or .csv)")
	fs.StringVar(&c.RosterSheet, "roster-sheet", Env("DF_ROSTER_SHEET", roster.DefaultSheet), "Sheet name for .xlsx rosters")
	fs.IntVar(&c.Workers, "workers", EnvInt("DF_WORKERS", 4), "Concurrent profile embeddings at startup")

	// Embedder
	fs.StringVar(&c.Embedder.Provider, "embedding-provider", Env("DF_EMBEDDING_PROVIDER", "ollama"), "Embedding provider: ollama, openai")
	fs.StringVar(&c.Embedder.Model, "embedding-model", Env("DF_EMBEDDING_MODEL", ""), "Embedding model (provider default when empty)")
	fs.StringVar(&c.Embedder.OllamaURL, "ollama-url", Env("DF_OLLAMA_URL", "http://localhost:11434"), "Ollama API URL")
	fs.StringVar(&c.Embedder.OpenAIBaseURL, "openai-base-url", Env("DF_OPENAI_BASE_URL", ""), "OpenAI-compatible API base URL")
	c.Embedder.OpenAIKey = Env("OPENAI_API_KEY", "")

	// Embedding cache
	fs.StringVar(&c.Storage.Driver, "cache-driver", Env("DF_CACHE_DRIVER", ""), "Embedding cache: memory, sqlite, postgres, mongodb (empty to disable)")
	fs.StringVar(&c.Storage.SQLitePath, "sqlite-path", Env("DF_SQLITE_PATH", ".doctor-finder/embeddings.db"), "SQLite cache path")
	fs.StringVar(&c.Storage.PostgresDSN, "postgres-dsn", Env("DF_POSTGRES_DSN", ""), "PostgreSQL connection string")
	fs.StringVar(&c.Storage.MongoDBURI, "mongodb-uri", Env("DF_MONGODB_URI", ""), "MongoDB connection URI")
	fs.StringVar(&c.Storage.MongoDBDatabase, "mongodb-database", Env("DF_MONGODB_DATABASE", "doctor_finder"), "MongoDB database name")

	// Logging
	fs.StringVar(&c.LogLevel, "log-level", Env("DF_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", Env("DF_LOG_FORMAT", "json"), "Log format: json, text")
}

// Validate checks settings that flags cannot
func (c *Config) Validate() error {
	if c.RosterPath == "" {
		return errors.New("roster path is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// NewHandler builds the slog handler for format ("json" or "text") and level
func NewHandler(w io.Writer, format, level string) slog.Handler {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
