// Package app wires the roster, embedder, cache and corpus into a Service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MereWhiplash/doctor-finder/internal/config"
	"github.com/MereWhiplash/doctor-finder/internal/corpus"
	"github.com/MereWhiplash/doctor-finder/internal/embedder"
	"github.com/MereWhiplash/doctor-finder/internal/roster"
	"github.com/MereWhiplash/doctor-finder/internal/service"
	"github.com/MereWhiplash/doctor-finder/internal/storage"
)

// App is a started doctor finder
type App struct {
	Service *service.Service
	store   storage.Store
}

// Start loads the roster and embeds every profile. Any failure is fatal:
// a missing column or an embedding error means no App is returned.
func Start(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	return StartWith(ctx, cfg, nil, logger)
}

// StartWith is Start with an explicit embedder; nil builds one from cfg.Embedder
func StartWith(ctx context.Context, cfg config.Config, emb embedder.Embedder, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	profiles, err := roster.Load(cfg.RosterPath, cfg.RosterSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	logger.InfoContext(ctx, "roster loaded", "path", cfg.RosterPath, "doctors", len(profiles))

	if emb == nil {
		if emb, err = embedder.New(cfg.Embedder); err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	a := &App{}
	if cfg.Storage.Driver != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		a.store, err = storage.New(connectCtx, cfg.Storage)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		logger.InfoContext(ctx, "embedding cache enabled", "driver", cfg.Storage.Driver)
		emb = embedder.NewCached(emb, a.store, logger)
	}

	c, err := corpus.Build(ctx, profiles, emb,
		corpus.WithWorkers(cfg.Workers),
		corpus.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to embed roster: %w", err)
	}

	a.Service = service.New(c, emb)
	return a, nil
}

// Close releases the embedding cache, if any
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
