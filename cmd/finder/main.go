package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MereWhiplash/doctor-finder/internal/app"
	"github.com/MereWhiplash/doctor-finder/internal/client"
	"github.com/MereWhiplash/doctor-finder/internal/config"
	"github.com/MereWhiplash/doctor-finder/internal/roster"
	"github.com/MereWhiplash/doctor-finder/internal/service"
	"github.com/MereWhiplash/doctor-finder/internal/tools"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "finder",
		Usage:     "Find doctors whose profiles match a description of symptoms",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Query a running doctor finder API instead of embedding the roster locally",
				EnvVars: []string{"DF_API_URL"},
			},
			&cli.StringFlag{
				Name:    "roster",
				Aliases: []string{"r"},
				Usage:   "Doctor roster (.xlsx or .csv)",
				Value:   "doctors.xlsx",
				EnvVars: []string{"DF_ROSTER"},
			},
			&cli.StringFlag{
				Name:    "roster-sheet",
				Usage:   "Sheet name for .xlsx rosters",
				Value:   roster.DefaultSheet,
				EnvVars: []string{"DF_ROSTER_SHEET"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent profile embeddings",
				Value:   4,
				EnvVars: []string{"DF_WORKERS"},
			},
			&cli.StringFlag{
				Name:    "embedding-provider",
				Usage:   "Embedding provider: ollama, openai",
				Value:   "ollama",
				EnvVars: []string{"DF_EMBEDDING_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model (provider default when empty)",
				EnvVars: []string{"DF_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "ollama-url",
				Usage:   "Ollama API URL",
				Value:   "http://localhost:11434",
				EnvVars: []string{"DF_OLLAMA_URL"},
			},
			&cli.StringFlag{
				Name:    "openai-base-url",
				Usage:   "OpenAI-compatible API base URL",
				EnvVars: []string{"DF_OPENAI_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "cache-driver",
				Usage:   "Embedding cache: memory, sqlite, postgres, mongodb (empty to disable)",
				EnvVars: []string{"DF_CACHE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "sqlite-path",
				Usage:   "SQLite cache path",
				Value:   ".doctor-finder/embeddings.db",
				EnvVars: []string{"DF_SQLITE_PATH"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "PostgreSQL connection string",
				EnvVars: []string{"DF_POSTGRES_DSN"},
			},
			&cli.StringFlag{
				Name:    "mongodb-uri",
				Usage:   "MongoDB connection URI",
				EnvVars: []string{"DF_MONGODB_URI"},
			},
			&cli.StringFlag{
				Name:    "mongodb-database",
				Usage:   "MongoDB database name",
				Value:   "doctor_finder",
				EnvVars: []string{"DF_MONGODB_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"DF_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "recommend",
				Usage:     "Rank doctors against a symptom description",
				ArgsUsage: "<symptoms...>",
				Action:    recommendCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-n",
						Aliases: []string{"n"},
						Usage:   fmt.Sprintf("Number of recommendations (1-%d)", service.MaxTopN),
						Value:   service.DefaultTopN,
					},
				},
			},
			{
				Name:   "doctors",
				Usage:  "List the doctor directory",
				Action: doctorsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "specialty",
						Aliases: []string{"s"},
						Usage:   "Exact specialty to filter by",
						Value:   types.SpecialtyAll,
					},
				},
			},
			{
				Name:   "specialties",
				Usage:  "List specialty filter values",
				Action: specialtiesCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})))
	return nil
}

func configFromFlags(c *cli.Context) config.Config {
	cfg := config.Config{
		RosterPath:  c.String("roster"),
		RosterSheet: c.String("roster-sheet"),
		Workers:     c.Int("workers"),
		LogLevel:    c.String("log-level"),
	}
	cfg.Embedder.Provider = c.String("embedding-provider")
	cfg.Embedder.Model = c.String("embedding-model")
	cfg.Embedder.OllamaURL = c.String("ollama-url")
	cfg.Embedder.OpenAIBaseURL = c.String("openai-base-url")
	cfg.Embedder.OpenAIKey = config.Env("OPENAI_API_KEY", "")
	cfg.Storage.Driver = c.String("cache-driver")
	cfg.Storage.SQLitePath = c.String("sqlite-path")
	cfg.Storage.PostgresDSN = c.String("postgres-dsn")
	cfg.Storage.MongoDBURI = c.String("mongodb-uri")
	cfg.Storage.MongoDBDatabase = c.String("mongodb-database")
	return cfg
}

// openBackend returns a remote client when --api-url is set, otherwise
// embeds the roster locally.
func openBackend(c *cli.Context) (tools.Backend, func() error, error) {
	if url := c.String("api-url"); url != "" {
		return client.New(url), func() error { return nil }, nil
	}

	a, err := app.Start(ctxOf(c), configFromFlags(c), slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}

func recommendCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("please describe your symptoms, e.g. finder recommend I have severe headaches")
	}

	backend, closeFn, err := openBackend(c)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := backend.Recommend(ctxOf(c), query, c.Int("top-n"))
	if err != nil {
		return fmt.Errorf("failed to recommend: %w", err)
	}

	out := c.App.Writer
	if len(recs) == 0 {
		fmt.Fprintln(out, "No doctors found.")
		return nil
	}
	for i, r := range recs {
		fmt.Fprintf(out, "%d. %s\n", i+1, r.Doctor.Name)
		fmt.Fprintf(out, "   Specialties: %s\n", r.Doctor.Specialties)
		fmt.Fprintf(out, "   Location:    %s\n", r.Doctor.Location)
		fmt.Fprintf(out, "   Profile:     %s\n", r.Doctor.ProfileLink)
		fmt.Fprintf(out, "   Match Score: %.4f\n", r.Score)
	}
	return nil
}

func doctorsCommand(c *cli.Context) error {
	backend, closeFn, err := openBackend(c)
	if err != nil {
		return err
	}
	defer closeFn()

	doctors, err := backend.Doctors(ctxOf(c), c.String("specialty"))
	if err != nil {
		return fmt.Errorf("failed to list doctors: %w", err)
	}

	out := c.App.Writer
	for _, d := range doctors {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", d.Name, d.Specialties, d.Location, d.ProfileLink)
	}
	fmt.Fprintf(out, "%d doctor(s)\n", len(doctors))
	return nil
}

func specialtiesCommand(c *cli.Context) error {
	backend, closeFn, err := openBackend(c)
	if err != nil {
		return err
	}
	defer closeFn()

	specialties, err := backend.Specialties(ctxOf(c))
	if err != nil {
		return fmt.Errorf("failed to list specialties: %w", err)
	}

	for _, s := range specialties {
		fmt.Fprintln(c.App.Writer, s)
	}
	return nil
}

func ctxOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
