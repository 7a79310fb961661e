package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/api"
	"github.com/tenantnotes/notes-server/internal/config"
	"github.com/tenantnotes/notes-server/internal/events"
	"github.com/tenantnotes/notes-server/internal/metrics"
	"github.com/tenantnotes/notes-server/internal/storage"
)

func main() {
	// Command line flags
	var (
		configFile string
		envFile    string
		migrate    bool
		seed       bool
	)
	flag.StringVar(&configFile, "config", "config/notes-server.yml", "Configuration file path")
	flag.StringVar(&envFile, "env", ".env", "Environment file loaded before the configuration")
	flag.BoolVar(&migrate, "migrate", false, "Create the database schema and exit")
	flag.BoolVar(&seed, "seed", false, "Insert the demo tenants and users and exit")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", envFile).Msg("Failed to load environment file")
	}

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level and format
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", cfg.Server.Name).Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, migrate)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	if migrate {
		log.Info().Msg("Schema migrated")
		return
	}

	if seed || cfg.Seed.Enabled {
		if err := storage.Seed(ctx, store, storage.DefaultSeed, cfg.Seed.Password); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed data")
		}
		if seed {
			return
		}
	}

	// Optional: NATS event publishing
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")
		nc, err := events.Connect(&cfg.NATS)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without event publishing")
		} else {
			log.Info().Msg("Connected to NATS")
			publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		}
	} else {
		log.Info().Msg("NATS not configured, events are not published")
	}
	defer publisher.Close()

	apiServer := api.NewRESTServer(cfg, store,
		api.WithPublisher(publisher),
		api.WithMetrics(metrics.New(cfg.Server.Name)),
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(cfg.API.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	log.Info().Msg("Notes server stopped")
}

// openStore opens the configured store and migrates it when asked to
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (storage.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using the in-memory store, data is lost on exit")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Connected to database")

	if migrate || cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}
