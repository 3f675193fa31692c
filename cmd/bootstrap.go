package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/facial-recognition/internal/config"
	"github.com/kozaktomas/facial-recognition/internal/database"
	"github.com/kozaktomas/facial-recognition/internal/database/mariadb"
	"github.com/kozaktomas/facial-recognition/internal/database/postgres"
	"github.com/kozaktomas/facial-recognition/internal/facial"
	"github.com/kozaktomas/facial-recognition/internal/logging"
	"github.com/kozaktomas/facial-recognition/internal/strategy"
	"github.com/rs/zerolog"
)

// app holds the collaborators shared by every command that touches the store.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   database.Store
	service *facial.Service
}

// loadConfig reads --config, the environment and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore connects to the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMariaDB, config.DriverMySQL:
		store, err := mariadb.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return store, nil
	default:
		store, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	}
}

// newApp loads configuration, sets up logging and opens the store.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	strat, err := strategy.New(cfg.Facial.Strategy, strategy.Options{MaxImagePixels: cfg.Facial.MaxImagePixels})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("Connecting to database")
	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("strategy", strat.Name()).Msg("Facial recognition strategy selected")

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: facial.NewService(strat, store, nil),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close database")
	}
}
