package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/solatis/groundskeeper/internal/cache"
	"github.com/solatis/groundskeeper/internal/core/config"
	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/core/logging"
)

// Version is reported by serve at startup.
const Version = "0.1.0"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "groundskeeper",
		Short:         "Groundskeeper territory rule engine",
		Long:          `Groundskeeper evaluates territory rules against CRM entities and records territory assignments.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")

	env := &environment{configFile: &configFile, flags: flags}
	root.AddCommand(
		newMigrateCmd(env),
		newServeCmd(env),
		newSeedCmd(env),
		newMatchCmd(env),
		newTerritoryCmd(env),
		newAPIKeyCmd(env),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// environment resolves configuration shared by every subcommand.
type environment struct {
	configFile *string
	flags      *pflag.FlagSet
}

func (e *environment) config() (*config.Config, error) {
	cfg, err := config.LoadConfig(*e.configFile, map[string]*pflag.Flag{
		"database.url": e.flags.Lookup("db-url"),
		"log.level":    e.flags.Lookup("log-level"),
		"log.format":   e.flags.Lookup("log-format"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (e *environment) logger(cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

// storeHandle owns the connections openStore opened.
type storeHandle struct {
	db    *sqlx.DB
	store *db.Store
	cache *cache.Cache

	// invalidator receives store writes. It defaults to the raw cache and
	// serve replaces it with the metered CachedSource.
	invalidator db.Invalidator
}

func (h *storeHandle) invalidate(ctx context.Context) error {
	if h.invalidator == nil {
		return nil
	}
	return h.invalidator.Invalidate(ctx)
}

// Close releases the cache connection and the database.
func (h *storeHandle) Close() error {
	if h.cache != nil {
		h.cache.Close()
	}
	return h.db.Close()
}

// openStore opens the database and loads named queries. With cache.redis_url
// set, every territory or rule write bumps the snapshot generation so running
// servers drop their cached candidates.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storeHandle, error) {
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := requireMigrated(database); err != nil {
		database.Close()
		return nil, err
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}

	h := &storeHandle{db: database}
	if cfg.Cache.RedisURL != "" {
		c, err := cache.Connect(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to connect snapshot cache: %w", err)
		}
		h.cache = c
		h.invalidator = c
	}
	h.store = db.NewStore(queries, db.WithLogger(log), db.WithInvalidator(db.InvalidatorFunc(h.invalidate)))
	return h, nil
}

func requireMigrated(database *sqlx.DB) error {
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'groundskeeper migrate' first", s.ID)
		}
	}
	return nil
}
