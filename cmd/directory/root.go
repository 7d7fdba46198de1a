package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/gartstein/directory/internal/directory/catalog"
	"github.com/gartstein/directory/internal/directory/config"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/db"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/idempotency"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries what every subcommand shares once the root has run.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "directory",
		Short:        "Employee directory service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := initLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger == nil {
				return
			}
			// Syncing stderr fails with EINVAL on most terminals.
			if err := a.logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to sync logger: %v\n", err)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newTokenCmd(a),
		newEventsCmd(a),
	)
	return rootCmd
}

// initLogger initializes a Zap production logger at the configured level.
func initLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// deps are the resources behind a DirectoryService. close releases them in
// reverse order of acquisition.
type deps struct {
	repo    *db.Repository
	redis   *idempotency.RedisStore
	closers []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildService wires storage, events and idempotency into the service
// according to the loaded configuration.
func (a *app) buildService(withEvents bool) (*controller.DirectoryService, *deps, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	d := &deps{}

	cat, err := loadCatalog(a.cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	repo, err := db.NewRepository(a.cfg.Database())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	d.repo = repo
	d.closers = append(d.closers, func() {
		if err := repo.Close(); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		}
	})

	var producer controller.EventProducer = events.NopProducer{}
	if withEvents && len(a.cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(a.cfg.KafkaBrokers, a.logger, a.cfg.Topic)
		if err != nil {
			d.close()
			return nil, nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
		}
		producer = p
		d.closers = append(d.closers, p.Close)
	} else if withEvents {
		a.logger.Warn("KAFKA_BROKERS is empty, employee events are disabled")
	}

	var keys controller.IdempotencyStore = repo.KeyStore(a.cfg.IdempotencyTTL)
	if a.cfg.IdempotencyBackend == config.BackendRedis {
		client := idempotency.NewRedisClient(idempotency.Config{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		}, a.logger)
		store := idempotency.NewRedisStore(client, a.cfg.IdempotencyTTL, a.logger)
		d.redis = store
		d.closers = append(d.closers, func() {
			if err := store.Close(); err != nil {
				a.logger.Error("failed to close redis", zap.Error(err))
			}
		})
		keys = store
	}

	svc, err := controller.NewDirectoryService(repo, producer, keys, controller.Config{
		Catalog:         cat,
		DefaultPassword: a.cfg.DefaultPassword,
		BcryptCost:      a.cfg.BcryptCost,
	}, a.logger)
	if err != nil {
		d.close()
		return nil, nil, err
	}
	return svc, d, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
