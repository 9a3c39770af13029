package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/adapters/file"
	"github.com/aretw0/lattice/internal/adapters/sqlite"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
)

// Env is an opened workspace plus what it must release on exit.
type Env struct {
	Workspace *lattice.Workspace
	Config    config.Config
	Logger    *slog.Logger
	closers   []io.Closer
}

// Close releases the store connections.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// EnvOptions carries the command-line switches that shape the workspace.
type EnvOptions struct {
	Debug bool
	// Quiet suppresses notifications (for machine-readable output).
	Quiet bool
	// Metrics enables the Prometheus collector.
	Metrics bool
	// Notices receives notifications; stderr when nil.
	Notices io.Writer
}

// NewLogger builds the application logger from cfg. Debug forces debug level.
func NewLogger(cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithOptions(logging.Options{
		Level: level,
		JSON:  cfg.Format == "json",
		File:  cfg.File,
	}), nil
}

// OpenStore creates the key-value backend selected by cfg, wrapped in the
// configured PII and encryption middleware. The locker is nil unless the
// backend can provide a distributed one.
func OpenStore(cfg config.StoreConfig) (ports.KeyValueStore, ports.DistributedLocker, []io.Closer, error) {
	var (
		store   ports.KeyValueStore
		locker  ports.DistributedLocker
		closers []io.Closer
	)

	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.Path)
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		store, closers = s, append(closers, s)
	case config.DriverRedis:
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		s := redis.New(cfg.RedisAddr, "", 0, opts...)
		store, locker, closers = s, redis.NewLocker(s.Client(), cfg.Prefix), append(closers, s)
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if len(cfg.MaskFields) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.MaskFields)
		if err != nil {
			return nil, nil, closers, fmt.Errorf("invalid mask_fields: %w", err)
		}
		mws = append(mws, pii)
	}
	keys, err := cfg.Keys()
	if err != nil {
		return nil, nil, closers, err
	}
	if len(keys) > 0 {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		})
		if err != nil {
			return nil, nil, closers, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), locker, closers, nil
}

// Open loads the configuration and builds a ready workspace.
func Open(configPath string, opts EnvOptions) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return OpenWithConfig(cfg, opts)
}

// OpenWithConfig builds a workspace from an already loaded configuration.
func OpenWithConfig(cfg config.Config, opts EnvOptions) (*Env, error) {
	logger, err := NewLogger(cfg.Log, opts.Debug)
	if err != nil {
		return nil, err
	}

	store, locker, closers, err := OpenStore(cfg.Store)
	env := &Env{Config: cfg, Logger: logger, closers: closers}
	if err != nil {
		_ = env.Close()
		return nil, err
	}

	var notifier ports.Notifier = ports.NopNotifier{}
	if !opts.Quiet {
		w := opts.Notices
		if w == nil {
			w = os.Stderr
		}
		notifier = tui.NewNotifier(w)
	}

	wsOpts := []lattice.Option{
		lattice.WithStore(store),
		lattice.WithLogger(logger),
		lattice.WithNotifier(notifier),
		lattice.WithExporter(cfg.Owner),
		lattice.WithLocker(locker),
	}
	if opts.Metrics {
		wsOpts = append(wsOpts, lattice.WithMetrics(metrics.NewCollector("lattice")))
	}

	ws, err := lattice.New(wsOpts...)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.Workspace = ws
	logger.Debug("workspace opened", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	return env, nil
}
