// Package server wires the CivicSync server together: storage backend,
// image store, change notifier, services and the HTTP API, and runs it
// until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/server/config"
	"github.com/dmitrijs2005/civicsync/internal/server/httpapi"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
	"github.com/dmitrijs2005/civicsync/internal/server/store/memory"
	"github.com/dmitrijs2005/civicsync/internal/server/store/postgres"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var (
	openPostgres = func(ctx context.Context, dsn string, img images.Store, log logging.Logger) (store.Store, error) {
		return postgres.Open(ctx, dsn, img, log)
	}
	newRedisClient = func(addr, password string) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: addr, Password: password})
	}
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    store.Store
	hub      *notifier.Hub
	redis    *redis.Client
	remote   *notifier.RedisNotifier
	notifier notifier.Notifier
	api      *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	app := &App{config: c, logger: logger}

	img := app.newImageStore()

	st, err := app.newStore(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	app.store = st

	var limiter *httpapi.RateLimiter
	if c.RedisAddr != "" {
		app.redis = newRedisClient(c.RedisAddr, c.RedisPassword)
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.remote = notifier.NewRedisNotifier(app.redis, logger)
		app.notifier = app.remote
		limiter = httpapi.NewRateLimiter(app.redis, c.IssueRateLimit, logger)
	} else {
		app.hub = notifier.NewHub(logger)
		app.notifier = app.hub
	}

	ids := c.NationalIDs
	if len(ids) == 0 {
		logger.Warn(ctx, "no national id registry configured, using demo identifiers")
		ids = memory.FixtureNationalIDs
	}

	app.api = httpapi.NewServer(httpapi.Deps{
		Users:  services.NewUserService(st, services.NewStaticRegistry(ids...), c, logger),
		Issues: services.NewIssueService(st, logger),
		Lifecycle: services.NewLifecycleService(st, app.notifier, logger,
			services.WithProgressNotes(c.AllowProgressNotes),
			services.WithProofImages(img),
		),
		Counters: services.NewCounterService(st, app.notifier, logger),
		Notifier: app.notifier,
		Limiter:  limiter,
		Log:      logger,
	})

	return app, nil
}

func (app *App) newImageStore() images.Store {
	if app.config.S3Bucket == "" {
		return images.NewMemoryStore()
	}
	return images.NewS3Store(images.S3Config{
		User:         app.config.S3RootUser,
		Password:     app.config.S3RootPassword,
		Bucket:       app.config.S3Bucket,
		Region:       app.config.S3Region,
		BaseEndpoint: app.config.S3BaseEndpoint,
	})
}

func (app *App) newStore(ctx context.Context, img images.Store) (store.Store, error) {
	switch app.config.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, app.config.DatabaseDSN, img, app.logger)
	case config.BackendMemory, "":
		opts := []memory.Option{memory.WithImages(img), memory.WithLogger(app.logger)}
		if app.config.SeedFixtures {
			opts = append(opts, memory.WithFixtures())
		}
		return memory.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", app.config.Backend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until ctx is cancelled or a signal arrives, then releases
// every resource NewApp acquired.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.Backend)
	app.initSignalHandler(cancelFunc)

	if app.remote != nil {
		if err := app.remote.Start(ctx); err != nil {
			app.close(ctx)
			return fmt.Errorf("notifier start error: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.api.Run(gctx, app.config.HTTPAddr)
	})

	err := g.Wait()
	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	var errs []error
	if app.remote != nil {
		errs = append(errs, app.remote.Close())
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if app.store != nil {
		errs = append(errs, app.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Warn(ctx, "shutdown incomplete", "error", err)
	}
}
