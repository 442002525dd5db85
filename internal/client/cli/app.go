package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/civicsync/internal/client/config"
	"github.com/dmitrijs2005/civicsync/internal/client/session"
	"github.com/dmitrijs2005/civicsync/internal/core"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/server/identity"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
	"github.com/dmitrijs2005/civicsync/internal/server/store/memory"
	"github.com/dmitrijs2005/civicsync/internal/server/store/postgres"
	"github.com/redis/go-redis/v9"

	srvconfig "github.com/dmitrijs2005/civicsync/internal/server/config"
)

type App struct {
	config  *config.Config
	core    *core.Core
	session *session.Context
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	// ctx handed to watch callbacks, which outlive the command that
	// registered them
	ctx context.Context

	mu      sync.Mutex
	watches map[string]notifier.CancelFunc

	closers []func() error
}

// NewApp builds the engine described by c. The caller owns the App and
// must Run or Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)
	app := &App{
		config:  c,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		ctx:     ctx,
		watches: make(map[string]notifier.CancelFunc),
	}

	img := images.NewMemoryStore()

	var st store.Store
	switch c.Backend {
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, c.DatabaseDSN, img, logger)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		st = pg
	default:
		opts := []memory.Option{memory.WithImages(img), memory.WithLogger(logger)}
		if c.SeedFixtures {
			opts = append(opts, memory.WithFixtures())
		}
		st = memory.New(opts...)
	}
	app.closers = append(app.closers, st.Close)

	var n notifier.Notifier
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		rn := notifier.NewRedisNotifier(rdb, logger)
		if err := rn.Start(ctx); err != nil {
			_ = rdb.Close()
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.closers = append(app.closers, rn.Close, rdb.Close)
		n = rn
	} else {
		n = notifier.NewHub(logger)
	}

	users := services.NewUserService(st, services.NewStaticRegistry(memory.FixtureNationalIDs...), &srvconfig.Config{
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: c.SessionValidity,
	}, logger)
	provider := identity.NewLocalProvider(users, logger)
	sess := session.New(provider, logger, session.WithResolver(provider))

	app.session = sess
	app.core = core.New(
		services.NewIssueService(st, logger),
		services.NewLifecycleService(st, n, logger, services.WithProgressNotes(c.AllowProgressNotes)),
		services.NewCounterService(st, n, logger),
		n,
		sess,
	)

	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.session.Init(ctx)
	printlnFn("Welcome to CivicSync CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close cancels all watches and releases the store and notifier.
func (a *App) Close() {
	a.mu.Lock()
	for id, cancel := range a.watches {
		cancel()
		delete(a.watches, id)
	}
	a.mu.Unlock()

	if a.session != nil {
		a.session.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn(context.Background(), "shutdown incomplete", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.core.GetCurrentSession() != nil
}

func (a *App) getStatus() string {
	u := a.core.GetCurrentSession()
	if u == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", u.Username, u.Kind)
}
