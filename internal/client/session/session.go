// Package session tracks who is signed in on this client. There is one
// Context per process; it follows the identity provider's pushes and can
// be read from any goroutine without locking.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// snapshot is immutable once stored.
type snapshot struct {
	state   State
	session *models.Session
}

type Context struct {
	provider IdentityProvider
	resolver Resolver
	log      logging.Logger

	current atomic.Pointer[snapshot]

	initOnce sync.Once
	mu       sync.Mutex
	cancel   func()
}

type Option func(*Context)

// WithResolver lets Login accept usernames.
func WithResolver(r Resolver) Option {
	return func(c *Context) { c.resolver = r }
}

func New(p IdentityProvider, log logging.Logger, opts ...Option) *Context {
	c := &Context{provider: p, log: log.With("module", "session")}
	for _, o := range opts {
		o(c)
	}
	c.current.Store(&snapshot{state: StateUninitialized})
	return c
}

// Init loads the provider's current session and follows its changes from
// then on. Only the first call does anything. A provider failure leaves the
// context ready with nobody signed in.
func (c *Context) Init(ctx context.Context) {
	c.initOnce.Do(func() {
		c.current.Store(&snapshot{state: StateLoading})

		sess, err := c.provider.GetSession(ctx)
		if err != nil {
			c.log.Warn(ctx, "could not load session", "error", err)
			sess = nil
		}
		c.setSession(sess)

		cancel := c.provider.OnSessionChange(c.setSession)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
	})
}

// Login signs in with a username or an email and reports whether it
// worked. The reason for a failure is logged, not returned.
func (c *Context) Login(ctx context.Context, identifier, secret string) bool {
	email := strings.TrimSpace(identifier)
	if !strings.Contains(email, "@") && c.resolver != nil {
		resolved, err := c.resolver.ResolveEmail(ctx, email)
		if err != nil {
			c.log.Warn(ctx, "login failed", "identifier", identifier, "error", err)
			return false
		}
		email = resolved
	}

	sess, err := c.provider.SignIn(ctx, email, secret)
	if err != nil {
		c.log.Warn(ctx, "login failed", "identifier", identifier, "error", err)
		return false
	}

	c.setSession(sess)
	return true
}

// Logout signs out and forgets the user even if the provider fails.
func (c *Context) Logout(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		c.log.Warn(ctx, "sign out failed", "error", err)
	}
	c.setSession(nil)
}

// Close stops following the provider.
func (c *Context) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Context) State() State {
	return c.current.Load().state
}

// User returns the signed-in user or nil.
func (c *Context) User() *models.User {
	if s := c.current.Load().session; s != nil {
		return s.User
	}
	return nil
}

// Token returns the bearer token of the current session, if any.
func (c *Context) Token() string {
	if s := c.current.Load().session; s != nil {
		return s.Token
	}
	return ""
}

func (c *Context) setSession(s *models.Session) {
	if s != nil && s.User == nil {
		s = nil
	}
	c.current.Store(&snapshot{state: StateReady, session: s})
}
