// Package identity provides an in-process identity provider backed by the
// user service. The CLI uses it in place of a remote auth backend.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
)

type listener struct {
	fn func(*models.Session)
}

// LocalProvider holds at most one signed-in session and pushes every
// change of it to the registered listeners.
type LocalProvider struct {
	users *services.UserService
	log   logging.Logger

	mu        sync.Mutex
	current   *models.Session
	listeners []*listener
}

func NewLocalProvider(users *services.UserService, log logging.Logger) *LocalProvider {
	return &LocalProvider{users: users, log: log.With("module", "identity.local")}
}

// GetSession returns the current session, or nil when nobody is signed in
// or the token no longer authenticates.
func (p *LocalProvider) GetSession(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()

	if cur == nil {
		return nil, nil
	}

	u, err := p.users.Authenticate(ctx, cur.Token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			p.set(ctx, nil, func(c *models.Session) bool { return c == cur })
			return nil, nil
		}
		return nil, err
	}

	return &models.Session{User: u, Token: cur.Token, ExpiresAt: cur.ExpiresAt}, nil
}

// OnSessionChange registers fn for every subsequent sign-in and sign-out.
func (p *LocalProvider) OnSessionChange(fn func(*models.Session)) func() {
	l := &listener{fn: fn}

	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, x := range p.listeners {
				if x == l {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (p *LocalProvider) SignIn(ctx context.Context, email, secret string) (*models.Session, error) {
	sess, err := p.users.Login(ctx, email, secret)
	if err != nil {
		return nil, err
	}

	p.set(ctx, sess, nil)
	p.log.Info(ctx, "signed in", "user_id", sess.User.ID)
	return sess, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prev, changed := p.set(ctx, nil, func(c *models.Session) bool { return c != nil })
	if changed {
		p.log.Info(ctx, "signed out", "user_id", prev.User.ID)
	}
	return nil
}

// ResolveEmail maps a username to the account email. Identifiers that
// already look like an email are returned unchanged.
func (p *LocalProvider) ResolveEmail(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return identifier, nil
	}
	u, err := p.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// set installs next when cond accepts the current session (a nil cond
// always does) and notifies the listeners outside the lock.
func (p *LocalProvider) set(ctx context.Context, next *models.Session, cond func(*models.Session) bool) (*models.Session, bool) {
	p.mu.Lock()
	prev := p.current
	if cond != nil && !cond(prev) {
		p.mu.Unlock()
		return prev, false
	}
	p.current = next
	ls := append([]*listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range ls {
		p.dispatch(ctx, l, next)
	}
	return prev, true
}

func (p *LocalProvider) dispatch(ctx context.Context, l *listener, s *models.Session) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error(ctx, "session listener panicked", "panic", r)
		}
	}()
	l.fn(s)
}
