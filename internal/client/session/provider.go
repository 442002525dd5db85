package session

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

// IdentityProvider is the authentication backend the session follows.
type IdentityProvider interface {
	// GetSession returns the current session or nil when signed out.
	GetSession(ctx context.Context) (*models.Session, error)
	// OnSessionChange registers fn for pushed session changes and returns
	// a function that unregisters it.
	OnSessionChange(fn func(*models.Session)) func()
	SignIn(ctx context.Context, email, secret string) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// Resolver maps a login identifier, usually a username, to an email.
type Resolver interface {
	ResolveEmail(ctx context.Context, identifier string) (string, error)
}

type ResolverFunc func(ctx context.Context, identifier string) (string, error)

func (f ResolverFunc) ResolveEmail(ctx context.Context, identifier string) (string, error) {
	return f(ctx, identifier)
}
