// Package core is the surface a client embeds: issue reads and writes, the
// lifecycle and counter operations, change subscriptions and the current
// session, all behind one value.
package core

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/client/session"
	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
)

type Core struct {
	issues    *services.IssueService
	lifecycle *services.LifecycleService
	counters  *services.CounterService
	notifier  notifier.Notifier
	session   *session.Context
}

func New(
	issues *services.IssueService,
	lifecycle *services.LifecycleService,
	counters *services.CounterService,
	n notifier.Notifier,
	sess *session.Context,
) *Core {
	return &Core{
		issues:    issues,
		lifecycle: lifecycle,
		counters:  counters,
		notifier:  n,
		session:   sess,
	}
}

func (c *Core) ListIssues(ctx context.Context, page int) ([]*models.Issue, error) {
	return c.issues.List(ctx, page)
}

func (c *Core) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	return c.issues.Get(ctx, id)
}

func (c *Core) ListIssuesByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error) {
	return c.issues.ListByAuthor(ctx, authorID)
}

func (c *Core) ListIssuesManagedBy(ctx context.Context, authorityID string) ([]*models.Issue, error) {
	return c.issues.ListManagedBy(ctx, authorityID)
}

// ReportIssue files n on behalf of the signed-in user.
func (c *Core) ReportIssue(ctx context.Context, n models.NewIssue, image []byte) (*models.Issue, error) {
	u, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	n.AuthorID = u.ID
	return c.issues.Report(ctx, &n, image)
}

// AdvanceStatus moves an issue on behalf of actorID. An empty actorID means
// the signed-in user.
func (c *Core) AdvanceStatus(ctx context.Context, issueID, target, comment, actorID string) (*models.Issue, error) {
	if actorID == "" {
		u, err := c.requireUser()
		if err != nil {
			return nil, err
		}
		actorID = u.ID
	}
	return c.lifecycle.Advance(ctx, issueID, target, comment, actorID)
}

func (c *Core) IncrementUpvotes(ctx context.Context, issueID string) (int64, error) {
	if _, err := c.requireUser(); err != nil {
		return 0, err
	}
	return c.counters.Upvote(ctx, issueID)
}

func (c *Core) IncrementReposts(ctx context.Context, issueID string) (int64, error) {
	if _, err := c.requireUser(); err != nil {
		return 0, err
	}
	return c.counters.Repost(ctx, issueID)
}

// SubscribeToIssue calls onChange whenever issueID changes. The handler
// should re-read the issue; it is given nothing else.
func (c *Core) SubscribeToIssue(issueID string, onChange notifier.Handler) notifier.CancelFunc {
	return c.notifier.Subscribe(issueID, onChange)
}

func (c *Core) GetCurrentSession() *models.User {
	return c.session.User()
}

func (c *Core) Login(ctx context.Context, identifier, secret string) bool {
	return c.session.Login(ctx, identifier, secret)
}

func (c *Core) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

func (c *Core) requireUser() (*models.User, error) {
	u := c.session.User()
	if u == nil {
		return nil, fmt.Errorf("%w: sign in first", common.ErrorUnauthorized)
	}
	return u, nil
}
