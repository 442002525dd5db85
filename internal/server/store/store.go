// Package store defines the data-access contract shared by the ephemeral
// and the PostgreSQL backends. Both behave identically as observed through
// this interface; the conformance suite in storetest pins that down.
package store

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

// Store is the sole synchronization boundary of the engine. Every call
// may block and honors ctx. Absent records are reported as
// common.ErrorNotFound.
type Store interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	// FindUserByUsernameOrEmail matches the username case-insensitively and
	// the email exactly.
	FindUserByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	// CreateUser fails with common.ErrorConflict when the username or the
	// email is taken. Nothing is written in that case.
	CreateUser(ctx context.Context, u *models.NewUser) (*models.User, error)
	// SetVerified is idempotent.
	SetVerified(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error)

	// ListIssues returns one page (1-based, common.PageSize entries) newest
	// first. Entries carry the author but not the updates.
	ListIssues(ctx context.Context, page int) ([]*models.Issue, error)
	// FindIssueByID returns the issue with its author and its updates,
	// newest first.
	FindIssueByID(ctx context.Context, id string) (*models.Issue, error)
	// CreateIssue stores image first and then the issue row. If the image
	// cannot be stored nothing is created.
	CreateIssue(ctx context.Context, n *models.NewIssue, image []byte) (*models.Issue, error)
	ListIssuesByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error)
	// ListIssuesManagedByAuthority returns each issue with at least one
	// update by authorityID once, newest first.
	ListIssuesManagedByAuthority(ctx context.Context, authorityID string) ([]*models.Issue, error)

	// Transition atomically checks guard against the current issue, appends
	// req.Update and then sets req.Target. It returns the issue as it is
	// after the change.
	Transition(ctx context.Context, issueID string, req models.TransitionRequest, guard models.TransitionGuard) (*models.Issue, error)
	// IncrementCounter adds one to the counter and returns the new value.
	IncrementCounter(ctx context.Context, issueID string, kind models.CounterKind) (int64, error)

	Close() error
}

// NormalizePage maps page numbers below 1 to the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
