package issues

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

// Repository persists issue rows. Listed and fetched issues carry the
// author summary but never their updates; those live in the updates
// repository.
type Repository interface {
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	// GetByIDForUpdate locks the issue row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, limit, offset int) ([]*models.Issue, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error)
	ListManagedBy(ctx context.Context, authorityID string) ([]*models.Issue, error)
	SetStatus(ctx context.Context, id string, status models.Status, resolvedImageURL *string) error
	IncrementCounter(ctx context.Context, id string, kind models.CounterKind) (int64, error)
}
