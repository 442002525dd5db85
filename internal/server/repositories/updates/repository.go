package updates

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

// Repository is the append-only issue history. There is deliberately no
// update or delete.
type Repository interface {
	Append(ctx context.Context, u *models.Update) (*models.Update, error)
	// ListByIssue returns the updates of one issue, newest first.
	ListByIssue(ctx context.Context, issueID string) ([]models.Update, error)
}
