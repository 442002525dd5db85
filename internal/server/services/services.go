// Package services holds the issue lifecycle, counter and user operations
// that sit between the transports and the store.
package services

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
)

// publishChange announces that issueID changed. The mutation has already
// been committed, so a failed publish is only logged.
func publishChange(ctx context.Context, n notifier.Notifier, log logging.Logger, issueID string) {
	if n == nil {
		return
	}
	if err := n.Publish(ctx, issueID); err != nil {
		log.Warn(ctx, "change notification lost", "issue_id", issueID, "error", err)
	}
}
