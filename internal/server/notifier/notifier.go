// Package notifier carries "issue changed" signals from writers to
// whoever has the issue open. A signal names the issue and nothing else;
// subscribers re-read through the store.
package notifier

import "context"

// Handler is invoked with the id of the issue that changed.
type Handler func(issueID string)

// CancelFunc removes a subscription. Calling it more than once is a no-op.
type CancelFunc func()

type Notifier interface {
	Subscribe(issueID string, h Handler) CancelFunc
	Publish(ctx context.Context, issueID string) error
}
