package cli

import (
	"context"
	"fmt"
)

// Watch prints a line every time the issue changes until Unwatch.
func (a *App) Watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("watch <id>")
	}
	id := args[0]

	if _, err := a.core.GetIssue(ctx, id); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.watches[id]; ok {
		printlnFn("Already watching", id)
		return nil
	}

	a.watches[id] = a.core.SubscribeToIssue(id, a.onIssueChanged)
	printlnFn("Watching", id)
	return nil
}

func (a *App) Unwatch(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usage("unwatch <id>")
	}
	id := args[0]

	a.mu.Lock()
	cancel, ok := a.watches[id]
	delete(a.watches, id)
	a.mu.Unlock()

	if !ok {
		printlnFn("Not watching", id)
		return nil
	}
	cancel()
	printlnFn("Stopped watching", id)
	return nil
}

// onIssueChanged re-reads the issue; the signal itself carries nothing.
func (a *App) onIssueChanged(id string) {
	issue, err := a.core.GetIssue(a.ctx, id)
	if err != nil {
		a.logger.Warn(a.ctx, "watched issue could not be loaded", "issue_id", id, "error", err)
		return
	}

	latest := ""
	if len(issue.Updates) > 0 {
		latest = fmt.Sprintf(", latest update %s ago: %s", since(issue.Updates[0].CreatedAt), orDash(issue.Updates[0].Text))
	}
	printlnFn(fmt.Sprintf("[watch] %s %s: %d upvotes, %d reposts%s",
		issue.ID, issue.Status, issue.Upvotes, issue.Reposts, latest))
}
