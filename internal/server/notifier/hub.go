package notifier

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/civicsync/internal/logging"
)

var _ Notifier = (*Hub)(nil)

type subscription struct {
	h Handler
}

// Hub is the in-process Notifier. Publish runs handlers synchronously on
// the caller's goroutine, in subscription order, over a snapshot taken
// when Publish starts: a subscription cancelled mid-dispatch may still
// receive that one signal.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]*subscription
	log  logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		subs: make(map[string][]*subscription),
		log:  log.With("module", "notifier.hub"),
	}
}

func (h *Hub) Subscribe(issueID string, handler Handler) CancelFunc {
	sub := &subscription{h: handler}

	h.mu.Lock()
	h.subs[issueID] = append(h.subs[issueID], sub)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(issueID, sub) })
	}
}

func (h *Hub) remove(issueID string, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := slices.DeleteFunc(slices.Clone(h.subs[issueID]), func(s *subscription) bool { return s == sub })
	if len(list) == 0 {
		delete(h.subs, issueID)
		return
	}
	h.subs[issueID] = list
}

func (h *Hub) Publish(ctx context.Context, issueID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	snapshot := slices.Clone(h.subs[issueID])
	h.mu.RUnlock()

	for _, sub := range snapshot {
		h.dispatch(ctx, issueID, sub.h)
	}
	return nil
}

func (h *Hub) dispatch(ctx context.Context, issueID string, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error(ctx, "subscriber panicked", "issue_id", issueID, "panic", r)
		}
	}()
	handler(issueID)
}

// Subscribers reports how many handlers are registered for issueID.
func (h *Hub) Subscribers(issueID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[issueID])
}
