package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

// CounterService bumps upvote and repost counters. Repeat calls from the
// same caller are all counted.
type CounterService struct {
	store    store.Store
	notifier notifier.Notifier
	log      logging.Logger
}

func NewCounterService(st store.Store, n notifier.Notifier, log logging.Logger) *CounterService {
	return &CounterService{store: st, notifier: n, log: log.With("module", "services.counter")}
}

func (s *CounterService) Increment(ctx context.Context, issueID string, kind models.CounterKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown counter %q", common.ErrorValidation, kind)
	}

	n, err := s.store.IncrementCounter(ctx, issueID, kind)
	if err != nil {
		return 0, err
	}

	s.log.Debug(ctx, "counter incremented", "issue_id", issueID, "counter", kind, "value", n)
	publishChange(ctx, s.notifier, s.log, issueID)

	return n, nil
}

func (s *CounterService) Upvote(ctx context.Context, issueID string) (int64, error) {
	return s.Increment(ctx, issueID, models.Upvotes)
}

func (s *CounterService) Repost(ctx context.Context, issueID string) (int64, error) {
	return s.Increment(ctx, issueID, models.Reposts)
}
