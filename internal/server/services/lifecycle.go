package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

// AdvanceRequest is one status change requested by an authority.
// ProofImage is only used when Target is Resolved.
type AdvanceRequest struct {
	IssueID    string
	Target     string
	Comment    string
	ActorID    string
	ProofImage []byte
}

type LifecycleService struct {
	store         store.Store
	notifier      notifier.Notifier
	images        images.Store
	log           logging.Logger
	progressNotes bool
}

type LifecycleOption func(*LifecycleService)

// WithProgressNotes controls whether an authority may add a comment without
// changing the status.
func WithProgressNotes(allow bool) LifecycleOption {
	return func(s *LifecycleService) { s.progressNotes = allow }
}

// WithProofImages sets where resolution photos are uploaded.
func WithProofImages(img images.Store) LifecycleOption {
	return func(s *LifecycleService) { s.images = img }
}

func NewLifecycleService(st store.Store, n notifier.Notifier, log logging.Logger, opts ...LifecycleOption) *LifecycleService {
	s := &LifecycleService{
		store:         st,
		notifier:      n,
		log:           log.With("module", "services.lifecycle"),
		progressNotes: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *LifecycleService) Advance(ctx context.Context, issueID, target, comment, actorID string) (*models.Issue, error) {
	return s.AdvanceWithProof(ctx, AdvanceRequest{
		IssueID: issueID,
		Target:  target,
		Comment: comment,
		ActorID: actorID,
	})
}

// AdvanceWithProof records req.Comment as an update and moves the issue to
// req.Target. Statuses only move forward and nothing follows Resolved.
func (s *LifecycleService) AdvanceWithProof(ctx context.Context, req AdvanceRequest) (*models.Issue, error) {
	actor, err := s.store.FindUser(ctx, req.ActorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown actor", common.ErrorPermission)
		}
		return nil, err
	}
	if !actor.IsAuthority() {
		return nil, fmt.Errorf("%w: only authorities can update issue status", common.ErrorPermission)
	}

	target, err := models.ParseStatus(req.Target)
	if err != nil {
		return nil, err
	}

	current, err := s.store.FindIssueByID(ctx, req.IssueID)
	if err != nil {
		return nil, err
	}

	guard := s.guard(target, req.Comment)
	// fail early so a rejected request never uploads a proof image
	if err := guard(current); err != nil {
		return nil, err
	}

	tr := models.TransitionRequest{
		Update: models.Update{
			AuthorityID: actor.ID,
			Text:        strings.TrimSpace(req.Comment),
		},
		Target: target,
	}

	if target == models.Resolved && len(req.ProofImage) > 0 && s.images != nil {
		url, err := s.images.Put(ctx, "resolved", req.ProofImage)
		if err != nil {
			return nil, err
		}
		tr.ResolvedImageURL = &url
	}

	issue, err := s.store.Transition(ctx, req.IssueID, tr, guard)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "issue advanced", "issue_id", issue.ID, "status", issue.Status, "actor_id", actor.ID)
	publishChange(ctx, s.notifier, s.log, issue.ID)

	return issue, nil
}

// guard is evaluated twice: once up front and once under the store lock,
// where a concurrent writer may have moved the issue in between.
func (s *LifecycleService) guard(target models.Status, comment string) models.TransitionGuard {
	return func(current *models.Issue) error {
		switch {
		case current.Status.Terminal():
			return fmt.Errorf("%w: issue is already %s", common.ErrorIllegalTransition, current.Status)
		case target.Rank() < current.Status.Rank():
			return fmt.Errorf("%w: %s -> %s", common.ErrorIllegalTransition, current.Status, target)
		case target == current.Status:
			if !s.progressNotes || strings.TrimSpace(comment) == "" {
				return fmt.Errorf("%w: status is already %s", common.ErrorIllegalTransition, current.Status)
			}
		}
		return nil
	}
}
