package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

// IssueService covers reporting and reading issues.
type IssueService struct {
	store store.Store
	log   logging.Logger
}

func NewIssueService(st store.Store, log logging.Logger) *IssueService {
	return &IssueService{store: st, log: log.With("module", "services.issues")}
}

// Report validates n and stores it with its photo. The photo is optional
// but must be an image when present.
func (s *IssueService) Report(ctx context.Context, n *models.NewIssue, image []byte) (*models.Issue, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if len(image) > 0 {
		if ct := images.ContentType(image); !strings.HasPrefix(ct, "image/") {
			return nil, fmt.Errorf("%w: unsupported image type %s", common.ErrorValidation, ct)
		}
	}

	issue, err := s.store.CreateIssue(ctx, n, image)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "issue reported", "issue_id", issue.ID, "author_id", issue.AuthorID)
	return issue, nil
}

func (s *IssueService) List(ctx context.Context, page int) ([]*models.Issue, error) {
	return s.store.ListIssues(ctx, store.NormalizePage(page))
}

func (s *IssueService) Get(ctx context.Context, id string) (*models.Issue, error) {
	return s.store.FindIssueByID(ctx, id)
}

func (s *IssueService) ListByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error) {
	return s.store.ListIssuesByAuthor(ctx, authorID)
}

func (s *IssueService) ListManagedBy(ctx context.Context, authorityID string) ([]*models.Issue, error) {
	return s.store.ListIssuesManagedByAuthority(ctx, authorityID)
}
