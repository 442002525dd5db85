// Package postgres is the durable Store backend: PostgreSQL through
// pgx/stdlib for records and an images.Store for photos.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/dbx"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

var _ store.Store = (*Store)(nil)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

type Store struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	images images.Store
	log    logging.Logger
}

func New(db *sql.DB, repos repomanager.RepositoryManager, img images.Store, log logging.Logger) *Store {
	return &Store{db: db, repos: repos, images: img, log: log.With("module", "store.postgres")}
}

// Open connects to dsn, checks the connection and applies migrations.
func Open(ctx context.Context, dsn string, img images.Store, log logging.Logger) (*Store, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", dbx.Classify(err))
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations: %w", err)
	}

	return New(db, repos, img, log), nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	return s.repos.Users(s.db).GetByID(ctx, id)
}

func (s *Store) FindUserByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	return s.repos.Users(s.db).GetByUsernameOrEmail(ctx, identifier)
}

func (s *Store) CreateUser(ctx context.Context, n *models.NewUser) (*models.User, error) {
	return s.repos.Users(s.db).Create(ctx, n)
}

func (s *Store) SetVerified(ctx context.Context, id string) (*models.User, error) {
	return s.repos.Users(s.db).SetVerified(ctx, id)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	return s.repos.Users(s.db).UpdateProfile(ctx, id, p)
}

func (s *Store) ListIssues(ctx context.Context, page int) ([]*models.Issue, error) {
	offset := (store.NormalizePage(page) - 1) * common.PageSize
	return s.repos.Issues(s.db).List(ctx, common.PageSize, offset)
}

// FindIssueByID reads the issue row before its updates. A transition
// commits both together, so a status seen here always has its update in
// the second read.
func (s *Store) FindIssueByID(ctx context.Context, id string) (*models.Issue, error) {
	return s.hydrate(ctx, s.db, id)
}

func (s *Store) hydrate(ctx context.Context, db dbx.DBTX, id string) (*models.Issue, error) {
	issue, err := s.repos.Issues(db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Updates, err = s.repos.Updates(db).ListByIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *Store) CreateIssue(ctx context.Context, n *models.NewIssue, image []byte) (*models.Issue, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repos.Users(s.db).GetByID(ctx, n.AuthorID); err != nil {
		return nil, err
	}

	var imageURL string
	if len(image) > 0 {
		url, err := s.images.Put(ctx, "issues", image)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	issue := &models.Issue{
		ID:          common.NewID(),
		Title:       n.Title,
		Description: n.Description,
		Tags:        models.NormalizeTags(n.Tags),
		ImageURL:    imageURL,
		Lat:         n.Lat,
		Lng:         n.Lng,
		Status:      models.Pending,
		AuthorID:    n.AuthorID,
	}

	if _, err := s.repos.Issues(s.db).Create(ctx, issue); err != nil {
		if imageURL != "" {
			s.log.Warn(ctx, "issue insert failed, image orphaned", "image_url", imageURL, "error", err)
		}
		return nil, err
	}

	return s.hydrate(ctx, s.db, issue.ID)
}

func (s *Store) ListIssuesByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error) {
	return s.repos.Issues(s.db).ListByAuthor(ctx, authorID)
}

func (s *Store) ListIssuesManagedByAuthority(ctx context.Context, authorityID string) ([]*models.Issue, error) {
	return s.repos.Issues(s.db).ListManagedBy(ctx, authorityID)
}

// Transition runs in one transaction holding the issue row lock, so two
// concurrent transitions of the same issue are serialized and the guard
// always sees the latest committed status.
func (s *Store) Transition(ctx context.Context, issueID string, req models.TransitionRequest, guard models.TransitionGuard) (*models.Issue, error) {
	var result *models.Issue

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := s.repos.Issues(tx).GetByIDForUpdate(ctx, issueID)
		if err != nil {
			return err
		}
		current.Updates, err = s.repos.Updates(tx).ListByIssue(ctx, issueID)
		if err != nil {
			return err
		}

		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		u := req.Update
		u.IssueID = issueID
		if _, err := s.repos.Updates(tx).Append(ctx, &u); err != nil {
			return err
		}
		if err := s.repos.Issues(tx).SetStatus(ctx, issueID, req.Target, req.ResolvedImageURL); err != nil {
			return err
		}

		result, err = s.hydrate(ctx, tx, issueID)
		return err
	})
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func (s *Store) IncrementCounter(ctx context.Context, issueID string, kind models.CounterKind) (int64, error) {
	return s.repos.Issues(s.db).IncrementCounter(ctx, issueID, kind)
}

func (s *Store) Close() error {
	return s.db.Close()
}
