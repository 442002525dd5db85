package issues

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/dbx"
	"github.com/dmitrijs2005/civicsync/internal/models"
)

const issueSelect = `SELECT i.id, i.title, i.description, i.tags, i.image_url, i.lat, i.lng,
       i.status, i.author_id, i.created_at, i.upvotes, i.reposts, i.resolved_image_url,
       u.username, u.avatar_url, u.kind
  FROM issues i
  JOIN users u ON u.id = i.author_id`

const newestFirst = ` ORDER BY i.created_at DESC, i.id DESC`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanIssue(row interface{ Scan(...any) error }) (*models.Issue, error) {
	i := &models.Issue{}
	var tags []byte
	var status, kind string
	var resolved sql.NullString

	err := row.Scan(&i.ID, &i.Title, &i.Description, &tags, &i.ImageURL, &i.Lat, &i.Lng,
		&status, &i.AuthorID, &i.CreatedAt, &i.Upvotes, &i.Reposts, &resolved,
		&i.Author.Username, &i.Author.AvatarURL, &kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &i.Tags); err != nil {
			return nil, fmt.Errorf("db error: decoding tags: %w", err)
		}
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
	i.Status = models.Status(status)
	i.Author.ID = i.AuthorID
	i.Author.Kind = models.AccountKind(kind)
	if resolved.Valid {
		i.ResolvedImageURL = &resolved.String
	}
	return i, nil
}

func (r *PostgresRepository) queryIssues(ctx context.Context, query string, args ...any) ([]*models.Issue, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	defer rows.Close()

	result := make([]*models.Issue, 0)
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return result, nil
}

// Create inserts issue and returns it with the server-assigned creation
// time. Status and counters are taken from issue as given.
func (r *PostgresRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	tags, err := json.Marshal(issue.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	query :=
		`INSERT INTO issues (id, title, description, tags, image_url, lat, lng, status, author_id, upvotes, reposts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		issue.ID, issue.Title, issue.Description, tags, issue.ImageURL, issue.Lat, issue.Lng,
		string(issue.Status), issue.AuthorID, issue.Upvotes, issue.Reposts).Scan(&issue.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	return issue, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	return scanIssue(r.db.QueryRowContext(ctx, issueSelect+` WHERE i.id = $1`, id))
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Issue, error) {
	return scanIssue(r.db.QueryRowContext(ctx, issueSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id))
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.Issue, error) {
	return r.queryIssues(ctx, issueSelect+newestFirst+` LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error) {
	return r.queryIssues(ctx, issueSelect+` WHERE i.author_id = $1`+newestFirst, authorID)
}

// ListManagedBy returns issues carrying at least one update written by
// authorityID. EXISTS keeps each issue once however many updates match.
func (r *PostgresRepository) ListManagedBy(ctx context.Context, authorityID string) ([]*models.Issue, error) {
	query := issueSelect +
		` WHERE EXISTS (SELECT 1 FROM issue_updates iu WHERE iu.issue_id = i.id AND iu.authority_id = $1)` +
		newestFirst
	return r.queryIssues(ctx, query, authorityID)
}

// SetStatus overwrites the status. A nil resolvedImageURL keeps the stored
// value.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.Status, resolvedImageURL *string) error {
	query :=
		`UPDATE issues SET status = $2, resolved_image_url = COALESCE($3, resolved_image_url)
		 WHERE id = $1`

	var resolved sql.NullString
	if resolvedImageURL != nil {
		resolved = sql.NullString{String: *resolvedImageURL, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, id, string(status), resolved)
	if err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// IncrementCounter bumps one counter in a single statement so concurrent
// callers never lose an increment.
func (r *PostgresRepository) IncrementCounter(ctx context.Context, id string, kind models.CounterKind) (int64, error) {
	var query string
	switch kind {
	case models.Upvotes:
		query = `UPDATE issues SET upvotes = upvotes + 1 WHERE id = $1 RETURNING upvotes`
	case models.Reposts:
		query = `UPDATE issues SET reposts = reposts + 1 WHERE id = $1 RETURNING reposts`
	default:
		return 0, fmt.Errorf("%w: unknown counter %q", common.ErrorValidation, kind)
	}

	var n int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return n, nil
}
