package updates

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/dbx"
	"github.com/dmitrijs2005/civicsync/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append writes u. An empty ID is filled in; the creation time always comes
// from the database.
func (r *PostgresRepository) Append(ctx context.Context, u *models.Update) (*models.Update, error) {
	if u.ID == "" {
		u.ID = common.NewID()
	}

	query :=
		`INSERT INTO issue_updates (id, issue_id, authority_id, update_text)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, u.ID, u.IssueID, u.AuthorityID, u.Text).Scan(&u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return u, nil
}

func (r *PostgresRepository) ListByIssue(ctx context.Context, issueID string) ([]models.Update, error) {
	query :=
		`SELECT id, issue_id, authority_id, update_text, created_at
		 FROM issue_updates
		 WHERE issue_id = $1
		 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	defer rows.Close()

	result := make([]models.Update, 0)
	for rows.Next() {
		var u models.Update
		if err := rows.Scan(&u.ID, &u.IssueID, &u.AuthorityID, &u.Text, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return result, nil
}
