package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/dbx"
	"github.com/dmitrijs2005/civicsync/internal/models"
)

const userColumns = `id, username, email, mobile, national_id, kind, avatar_url, bio, verified, password_hash, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var bio sql.NullString
	var kind string

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Mobile, &u.NationalID, &kind,
		&u.AvatarURL, &bio, &u.Verified, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	u.Kind = models.AccountKind(kind)
	if bio.Valid {
		u.Bio = &bio.String
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Create inserts a new unverified user. A taken username or email surfaces
// as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, n *models.NewUser) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, email, mobile, national_id, kind, avatar_url, bio, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query,
		common.NewID(), n.Username, n.Email, n.Mobile, n.NationalID, string(n.Kind),
		n.AvatarURL, nullString(n.Bio), n.PasswordHash)

	return scanUser(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(username) = lower($1) OR email = $1
		 ORDER BY (lower(username) = lower($1)) DESC
		 LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string) (*models.User, error) {
	query :=
		`UPDATE users SET verified = TRUE
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	query :=
		`UPDATE users SET
		   avatar_url = COALESCE($2, avatar_url),
		   bio = COALESCE($3, bio),
		   mobile = COALESCE($4, mobile)
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id,
		nullString(p.AvatarURL), nullString(p.Bio), nullString(p.Mobile)))
}
