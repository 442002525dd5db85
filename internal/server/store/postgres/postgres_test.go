package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
	"github.com/dmitrijs2005/civicsync/internal/server/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userCols  = []string{"id", "username", "email", "mobile", "national_id", "kind", "avatar_url", "bio", "verified", "password_hash", "created_at"}
	issueCols = []string{
		"id", "title", "description", "tags", "image_url", "lat", "lng",
		"status", "author_id", "created_at", "upvotes", "reposts", "resolved_image_url",
		"username", "avatar_url", "kind",
	}
	updateCols = []string{"id", "issue_id", "authority_id", "update_text", "created_at"}
	ts         = time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
)

func newMockStore(t *testing.T, img images.Store) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, repomanager.NewPostgresRepositoryManager(), img, logging.NewNop()), mock
}

func issueRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(issueCols).AddRow("i-1", "Pothole", "Deep", []byte(`["#road"]`), "", 1.0, 2.0,
		status, "u-1", ts, int64(0), int64(0), nil, "alice", "", "citizen")
}

func TestTransition_CommitsUpdateThenStatus(t *testing.T) {
	s, mock := newMockStore(t, images.NewMemoryStore())

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE\s+OF\s+i$`).WithArgs("i-1").WillReturnRows(issueRow("Pending"))
	mock.ExpectQuery(`FROM\s+issue_updates`).WithArgs("i-1").WillReturnRows(sqlmock.NewRows(updateCols))
	mock.ExpectQuery(`^INSERT\s+INTO\s+issue_updates`).
		WithArgs(sqlmock.AnyArg(), "i-1", "a-1", "on it").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(ts))
	mock.ExpectExec(`^UPDATE\s+issues\s+SET\s+status`).
		WithArgs("i-1", "In Progress", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`WHERE\s+i\.id\s*=\s*\$1$`).WithArgs("i-1").WillReturnRows(issueRow("In Progress"))
	mock.ExpectQuery(`FROM\s+issue_updates`).WithArgs("i-1").
		WillReturnRows(sqlmock.NewRows(updateCols).AddRow("up-1", "i-1", "a-1", "on it", ts))
	mock.ExpectCommit()

	var guarded models.Status
	got, err := s.Transition(context.Background(), "i-1", models.TransitionRequest{
		Update: models.Update{AuthorityID: "a-1", Text: "on it"},
		Target: models.InProgress,
	}, func(current *models.Issue) error {
		guarded = current.Status
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.Pending, guarded)
	assert.Equal(t, models.InProgress, got.Status)
	require.Len(t, got.Updates, 1)
	assert.Equal(t, "on it", got.Updates[0].Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_GuardRejectionRollsBack(t *testing.T) {
	s, mock := newMockStore(t, images.NewMemoryStore())

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE\s+OF\s+i$`).WithArgs("i-1").WillReturnRows(issueRow("Resolved"))
	mock.ExpectQuery(`FROM\s+issue_updates`).WithArgs("i-1").WillReturnRows(sqlmock.NewRows(updateCols))
	mock.ExpectRollback()

	_, err := s.Transition(context.Background(), "i-1", models.TransitionRequest{
		Update: models.Update{AuthorityID: "a-1", Text: "reopen"},
		Target: models.Pending,
	}, func(*models.Issue) error { return common.ErrorIllegalTransition })

	assert.ErrorIs(t, err, common.ErrorIllegalTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_UnknownIssue(t *testing.T) {
	s, mock := newMockStore(t, images.NewMemoryStore())

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE\s+OF\s+i$`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Transition(context.Background(), "nope", models.TransitionRequest{Target: models.InProgress}, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTransition_BeginFailsIsBackendUnavailable(t *testing.T) {
	s, mock := newMockStore(t, images.NewMemoryStore())
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	_, err := s.Transition(context.Background(), "i-1", models.TransitionRequest{Target: models.InProgress}, nil)
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
}

func TestCreateIssue_ImageFailureWritesNothing(t *testing.T) {
	img := images.NewMemoryStore()
	img.FailWith(errors.New("s3 down"))
	s, mock := newMockStore(t, img)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "alice", "a@x", "", "", "citizen", "", nil, true, "h", ts))

	_, err := s.CreateIssue(context.Background(), &models.NewIssue{Title: "t", Description: "d", AuthorID: "u-1"}, []byte("img"))
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
	require.NoError(t, mock.ExpectationsWereMet(), "no INSERT after a failed upload")
}

func TestCreateIssue_RowFailureLeavesImage(t *testing.T) {
	img := images.NewMemoryStore()
	s, mock := newMockStore(t, img)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "alice", "a@x", "", "", "citizen", "", nil, true, "h", ts))
	mock.ExpectQuery(`^INSERT\s+INTO\s+issues`).WillReturnError(sql.ErrConnDone)

	_, err := s.CreateIssue(context.Background(), &models.NewIssue{Title: "t", Description: "d", AuthorID: "u-1"}, []byte("img"))
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)
	assert.Equal(t, 1, img.Len(), "orphaned image is not cleaned up")
}

func TestListIssues_PageOffsets(t *testing.T) {
	s, mock := newMockStore(t, images.NewMemoryStore())

	mock.ExpectQuery(`LIMIT\s+\$1\s+OFFSET\s+\$2$`).WithArgs(common.PageSize, 0).WillReturnRows(sqlmock.NewRows(issueCols))
	mock.ExpectQuery(`LIMIT\s+\$1\s+OFFSET\s+\$2$`).WithArgs(common.PageSize, 2*common.PageSize).WillReturnRows(sqlmock.NewRows(issueCols))

	_, err := s.ListIssues(context.Background(), -1)
	require.NoError(t, err)
	_, err = s.ListIssues(context.Background(), 3)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_DriverError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		return nil, errors.New("bad dsn")
	}

	_, err := Open(context.Background(), "postgres://", images.NewMemoryStore(), logging.NewNop())
	assert.ErrorContains(t, err, "bad dsn")
}

// TestConformance runs the shared suite against a real database when
// CIVICSYNC_TEST_DATABASE_DSN is set.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("CIVICSYNC_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("CIVICSYNC_TEST_DATABASE_DSN not set")
	}

	storetest.Run(t, func(t *testing.T, img images.Store) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, dsn, img, logging.NewNop())
		require.NoError(t, err)
		_, err = s.db.ExecContext(ctx, `TRUNCATE issue_updates, issues, users`)
		require.NoError(t, err)
		return s
	})
}
