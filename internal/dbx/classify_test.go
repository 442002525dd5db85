package dbx

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	check := &pgconn.PgError{Code: "23514", ConstraintName: "issues_lat_check"}
	connLost := &pgconn.PgError{Code: "08006"}
	shutdown := &pgconn.PgError{Code: "57P01"}
	fk := &pgconn.PgError{Code: "23503"}
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	plain := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "unique violation", in: unique, want: common.ErrorConflict},
		{name: "check violation", in: check, want: common.ErrorValidation},
		{name: "connection exception", in: connLost, want: common.ErrorBackendUnavailable},
		{name: "admin shutdown", in: shutdown, want: common.ErrorBackendUnavailable},
		{name: "net error", in: dial, want: common.ErrorBackendUnavailable},
		{name: "bad conn", in: driver.ErrBadConn, want: common.ErrorBackendUnavailable},
		{name: "conn done", in: sql.ErrConnDone, want: common.ErrorBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.in, "original error must stay in the chain")
		})
	}

	t.Run("other pg error unchanged", func(t *testing.T) {
		assert.Same(t, error(fk), Classify(fk))
	})
	t.Run("plain error unchanged", func(t *testing.T) {
		assert.Equal(t, plain, Classify(plain))
	})
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Classify(nil))
	})
	t.Run("already classified", func(t *testing.T) {
		wrapped := Classify(unique)
		assert.Equal(t, wrapped, Classify(wrapped))
	})
}
